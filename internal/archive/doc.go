// Package archive turns RPM, Debian (.deb), and Arch (.pkg.tar.*) archive
// bytes into the engine's types.Package capability interface (spec §9):
// name, version, arch, description, files, dependencies, and provenance,
// with no further switching on format once parsed. Spec §1 treats these
// parsers as external collaborators to the core engine — callers supply
// already-downloaded bytes; archive never performs I/O of its own.
package archive
