// Package repository parses remote repository metadata (Arch's repo.db.tar,
// Debian's Packages, Fedora's repodata/primary.xml) into the catalog's
// RepositoryPackage and PackageDelta rows, and drives a bounded-concurrency
// sync across every configured Repository (spec §5).
package repository
