// Package catalog is the authoritative record of installed Troves, their
// Files, Flavors, Provenance, Dependencies, and the Changesets that put them
// there. It is backed by a single SQLite database file; every mutating
// sequence runs inside WithTransaction so a crash mid-operation leaves the
// previous state intact rather than a half-applied one.
package catalog
