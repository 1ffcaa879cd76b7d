// Package engine is the Changeset Engine: the orchestrator that applies and
// reverses changesets atomically. It consults the Catalog and
// internal/version to classify an install as fresh, upgrade, no-op, or
// reject; invokes internal/resolver when transitive dependencies must be
// pulled; executes the staged plan inside one Catalog transaction; and only
// then hands file contents to the Object Store and internal/deployer.
//
// Catalog commit and filesystem deployment are deliberately two phases: the
// Catalog is the source of truth, the filesystem a projection of it that
// can lag or drift. A deployment failure after a successful commit is a
// "degraded" result, not a rolled-back one; Verify and a rerun of Deploy
// are how an operator recovers.
package engine
