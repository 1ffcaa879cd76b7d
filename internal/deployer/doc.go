// Package deployer materializes and retracts files under a target
// installation root, keeping on-disk state a projection of the Catalog.
//
// Deployment is a deliberate post-commit phase: the Catalog is the source of
// truth and the filesystem lags behind it until Deploy or Remove runs. Verify
// detects drift between the two; it never repairs it on its own.
package deployer
