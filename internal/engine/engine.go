package engine

import (
	"github.com/rs/zerolog"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/deployer"
	"github.com/siloworks/silo/internal/log"
	"github.com/siloworks/silo/internal/objectstore"
)

// Engine is the Changeset Engine: the single entry point through which
// every mutation of the installed set flows.
type Engine struct {
	Catalog  *catalog.Catalog
	Store    *objectstore.Store
	Deployer *deployer.Deployer
	logger   zerolog.Logger
}

// New wires a Changeset Engine from its three collaborators. Root is the
// target installation root the Deployer materializes files under.
func New(cat *catalog.Catalog, store *objectstore.Store, root string) *Engine {
	return &Engine{
		Catalog:  cat,
		Store:    store,
		Deployer: deployer.New(root, store),
		logger:   log.WithComponent("engine"),
	}
}

// Outcome is the engine's verdict on what kind of operation an install
// request turned out to be, independent of whether it ultimately succeeded.
type Outcome string

const (
	OutcomeFreshInstall Outcome = "fresh_install"
	OutcomeUpgrade      Outcome = "upgrade"
)

// InstallResult reports what Install did and whether post-commit
// deployment fully succeeded.
type InstallResult struct {
	ChangesetID int64
	TroveID     int64
	Outcome     Outcome
	OldVersion  string
	// Degraded is true if the Catalog commit succeeded but one or more
	// files failed to deploy. The install is recorded; verify and a
	// redeploy are how an operator closes the gap.
	Degraded   bool
	DeployErrs []error
}

// RemoveResult reports what Remove did.
type RemoveResult struct {
	ChangesetID int64
	Degraded    bool
	DeployErrs  []error
}

// RollbackResult reports what a reversal did.
type RollbackResult struct {
	ReversingChangesetID int64
	ReversedChangesetID  int64
	Degraded             bool
	DeployErrs           []error
}

