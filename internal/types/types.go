// Package types defines the Catalog's entities and the closed error
// taxonomy shared by every other package in silo.
package types

import "time"

// TroveKind is the kind of an installed Trove.
type TroveKind string

const (
	TroveKindPackage    TroveKind = "package"
	TroveKindComponent  TroveKind = "component"
	TroveKindCollection TroveKind = "collection"
)

// ParseTroveKind rejects anything outside the closed set rather than
// defaulting to TroveKindPackage, per the "reject unknown values loudly"
// mapping rule.
func ParseTroveKind(s string) (TroveKind, error) {
	switch TroveKind(s) {
	case TroveKindPackage, TroveKindComponent, TroveKindCollection:
		return TroveKind(s), nil
	default:
		return "", NewParseError("invalid trove kind: " + s)
	}
}

// Trove is an installed package, component, or collection.
type Trove struct {
	ID                   int64
	Name                 string
	Version              string
	Kind                 TroveKind
	Arch                 string
	Description          string
	InstalledAt          time.Time
	InstalledByChangeset int64
}

// File is a single tracked filesystem path owned by exactly one Trove.
type File struct {
	ID          int64
	Path        string
	SHA256      string
	Size        int64
	Mode        uint32
	Owner       string
	Group       string
	TroveID     int64
	InstalledAt time.Time
}

// Flavor is a build-time variant key/value attached to a Trove.
type Flavor struct {
	ID      int64
	TroveID int64
	Key     string
	Value   string
}

// Provenance records upstream and build-origin metadata for a Trove.
type Provenance struct {
	ID         int64
	TroveID    int64
	SourceURL  string
	Branch     string
	Commit     string
	BuildHost  string
	BuildTime  string
	Builder    string
}

// DependencyKind classifies a Dependency edge.
type DependencyKind string

const (
	DependencyRuntime  DependencyKind = "runtime"
	DependencyBuild    DependencyKind = "build"
	DependencyOptional DependencyKind = "optional"
)

// ParseDependencyKind rejects anything outside the closed set.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch DependencyKind(s) {
	case DependencyRuntime, DependencyBuild, DependencyOptional:
		return DependencyKind(s), nil
	default:
		return "", NewParseError("invalid dependency kind: " + s)
	}
}

// Dependency is a (soft) edge from a Trove to a name it requires.
type Dependency struct {
	ID               int64
	TroveID          int64
	DependsOnName    string
	DependsOnVersion string
	Kind             DependencyKind
	Constraint       string
}

// ChangesetStatus is the lifecycle state of a Changeset.
type ChangesetStatus string

const (
	ChangesetPending    ChangesetStatus = "pending"
	ChangesetApplied    ChangesetStatus = "applied"
	ChangesetRolledBack ChangesetStatus = "rolled_back"
)

// ParseChangesetStatus rejects anything outside the closed set.
func ParseChangesetStatus(s string) (ChangesetStatus, error) {
	switch ChangesetStatus(s) {
	case ChangesetPending, ChangesetApplied, ChangesetRolledBack:
		return ChangesetStatus(s), nil
	default:
		return "", NewParseError("invalid changeset status: " + s)
	}
}

// Changeset is an atomic unit of Catalog mutation.
type Changeset struct {
	ID           int64
	Description  string
	Status       ChangesetStatus
	CreatedAt    time.Time
	AppliedAt    *time.Time
	RolledBackAt *time.Time
	ReversedBy   *int64
}

// FileHistoryAction classifies a FileHistory row.
type FileHistoryAction string

const (
	FileHistoryAdd    FileHistoryAction = "add"
	FileHistoryModify FileHistoryAction = "modify"
	FileHistoryDelete FileHistoryAction = "delete"
)

// ParseFileHistoryAction rejects anything outside the closed set.
func ParseFileHistoryAction(s string) (FileHistoryAction, error) {
	switch FileHistoryAction(s) {
	case FileHistoryAdd, FileHistoryModify, FileHistoryDelete:
		return FileHistoryAction(s), nil
	default:
		return "", NewParseError("invalid file history action: " + s)
	}
}

// FileHistory is an append-only record of what a Changeset did to one path.
type FileHistory struct {
	ID            int64
	ChangesetID   int64
	Path          string
	SHA256        string
	Action        FileHistoryAction
	PreviousHash  string
	CreatedAt     time.Time
}

// FileContent is the authoritative index of blobs held by the Object Store.
type FileContent struct {
	SHA256      string
	ContentPath string
	Size        int64
	StoredAt    time.Time
}

// RepositoryFormat is the package format a Repository's metadata is in,
// which determines which internal/repository parser syncs it.
type RepositoryFormat string

const (
	RepositoryFormatRPM  RepositoryFormat = "rpm"
	RepositoryFormatDeb  RepositoryFormat = "deb"
	RepositoryFormatArch RepositoryFormat = "arch"
)

// ParseRepositoryFormat rejects anything outside the closed set.
func ParseRepositoryFormat(s string) (RepositoryFormat, error) {
	switch RepositoryFormat(s) {
	case RepositoryFormatRPM, RepositoryFormatDeb, RepositoryFormatArch:
		return RepositoryFormat(s), nil
	default:
		return "", NewParseError("invalid repository format: " + s)
	}
}

// Repository is a configured remote package source.
type Repository struct {
	ID                 int64
	Name               string
	URL                string
	Format             RepositoryFormat
	Enabled            bool
	Priority           int
	GPGCheck           bool
	GPGKeyURL          string
	MetadataExpireSecs int
	LastSync           *time.Time
	CreatedAt          time.Time
}

// RepositoryPackage is one package version indexed from a Repository.
type RepositoryPackage struct {
	ID           int64
	RepositoryID int64
	Name         string
	Version      string
	Arch         string
	Description  string
	Checksum     string
	Size         int64
	DownloadURL  string
	DepsJSON     string
	MetadataJSON string
	SyncedAt     time.Time
}

// PackageDelta is a binary patch from one known repository version of a
// package to another, discovered during a repository sync.
type PackageDelta struct {
	ID               int64
	RepositoryID     int64
	Name             string
	FromVersion      string
	ToVersion        string
	FromHash         string
	ToHash           string
	DeltaURL         string
	DeltaSize        int64
	DeltaChecksum    string
	CompressionRatio float64
}

// DeltaStats aggregates delta-application outcomes for one update changeset.
type DeltaStats struct {
	ID             int64
	ChangesetID    int64
	BytesSaved     int64
	DeltasApplied  int
	FullDownloads  int
	DeltaFailures  int
	CreatedAt      time.Time
}

// Dep is a single dependency declaration surfaced by a parsed package, as
// produced by the per-format archive parsers (see internal/archive).
type Dep struct {
	Name       string
	Version    string
	Kind       DependencyKind
	Constraint string
}

// PackageFile is a single file entry inside a parsed package archive.
type PackageFile struct {
	Path    string
	Content []byte
	Mode    uint32
	IsDir   bool
	IsLink  bool
	LinkTo  string
}

// Package is the capability interface the Changeset Engine needs from any
// parsed archive, regardless of its on-disk format (RPM, Debian, Arch). Each
// format implements it; the engine never switches on format identity.
type Package interface {
	Name() string
	Version() string
	Arch() string
	Description() string
	Files() []PackageFile
	Deps() []Dep
	ProvenanceFields() map[string]string
	Flavors() map[string]string
}
