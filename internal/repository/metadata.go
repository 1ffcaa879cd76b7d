package repository

import (
	"context"

	"github.com/siloworks/silo/internal/types"
)

// Fetcher retrieves raw bytes for a repository metadata URL. Sync never
// performs I/O of its own; the HTTP client is an external collaborator
// supplied by the caller, matching engine.Fetcher's role for archives.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Entry is one package version as listed in a repository's metadata,
// independent of the on-disk format that produced it.
type Entry struct {
	Name        string
	Version     string
	Arch        string
	Description string
	Checksum    string
	Size        int64
	DownloadURL string
	Deps        []types.Dep
}

// MetadataParser turns a repository's raw metadata bytes into Entry rows.
type MetadataParser interface {
	Parse(format types.RepositoryFormat, data []byte) ([]Entry, error)
}

// Parser dispatches to the per-format metadata parser.
type Parser struct{}

// Parse implements MetadataParser.
func (Parser) Parse(format types.RepositoryFormat, data []byte) ([]Entry, error) {
	switch format {
	case types.RepositoryFormatArch:
		return ParseArchDB(data)
	case types.RepositoryFormatDeb:
		return ParseDebianPackages(data)
	case types.RepositoryFormatRPM:
		return ParseFedoraPrimaryXML(data)
	default:
		return nil, types.NewParseError("unknown repository format: " + string(format))
	}
}
