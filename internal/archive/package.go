package archive

import "github.com/siloworks/silo/internal/types"

// Package is the concrete, format-agnostic value every parser in this
// package produces. It implements types.Package directly so the engine
// never needs to know which format an archive came from.
type Package struct {
	PkgName        string
	PkgVersion     string
	PkgArch        string
	PkgDescription string
	PkgFiles       []types.PackageFile
	PkgDeps        []types.Dep
	PkgProvenance  map[string]string
	PkgFlavors     map[string]string
}

func (p *Package) Name() string                    { return p.PkgName }
func (p *Package) Version() string                 { return p.PkgVersion }
func (p *Package) Arch() string                     { return p.PkgArch }
func (p *Package) Description() string              { return p.PkgDescription }
func (p *Package) Files() []types.PackageFile       { return p.PkgFiles }
func (p *Package) Deps() []types.Dep                { return p.PkgDeps }
func (p *Package) ProvenanceFields() map[string]string { return p.PkgProvenance }
func (p *Package) Flavors() map[string]string       { return p.PkgFlavors }

var _ types.Package = (*Package)(nil)

// Parser dispatches to the per-format parser by types.RepositoryFormat,
// matching engine.ArchiveParser so the engine can call Parse without a
// format-identity switch of its own (spec §9).
type Parser struct{}

// Parse turns raw archive bytes into a Package for the named format.
func (Parser) Parse(format types.RepositoryFormat, data []byte) (types.Package, error) {
	switch format {
	case types.RepositoryFormatRPM:
		return ParseRPM(data)
	case types.RepositoryFormatDeb:
		return ParseDebian(data)
	case types.RepositoryFormatArch:
		return ParseArch(data)
	default:
		return nil, types.NewParseError("unknown archive format: " + string(format))
	}
}
