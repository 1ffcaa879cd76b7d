package repository

import (
	"encoding/xml"

	"github.com/siloworks/silo/internal/archive"
	"github.com/siloworks/silo/internal/types"
)

// primaryMetadata mirrors the subset of Fedora/DNF's repodata primary.xml
// schema this sync path needs.
type primaryMetadata struct {
	XMLName  xml.Name        `xml:"metadata"`
	Packages []primaryPkgXML `xml:"package"`
}

type primaryPkgXML struct {
	Name     string `xml:"name"`
	Arch     string `xml:"arch"`
	Version  struct {
		Epoch string `xml:"epoch,attr"`
		Ver   string `xml:"ver,attr"`
		Rel   string `xml:"rel,attr"`
	} `xml:"version"`
	Checksum    string `xml:"checksum"`
	Summary     string `xml:"summary"`
	Description string `xml:"description"`
	Location    struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Size struct {
		Package int64 `xml:"package,attr"`
	} `xml:"size"`
	Format struct {
		Requires struct {
			Entries []primaryEntryXML `xml:"entry"`
		} `xml:"requires"`
	} `xml:"format"`
}

type primaryEntryXML struct {
	Name string `xml:"name,attr"`
	Flags string `xml:"flags,attr"`
	Ver   string `xml:"ver,attr"`
}

// ParseFedoraPrimaryXML parses an RPM repository's repodata/primary.xml(.gz
// |.zst), the canonical package index DNF/yum consult.
func ParseFedoraPrimaryXML(data []byte) ([]Entry, error) {
	decompressed, err := archive.Decompress(data)
	if err != nil {
		return nil, err
	}

	var meta primaryMetadata
	if err := xml.Unmarshal(decompressed, &meta); err != nil {
		return nil, types.NewParseError("parsing primary.xml: " + err.Error())
	}

	entries := make([]Entry, 0, len(meta.Packages))
	for _, p := range meta.Packages {
		version := p.Version.Ver
		if p.Version.Rel != "" {
			version += "-" + p.Version.Rel
		}
		if p.Version.Epoch != "" && p.Version.Epoch != "0" {
			version = p.Version.Epoch + ":" + version
		}
		e := Entry{
			Name:        p.Name,
			Version:     version,
			Arch:        p.Arch,
			Description: p.Description,
			Checksum:    p.Checksum,
			Size:        p.Size.Package,
			DownloadURL: p.Location.Href,
		}
		for _, req := range p.Format.Requires.Entries {
			if isPseudoRequire(req.Name) {
				continue
			}
			constraint := ""
			if req.Flags != "" && req.Ver != "" {
				constraint = req.Flags + req.Ver
			}
			e.Deps = append(e.Deps, types.Dep{Name: req.Name, Constraint: constraint, Kind: types.DependencyRuntime})
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isPseudoRequire(name string) bool {
	return len(name) > 0 && (name[0] == '/' || (len(name) >= 7 && name[:7] == "rpmlib("))
}
