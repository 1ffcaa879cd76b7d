package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/siloworks/silo/internal/types"
)

// debControlFields are the control-file keys a Debian package's control
// file carries.
var debControlFields = []string{
	"Package", "Version", "Architecture", "Description", "Maintainer",
	"Section", "Priority", "Homepage", "Installed-Size",
	"Depends", "Recommends", "Suggests", "Build-Depends",
}

// ParseDebian parses a Debian .deb archive: an ar(1) container (magic
// "!<arch>\n") holding a control member and a data member, each themselves
// a compressed tarball.
func ParseDebian(data []byte) (types.Package, error) {
	if len(data) < 8 || string(data[:8]) != "!<arch>\n" {
		return nil, types.NewParseError("not a debian ar archive")
	}

	reader := ar.NewReader(bytes.NewReader(data))
	var controlTar, dataTar []byte

	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewParseError("reading ar member: " + err.Error())
		}
		name := strings.TrimSpace(hdr.Name)
		content, err := io.ReadAll(reader)
		if err != nil {
			return nil, types.NewParseError("reading ar member " + name + ": " + err.Error())
		}
		switch {
		case strings.HasPrefix(name, "control.tar"):
			controlTar = content
		case strings.HasPrefix(name, "data.tar"):
			dataTar = content
		}
	}
	if controlTar == nil {
		return nil, types.NewParseError("debian archive has no control member")
	}

	fields, err := extractDebControl(controlTar)
	if err != nil {
		return nil, err
	}

	files, err := extractDebFiles(dataTar)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		PkgName:        fields["Package"],
		PkgVersion:     fields["Version"],
		PkgArch:        fields["Architecture"],
		PkgDescription: fields["Description"],
		PkgFiles:       files,
		PkgDeps:        parseDebDepends(fields["Depends"], types.DependencyRuntime),
		PkgProvenance: map[string]string{
			"builder": fields["Maintainer"],
		},
		PkgFlavors: map[string]string{},
	}
	pkg.PkgDeps = append(pkg.PkgDeps, parseDebDepends(fields["Build-Depends"], types.DependencyBuild)...)
	if pkg.PkgName == "" {
		return nil, types.NewParseError("debian control file missing Package field")
	}
	return pkg, nil
}

// extractDebControl decompresses the control member's tarball (gzip or
// xz, per the on-disk convention dpkg-deb uses) and parses the RFC 822
// "control" entry into field → value.
func extractDebControl(tarball []byte) (map[string]string, error) {
	decompressed, err := Decompress(tarball)
	if err != nil {
		return nil, err
	}

	tr := tar.NewReader(bytes.NewReader(decompressed))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewParseError("reading control tar: " + err.Error())
		}
		if strings.TrimPrefix(hdr.Name, "./") != "control" {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, types.NewParseError("reading control file: " + err.Error())
		}
		return parseRFC822(body), nil
	}
	return nil, types.NewParseError("control tar has no control file")
}

// extractDebFiles decompresses the data member's tarball and lists every
// entry as a PackageFile, content included.
func extractDebFiles(tarball []byte) ([]types.PackageFile, error) {
	if tarball == nil {
		return nil, nil
	}
	decompressed, err := Decompress(tarball)
	if err != nil {
		return nil, err
	}

	var files []types.PackageFile
	tr := tar.NewReader(bytes.NewReader(decompressed))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewParseError("reading data tar: " + err.Error())
		}
		path := "/" + strings.TrimPrefix(strings.TrimPrefix(hdr.Name, "./"), "/")
		switch hdr.Typeflag {
		case tar.TypeDir:
			files = append(files, types.PackageFile{Path: path, Mode: uint32(hdr.Mode), IsDir: true})
		case tar.TypeSymlink:
			files = append(files, types.PackageFile{Path: path, Mode: uint32(hdr.Mode), IsLink: true, LinkTo: hdr.Linkname})
		case tar.TypeReg:
			content, err := io.ReadAll(tr)
			if err != nil {
				return nil, types.NewParseError("reading data tar entry " + path + ": " + err.Error())
			}
			files = append(files, types.PackageFile{Path: path, Content: content, Mode: uint32(hdr.Mode)})
		}
	}
	return files, nil
}

// parseRFC822 parses a Debian control-file-style paragraph: "Field: value"
// lines, with continuation lines indented by at least one space.
func parseRFC822(body []byte) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && currentKey != "" {
			fields[currentKey] += "\n" + strings.TrimSpace(line)
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
		currentKey = key
	}
	return fields
}

// parseDebDepends splits a comma-separated Depends-style field into
// individual Dep entries, keeping a parenthesised version constraint as the
// Dep's Constraint and discarding "|" alternatives beyond the first choice.
func parseDebDepends(field string, kind types.DependencyKind) []types.Dep {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var deps []types.Dep
	for _, entry := range strings.Split(field, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// Take the first alternative of an "a | b" dependency.
		alt := strings.SplitN(entry, "|", 2)[0]
		alt = strings.TrimSpace(alt)

		name := alt
		constraint := ""
		if parenIdx := strings.Index(alt, "("); parenIdx >= 0 {
			name = strings.TrimSpace(alt[:parenIdx])
			closeIdx := strings.Index(alt, ")")
			if closeIdx > parenIdx {
				constraint = strings.TrimSpace(alt[parenIdx+1 : closeIdx])
			}
		}
		if name == "" {
			continue
		}
		deps = append(deps, types.Dep{Name: name, Kind: kind, Constraint: constraint})
	}
	return deps
}
