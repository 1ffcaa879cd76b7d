package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/siloworks/silo/internal/types"
)

// ParseArch parses an Arch Linux .pkg.tar.{zst,xz,gz} archive: a tarball,
// compressed with whichever codec the builder chose, holding a .PKGINFO
// metadata entry alongside the package's files.
func ParseArch(data []byte) (types.Package, error) {
	decompressed, err := Decompress(data)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		PkgProvenance: map[string]string{},
		PkgFlavors:    map[string]string{},
	}
	var pkginfo map[string][]string

	tr := tar.NewReader(bytes.NewReader(decompressed))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewParseError("reading arch package tar: " + err.Error())
		}
		name := strings.TrimPrefix(hdr.Name, "./")

		switch {
		case name == ".PKGINFO":
			body, err := io.ReadAll(tr)
			if err != nil {
				return nil, types.NewParseError("reading .PKGINFO: " + err.Error())
			}
			pkginfo = parsePkginfo(body)
		case strings.HasPrefix(name, ".") && !strings.Contains(name, "/"):
			// .BUILDINFO, .MTREE, .INSTALL: package-manager metadata, not
			// deployed files.
			continue
		default:
			path := "/" + name
			switch hdr.Typeflag {
			case tar.TypeDir:
				pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Mode: uint32(hdr.Mode), IsDir: true})
			case tar.TypeSymlink:
				pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Mode: uint32(hdr.Mode), IsLink: true, LinkTo: hdr.Linkname})
			case tar.TypeReg:
				content, err := io.ReadAll(tr)
				if err != nil {
					return nil, types.NewParseError("reading arch package entry " + path + ": " + err.Error())
				}
				pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Content: content, Mode: uint32(hdr.Mode)})
			}
		}
	}

	if pkginfo == nil {
		return nil, types.NewParseError("arch package has no .PKGINFO entry")
	}

	pkg.PkgName = first(pkginfo["pkgname"])
	pkg.PkgVersion = first(pkginfo["pkgver"])
	pkg.PkgArch = first(pkginfo["arch"])
	pkg.PkgDescription = first(pkginfo["pkgdesc"])
	if builddate := first(pkginfo["builddate"]); builddate != "" {
		pkg.PkgProvenance["builddate"] = builddate
	}
	if packager := first(pkginfo["packager"]); packager != "" {
		pkg.PkgProvenance["packager"] = packager
	}
	for _, dep := range pkginfo["depend"] {
		pkg.PkgDeps = append(pkg.PkgDeps, parseArchDep(dep, types.DependencyRuntime))
	}
	for _, dep := range pkginfo["makedepend"] {
		pkg.PkgDeps = append(pkg.PkgDeps, parseArchDep(dep, types.DependencyBuild))
	}
	for _, dep := range pkginfo["optdepend"] {
		pkg.PkgDeps = append(pkg.PkgDeps, parseArchDep(dep, types.DependencyOptional))
	}

	if pkg.PkgName == "" {
		return nil, types.NewParseError(".PKGINFO missing pkgname")
	}
	return pkg, nil
}

// parsePkginfo parses the .PKGINFO key = value format, collecting repeated
// keys (depend, optdepend, ...) into slices rather than overwriting.
func parsePkginfo(body []byte) map[string][]string {
	fields := make(map[string][]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = append(fields[key], value)
	}
	return fields
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// parseArchDep splits a "name>=1.2" / "name: description" style dependency
// string into a Dep.
func parseArchDep(raw string, kind types.DependencyKind) types.Dep {
	raw = strings.SplitN(raw, ":", 2)[0]
	raw = strings.TrimSpace(raw)
	for _, op := range []string{">=", "<=", "==", ">", "<", "="} {
		if idx := strings.Index(raw, op); idx >= 0 {
			return types.Dep{Name: strings.TrimSpace(raw[:idx]), Constraint: op + strings.TrimSpace(raw[idx+len(op):]), Kind: kind}
		}
	}
	return types.Dep{Name: raw, Kind: kind}
}
