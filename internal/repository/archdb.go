package repository

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/siloworks/silo/internal/archive"
	"github.com/siloworks/silo/internal/types"
)

// ParseArchDB parses an Arch Linux repository database (e.g. core.db.tar.gz
// / core.db.tar.zst): a tarball with one directory per package version,
// each holding a "desc" file (%KEY%\nvalue\n\n blocks) and a "depends"
// file in the same format.
func ParseArchDB(data []byte) ([]Entry, error) {
	decompressed, err := archive.Decompress(data)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string]map[string][]string)
	tr := tar.NewReader(bytes.NewReader(decompressed))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.NewParseError("reading arch db tar: " + err.Error())
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dir := strings.SplitN(hdr.Name, "/", 2)[0]
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, types.NewParseError("reading arch db entry " + hdr.Name + ": " + err.Error())
		}
		if blocks[dir] == nil {
			blocks[dir] = make(map[string][]string)
		}
		for key, values := range parseArchDescBlocks(body) {
			blocks[dir][key] = append(blocks[dir][key], values...)
		}
	}

	var entries []Entry
	for _, fields := range blocks {
		name := first(fields["NAME"])
		if name == "" {
			continue
		}
		e := Entry{
			Name:        name,
			Version:     first(fields["VERSION"]),
			Arch:        first(fields["ARCH"]),
			Description: first(fields["DESC"]),
			Checksum:    first(fields["SHA256SUM"]),
			DownloadURL: first(fields["FILENAME"]),
		}
		if csize := first(fields["CSIZE"]); csize != "" {
			e.Size = parseInt64(csize)
		}
		for _, dep := range fields["DEPENDS"] {
			e.Deps = append(e.Deps, parseSimpleDep(dep, types.DependencyRuntime))
		}
		for _, dep := range fields["MAKEDEPENDS"] {
			e.Deps = append(e.Deps, parseSimpleDep(dep, types.DependencyBuild))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseArchDescBlocks parses the "%KEY%\nline1\nline2\n\n" block format
// shared by Arch's desc and depends files, collecting one or more values
// per key (fields like %DEPENDS% repeat one value per line).
func parseArchDescBlocks(body []byte) map[string][]string {
	fields := make(map[string][]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
			currentKey = strings.Trim(line, "%")
			continue
		}
		if line == "" {
			currentKey = ""
			continue
		}
		if currentKey != "" {
			fields[currentKey] = append(fields[currentKey], line)
		}
	}
	return fields
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func parseInt64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// parseSimpleDep splits an Arch-style "name>=1.2" dependency string into a
// Dep, same convention as the archive package's .PKGINFO dependency fields.
func parseSimpleDep(raw string, kind types.DependencyKind) types.Dep {
	raw = strings.TrimSpace(raw)
	for _, op := range []string{">=", "<=", "==", ">", "<", "="} {
		if idx := strings.Index(raw, op); idx >= 0 {
			return types.Dep{Name: strings.TrimSpace(raw[:idx]), Constraint: op + strings.TrimSpace(raw[idx+len(op):]), Kind: kind}
		}
	}
	return types.Dep{Name: raw, Kind: kind}
}
