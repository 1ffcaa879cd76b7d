package repository

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/siloworks/silo/internal/archive"
	"github.com/siloworks/silo/internal/types"
)

// ParseDebianPackages parses a Debian repository's Packages index (plain,
// gzip, or xz compressed): RFC 822 stanzas separated by a blank line, one
// per package version.
func ParseDebianPackages(data []byte) ([]Entry, error) {
	decompressed, err := archive.Decompress(data)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, stanza := range splitStanzas(decompressed) {
		fields := parseStanza(stanza)
		name := fields["Package"]
		if name == "" {
			continue
		}
		e := Entry{
			Name:        name,
			Version:     fields["Version"],
			Arch:        fields["Architecture"],
			Description: fields["Description"],
			Checksum:    fields["SHA256"],
			DownloadURL: fields["Filename"],
			Deps:        parseDebianDepends(fields["Depends"], types.DependencyRuntime),
		}
		if size, err := strconv.ParseInt(fields["Size"], 10, 64); err == nil {
			e.Size = size
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// splitStanzas breaks a Packages-index blob into its blank-line-separated
// per-package stanzas.
func splitStanzas(data []byte) [][]byte {
	var stanzas [][]byte
	var current bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if current.Len() > 0 {
				stanzas = append(stanzas, append([]byte(nil), current.Bytes()...))
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		stanzas = append(stanzas, current.Bytes())
	}
	return stanzas
}

func parseStanza(stanza []byte) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(stanza))
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && currentKey != "" {
			fields[currentKey] += "\n" + strings.TrimSpace(line)
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		fields[key] = strings.TrimSpace(line[idx+1:])
		currentKey = key
	}
	return fields
}

func parseDebianDepends(field string, kind types.DependencyKind) []types.Dep {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var deps []types.Dep
	for _, entry := range strings.Split(field, ",") {
		entry = strings.TrimSpace(strings.SplitN(entry, "|", 2)[0])
		if entry == "" {
			continue
		}
		name := entry
		constraint := ""
		if parenIdx := strings.Index(entry, "("); parenIdx >= 0 {
			name = strings.TrimSpace(entry[:parenIdx])
			if closeIdx := strings.Index(entry, ")"); closeIdx > parenIdx {
				constraint = strings.TrimSpace(entry[parenIdx+1 : closeIdx])
			}
		}
		if name != "" {
			deps = append(deps, types.Dep{Name: name, Kind: kind, Constraint: constraint})
		}
	}
	return deps
}
