package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArMember appends one ar(1) member (name, content) to buf using the
// common fixed-width header ar(1) and dpkg-deb both write.
func writeArMember(buf *bytes.Buffer, name string, content []byte) {
	header := fmt.Sprintf("%-16s%-12d%-6d%-6d%-8s%-10d`\n", name, 0, 0, 0, "100644", len(content))
	buf.WriteString(header)
	buf.Write(content)
	if len(content)%2 != 0 {
		buf.WriteByte('\n')
	}
}

func gzipTar(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0o644, Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return gzBuf.Bytes()
}

func buildDebArchive(t *testing.T, control string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")

	controlTar := gzipTar(t, map[string]string{"control": control})
	writeArMember(&buf, "control.tar.gz", controlTar)

	dataTar := gzipTar(t, files)
	writeArMember(&buf, "data.tar.gz", dataTar)

	return buf.Bytes()
}

func TestParseDebianExtractsMetadataAndFiles(t *testing.T) {
	control := "Package: widget\nVersion: 2.0-1\nArchitecture: amd64\nDescription: a widget\nMaintainer: Packager <p@example.com>\nDepends: libc6 (>= 2.30), libssl1.1\n"
	data := buildDebArchive(t, control, map[string]string{"usr/bin/widget": "binary content"})

	pkg, err := ParseDebian(data)
	require.NoError(t, err)
	assert.Equal(t, "widget", pkg.Name())
	assert.Equal(t, "2.0-1", pkg.Version())
	assert.Equal(t, "amd64", pkg.Arch())
	assert.Equal(t, "a widget", pkg.Description())

	require.Len(t, pkg.Deps(), 2)
	assert.Equal(t, "libc6", pkg.Deps()[0].Name)
	assert.Equal(t, ">= 2.30", pkg.Deps()[0].Constraint)
	assert.Equal(t, "libssl1.1", pkg.Deps()[1].Name)

	require.Len(t, pkg.Files(), 1)
	assert.Equal(t, "/usr/bin/widget", pkg.Files()[0].Path)
	assert.Equal(t, "binary content", string(pkg.Files()[0].Content))
}

func TestParseDebianRejectsBadMagic(t *testing.T) {
	_, err := ParseDebian([]byte("not an ar archive"))
	require.Error(t, err)
}

func TestParseDebianMissingPackageFieldErrors(t *testing.T) {
	data := buildDebArchive(t, "Version: 1.0\n", nil)
	_, err := ParseDebian(data)
	require.Error(t, err)
}
