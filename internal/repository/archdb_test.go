package repository

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarEntry(t *testing.T, tw *tar.Writer, name, content string) {
	t.Helper()
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(content)), Mode: 0o644, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
}

func TestParseArchDBExtractsPackages(t *testing.T) {
	desc := "%NAME%\nwidget\n\n%VERSION%\n1.2-1\n\n%ARCH%\nx86_64\n\n%DESC%\na widget\n\n%FILENAME%\nwidget-1.2-1-x86_64.pkg.tar.zst\n\n%SHA256SUM%\ndeadbeef\n\n%CSIZE%\n1024\n\n"
	depends := "%DEPENDS%\nglibc\n\n"

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeTarEntry(t, tw, "widget-1.2-1/desc", desc)
	writeTarEntry(t, tw, "widget-1.2-1/depends", depends)
	require.NoError(t, tw.Close())

	entries, err := ParseArchDB(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "widget", e.Name)
	assert.Equal(t, "1.2-1", e.Version)
	assert.Equal(t, "x86_64", e.Arch)
	assert.Equal(t, "a widget", e.Description)
	assert.Equal(t, "deadbeef", e.Checksum)
	assert.Equal(t, int64(1024), e.Size)
	require.Len(t, e.Deps, 1)
	assert.Equal(t, "glibc", e.Deps[0].Name)
}

func TestParseArchDBSkipsEntriesWithoutName(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeTarEntry(t, tw, "broken/desc", "%VERSION%\n1.0\n\n")
	require.NoError(t, tw.Close())

	entries, err := ParseArchDB(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
