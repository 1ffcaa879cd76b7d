package repository

import (
	"testing"

	"github.com/siloworks/silo/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const primaryXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <package type="rpm">
    <name>widget</name>
    <arch>x86_64</arch>
    <version epoch="0" ver="1.2" rel="3"/>
    <checksum type="sha256">deadbeef</checksum>
    <summary>a widget</summary>
    <description>a longer widget description</description>
    <location href="packages/widget-1.2-3.x86_64.rpm"/>
    <size package="2048"/>
    <format>
      <requires>
        <entry name="glibc" flags="GE" ver="2.30"/>
        <entry name="/bin/sh"/>
        <entry name="rpmlib(CompressedFileNames)"/>
      </requires>
    </format>
  </package>
</metadata>`

func TestParseFedoraPrimaryXMLExtractsPackages(t *testing.T) {
	entries, err := ParseFedoraPrimaryXML([]byte(primaryXMLFixture))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "widget", e.Name)
	assert.Equal(t, "1.2-3", e.Version)
	assert.Equal(t, "x86_64", e.Arch)
	assert.Equal(t, "a longer widget description", e.Description)
	assert.Equal(t, "deadbeef", e.Checksum)
	assert.Equal(t, int64(2048), e.Size)
	assert.Equal(t, "packages/widget-1.2-3.x86_64.rpm", e.DownloadURL)

	require.Len(t, e.Deps, 1)
	assert.Equal(t, "glibc", e.Deps[0].Name)
	assert.Equal(t, "GE2.30", e.Deps[0].Constraint)
	assert.Equal(t, types.DependencyRuntime, e.Deps[0].Kind)
}

func TestParseFedoraPrimaryXMLWithEpoch(t *testing.T) {
	xml := `<metadata><package><name>epoched</name><arch>noarch</arch>
	<version epoch="2" ver="1.0" rel="1"/></package></metadata>`
	entries, err := ParseFedoraPrimaryXML([]byte(xml))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2:1.0-1", entries[0].Version)
}
