package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packagesFixture = `Package: widget
Version: 1.2-1
Architecture: amd64
Description: a widget
 with a longer description
Depends: libc6 (>= 2.30), libssl1.1
Filename: pool/main/w/widget/widget_1.2-1_amd64.deb
Size: 4096
SHA256: deadbeef

Package: other
Version: 0.1
Architecture: amd64
Filename: pool/main/o/other/other_0.1_amd64.deb
Size: 100
SHA256: cafef00d
`

func TestParseDebianPackagesExtractsStanzas(t *testing.T) {
	entries, err := ParseDebianPackages([]byte(packagesFixture))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	widget := entries[0]
	assert.Equal(t, "widget", widget.Name)
	assert.Equal(t, "1.2-1", widget.Version)
	assert.Equal(t, "amd64", widget.Arch)
	assert.Equal(t, "pool/main/w/widget/widget_1.2-1_amd64.deb", widget.DownloadURL)
	assert.Equal(t, int64(4096), widget.Size)
	assert.Equal(t, "deadbeef", widget.Checksum)
	require.Len(t, widget.Deps, 2)
	assert.Equal(t, "libc6", widget.Deps[0].Name)
	assert.Equal(t, ">= 2.30", widget.Deps[0].Constraint)

	other := entries[1]
	assert.Equal(t, "other", other.Name)
	assert.Empty(t, other.Deps)
}
