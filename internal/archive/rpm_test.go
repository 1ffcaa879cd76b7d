package archive

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpmFieldBuilder accumulates an RPM header data blob and its index entries,
// mirroring the layout rpm.go's readRPMHeaderSection expects: a fixed
// 16-byte section prologue (magic, reserved, index count, data size),
// followed by one 16-byte index record per field, followed by the blob
// itself.
type rpmFieldBuilder struct {
	blob    bytes.Buffer
	entries []rpmIndexEntry
}

func (b *rpmFieldBuilder) addString(tag uint32, value string) {
	offset := uint32(b.blob.Len())
	b.blob.WriteString(value)
	b.blob.WriteByte(0)
	b.entries = append(b.entries, rpmIndexEntry{tag: tag, typ: rpmTypeString, offset: offset, count: 1})
}

func (b *rpmFieldBuilder) addStringArray(tag uint32, values []string) {
	offset := uint32(b.blob.Len())
	for _, v := range values {
		b.blob.WriteString(v)
		b.blob.WriteByte(0)
	}
	b.entries = append(b.entries, rpmIndexEntry{tag: tag, typ: rpmTypeStringArray, offset: offset, count: uint32(len(values))})
}

func (b *rpmFieldBuilder) addInt32Array(tag uint32, values []int32) {
	offset := uint32(b.blob.Len())
	for _, v := range values {
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v))
		b.blob.Write(tmp[:])
	}
	b.entries = append(b.entries, rpmIndexEntry{tag: tag, typ: rpmTypeInt32, offset: offset, count: uint32(len(values))})
}

func (b *rpmFieldBuilder) addInt16Array(tag uint32, values []uint16) {
	offset := uint32(b.blob.Len())
	for _, v := range values {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		b.blob.Write(tmp[:])
	}
	b.entries = append(b.entries, rpmIndexEntry{tag: tag, typ: rpmTypeInt16, offset: offset, count: uint32(len(values))})
}

// build serializes the accumulated fields as one RPM header section: magic,
// reserved, index count, data size, the index records, then the blob,
// padded to an 8-byte boundary as rpm requires between sections.
func (b *rpmFieldBuilder) build() []byte {
	var out bytes.Buffer
	out.Write(rpmHeaderMagic)
	out.Write([]byte{0, 0, 0, 0}) // reserved
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(b.entries)))
	out.Write(tmp[:])
	binary.BigEndian.PutUint32(tmp[:], uint32(b.blob.Len()))
	out.Write(tmp[:])
	for _, e := range b.entries {
		binary.BigEndian.PutUint32(tmp[:], e.tag)
		out.Write(tmp[:])
		binary.BigEndian.PutUint32(tmp[:], e.typ)
		out.Write(tmp[:])
		binary.BigEndian.PutUint32(tmp[:], e.offset)
		out.Write(tmp[:])
		binary.BigEndian.PutUint32(tmp[:], e.count)
		out.Write(tmp[:])
	}
	out.Write(b.blob.Bytes())
	for out.Len()%8 != 0 {
		out.WriteByte(0)
	}
	return out.Bytes()
}

func buildRPMArchive(t *testing.T, metadata *rpmFieldBuilder) []byte {
	t.Helper()
	var out bytes.Buffer
	out.Write(make([]byte, 96))
	copy(out.Bytes()[0:4], rpmLeadMagic)

	sig := (&rpmFieldBuilder{}).build()
	out.Write(sig)
	out.Write(metadata.build())
	return out.Bytes()
}

func TestParseRPMExtractsMetadataFilesAndDeps(t *testing.T) {
	meta := &rpmFieldBuilder{}
	meta.addString(rpmTagName, "widget")
	meta.addString(rpmTagVersion, "1.0")
	meta.addString(rpmTagRelease, "2")
	meta.addString(rpmTagArch, "x86_64")
	meta.addString(rpmTagDescription, "a widget")
	meta.addStringArray(rpmTagRequireName, []string{"glibc", "/bin/sh", "rpmlib(CompressedFileNames)"})
	meta.addStringArray(rpmTagBaseNames, []string{"widget"})
	meta.addStringArray(rpmTagDirNames, []string{"/usr/bin/"})
	meta.addInt32Array(rpmTagDirIndexes, []int32{0})
	meta.addInt16Array(rpmTagFileModes, []uint16{0o100755})
	meta.addStringArray(rpmTagFileLinkTos, []string{""})

	data := buildRPMArchive(t, meta)

	pkg, err := ParseRPM(data)
	require.NoError(t, err)
	assert.Equal(t, "widget", pkg.Name())
	assert.Equal(t, "1.0-2", pkg.Version())
	assert.Equal(t, "x86_64", pkg.Arch())
	assert.Equal(t, "a widget", pkg.Description())

	require.Len(t, pkg.Deps(), 1)
	assert.Equal(t, "glibc", pkg.Deps()[0].Name)

	require.Len(t, pkg.Files(), 1)
	assert.Equal(t, "/usr/bin/widget", pkg.Files()[0].Path)
}

func TestParseRPMRejectsBadLeadMagic(t *testing.T) {
	_, err := ParseRPM(make([]byte, 200))
	require.Error(t, err)
}

func TestParseRPMMissingNameErrors(t *testing.T) {
	meta := &rpmFieldBuilder{}
	meta.addString(rpmTagVersion, "1.0")
	data := buildRPMArchive(t, meta)

	_, err := ParseRPM(data)
	require.Error(t, err)
}
