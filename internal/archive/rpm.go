package archive

import (
	"encoding/binary"
	"strconv"

	"github.com/siloworks/silo/internal/types"
)

// RPM header tags this parser reads. Only the metadata surface spec §9
// needs (name, version, arch, description, dependencies, the file list) is
// decoded; tags outside that set are skipped.
const (
	rpmTagName         = 1000
	rpmTagVersion      = 1001
	rpmTagRelease      = 1002
	rpmTagEpoch        = 1003
	rpmTagDescription  = 1005
	rpmTagVendor       = 1011
	rpmTagPackager     = 1015
	rpmTagArch         = 1022
	rpmTagRequireFlags = 1048
	rpmTagRequireName  = 1049
	rpmTagDirIndexes   = 1116
	rpmTagBaseNames    = 1117
	rpmTagDirNames     = 1118
	rpmTagFileSizes    = 1028
	rpmTagFileModes    = 1030
	rpmTagFileLinkTos  = 1036
)

// RPM header value types, per the rpm file format.
const (
	rpmTypeChar        = 1
	rpmTypeInt8        = 2
	rpmTypeInt16       = 3
	rpmTypeInt32       = 4
	rpmTypeInt64       = 5
	rpmTypeString      = 6
	rpmTypeBin         = 7
	rpmTypeStringArray = 8
	rpmTypeI18NString  = 9
)

var rpmLeadMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}
var rpmHeaderMagic = []byte{0x8E, 0xAD, 0xE8, 0x01}

// rpmIndexEntry is one index record inside an RPM header section.
type rpmIndexEntry struct {
	tag, typ, offset, count uint32
}

// ParseRPM parses an RPM package's lead, signature, and metadata header
// sections to recover name, version, release, arch, description, the
// installed file list, and Requires dependencies. The cpio payload (the
// actual file content stream, usually gzip- or xz-compressed after the
// metadata header) is not decoded: spec §1 scopes archive content transfer
// to an external collaborator, and the file list here carries path, mode,
// and symlink target without blob content, matching the directory/symlink
// entries the Changeset Engine already knows how to deploy without CAS
// content for IsDir entries. Regular-file entries are listed with empty
// Content, which is sufficient for query/search/dependency flows; a real
// install of an RPM needs the payload supplied separately by the caller.
func ParseRPM(data []byte) (types.Package, error) {
	if len(data) < 96 || !hasPrefix(data, rpmLeadMagic) {
		return nil, types.NewParseError("not an rpm archive (bad lead magic)")
	}
	offset := 96

	_, _, next, err := readRPMHeaderSection(data, offset)
	if err != nil {
		return nil, types.NewParseError("reading rpm signature header: " + err.Error())
	}
	offset = next

	entries, blob, _, err := readRPMHeaderSection(data, offset)
	if err != nil {
		return nil, types.NewParseError("reading rpm metadata header: " + err.Error())
	}

	index := make(map[uint32]rpmIndexEntry, len(entries))
	for _, e := range entries {
		index[e.tag] = e
	}

	pkg := &Package{
		PkgName:        rpmString(index, blob, rpmTagName),
		PkgArch:        rpmString(index, blob, rpmTagArch),
		PkgDescription: rpmString(index, blob, rpmTagDescription),
		PkgProvenance:  map[string]string{},
		PkgFlavors:     map[string]string{},
	}

	version := rpmString(index, blob, rpmTagVersion)
	release := rpmString(index, blob, rpmTagRelease)
	epoch := rpmInt(index, blob, rpmTagEpoch)
	pkg.PkgVersion = version
	if release != "" {
		pkg.PkgVersion += "-" + release
	}
	if epoch > 0 {
		pkg.PkgVersion = strconv.Itoa(epoch) + ":" + pkg.PkgVersion
	}

	if vendor := rpmString(index, blob, rpmTagVendor); vendor != "" {
		pkg.PkgProvenance["vendor"] = vendor
	}
	if packager := rpmString(index, blob, rpmTagPackager); packager != "" {
		pkg.PkgProvenance["packager"] = packager
	}

	baseNames := rpmStringArray(index, blob, rpmTagBaseNames)
	dirNames := rpmStringArray(index, blob, rpmTagDirNames)
	dirIndexes := rpmInt32Array(index, blob, rpmTagDirIndexes)
	modes := rpmInt16Array(index, blob, rpmTagFileModes)
	linkTos := rpmStringArray(index, blob, rpmTagFileLinkTos)

	for i, base := range baseNames {
		dir := ""
		if i < len(dirIndexes) && int(dirIndexes[i]) < len(dirNames) {
			dir = dirNames[dirIndexes[i]]
		}
		path := dir + base
		mode := uint32(0)
		if i < len(modes) {
			mode = uint32(modes[i])
		}
		linkTo := ""
		if i < len(linkTos) {
			linkTo = linkTos[i]
		}
		switch {
		case linkTo != "":
			pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Mode: mode, IsLink: true, LinkTo: linkTo})
		case mode&0170000 == 0040000: // S_IFDIR
			pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Mode: mode, IsDir: true})
		default:
			pkg.PkgFiles = append(pkg.PkgFiles, types.PackageFile{Path: path, Mode: mode})
		}
	}

	requireNames := rpmStringArray(index, blob, rpmTagRequireName)
	for _, name := range requireNames {
		if isPseudoDep(name) {
			continue
		}
		pkg.PkgDeps = append(pkg.PkgDeps, types.Dep{Name: name, Kind: types.DependencyRuntime})
	}

	if pkg.PkgName == "" {
		return nil, types.NewParseError("rpm header missing name tag")
	}
	return pkg, nil
}

// isPseudoDep matches the rpmlib(...) and absolute-path style entries that
// RPM's RequireName list uses for internal capability bookkeeping rather
// than real package dependencies.
func isPseudoDep(name string) bool {
	return len(name) > 0 && (name[0] == '/' || hasPrefix([]byte(name), []byte("rpmlib(")))
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// readRPMHeaderSection reads one header section (signature or metadata) at
// offset, returning its index entries, its data blob, and the offset of the
// next section (8-byte aligned, as RPM requires between the signature and
// metadata headers).
func readRPMHeaderSection(data []byte, offset int) ([]rpmIndexEntry, []byte, int, error) {
	if offset+16 > len(data) {
		return nil, nil, 0, types.NewParseError("truncated rpm header")
	}
	if !hasPrefix(data[offset:], rpmHeaderMagic) {
		return nil, nil, 0, types.NewParseError("bad rpm header magic")
	}
	indexCount := int(binary.BigEndian.Uint32(data[offset+8 : offset+12]))
	dataSize := int(binary.BigEndian.Uint32(data[offset+12 : offset+16]))

	indexStart := offset + 16
	indexEnd := indexStart + indexCount*16
	if indexEnd > len(data) {
		return nil, nil, 0, types.NewParseError("rpm header index overruns archive")
	}

	entries := make([]rpmIndexEntry, 0, indexCount)
	for i := 0; i < indexCount; i++ {
		rec := data[indexStart+i*16 : indexStart+(i+1)*16]
		entries = append(entries, rpmIndexEntry{
			tag:    binary.BigEndian.Uint32(rec[0:4]),
			typ:    binary.BigEndian.Uint32(rec[4:8]),
			offset: binary.BigEndian.Uint32(rec[8:12]),
			count:  binary.BigEndian.Uint32(rec[12:16]),
		})
	}

	blobStart := indexEnd
	blobEnd := blobStart + dataSize
	if blobEnd > len(data) {
		return nil, nil, 0, types.NewParseError("rpm header data overruns archive")
	}
	blob := data[blobStart:blobEnd]

	next := blobEnd
	if pad := next % 8; pad != 0 {
		next += 8 - pad
	}
	return entries, blob, next, nil
}

func rpmString(index map[uint32]rpmIndexEntry, blob []byte, tag uint32) string {
	e, ok := index[tag]
	if !ok || int(e.offset) >= len(blob) {
		return ""
	}
	switch e.typ {
	case rpmTypeString, rpmTypeI18NString:
		return cString(blob[e.offset:])
	default:
		return ""
	}
}

func rpmStringArray(index map[uint32]rpmIndexEntry, blob []byte, tag uint32) []string {
	e, ok := index[tag]
	if !ok {
		return nil
	}
	var out []string
	off := int(e.offset)
	for i := uint32(0); i < e.count && off < len(blob); i++ {
		s := cString(blob[off:])
		out = append(out, s)
		off += len(s) + 1
	}
	return out
}

func rpmInt(index map[uint32]rpmIndexEntry, blob []byte, tag uint32) int {
	e, ok := index[tag]
	if !ok || int(e.offset) >= len(blob) {
		return 0
	}
	switch e.typ {
	case rpmTypeInt32:
		if int(e.offset)+4 > len(blob) {
			return 0
		}
		return int(binary.BigEndian.Uint32(blob[e.offset : e.offset+4]))
	case rpmTypeInt16:
		if int(e.offset)+2 > len(blob) {
			return 0
		}
		return int(binary.BigEndian.Uint16(blob[e.offset : e.offset+2]))
	case rpmTypeInt8, rpmTypeChar:
		return int(blob[e.offset])
	default:
		return 0
	}
}

func rpmInt32Array(index map[uint32]rpmIndexEntry, blob []byte, tag uint32) []int32 {
	e, ok := index[tag]
	if !ok || e.typ != rpmTypeInt32 {
		return nil
	}
	out := make([]int32, 0, e.count)
	off := int(e.offset)
	for i := uint32(0); i < e.count; i++ {
		if off+4 > len(blob) {
			break
		}
		out = append(out, int32(binary.BigEndian.Uint32(blob[off:off+4])))
		off += 4
	}
	return out
}

func rpmInt16Array(index map[uint32]rpmIndexEntry, blob []byte, tag uint32) []uint16 {
	e, ok := index[tag]
	if !ok || e.typ != rpmTypeInt16 {
		return nil
	}
	out := make([]uint16, 0, e.count)
	off := int(e.offset)
	for i := uint32(0); i < e.count; i++ {
		if off+2 > len(blob) {
			break
		}
		out = append(out, binary.BigEndian.Uint16(blob[off:off+2]))
		off += 2
	}
	return out
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
