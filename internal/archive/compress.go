package archive

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/siloworks/silo/internal/types"
)

// Decompress sniffs data's magic bytes and inflates it with whichever of
// gzip, xz, or zstd produced it, returning data unchanged if none match.
// internal/repository reuses this for metadata files compressed the same
// way the archive formats themselves are.
func Decompress(data []byte) ([]byte, error) {
	switch {
	case len(data) >= 4 && data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, types.NewParseError("opening zstd stream: " + err.Error())
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case len(data) >= 6 && bytes.Equal(data[:6], []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}):
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, types.NewParseError("opening xz stream: " + err.Error())
		}
		return io.ReadAll(xr)
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, types.NewParseError("opening gzip stream: " + err.Error())
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return data, nil
	}
}
