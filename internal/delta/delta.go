package delta

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/fnv"
	"io"

	"github.com/siloworks/silo/internal/types"
)

// blockSize is the fixed window silo's block index matches on. Larger
// blocks make the delta smaller for bulk-identical content but miss
// shorter runs of shared bytes; 64 bytes is a reasonable middle ground for
// package archives, which tend to change in whole-file-sized chunks.
const blockSize = 64

// Compute produces the binary delta that reconstructs target from base.
// The encoding is a sequence of copy-from-base and insert-literal
// instructions, serialized and then flate-compressed as a whole.
func Compute(base, target []byte) ([]byte, error) {
	index := buildBlockIndex(base)

	var plain bytes.Buffer
	writeUvarint(&plain, uint64(len(target)))

	i := 0
	for i < len(target) {
		if offset, length, ok := matchAt(base, target, index, i); ok {
			plain.WriteByte('C')
			writeUvarint(&plain, uint64(offset))
			writeUvarint(&plain, uint64(length))
			i += length
			continue
		}

		start := i
		i++
		for i < len(target) {
			if _, _, ok := matchAt(base, target, index, i); ok {
				break
			}
			i++
		}
		plain.WriteByte('I')
		writeUvarint(&plain, uint64(i-start))
		plain.Write(target[start:i])
	}

	var out bytes.Buffer
	w, err := flate.NewWriter(&out, flate.DefaultCompression)
	if err != nil {
		return nil, types.NewIOError("creating delta compressor", err)
	}
	if _, err := w.Write(plain.Bytes()); err != nil {
		return nil, types.NewIOError("writing delta payload", err)
	}
	if err := w.Close(); err != nil {
		return nil, types.NewIOError("flushing delta payload", err)
	}
	return out.Bytes(), nil
}

// Apply reconstructs the original target from base and an encoded delta
// produced by Compute.
func Apply(base, encoded []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(encoded))
	defer r.Close()

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, types.NewIOError("decompressing delta payload", err)
	}

	br := bytes.NewReader(plain)
	targetSize, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, types.NewIOError("reading delta header", err)
	}

	out := make([]byte, 0, targetSize)
	for br.Len() > 0 {
		tag, err := br.ReadByte()
		if err != nil {
			return nil, types.NewIOError("reading delta instruction", err)
		}
		switch tag {
		case 'C':
			offset, err1 := binary.ReadUvarint(br)
			length, err2 := binary.ReadUvarint(br)
			if err1 != nil || err2 != nil {
				return nil, types.NewIOError("reading copy instruction", nil)
			}
			if offset+length > uint64(len(base)) {
				return nil, types.NewIOError("copy instruction references past end of base", nil)
			}
			out = append(out, base[offset:offset+length]...)
		case 'I':
			length, err := binary.ReadUvarint(br)
			if err != nil {
				return nil, types.NewIOError("reading insert instruction", err)
			}
			literal := make([]byte, length)
			if _, err := io.ReadFull(br, literal); err != nil {
				return nil, types.NewIOError("reading insert literal", err)
			}
			out = append(out, literal...)
		default:
			return nil, types.NewIOError("unknown delta instruction tag", nil)
		}
	}
	return out, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	buf.Write(scratch[:n])
}

// buildBlockIndex maps each non-overlapping blockSize-aligned window of
// base to the offsets it appears at, so Compute can look up candidate copy
// sources for a window of target in constant time.
func buildBlockIndex(base []byte) map[uint64][]int {
	index := make(map[uint64][]int)
	for i := 0; i+blockSize <= len(base); i += blockSize {
		key := hashBlock(base[i : i+blockSize])
		index[key] = append(index[key], i)
	}
	return index
}

func hashBlock(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// matchAt looks for a base block matching target[i:i+blockSize] and, if
// found, extends the match forward as far as bytes agree.
func matchAt(base, target []byte, index map[uint64][]int, i int) (offset, length int, ok bool) {
	if i+blockSize > len(target) {
		return 0, 0, false
	}
	key := hashBlock(target[i : i+blockSize])
	candidates, found := index[key]
	if !found {
		return 0, 0, false
	}

	best := -1
	bestLen := 0
	for _, c := range candidates {
		if !bytes.Equal(base[c:c+blockSize], target[i:i+blockSize]) {
			continue
		}
		l := blockSize
		for c+l < len(base) && i+l < len(target) && base[c+l] == target[i+l] {
			l++
		}
		if l > bestLen {
			bestLen = l
			best = c
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestLen, true
}
