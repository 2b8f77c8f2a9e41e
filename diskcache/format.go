// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package diskcache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/2dChan/s2regrid/weights"
)

// File layout, little endian:
//
//	magic   [8]byte "S2RGWM01"
//	keyLen  uint32
//	key     [keyLen]byte
//	rows    uint64
//	cols    uint64
//	nnz     uint64
//	nnz x { row uint64; col uint64; weight float64 }
const (
	magic       = "S2RGWM01"
	tripletSize = 24
)

// maxKeyLen bounds the echoed key so a damaged header cannot request an
// absurd allocation.
const maxKeyLen = 1 << 16

// Encode writes m to w in the cache file format, echoing key.
func Encode(w io.Writer, key string, m *weights.Matrix) error {
	if len(key) > maxKeyLen {
		return fmt.Errorf("diskcache: key of %d bytes is too long", len(key))
	}
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	header := make([]byte, 0, len(magic)+4+len(key)+24)
	header = append(header, magic...)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(key)))
	header = append(header, key...)
	header = binary.LittleEndian.AppendUint64(header, uint64(rows))
	header = binary.LittleEndian.AppendUint64(header, uint64(cols))
	header = binary.LittleEndian.AppendUint64(header, uint64(m.NonZeros()))
	if _, err := bw.Write(header); err != nil {
		return err
	}
	var buf [tripletSize]byte
	for _, t := range m.Triplets() {
		binary.LittleEndian.PutUint64(buf[0:], uint64(t.Row))
		binary.LittleEndian.PutUint64(buf[8:], uint64(t.Col))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(t.Value))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode parses a cache file, checking that it echoes key. Any mismatch or
// truncation is reported as ErrCorrupt.
func Decode(data []byte, key string) (*weights.Matrix, error) {
	if len(data) < len(magic)+4 || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	data = data[len(magic):]
	keyLen := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if keyLen > maxKeyLen || len(data) < keyLen+24 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if string(data[:keyLen]) != key {
		return nil, fmt.Errorf("%w: key mismatch", ErrCorrupt)
	}
	data = data[keyLen:]
	rows := binary.LittleEndian.Uint64(data[0:])
	cols := binary.LittleEndian.Uint64(data[8:])
	nnz := binary.LittleEndian.Uint64(data[16:])
	data = data[24:]
	if rows > math.MaxInt32 || cols > math.MaxInt32 || nnz != uint64(len(data))/tripletSize || uint64(len(data))%tripletSize != 0 {
		return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
	}

	ts := make([]weights.Triplet, nnz)
	for i := range ts {
		rec := data[i*tripletSize:]
		r := binary.LittleEndian.Uint64(rec[0:])
		c := binary.LittleEndian.Uint64(rec[8:])
		if r >= rows || c >= cols {
			return nil, fmt.Errorf("%w: entry (%d, %d) out of range", ErrCorrupt, r, c)
		}
		ts[i] = weights.Triplet{Row: int(r), Col: int(c), Value: math.Float64frombits(binary.LittleEndian.Uint64(rec[16:]))}
	}
	return weights.FromTriplets(int(rows), int(cols), ts), nil
}

// WriteFile encodes m into the file at path.
func WriteFile(path, key string, m *weights.Matrix) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("diskcache: %w", err)
	}
	if err := Encode(f, key, m); err != nil {
		f.Close()
		return fmt.Errorf("diskcache: encode: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("diskcache: %w", err)
	}
	return f.Close()
}

// ReadFile maps the file at path and decodes it.
func ReadFile(path, key string) (*weights.Matrix, error) {
	mapped, err := Map(path)
	if err != nil {
		return nil, err
	}
	defer mapped.Close()
	return Decode(mapped.Bytes(), key)
}
