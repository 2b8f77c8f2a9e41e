// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2regrid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/2dChan/s2regrid/method"
	"github.com/2dChan/s2regrid/repres"
)

// Key returns the cache key of the matrix m assembles from in to out,
// masked by masks when not nil. Keys are equal exactly when the method
// name, its digest, both representation IDs and the mask identity are.
func Key(m method.Method, in, out repres.Representation, masks *LandSeaMasks) string {
	h := sha256.New()
	var n [8]byte
	for _, part := range []string{m.Name(), m.Digest(), in.ID(), out.ID(), masks.ID()} {
		binary.LittleEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return m.Name() + "-" + hex.EncodeToString(h.Sum(nil))
}
