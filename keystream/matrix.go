package keystream

import (
	"encoding/hex"
	"strings"
)

const (
	// Rows is the number of matrix rows and the keystream period.
	Rows = 8
	// Cols is the number of bytes per row.
	Cols = 4
)

// Matrix is the key schedule derived from a seed.
type Matrix [Rows][Cols]byte

// Derive builds the matrix for seed using DefaultHash.
func Derive(seed []byte) Matrix {
	return DeriveWith(DefaultHash, seed)
}

// DeriveString builds the matrix for the UTF-8 bytes of seed.
func DeriveString(seed string) Matrix {
	return Derive([]byte(seed))
}

// DeriveWith builds the matrix for seed using h. The 32-byte digest is split
// into eight contiguous 4-byte rows in digest order.
func DeriveWith(h Hash, seed []byte) Matrix {
	digest := h.Sum(seed, MatrixDigestSize)
	var m Matrix
	for r := 0; r < Rows; r++ {
		copy(m[r][:], digest[r*Cols:(r+1)*Cols])
	}
	return m
}

// KeyByte returns the XOR-fold of row i mod 8. i must be non-negative.
func (m Matrix) KeyByte(i int) byte {
	row := m[i%Rows]
	return row[0] ^ row[1] ^ row[2] ^ row[3]
}

// KeyBytes returns the folded key byte of every row.
func (m Matrix) KeyBytes() [Rows]byte {
	var out [Rows]byte
	for r := range out {
		out[r] = m.KeyByte(r)
	}
	return out
}

// Rows returns a freshly allocated copy of the rows.
func (m Matrix) Rows() [][]byte {
	out := make([][]byte, Rows)
	for r := range m {
		out[r] = append([]byte(nil), m[r][:]...)
	}
	return out
}

// Bytes returns the 32 matrix bytes in row order.
func (m Matrix) Bytes() []byte {
	out := make([]byte, 0, MatrixDigestSize)
	for r := range m {
		out = append(out, m[r][:]...)
	}
	return out
}

func (m Matrix) Equal(o Matrix) bool { return m == o }

// String renders the rows as space-separated hex groups.
func (m Matrix) String() string {
	parts := make([]string, Rows)
	for r := range m {
		parts[r] = hex.EncodeToString(m[r][:])
	}
	return strings.Join(parts, " ")
}
