package keystream

import (
	"fmt"
	"strings"

	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// Hash selects the hash function used for matrix derivation and shard
// identifiers. Values are multihash codes so identifiers map directly onto CIDs.
type Hash uint64

const (
	// BLAKE2b is BLAKE2b with a 32-byte digest for matrices and a 64-byte
	// (default length) digest for identifiers.
	BLAKE2b Hash = multihash.BLAKE2B_MAX
	// BLAKE3 uses its 32-byte default digest for both.
	BLAKE3 Hash = multihash.BLAKE3
)

// DefaultHash is the hash used when none is configured.
const DefaultHash = BLAKE2b

// MatrixDigestSize is the number of digest bytes consumed by a matrix.
const MatrixDigestSize = Rows * Cols

func (h Hash) String() string {
	switch h {
	case BLAKE2b:
		return "blake2b"
	case BLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("hash(0x%x)", uint64(h))
	}
}

// Valid reports whether h is a supported hash.
func (h Hash) Valid() bool { return h == BLAKE2b || h == BLAKE3 }

// Size returns the default digest length in bytes.
func (h Hash) Size() int {
	switch h {
	case BLAKE2b:
		return blake2b.Size
	case BLAKE3:
		return 32
	default:
		return 0
	}
}

// Sum hashes data with an output of size bytes.
//
// For BLAKE2b the digest length is a parameter of the hash (not a truncation),
// so Sum(data, 32) equals blake2b.Sum256. Sum panics on an unsupported hash or a
// size outside 1..64; both are programmer errors.
func (h Hash) Sum(data []byte, size int) []byte {
	switch h {
	case BLAKE2b:
		switch size {
		case blake2b.Size256:
			s := blake2b.Sum256(data)
			return s[:]
		case blake2b.Size:
			s := blake2b.Sum512(data)
			return s[:]
		}
		d, err := blake2b.New(size, nil)
		if err != nil {
			panic(fmt.Sprintf("keystream: blake2b size %d: %v", size, err))
		}
		_, _ = d.Write(data)
		return d.Sum(nil)
	case BLAKE3:
		if size <= 0 || size > 64 {
			panic(fmt.Sprintf("keystream: blake3 size %d", size))
		}
		d := blake3.New(size, nil)
		_, _ = d.Write(data)
		return d.Sum(nil)
	default:
		panic(fmt.Sprintf("keystream: unsupported hash %s", h))
	}
}

// ParseHash maps a configuration name to a Hash. The empty string selects
// DefaultHash.
func ParseHash(name string) (Hash, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blake2b", "blake2b-512", "blake2b512":
		return BLAKE2b, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return 0, fmt.Errorf("keystream: unsupported hash %q", name)
	}
}
