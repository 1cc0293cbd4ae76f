// Package cidutil maps shard bit strings and identifiers onto CIDs.
//
// Stored shards are addressed as CIDv1 with the "raw" multicodec and a
// BLAKE2b-512 multihash over the ASCII bit string. Because a shard identifier
// is the same digest over the same bytes, identifiers and CIDs convert into
// each other without rehashing.
package cidutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/shard/keystream"
	"xdao.co/shard/shard"
)

var (
	ErrUndefined   = errors.New("cidutil: undefined cid")
	ErrNotRaw      = errors.New("cidutil: cid codec is not raw")
	ErrDigestMatch = errors.New("cidutil: cid does not match data")
)

// Prefix is the CID prefix used for every stored object.
var Prefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   multihash.BLAKE2B_MAX,
	MhLength: -1,
}

// CIDv1RawCID returns the CIDv1 (raw + blake2b-512) derived from data.
func CIDv1RawCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.BLAKE2B_MAX, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ForShard returns the CID under which a shard's bit string is stored. For
// BLAKE2b shards it carries the shard identifier's digest.
func ForShard(s *shard.Shard) (cid.Cid, error) {
	return CIDv1RawCID([]byte(s.Bits))
}

// Verify re-hashes data with id's own prefix and reports ErrDigestMatch when the
// digests differ.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrUndefined
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrDigestMatch
	}
	return nil
}

// FromIdentifier wraps a shard identifier's digest in a raw CIDv1. The hash
// code of the identifier becomes the multihash code.
func FromIdentifier(id shard.Identifier) (cid.Cid, error) {
	if id.IsZero() || !id.Hash.Valid() {
		return cid.Undef, ErrUndefined
	}
	if len(id.Digest) != id.Hash.Size() {
		return cid.Undef, fmt.Errorf("cidutil: %s digest has %d bytes", id.Hash, len(id.Digest))
	}
	mh, err := multihash.Encode(id.Digest, uint64(id.Hash))
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ToIdentifier extracts the shard identifier carried by a raw CID.
func ToIdentifier(id cid.Cid) (shard.Identifier, error) {
	if !id.Defined() {
		return shard.Identifier{}, ErrUndefined
	}
	if id.Type() != cid.Raw {
		return shard.Identifier{}, ErrNotRaw
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return shard.Identifier{}, err
	}
	h := keystream.Hash(dec.Code)
	if !h.Valid() {
		return shard.Identifier{}, fmt.Errorf("cidutil: unsupported multihash 0x%x", dec.Code)
	}
	if dec.Length != h.Size() {
		return shard.Identifier{}, fmt.Errorf("cidutil: %s digest has %d bytes", h, dec.Length)
	}
	return shard.Identifier{Hash: h, Digest: bytes.Clone(dec.Digest)}, nil
}
