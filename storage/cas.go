// Package storage defines the content-addressable store that holds encoded
// shards, plus composition helpers over several stores.
//
// Objects are the ASCII bit strings of shards. Every object is addressed by
// the CIDv1 (raw, blake2b-512) of its bytes, which is also the shard's
// identifier digest; see package cidutil.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable store.
//
// Contract:
// - Put is idempotent and returns the CID derived from the bytes written.
// - Stored objects are immutable; a conflicting Put returns ErrImmutable.
// - Get returns ErrNotFound when the CID is absent and ErrCIDMismatch when the
//   stored bytes no longer hash to the CID.
// - Undefined CIDs are rejected with ErrInvalidCID (Has reports false).
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
