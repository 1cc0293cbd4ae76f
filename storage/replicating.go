package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/shard/cidutil"
)

// NamedCAS pairs a store with the name reported in per-backend results.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every shard to all backends and reads in order.
// All backends must agree on the CID of a write.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll writes bytes to every backend and returns the CID computed locally
// together with the CID each backend reported. A disagreeing backend stops the
// write with ErrCIDMismatch; the map then holds the answers seen so far.
func (r ReplicatingCAS) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoBackends
	}
	want, err := cidutil.CIDv1RawCID(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		got, err := b.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, out, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
		out[b.Name] = got
		if !got.Equals(want) {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	stores := make([]CAS, 0, len(r.Backends))
	for _, b := range r.Backends {
		stores = append(stores, b.CAS)
	}
	return getOrdered(id, stores)
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
