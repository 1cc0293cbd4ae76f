// Package memory provides an in-process CAS backed by go-cache.
//
// Entries never expire. The store is useful for tests and for short-lived
// processes that register and look up shards within one run.
package memory

import (
	"bytes"

	"github.com/ipfs/go-cid"
	gocache "github.com/patrickmn/go-cache"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
)

type CAS struct {
	c *gocache.Cache
}

var _ storage.CAS = (*CAS)(nil)

func New() *CAS {
	return &CAS{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawCID(data)
	if err != nil {
		return cid.Undef, err
	}
	owned := bytes.Clone(data)
	if owned == nil {
		owned = []byte{}
	}
	// Add fails when the key exists; the existing bytes must then be identical.
	if err := m.c.Add(id.KeyString(), owned, gocache.NoExpiration); err != nil {
		existing, ok := m.c.Get(id.KeyString())
		if !ok || !bytes.Equal(existing.([]byte), data) {
			return cid.Undef, storage.ErrImmutable
		}
	}
	return id, nil
}

func (m *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	v, ok := m.c.Get(id.KeyString())
	if !ok {
		return nil, storage.ErrNotFound
	}
	b := v.([]byte)
	if err := cidutil.Verify(id, b); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return bytes.Clone(b), nil
}

func (m *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, ok := m.c.Get(id.KeyString())
	return ok
}

// Len reports the number of stored objects.
func (m *CAS) Len() int { return m.c.ItemCount() }
