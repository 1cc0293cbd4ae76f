package storage

import "github.com/ipfs/go-cid"

// MultiCAS reads from several stores in a fixed order and writes to the first.
//
// Order is the slice order; callers choose it explicitly so lookups never depend
// on map iteration.
type MultiCAS struct {
	Adapters []CAS
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, ErrNoBackends
	}
	return m.Adapters[0].Put(bytes)
}

// Get returns the first successful read. A not-found answer moves on to the next
// store; any other error stops the search.
func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	return getOrdered(id, m.Adapters)
}

func (m MultiCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(id) {
			return true
		}
	}
	return false
}

func getOrdered(id cid.Cid, stores []CAS) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	for _, cas := range stores {
		if cas == nil {
			continue
		}
		b, err := cas.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}
