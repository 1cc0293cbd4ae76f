// Package localfs stores shards as read-only files in a directory tree.
package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
)

// CAS keeps one file per object under root/<fanout>/<cid>, where fanout is the
// last two characters of the CID string. CIDv1 strings share their leading
// characters, so the tail gives the even spread.
//
// Files are written once with mode 0444 and fsynced. The store never uses the
// network or the clock.
type CAS struct {
	root   string
	logger *zap.Logger
}

var _ storage.CAS = (*CAS)(nil)

type Option func(*CAS)

func WithLogger(l *zap.Logger) Option {
	return func(c *CAS) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	c := &CAS{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CAS) Root() string { return c.root }

func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawCID(data)
	if err != nil {
		return cid.Undef, err
	}

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if !os.IsExist(err) {
			return cid.Undef, err
		}
		// An unreadable or corrupted existing file is never repaired.
		existing, rerr := c.Get(id)
		if rerr != nil || !bytes.Equal(existing, data) {
			c.logger.Warn("refusing to overwrite stored object", zap.Stringer("cid", id), zap.Error(rerr))
			return cid.Undef, storage.ErrImmutable
		}
		return id, nil
	}

	if err := writeSync(f, data); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	c.logger.Debug("stored object", zap.Stringer("cid", id), zap.Int("bytes", len(data)))
	return id, nil
}

func writeSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := cidutil.Verify(id, b); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[len(s)-2:], s)
}
