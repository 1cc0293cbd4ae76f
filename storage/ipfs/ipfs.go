// Package ipfs stores shards as raw blocks in a local Kubo repository by
// shelling out to the "ipfs" CLI. No daemon is required.
package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
)

// CAS writes blocks as CIDv1 raw + blake2b-512 so block CIDs equal the CIDs
// computed by cidutil. Every read is re-hashed; the repository is not trusted.
type CAS struct {
	bin    string
	env    []string
	pin    bool
	logger *zap.Logger
}

var _ storage.CAS = (*CAS)(nil)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
	// Pin pins every block written.
	Pin    bool
	Logger *zap.Logger
}

func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CAS{bin: bin, env: opts.Env, pin: opts.Pin, logger: logger}
}

func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawCID(data)
	if err != nil {
		return cid.Undef, err
	}

	args := []string{
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype=blake2b-512",
		"--mhlen=64",
	}
	if c.pin {
		args = append(args, "--pin=true")
	}
	out, err := c.run(data, append(args, "/dev/stdin")...)
	if err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if !got.Equals(id) {
		c.logger.Warn("ipfs returned unexpected cid", zap.Stringer("want", id), zap.Stringer("got", got))
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}

	out, err := c.run(nil, "block", "get", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	if err := cidutil.Verify(id, out); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.run(nil, "block", "stat", id.String())
	return err == nil
}

// cmdError is a failed ipfs invocation with its trimmed stderr.
type cmdError struct {
	args   []string
	stderr string
	err    error
}

func (e *cmdError) Error() string {
	op := strings.Join(e.args[:min(2, len(e.args))], " ")
	if e.stderr == "" {
		return fmt.Sprintf("ipfs %s: %v", op, e.err)
	}
	return fmt.Sprintf("ipfs %s: %s", op, e.stderr)
}

func (e *cmdError) Unwrap() error { return e.err }

func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	c.logger.Debug("ipfs", zap.Strings("args", args), zap.Int("stdin", len(stdin)))

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	ce := &cmdError{args: args, err: err}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		ce.stderr = strings.TrimSpace(string(ee.Stderr))
	}
	return nil, ce
}

func isLikelyNotFound(err error) bool {
	var ce *cmdError
	if !errors.As(err, &ce) {
		return false
	}
	return strings.Contains(strings.ToLower(ce.stderr), "not found")
}
