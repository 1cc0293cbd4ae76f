// Package casconfig opens one or more storage backends from a YAML (or JSON)
// file.
package casconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"xdao.co/shard/storage"
	"xdao.co/shard/storage/casregistry"
)

// WritePolicy decides which backends receive writes.
type WritePolicy string

const (
	// WriteFirst writes to the first backend only; reads fall back in order.
	WriteFirst WritePolicy = "first"
	// WriteAll writes every backend and requires their CIDs to agree.
	WriteAll WritePolicy = "all"
)

// Config selects the backends that hold shards and how writes spread over them.
// Backend packages must still be linked with blank imports. An empty
// WritePolicy means WriteFirst.
//
//	write_policy: all
//	backends:
//	  - name: localfs
//	    config: {localfs-dir: /var/lib/shards}
//	  - name: ipfs
//	    id: kubo
//	    config: {ipfs-path: /var/lib/ipfs, ipfs-pin: "true"}
//
// Config keys are the backend's flag names.
type Config struct {
	WritePolicy WritePolicy     `yaml:"write_policy,omitempty" json:"write_policy,omitempty"`
	Backends    []BackendConfig `yaml:"backends" json:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend name (e.g. "grpc", "localfs", "ipfs").
	Name string `yaml:"name" json:"name"`
	// ID optionally aliases the backend in per-backend CID maps. Defaults to Name.
	ID     string            `yaml:"id,omitempty" json:"id,omitempty"`
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// Key is the identifier the backend is known by once opened.
func (b BackendConfig) Key() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func (b BackendConfig) matches(name string) bool { return b.Name == name || b.ID == name }

// LoadFile reads and validates a config file.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("casconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML (JSON is accepted as a subset) and validates the result.
// Unknown fields are rejected.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("casconfig: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("casconfig: at least one backend is required")
	}
	keys := make(map[string]bool, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("casconfig: backend name is required")
		}
		if keys[b.Key()] {
			return fmt.Errorf("casconfig: duplicate backend id %q", b.Key())
		}
		keys[b.Key()] = true
	}
	switch c.WritePolicy {
	case "", WriteFirst, WriteAll:
		return nil
	}
	return fmt.Errorf("casconfig: invalid write_policy %q", c.WritePolicy)
}

// ordered returns the backends with preferred moved to the front.
func (c Config) ordered(preferred string) ([]BackendConfig, error) {
	out := append([]BackendConfig(nil), c.Backends...)
	if preferred == "" {
		return out, nil
	}
	for i, b := range out {
		if b.matches(preferred) {
			return append([]BackendConfig{b}, append(out[:i:i], out[i+1:]...)...), nil
		}
	}
	return nil, fmt.Errorf("casconfig: preferred backend %q not found in config", preferred)
}

type closers []func() error

// close runs every closer in reverse open order and reports the first failure.
func (cs closers) close() error {
	var first error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens every configured backend and composes them per WritePolicy.
// A non-empty preferredBackend (name or id) is moved to the front, making it
// the write target under WriteFirst. The returned func closes all backends.
func (c Config) Open(usage casregistry.Usage, preferredBackend string) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	backends, err := c.ordered(preferredBackend)
	if err != nil {
		return nil, nil, err
	}

	named := make([]storage.NamedCAS, 0, len(backends))
	var cs closers
	for _, b := range backends {
		cas, closeFn, err := casregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = cs.close()
			return nil, nil, fmt.Errorf("casconfig: backend %q: %w", b.Key(), err)
		}
		named = append(named, storage.NamedCAS{Name: b.Key(), CAS: cas})
		if closeFn != nil {
			cs = append(cs, closeFn)
		}
	}

	switch {
	case len(named) == 1:
		return named[0].CAS, cs.close, nil
	case c.WritePolicy == WriteAll:
		return storage.ReplicatingCAS{Backends: named}, cs.close, nil
	}
	adapters := make([]storage.CAS, len(named))
	for i, n := range named {
		adapters[i] = n.CAS
	}
	return storage.MultiCAS{Adapters: adapters}, cs.close, nil
}
