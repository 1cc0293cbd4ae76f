package casregistry

import (
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/shard/storage"
)

type nopCAS struct{ label string }

func (nopCAS) Put([]byte) (cid.Cid, error) { return cid.Undef, errors.New("nop") }
func (nopCAS) Get(cid.Cid) ([]byte, error) { return nil, storage.ErrNotFound }
func (nopCAS) Has(cid.Cid) bool            { return false }

var testLabel string

func init() {
	MustRegister(Backend{
		Name:        "registry-test",
		Description: "test backend",
		Usage:       UsageCLI,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&testLabel, "registry-test-label", "", "label")
		},
		Open: func() (storage.CAS, func() error, error) {
			return nopCAS{label: testLabel}, nil, nil
		},
	})
}

func TestRegister_Validation(t *testing.T) {
	assert.Error(t, Register(Backend{}))
	assert.Error(t, Register(Backend{Name: "x"}))
	assert.Error(t, Register(Backend{Name: "registry-test", Usage: UsageCLI,
		RegisterFlags: func(*pflag.FlagSet) {},
		Open:          func() (storage.CAS, func() error, error) { return nil, nil, nil }}))
}

func TestListAndNames(t *testing.T) {
	assert.Contains(t, Names(UsageCLI), "registry-test")
	assert.NotContains(t, Names(UsageDaemon), "registry-test")
}

func TestOpen_Usage(t *testing.T) {
	_, _, err := Open("registry-test", UsageDaemon)
	assert.Error(t, err)
	_, _, err = Open("does-not-exist", UsageCLI)
	assert.Error(t, err)
}

func TestOpenWithConfig(t *testing.T) {
	cas, closeFn, err := OpenWithConfig("registry-test", UsageCLI, map[string]string{"registry-test-label": "alpha"})
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.Equal(t, "alpha", cas.(nopCAS).label)

	_, _, err = OpenWithConfig("registry-test", UsageCLI, map[string]string{"bogus": "1"})
	assert.Error(t, err)
}

func TestRegisterFlags_ParsesBackendOptions(t *testing.T) {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	RegisterFlags(fs, UsageCLI)
	require.NoError(t, fs.Parse([]string{"--registry-test-label=beta"}))

	cas, _, err := Open("registry-test", UsageCLI)
	require.NoError(t, err)
	assert.Equal(t, "beta", cas.(nopCAS).label)
}
