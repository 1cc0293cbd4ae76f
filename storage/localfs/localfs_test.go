package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
	"xdao.co/shard/storage/casregistry"
	"xdao.co/shard/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		require.NoError(t, err)
		return cas
	})
}

func TestLocalFS_FanoutUsesCIDTail(t *testing.T) {
	cas, err := New(t.TempDir())
	require.NoError(t, err)
	id, err := cas.Put([]byte("01100001"))
	require.NoError(t, err)

	s := id.String()
	_, err = os.Stat(filepath.Join(cas.Root(), s[len(s)-2:], s))
	assert.NoError(t, err)
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	cas, err := New(t.TempDir())
	require.NoError(t, err)

	orig := []byte(testkit.SampleShard(t, "original").Bits)
	id, err := cas.Put(orig)
	require.NoError(t, err)

	// Corrupt the stored object out-of-band.
	path := cas.pathFor(id)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("corrupted"), 0o644))

	_, err = cas.Get(id)
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)

	// Put must not repair the corrupted object.
	_, err = cas.Put(orig)
	assert.ErrorIs(t, err, storage.ErrImmutable)

	wantID, err := cidutil.CIDv1RawCID(orig)
	require.NoError(t, err)
	assert.True(t, id.Equals(wantID))
}

func TestLocalFS_RequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestLocalFS_OpenWithConfig(t *testing.T) {
	dir := t.TempDir()
	cas, _, err := casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, map[string]string{"localfs-dir": dir})
	require.NoError(t, err)
	assert.Equal(t, dir, cas.(*CAS).Root())

	_, _, err = casregistry.OpenWithConfig("localfs", casregistry.UsageCLI, nil)
	assert.Error(t, err)
}
