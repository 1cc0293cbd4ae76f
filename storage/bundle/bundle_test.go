package bundle_test

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
	"xdao.co/shard/storage/bundle"
	"xdao.co/shard/storage/localfs"
	"xdao.co/shard/storage/memory"
	"xdao.co/shard/storage/testkit"
)

func putShards(t *testing.T, cas storage.CAS, plains ...string) []cid.Cid {
	t.Helper()
	ids := make([]cid.Cid, 0, len(plains))
	for _, p := range plains {
		id, err := cas.Put([]byte(testkit.SampleShard(t, p).Bits))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestBundle_ExportIsDeterministic(t *testing.T) {
	cas, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	ids := putShards(t, cas, "hello", "world")

	for _, c := range []bundle.Compression{bundle.CompressionNone, bundle.CompressionZstd} {
		var a, b bytes.Buffer
		require.NoError(t, bundle.Export(&a, cas, []cid.Cid{ids[1], ids[0]}, bundle.ExportOptions{IncludeIndex: true, Compression: c}))
		require.NoError(t, bundle.Export(&b, cas, []cid.Cid{ids[0], ids[1], ids[0]}, bundle.ExportOptions{IncludeIndex: true, Compression: c}))
		assert.Equal(t, a.Bytes(), b.Bytes())
	}
}

func TestBundle_ImportRoundTrip(t *testing.T) {
	for name, c := range map[string]bundle.Compression{"plain": bundle.CompressionNone, "zstd": bundle.CompressionZstd} {
		t.Run(name, func(t *testing.T) {
			src := memory.New()
			ids := putShards(t, src, "payload", "another")

			var buf bytes.Buffer
			require.NoError(t, bundle.Export(&buf, src, ids, bundle.ExportOptions{IncludeIndex: true, Compression: c}))

			dst, err := localfs.New(t.TempDir())
			require.NoError(t, err)
			got, err := bundle.Import(bytes.NewReader(buf.Bytes()), dst)
			require.NoError(t, err)
			assert.Len(t, got, 2)

			for _, id := range ids {
				want, err := src.Get(id)
				require.NoError(t, err)
				have, err := dst.Get(id)
				require.NoError(t, err)
				assert.Equal(t, want, have)
			}
		})
	}
}

func TestBundle_IndexCarriesShardIdentifiers(t *testing.T) {
	src := memory.New()
	s := testkit.SampleShard(t, `{"a":1}`)
	id, err := src.Put([]byte(s.Bits))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, bundle.Export(&buf, src, []cid.Cid{id}, bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]cid.Cid{"latest": id},
	}))

	tr := tar.NewReader(&buf)
	var index []byte
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if h.Name == "index.json" {
			index, err = io.ReadAll(tr)
			require.NoError(t, err)
		}
	}
	require.NotNil(t, index)

	var doc struct {
		Multihash string `json:"multihash"`
		Shards    []struct {
			CID  string `json:"cid"`
			ID   string `json:"id"`
			Bits int    `json:"bits"`
		} `json:"shards"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
	}
	require.NoError(t, jsoniter.Unmarshal(index, &doc))
	assert.Equal(t, "blake2b-512", doc.Multihash)
	require.Len(t, doc.Shards, 1)
	assert.Equal(t, s.ID.String(), doc.Shards[0].ID)
	assert.Equal(t, s.Len(), doc.Shards[0].Bits)
	require.Len(t, doc.Labels, 1)
	assert.Equal(t, "latest", doc.Labels[0].Name)
}

func TestBundle_ImportRejectsCIDMismatch(t *testing.T) {
	good := []byte("good")
	other, err := cidutil.CIDv1RawCID([]byte("other"))
	require.NoError(t, err)

	// Name says "other" but the bytes are "good".
	b := makeDeterministicTar(t, "shards/"+other.String(), good)
	_, err = bundle.Import(bytes.NewReader(b), memory.New())
	assert.ErrorIs(t, err, storage.ErrCIDMismatch)
}

func TestBundle_ImportFailsClosedOnUnknownEntries(t *testing.T) {
	b := makeDeterministicTar(t, "extra/readme.txt", []byte("hi"))

	_, err := bundle.Import(bytes.NewReader(b), memory.New())
	assert.Error(t, err)

	got, err := bundle.ImportWithOptions(bytes.NewReader(b), memory.New(), bundle.ImportOptions{IgnoreUnknown: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBundle_ImportRejectsTraversal(t *testing.T) {
	b := makeDeterministicTar(t, "shards/../x", []byte("0"))
	_, err := bundle.Import(bytes.NewReader(b), memory.New())
	assert.Error(t, err)
}

func TestBundle_ExportMissingShard(t *testing.T) {
	id, err := cidutil.CIDv1RawCID([]byte("absent"))
	require.NoError(t, err)
	err = bundle.Export(io.Discard, memory.New(), []cid.Cid{id}, bundle.ExportOptions{})
	assert.True(t, storage.IsNotFound(err))

	assert.ErrorIs(t, bundle.Export(io.Discard, memory.New(), []cid.Cid{cid.Undef}, bundle.ExportOptions{}), storage.ErrInvalidCID)
}

func makeDeterministicTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	require.NoError(t, tw.WriteHeader(h))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}
