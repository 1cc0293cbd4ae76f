package cidutil

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/shard/keystream"
	"xdao.co/shard/shard"
)

func TestCIDv1Raw_UsesBlake2b512(t *testing.T) {
	id, err := CIDv1RawCID([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id.Version())
	assert.Equal(t, uint64(cid.Raw), id.Type())

	dec, err := multihash.Decode(id.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint64(multihash.BLAKE2B_MAX), dec.Code)
	assert.Equal(t, 64, dec.Length)
	assert.True(t, strings.HasPrefix(id.String(), "b"), id.String())
}

func TestIdentifierIsStoredCIDDigest(t *testing.T) {
	s := shard.New([]byte("test-seed")).EncodeBytes([]byte(`{"a":1}`))

	fromBytes, err := CIDv1RawCID([]byte(s.Bits))
	require.NoError(t, err)
	fromID, err := ForShard(s)
	require.NoError(t, err)
	assert.True(t, fromBytes.Equals(fromID))

	back, err := ToIdentifier(fromBytes)
	require.NoError(t, err)
	assert.True(t, back.Equal(s.ID))
	assert.Equal(t, s.ID.String(), back.String())
}

func TestFromIdentifier_BLAKE3(t *testing.T) {
	s := shard.New([]byte("k"), shard.WithHash(keystream.BLAKE3)).EncodeBytes([]byte("null"))
	id, err := FromIdentifier(s.ID)
	require.NoError(t, err)
	require.NoError(t, Verify(id, []byte(s.Bits)))

	back, err := ToIdentifier(id)
	require.NoError(t, err)
	assert.Equal(t, keystream.BLAKE3, back.Hash)
}

func TestFromIdentifier_Rejects(t *testing.T) {
	_, err := FromIdentifier(shard.Identifier{})
	assert.ErrorIs(t, err, ErrUndefined)

	_, err = FromIdentifier(shard.Identifier{Hash: keystream.BLAKE2b, Digest: []byte{1, 2}})
	assert.Error(t, err)
}

func TestToIdentifier_Rejects(t *testing.T) {
	_, err := ToIdentifier(cid.Undef)
	assert.ErrorIs(t, err, ErrUndefined)

	mh, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	require.NoError(t, err)
	_, err = ToIdentifier(cid.NewCidV1(cid.DagCBOR, mh))
	assert.ErrorIs(t, err, ErrNotRaw)

	_, err = ToIdentifier(cid.NewCidV1(cid.Raw, mh))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	data := []byte("0101")
	id, err := CIDv1RawCID(data)
	require.NoError(t, err)
	require.NoError(t, Verify(id, data))
	assert.ErrorIs(t, Verify(id, []byte("0110")), ErrDigestMatch)
	assert.ErrorIs(t, Verify(cid.Undef, data), ErrUndefined)
}
