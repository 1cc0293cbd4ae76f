package ledger

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/keys"
	"xdao.co/shard/keystream"
	"xdao.co/shard/model"
	"xdao.co/shard/payload"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage"
	"xdao.co/shard/storage/memory"
)

// failingStore accepts the first n puts and then fails.
type failingStore struct {
	*memory.CAS
	n int
}

func (f *failingStore) Put(data []byte) (cid.Cid, error) {
	if f.n == 0 {
		return cid.Undef, errors.New("disk full")
	}
	f.n--
	return f.CAS.Put(data)
}


const defaultSeedSimpleID = "0xfd76fe092eccd70d31fc0a56732437e572c936e3e1433f7c087127f75a953e93a26e5e80f0a7aefaf60d79da87a700fcc69aa8d9b88e585cbd6389279b190727"

func simple() payload.Value { return payload.Map(payload.F("a", payload.Number(1))) }

func TestRegister_DefaultSeed(t *testing.T) {
	rec, err := New().Register(context.Background(), simple())
	require.NoError(t, err)
	assert.Equal(t, defaultSeedSimpleID, rec.TxID)
	assert.Equal(t, 56, rec.ShardSize)
	assert.Equal(t, "blake2b", rec.Hash)
	assert.Empty(t, rec.CID)
	assert.Nil(t, rec.Signature)
}

func TestRegister_LogsBitCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	_, err := New(WithLogger(zap.New(core))).Register(context.Background(), simple())
	require.NoError(t, err)

	entries := logs.FilterMessage("registering shard").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 56, entries[0].ContextMap()["bits"])
}

func TestRegister_SerializationErrorRecordsNothing(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	store := memory.New()
	r := New(WithStore(store), WithLogger(zap.New(core)))

	_, err := r.Register(context.Background(), payload.Map(payload.F("x", payload.Number(math.NaN()))))
	require.Error(t, err)
	assert.True(t, payload.IsSerializationError(err))
	assert.Zero(t, store.Len())
	assert.Zero(t, logs.FilterMessage("registering shard").Len())
}

func TestRegister_StoresAndLooksUp(t *testing.T) {
	store := memory.New()
	r := New(WithSeed([]byte("test-seed")), WithStore(store))

	rec, err := r.Register(context.Background(), simple())
	require.NoError(t, err)
	require.NotEmpty(t, rec.CID)
	assert.Equal(t, 1, store.Len())

	s, plain, err := r.Lookup(context.Background(), rec.TxID)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(plain))
	assert.Equal(t, rec.TxID, s.ID.String())
	assert.Equal(t, rec.ShardSize, s.Len())

	c, err := cidutil.ForShard(s)
	require.NoError(t, err)
	assert.Equal(t, rec.CID, c.String())
}

func TestRegister_Idempotent(t *testing.T) {
	store := memory.New()
	r := New(WithStore(store))
	a, err := r.Register(context.Background(), simple())
	require.NoError(t, err)
	b, err := r.Register(context.Background(), simple())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, store.Len())
}

func TestRegister_Signs(t *testing.T) {
	seed, err := keys.DeriveSigningSeed(make([]byte, 32), "registrar")
	require.NoError(t, err)
	signer, err := keys.NewEd25519Signer(seed, "")
	require.NoError(t, err)

	rec, err := New(WithSigner(signer)).Register(context.Background(), simple())
	require.NoError(t, err)
	require.NotNil(t, rec.Signature)
	assert.Equal(t, "ed25519", rec.Signature.Alg)
	require.NoError(t, VerifyReceipt(rec))

	forged := rec
	forged.TxID = "0x00"
	assert.Error(t, VerifyReceipt(forged))
	assert.Error(t, VerifyReceipt(model.Receipt{TxID: "0x00"}))
}

func TestRegister_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Register(ctx, simple())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterAll_InputOrder(t *testing.T) {
	r := New()
	values := []payload.Value{payload.String("a"), payload.String("b"), payload.String("c")}
	recs, err := r.RegisterAll(context.Background(), values, 2)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, v := range values {
		want, err := r.Register(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, want.TxID, recs[i].TxID)
	}

	_, err = r.RegisterAll(context.Background(), []payload.Value{payload.Number(math.Inf(-1))}, 0)
	assert.True(t, payload.IsSerializationError(err))
}

func TestRegisterGo(t *testing.T) {
	rec, err := New().RegisterGo(context.Background(), map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, defaultSeedSimpleID, rec.TxID)
}

func TestLookup_Errors(t *testing.T) {
	_, _, err := New().Lookup(context.Background(), defaultSeedSimpleID)
	assert.ErrorIs(t, err, storage.ErrNoBackends)

	r := New(WithStore(memory.New()))
	_, _, err = r.Lookup(context.Background(), defaultSeedSimpleID)
	assert.True(t, storage.IsNotFound(err))

	_, _, err = r.Lookup(context.Background(), "not-an-id")
	assert.True(t, shard.IsKind(err, shard.KindIdentifier))
}

func TestRegister_BLAKE3StoresUnderBLAKE2bCID(t *testing.T) {
	store := memory.New()
	r := New(WithSeed([]byte("test-seed")), WithHash(keystream.BLAKE3), WithStore(store))
	rec, err := r.Register(context.Background(), simple())
	require.NoError(t, err)
	assert.Equal(t, "blake3", rec.Hash)
	assert.Len(t, rec.TxID, 2+64)

	s, err := r.Encoder().Encode(simple())
	require.NoError(t, err)
	want, err := cidutil.CIDv1RawCID([]byte(s.Bits))
	require.NoError(t, err)
	assert.Equal(t, want.String(), rec.CID)

	_, _, err = r.Lookup(context.Background(), rec.TxID)
	assert.Error(t, err)
}

func TestRegisterAll_StoreFailureReturnsNoReceipts(t *testing.T) {
	store := &failingStore{CAS: memory.New(), n: 1}
	r := New(WithStore(store))
	values := []payload.Value{simple(), payload.List(payload.Number(2)), payload.Null()}

	recs, err := r.RegisterAll(context.Background(), values, 2)
	require.Error(t, err)
	assert.Nil(t, recs)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, store.Len())
}
