package shard

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/shard/payload"
)

func TestEncodeAll_MatchesSequential(t *testing.T) {
	enc := New([]byte("batch"))
	values := make([]payload.Value, 50)
	for i := range values {
		values[i] = payload.Map(payload.F("i", payload.Number(float64(i))), payload.F("s", payload.String(strconv.Itoa(i))))
	}

	got, err := enc.EncodeAll(context.Background(), values, 4)
	require.NoError(t, err)
	require.Len(t, got, len(values))
	for i, v := range values {
		want, err := enc.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, want.Bits, got[i].Bits)
		assert.True(t, want.ID.Equal(got[i].ID))
	}
}

func TestEncodeAll_FailsWithoutPartialResults(t *testing.T) {
	enc := New([]byte("batch"))
	values := []payload.Value{payload.Number(1), payload.Number(math.NaN()), payload.Number(3)}
	got, err := enc.EncodeAll(context.Background(), values, 0)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, payload.IsSerializationError(err))
}

func TestEncodeAll_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := New([]byte("batch")).EncodeAll(ctx, []payload.Value{payload.Null()}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}
