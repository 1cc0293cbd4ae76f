package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBits(t *testing.T) {
	assert.Equal(t, "", RenderBits(nil))
	assert.Equal(t, "00000000", RenderBits([]byte{0}))
	assert.Equal(t, "11111111", RenderBits([]byte{0xff}))
	assert.Equal(t, "0000000110000000", RenderBits([]byte{0x01, 0x80}))
	assert.Equal(t, "00100000", RenderBits([]byte{0x20}))
}

func TestParseBits_RoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	got, err := ParseBits(RenderBits(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestParseBits_Errors(t *testing.T) {
	_, err := ParseBits("0101")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindShard))
	assert.Equal(t, "SHARD-BITS-001", RuleID(err))

	_, err = ParseBits("0101010x")
	require.Error(t, err)
	assert.Equal(t, "SHARD-BITS-002", RuleID(err))
}
