package payload

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMarshal(t *testing.T, x any) string {
	t.Helper()
	b, err := Marshal(x)
	require.NoError(t, err)
	return string(b)
}

type manifest struct {
	Version  string   `json:"manifest_version"`
	Size     int      `json:"size_bytes"`
	Chains   []string `json:"simulated_blockchains"`
	Optional string   `json:"optional,omitempty"`
	Skipped  string   `json:"-"`
	hidden   string
	Plain    bool
}

type base struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type derived struct {
	base
	Kind  string `json:"-"`
	Extra int    `json:"extra"`
}

func TestFromGo_StructFieldOrderAndTags(t *testing.T) {
	m := manifest{Version: "3.1.4_ALPHA", Size: 1024, Chains: []string{"btc", "eth"}, Skipped: "x", hidden: "y", Plain: true}
	assert.Equal(t,
		`{"manifest_version":"3.1.4_ALPHA","size_bytes":1024,"simulated_blockchains":["btc","eth"],"Plain":true}`,
		mustMarshal(t, m))
	assert.Equal(t, mustMarshal(t, m), mustMarshal(t, &m))
}

func TestFromGo_EmbeddedStructFlattened(t *testing.T) {
	got := mustMarshal(t, derived{base: base{ID: "1", Kind: "k"}, Extra: 2})
	assert.Equal(t, `{"id":"1","kind":"k","extra":2}`, got)
}

func TestFromGo_MapKeysSorted(t *testing.T) {
	got := mustMarshal(t, map[string]any{"b": 1, "a": []int{1, 2}, "c": nil})
	assert.Equal(t, `{"a":[1,2],"b":1,"c":null}`, got)

	got = mustMarshal(t, map[int]string{10: "x", 2: "y"})
	assert.Equal(t, `{"10":"x","2":"y"}`, got)
}

func TestFromGo_Scalars(t *testing.T) {
	assert.Equal(t, "null", mustMarshal(t, nil))
	assert.Equal(t, "null", mustMarshal(t, (*int)(nil)))
	assert.Equal(t, "null", mustMarshal(t, []string(nil)))
	assert.Equal(t, `"AQID"`, mustMarshal(t, []byte{1, 2, 3}))
	assert.Equal(t, "1.5", mustMarshal(t, float32(1.5)))
	assert.Equal(t, "12", mustMarshal(t, json.Number("12")))
	assert.Equal(t, `"2024-01-02T03:04:05Z"`, mustMarshal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "[1,2]", mustMarshal(t, [2]uint8{1, 2}))
}

func TestFromGo_BigInt(t *testing.T) {
	n, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	got := mustMarshal(t, map[string]any{"chainEpoch": n, "drift": 0.5})
	assert.Equal(t, `{"chainEpoch":"123456789012345678901234567890n","drift":0.5}`, got)
	assert.Equal(t, `"5n"`, mustMarshal(t, *big.NewInt(5)))
}

func TestFromGo_PassesValuesThrough(t *testing.T) {
	v := Map(F("z", Number(1)), F("a", Number(2)))
	assert.Equal(t, `{"wrapped":{"z":1,"a":2}}`, mustMarshal(t, map[string]any{"wrapped": v}))
}

func TestFromGo_IntegerPrecision(t *testing.T) {
	assert.Equal(t, "9007199254740992", mustMarshal(t, int64(1<<53)))
	_, err := Marshal(int64(1<<53 + 1))
	require.Error(t, err)
	assert.Equal(t, "SHARD-SER-005", RuleID(err))
	_, err = Marshal(uint64(math.MaxUint64))
	assert.Equal(t, "SHARD-SER-005", RuleID(err))
}

type node struct {
	Name string `json:"name"`
	Next *node  `json:"next"`
}

func TestFromGo_CyclesAreSerializationErrors(t *testing.T) {
	n := &node{Name: "a"}
	n.Next = n
	_, err := FromGo(n)
	require.Error(t, err)
	assert.True(t, IsSerializationError(err))
	assert.Equal(t, "SHARD-SER-003", RuleID(err))

	m := map[string]any{}
	m["self"] = m
	_, err = FromGo(m)
	assert.Equal(t, "SHARD-SER-003", RuleID(err))

	s := []any{nil}
	s[0] = s
	_, err = FromGo(s)
	assert.Equal(t, "SHARD-SER-003", RuleID(err))
}

func TestFromGo_SharedReferencesAreNotCycles(t *testing.T) {
	shared := &node{Name: "leaf"}
	got := mustMarshal(t, []*node{shared, shared})
	assert.Equal(t, `[{"name":"leaf","next":null},{"name":"leaf","next":null}]`, got)
}

func TestFromGo_UnsupportedKinds(t *testing.T) {
	for _, x := range []any{make(chan int), func() {}, complex(1, 2)} {
		_, err := FromGo(x)
		require.Error(t, err)
		assert.True(t, IsSerializationError(err))
		assert.Equal(t, "SHARD-SER-002", RuleID(err))
	}
	_, err := FromGo(map[float64]int{1: 1})
	assert.Equal(t, "SHARD-SER-006", RuleID(err))
}

func TestMarshal_NonFinite(t *testing.T) {
	_, err := Marshal(map[string]float64{"x": math.Inf(1)})
	require.Error(t, err)
	assert.Equal(t, "SHARD-SER-001", RuleID(err))
}
