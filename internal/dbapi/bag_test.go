package dbapi

import (
	"testing"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBag_EncodeDecodeIdentity(t *testing.T) {
	arena := graph.NewArena()
	n := arena.NewNode(nil, nil)

	props := []Property{
		{Name: "scalar", Values: []string{"v"}},
		{Name: "list", Values: []string{"a", "b", "c"}},
		{Name: "empty", Values: []string{}},
	}
	encoded := EncodeBag(props)
	assert.Equal(t, []string{"scalar", "1", "v", "list", "3", "a", "b", "c", "empty", "0"}, encoded)

	decoded, err := DecodeBag("test", len(props), encoded)
	require.NoError(t, err)
	for _, p := range decoded {
		n.Set(p.Name, p.Value())
	}

	v, _ := n.Get("scalar")
	assert.Equal(t, "v", v, "a single value is stored as a scalar")
	assert.Equal(t, []string{"a", "b", "c"}, Values(n.List("list")))

	var again []string
	for _, p := range decoded {
		stored, _ := n.Get(p.Name)
		again = Encode(again, p.Name, stored)
	}
	assert.Equal(t, encoded, again)
}

func TestDecodeBag_Malformed(t *testing.T) {
	tests := []struct {
		name string
		n    int
		args []string
	}{
		{"missing name", 1, nil},
		{"missing count", 1, []string{"p"}},
		{"count not a number", 1, []string{"p", "x", "v"}},
		{"negative count", 1, []string{"p", "-1"}},
		{"too few values", 1, []string{"p", "3", "a", "b"}},
		{"too few entries", 2, []string{"p", "1", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBag("DbPutDeviceProperty", tt.n, tt.args)
			require.ErrorIs(t, err, api.ErrMalformed)
			assert.Equal(t, api.ReasonIncorrectArguments, api.ReasonOf(err))
		})
	}
}

func TestDecodeAttributeBag(t *testing.T) {
	pairs, err := DecodeAttributeBag("op", 2, []string{
		"pos", "2", "unit", "mm", "format", "%d",
		"vel", "0",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []AttributeProperties{
		{Attribute: "pos", Properties: []Property{
			{Name: "unit", Values: []string{"mm"}},
			{Name: "format", Values: []string{"%d"}},
		}},
		{Attribute: "vel"},
	}, pairs)

	counted, err := DecodeAttributeBag("op", 1, []string{"pos", "1", "range", "2", "0", "9"}, true)
	require.NoError(t, err)
	assert.Equal(t, []Property{{Name: "range", Values: []string{"0", "9"}}}, counted[0].Properties)

	_, err = DecodeAttributeBag("op", 1, []string{"pos", "1", "unit"}, false)
	assert.ErrorIs(t, err, api.ErrMalformed)
	_, err = DecodeAttributeBag("op", 1, []string{"pos", "1", "range", "2", "0"}, true)
	assert.ErrorIs(t, err, api.ErrMalformed)
}

func TestEncodeContainer_JoinsListsForPairs(t *testing.T) {
	arena := graph.NewArena()
	n := arena.NewNode(nil, nil)
	n.Set("unit", "mm")
	n.Set("range", []any{"0", "5"})
	n.Set("nested", graph.NewFields())

	assert.Equal(t, []string{"unit", "mm", "range", "0\n5"}, encodeContainer(nil, n, false))
	assert.Equal(t, []string{"unit", "1", "mm", "range", "2", "0", "5"}, encodeContainer(nil, n, true))
	assert.Equal(t, 2, leafCount(n))
	assert.Empty(t, leafKeys(nil))
}
