package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	assert.Nil(t, ParsePath(""))
	assert.Equal(t, Path{"q_list", "0", "q_thing"}, ParsePath("q_list.0.q_thing"))
	assert.Equal(t, "q_list.0.q_thing", Path{"q_list", "0", "q_thing"}.String())
}

func TestPath_ChildDoesNotAliasReceiver(t *testing.T) {
	base := Path{"q_list", "value"}
	a := base.Index(0)
	b := base.Index(1)
	assert.Equal(t, "q_list.value.0", a.String())
	assert.Equal(t, "q_list.value.1", b.String())
	assert.Equal(t, "q_list.value", base.String())
}

func TestGet(t *testing.T) {
	tree := Map{
		"q_list": Map{"value": []any{
			Map{"q_thing": Map{"value": "thing1"}},
		}},
	}
	cases := []struct {
		path string
		want any
	}{
		{"q_list.value.0.q_thing.value", "thing1"},
		{"q_list.value.1.q_thing.value", nil},
		{"q_list.value.x", nil},
		{"q_missing", nil},
		{"q_list.value.0.q_thing.value.deeper", nil},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Get(tree, ParsePath(tc.path)))
		})
	}
}

func TestSet_CopiesSpineSharesSiblings(t *testing.T) {
	tree := Map{
		"q_a": Map{"value": "a"},
		"q_b": Map{"value": "b"},
	}
	out, ok := Set(tree, ParsePath("q_a.value"), "edited").(Map)
	require.True(t, ok)

	assert.Equal(t, "edited", Get(out, ParsePath("q_a.value")))
	assert.Equal(t, "a", Get(tree, ParsePath("q_a.value")), "input untouched")

	// The untouched sibling subtree is shared, not copied: mutating it
	// through the output is visible through the input.
	out["q_b"].(Map)["value"] = "mutated"
	assert.Equal(t, "mutated", Get(tree, ParsePath("q_b.value")))
}

func TestSet_CreatesMissingMaps(t *testing.T) {
	out := Set(Map{}, ParsePath("q_new.value"), "x")
	assert.Equal(t, "x", Get(out, ParsePath("q_new.value")))
}

func TestSet_ThroughSlice(t *testing.T) {
	tree := Map{
		"q_list": Map{"value": []any{
			Map{"q_thing": Map{"value": "old"}},
		}},
	}
	out := Set(tree, ParsePath("q_list.value.0.q_thing.value"), nil)
	assert.Nil(t, Get(out, ParsePath("q_list.value.0.q_thing.value")))
	assert.Equal(t, "old", Get(tree, ParsePath("q_list.value.0.q_thing.value")))

	// Rows are never created implicitly.
	same := Set(tree, ParsePath("q_list.value.5.q_thing.value"), "x")
	assert.True(t, Equal(tree, same))
}

func TestDeepCopy(t *testing.T) {
	tree := Map{"q_list": Map{"value": []any{Map{"q_thing": Map{"value": "x"}}}}}
	clone, ok := DeepCopy(tree).(Map)
	require.True(t, ok)
	require.True(t, Equal(tree, clone))

	inner := clone["q_list"].(Map)["value"].([]any)[0].(Map)["q_thing"].(Map)
	inner["value"] = "mutated"
	assert.Equal(t, "x", Get(tree, ParsePath("q_list.value.0.q_thing.value")))
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"string", "x", false},
		{"false is an answer", false, false},
		{"zero is an answer", float64(0), false},
		{"empty map", Map{}, true},
		{"map of empties", Map{"value": "", "annotation": nil}, true},
		{"map with answer", Map{"value": "x"}, false},
		{"empty slice", []any{}, true},
		{"slice of empties", []any{Map{"value": ""}}, true},
		{"slice with answer", []any{Map{"value": "x"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsEmpty(tc.v))
		})
	}
}

func TestClock(t *testing.T) {
	clock := NewClock()
	v1 := clock.Version()
	assert.Equal(t, int64(1), v1)
	clock.Advance()
	assert.Equal(t, v1+1, clock.Version())
}
