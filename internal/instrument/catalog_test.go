package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestNewCatalog_BuiltinsSeeded(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	for name := range kindNames {
		t.Run(name, func(t *testing.T) {
			resolved, ok := c.Lookup(name)
			require.True(t, ok)
			assert.Equal(t, name, resolved.Kind.String())
		})
	}
}

func TestNewCatalog_SingleInheritance(t *testing.T) {
	named := map[string]*TypeObject{
		"age": {
			Base:  "integer",
			Range: &Range{Min: float64(0), Max: float64(130)},
		},
	}
	c, err := NewCatalog(named)
	require.NoError(t, err)

	resolved, ok := c.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, KindInteger, resolved.Kind)
	require.NotNil(t, resolved.Range)
	assert.Equal(t, float64(130), resolved.Range.Max)
}

func TestNewCatalog_ChainedOverrideWins(t *testing.T) {
	// A constraint declared closest to the leaf wins over the same
	// constraint inherited from deeper in the chain.
	named := map[string]*TypeObject{
		"short_text": {Base: "text", Length: &Length{Max: intPtr(100)}, Pattern: `^[a-z]+$`},
		"tiny_text":  {Base: "short_text", Length: &Length{Max: intPtr(10)}},
	}
	c, err := NewCatalog(named)
	require.NoError(t, err)

	tiny, ok := c.Lookup("tiny_text")
	require.True(t, ok)
	assert.Equal(t, KindText, tiny.Kind)
	assert.Equal(t, 10, *tiny.Length.Max)
	// Pattern is inherited untouched.
	assert.Equal(t, `^[a-z]+$`, tiny.Pattern)
}

func TestNewCatalog_ResolutionIsIdempotent(t *testing.T) {
	named := map[string]*TypeObject{
		"mood": {
			Base: "enumeration",
			Enumerations: map[string]*Enumeration{
				"good": {}, "bad": {},
			},
		},
	}
	c1, err := NewCatalog(named)
	require.NoError(t, err)
	c2, err := NewCatalog(named)
	require.NoError(t, err)

	a, _ := c1.Lookup("mood")
	b, _ := c2.Lookup("mood")
	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.Enumerations, b.Enumerations)
}

func TestNewCatalog_UnknownBase(t *testing.T) {
	_, err := NewCatalog(map[string]*TypeObject{
		"broken": {Base: "no_such_type"},
	})
	require.Error(t, err)
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_type", unknown.Name)
}

func TestNewCatalog_CircularChain(t *testing.T) {
	_, err := NewCatalog(map[string]*TypeObject{
		"a": {Base: "b"},
		"b": {Base: "a"},
	})
	require.Error(t, err)
	var circular *CircularTypeError
	assert.ErrorAs(t, err, &circular)
}

func TestResolve_InlineObject(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	resolved, err := c.Resolve(TypeRef{Object: &TypeObject{
		Base:    "text",
		Pattern: `^\d{5}$`,
	}})
	require.NoError(t, err)
	assert.Equal(t, KindText, resolved.Kind)

	re, err := resolved.CompiledPattern()
	require.NoError(t, err)
	assert.True(t, re.MatchString("12345"))
	assert.False(t, re.MatchString("1234a"))
}

func TestResolve_InlineUnknownBase(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	_, err = c.Resolve(TypeRef{Object: &TypeObject{Base: "mystery"}})
	var unresolved *UnresolvedTypeError
	require.ErrorAs(t, err, &unresolved)
}

func TestResolve_EmptyReference(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	_, err = c.Resolve(TypeRef{})
	var unresolved *UnresolvedTypeError
	require.ErrorAs(t, err, &unresolved)
}

func TestCompiledPattern_CachedOnDescriptor(t *testing.T) {
	ct := &CanonicalType{Kind: KindText, Pattern: `^x+$`}
	first, err := ct.CompiledPattern()
	require.NoError(t, err)
	second, err := ct.CompiledPattern()
	require.NoError(t, err)
	assert.Same(t, first, second)
}
