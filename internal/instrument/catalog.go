package instrument

import (
	"regexp"
	"sync"
)

// CanonicalType is a fully resolved type: its base chain collapsed onto
// one of the built-in kinds with every inherited constraint overlaid.
// Immutable after catalog construction, shared by reference.
type CanonicalType struct {
	Kind         Kind
	Range        *Range
	Length       *Length
	Pattern      string
	Enumerations map[string]*Enumeration
	Record       []*FieldDefinition
	Rows         []*Row
	Columns      []*FieldDefinition

	patternOnce sync.Once
	patternRE   *regexp.Regexp
	patternErr  error
}

// CompiledPattern compiles the text pattern on first use and caches it on
// the type descriptor. Returns nil when no pattern is declared.
func (t *CanonicalType) CompiledPattern() (*regexp.Regexp, error) {
	if t.Pattern == "" {
		return nil, nil
	}
	t.patternOnce.Do(func() {
		t.patternRE, t.patternErr = regexp.Compile(t.Pattern)
	})
	return t.patternRE, t.patternErr
}

// overlay copies t and applies the constraints a derived type declares on
// top of it. Declared constraints win; absent ones are inherited.
func (t *CanonicalType) overlay(obj *TypeObject) *CanonicalType {
	out := &CanonicalType{
		Kind:         t.Kind,
		Range:        t.Range,
		Length:       t.Length,
		Pattern:      t.Pattern,
		Enumerations: t.Enumerations,
		Record:       t.Record,
		Rows:         t.Rows,
		Columns:      t.Columns,
	}
	if obj.Range != nil {
		out.Range = obj.Range
	}
	if obj.Length != nil {
		out.Length = obj.Length
	}
	if obj.Pattern != "" {
		out.Pattern = obj.Pattern
	}
	if obj.Enumerations != nil {
		out.Enumerations = obj.Enumerations
	}
	if obj.Record != nil {
		out.Record = obj.Record
	}
	if obj.Rows != nil {
		out.Rows = obj.Rows
	}
	if obj.Columns != nil {
		out.Columns = obj.Columns
	}
	return out
}

// TypeCatalog maps type names to canonical types. Pre-seeded with the
// built-in base kinds; instrument-defined names are resolved once at
// construction, never per field.
type TypeCatalog struct {
	types map[string]*CanonicalType
}

// NewCatalog builds a catalog for an instrument's named types. Every name
// is resolved through its base chain to a built-in kind; a missing base
// is an UnknownTypeError, a base chain that revisits a name is a
// CircularTypeError.
func NewCatalog(named map[string]*TypeObject) (*TypeCatalog, error) {
	c := &TypeCatalog{types: make(map[string]*CanonicalType, len(kindNames)+len(named))}
	for name, kind := range kindNames {
		c.types[name] = &CanonicalType{Kind: kind}
	}
	for name := range named {
		if _, err := c.resolveNamed(name, named, nil); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// resolveNamed resolves one instrument-defined name, memoizing the result
// in the catalog. chain carries the names currently being resolved for
// cycle detection.
func (c *TypeCatalog) resolveNamed(name string, named map[string]*TypeObject, chain []string) (*CanonicalType, error) {
	if resolved, ok := c.types[name]; ok {
		return resolved, nil
	}
	for _, seen := range chain {
		if seen == name {
			return nil, &CircularTypeError{Chain: append(chain, name)}
		}
	}
	obj, ok := named[name]
	if !ok {
		return nil, &UnknownTypeError{Name: name}
	}
	base, err := c.resolveNamed(obj.Base, named, append(chain, name))
	if err != nil {
		return nil, err
	}
	resolved := base.overlay(obj)
	c.types[name] = resolved
	return resolved, nil
}

// Lookup returns the canonical type for a catalog name.
func (c *TypeCatalog) Lookup(name string) (*CanonicalType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Resolve turns a field's type reference into a canonical type: a name is
// looked up directly; an inline object is overlaid on its (already
// canonical) base.
func (c *TypeCatalog) Resolve(ref TypeRef) (*CanonicalType, error) {
	if ref.Name != "" {
		if t, ok := c.types[ref.Name]; ok {
			return t, nil
		}
		return nil, &UnresolvedTypeError{Detail: "no type named " + ref.Name}
	}
	if ref.Object != nil {
		base, ok := c.types[ref.Object.Base]
		if !ok {
			return nil, &UnresolvedTypeError{Detail: "inline type has unknown base " + ref.Object.Base}
		}
		return base.overlay(ref.Object), nil
	}
	return nil, &UnresolvedTypeError{Detail: "empty type reference"}
}
