package instrument

import "fmt"

// UnknownTypeError indicates a named type or base refers to a name that
// is neither a built-in nor defined by the instrument. Fatal: the
// instrument definition is malformed and compilation must abort.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q: not a built-in and not defined by the instrument", e.Name)
}

// UnresolvedTypeError indicates a field's type reference could not be
// resolved against the catalog: an inline object whose base is unknown,
// or a reference that is neither a catalog name nor an inline object.
type UnresolvedTypeError struct {
	Detail string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("unresolved type reference: %s", e.Detail)
}

// CircularTypeError indicates a base chain that never reaches a built-in
// root. Well-formed instruments cannot produce this; it guards the
// resolver against malformed input looping forever.
type CircularTypeError struct {
	Chain []string
}

func (e *CircularTypeError) Error() string {
	return fmt.Sprintf("circular type inheritance involving %v", e.Chain)
}
