package document

import "reflect"

// Map is one object node of a value tree. The root of a live document is
// always a Map keyed by field id.
type Map = map[string]any

// Get walks the tree by path. It returns nil for any missing segment, a
// non-map/non-slice intermediate, or an out-of-range index; walking never
// fails loudly because event rules routinely reference fields that have
// no answer yet.
func Get(root any, path Path) any {
	cur := root
	for _, seg := range path {
		switch node := cur.(type) {
		case Map:
			v, ok := node[seg]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, ok := asIndex(seg)
			if !ok || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// Set returns a new tree with path overwritten by v. The spine from the
// root down to the target is copied; untouched siblings are shared with
// the input tree. Missing intermediate maps are created. Setting through
// a missing slice index is a no-op (rows are never created implicitly).
func Set(root any, path Path, v any) any {
	if len(path) == 0 {
		return v
	}
	seg, rest := path[0], path[1:]
	switch node := root.(type) {
	case []any:
		i, ok := asIndex(seg)
		if !ok || i < 0 || i >= len(node) {
			return root
		}
		out := make([]any, len(node))
		copy(out, node)
		out[i] = Set(node[i], rest, v)
		return out
	case Map:
		out := make(Map, len(node)+1)
		for k, val := range node {
			out[k] = val
		}
		out[seg] = Set(node[seg], rest, v)
		return out
	case nil:
		if _, isIdx := asIndex(seg); isIdx {
			return root
		}
		return Map{seg: Set(nil, rest, v)}
	default:
		return root
	}
}

// DeepCopy clones maps and slices all the way down. Scalars are shared
// (they are immutable in a JSON-like tree).
func DeepCopy(v any) any {
	switch node := v.(type) {
	case Map:
		out := make(Map, len(node))
		for k, val := range node {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

// Equal compares two trees structurally.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// IsEmpty reports whether v counts as "no answer": nil, empty string,
// empty map, empty slice, or a map/slice whose entries are all empty
// themselves. A false boolean and the number zero are answers.
func IsEmpty(v any) bool {
	switch node := v.(type) {
	case nil:
		return true
	case string:
		return node == ""
	case Map:
		for _, val := range node {
			if !IsEmpty(val) {
				return false
			}
		}
		return true
	case []any:
		for _, val := range node {
			if !IsEmpty(val) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
