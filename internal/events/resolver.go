package events

import (
	"strings"

	"github.com/fieldwork-io/fieldwork/internal/document"
)

// NewResolver builds the identifier resolver trigger expressions are
// evaluated with, closing over a value subtree and the form parameters.
//
// Resolution walks the value tree by the identifier's dotted segments.
// Any missing segment resolves to nil. When the first segment is not a
// top-level key of the value tree, the parameters map is consulted
// instead. Crossing a question wrapper without consuming a segment hops
// into its "value" slot, so recordList rows fan resolution out into a
// list (one element per row) and a fully resolved wrapper unwraps to the
// raw answer.
func NewResolver(value document.Map, params map[string]any) Resolver {
	return func(identifier string) any {
		segs := strings.Split(identifier, ".")
		if len(segs) == 0 || segs[0] == "" {
			return nil
		}
		if _, ok := value[segs[0]]; ok {
			return resolveIn(value, segs)
		}
		if params != nil {
			if pv, ok := params[segs[0]]; ok {
				return resolveIn(document.Map{segs[0]: pv}, segs)
			}
		}
		return nil
	}
}

func resolveIn(node any, segs []string) any {
	if len(segs) == 0 {
		return unwrap(node)
	}
	switch n := node.(type) {
	case document.Map:
		if v, ok := n[segs[0]]; ok {
			return resolveIn(v, segs[1:])
		}
		// Question wrapper hop: descend into the answer without
		// consuming a segment.
		if v, ok := n["value"]; ok {
			return resolveIn(v, segs)
		}
		return nil
	case []any:
		out := make([]any, len(n))
		for i, row := range n {
			out[i] = resolveIn(row, segs)
		}
		return out
	default:
		return nil
	}
}

// unwrap reduces a question wrapper to its raw answer; anything else
// passes through.
func unwrap(node any) any {
	if m, ok := node.(document.Map); ok {
		if v, ok := m["value"]; ok {
			return v
		}
	}
	return node
}
