package document

import (
	"strconv"
	"strings"
)

// Path addresses one node in a value tree. Segments are map keys, except
// that a segment consisting solely of digits indexes into a slice.
//
// Row indices in recordList values are positional: a Path that crosses a
// row boundary is only valid against the value it was computed from.
type Path []string

// ParsePath splits a dotted key path into segments.
// ParsePath("q_list.0.q_thing") == Path{"q_list", "0", "q_thing"}.
func ParsePath(dotted string) Path {
	if dotted == "" {
		return nil
	}
	return Path(strings.Split(dotted, "."))
}

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join([]string(p), ".")
}

// Child returns a new Path with extra segments appended. The receiver is
// not modified and not aliased by the result.
func (p Path) Child(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	out = append(out, segments...)
	return out
}

// Index returns a new Path with a positional row index appended.
func (p Path) Index(i int) Path {
	return p.Child(strconv.Itoa(i))
}

// asIndex reports whether the segment is a slice index and returns it.
func asIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return n, true
}
