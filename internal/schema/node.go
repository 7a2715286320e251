// Package schema compiles an instrument record into a tree of typed,
// validated value nodes. The compiled tree is immutable and shared by
// reference between the rendering layer and the event engine.
package schema

import (
	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

// RequiredMessage is the response-required validation text. It is also
// produced by the format hook when a required annotation is missing.
const RequiredMessage = "You must provide a response for this field."

// Violation is one validation failure. Field is a dotted sub-path
// relative to the node that was checked ("" for the node itself). Force
// marks failures the rendering layer must surface regardless of
// dirty-state gating.
type Violation struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Force   bool   `json:"force,omitempty"`
}

// FieldNode is the compiled schema for one instrument field: a value
// child plus optional annotation and explanation children.
type FieldNode struct {
	Field    *instrument.FieldDefinition
	Type     *instrument.CanonicalType
	EventKey string
	Required bool

	Value       *ValueNode
	Annotation  *ValueNode
	Explanation *ValueNode
}

// ValueNode is the compiled schema for a single value slot: the field's
// answer, its annotation, or its explanation.
type ValueNode struct {
	Kind     instrument.Kind
	Type     *instrument.CanonicalType
	EventKey string
	Required bool

	// Record is the row template for recordList values, compiled once
	// and reused for every row.
	Record []*FieldNode

	// Rows holds the per-row cell schemas for matrix values.
	Rows []*MatrixRow
}

// MatrixRow carries the compiled cells of one fixed matrix row along with
// the columns that must be answered whenever the row is answered at all.
type MatrixRow struct {
	ID              string
	Required        bool
	RequiredColumns []string
	Cells           []*FieldNode
}

// Cell returns the compiled node for a column id, or nil.
func (r *MatrixRow) Cell(columnID string) *FieldNode {
	for _, c := range r.Cells {
		if c.Field.ID == columnID {
			return c
		}
	}
	return nil
}

// Find returns the node for a field id within a compiled record.
func Find(record []*FieldNode, fieldID string) *FieldNode {
	for _, n := range record {
		if n.Field.ID == fieldID {
			return n
		}
	}
	return nil
}

// CheckFormat enforces the node-level format constraint: a field whose
// annotation is mandatory must carry either an answer or an annotation.
// wrapper is the field's value wrapper ({value, annotation, explanation}).
func (n *FieldNode) CheckFormat(wrapper document.Map) []Violation {
	if n.Field.Annotation != instrument.ModeRequired {
		return nil
	}
	if document.IsEmpty(wrapper["value"]) && document.IsEmpty(wrapper["annotation"]) {
		return []Violation{{Message: RequiredMessage}}
	}
	return nil
}

// ApplyUpdate is the write hook for the field's value slot: answering a
// field clears any annotation previously recorded for it, keeping the two
// mutually exclusive. Returns a new wrapper; the input is not modified.
func (n *FieldNode) ApplyUpdate(wrapper document.Map) document.Map {
	if wrapper == nil {
		return nil
	}
	if n.Annotation == nil || document.IsEmpty(wrapper["value"]) {
		return wrapper
	}
	if wrapper["annotation"] == nil {
		return wrapper
	}
	out := make(document.Map, len(wrapper))
	for k, v := range wrapper {
		out[k] = v
	}
	out["annotation"] = nil
	return out
}

// Validate checks one field's wrapper: object-level required, the value
// child's type constraints, required explanation, and the format hook.
func (n *FieldNode) Validate(wrapper document.Map) []Violation {
	var out []Violation
	value := wrapper["value"]

	if n.Required && !n.Type.Kind.Composite() && document.IsEmpty(value) {
		out = append(out, Violation{Field: "value", Message: RequiredMessage})
	}
	for _, v := range n.Value.Validate(value) {
		v.Field = join("value", v.Field)
		out = append(out, v)
	}
	if n.Explanation != nil && n.Explanation.Required && document.IsEmpty(wrapper["explanation"]) {
		out = append(out, Violation{Field: "explanation", Message: RequiredMessage})
	}
	out = append(out, n.CheckFormat(wrapper)...)
	return out
}

func join(prefix, sub string) string {
	if sub == "" {
		return prefix
	}
	return prefix + "." + sub
}
