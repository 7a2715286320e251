package schema

import (
	"fmt"

	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

// CompileError wraps a definition error with the event key of the field
// that triggered it.
type CompileError struct {
	EventKey string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("field %s: %v", e.EventKey, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile turns an instrument record into compiled field nodes, one per
// field, recursing into recordList templates and matrix cells. prefix is
// the dot-joined event-key path of the enclosing context ("" at the
// root).
func Compile(record []*instrument.FieldDefinition, prefix string, catalog *instrument.TypeCatalog) ([]*FieldNode, error) {
	nodes := make([]*FieldNode, 0, len(record))
	for _, field := range record {
		node, err := compileField(field, prefix, catalog)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func compileField(field *instrument.FieldDefinition, prefix string, catalog *instrument.TypeCatalog) (*FieldNode, error) {
	eventKey := field.ID
	if prefix != "" {
		eventKey = prefix + "." + field.ID
	}

	resolved, err := catalog.Resolve(field.Type)
	if err != nil {
		return nil, &CompileError{EventKey: eventKey, Err: err}
	}

	node := &FieldNode{
		Field:    field,
		Type:     resolved,
		EventKey: eventKey,
		Required: field.Required && !resolved.Kind.Composite(),
	}

	node.Value, err = compileValue(field, resolved, eventKey, catalog)
	if err != nil {
		return nil, err
	}

	// Annotations record why a non-required question was left blank, so
	// a required field never carries one. Explanations follow the same
	// gate but may themselves be mandatory.
	if !field.Required && field.Annotation.Enabled() {
		node.Annotation = &ValueNode{
			Kind:     instrument.KindText,
			Type:     textType(catalog),
			EventKey: eventKey + ".annotation",
		}
	}
	if !field.Required && field.Explanation.Enabled() {
		node.Explanation = &ValueNode{
			Kind:     instrument.KindText,
			Type:     textType(catalog),
			EventKey: eventKey + ".explanation",
			Required: field.Explanation == instrument.ModeRequired,
		}
	}
	return node, nil
}

func compileValue(field *instrument.FieldDefinition, resolved *instrument.CanonicalType, eventKey string, catalog *instrument.TypeCatalog) (*ValueNode, error) {
	node := &ValueNode{
		Kind:     resolved.Kind,
		Type:     resolved,
		EventKey: eventKey,
		Required: field.Required,
	}

	switch resolved.Kind {
	case instrument.KindRecordList:
		if len(resolved.Record) == 0 {
			return nil, &CompileError{EventKey: eventKey, Err: fmt.Errorf("recordList type declares no record")}
		}
		template, err := Compile(resolved.Record, eventKey, catalog)
		if err != nil {
			return nil, err
		}
		node.Record = template

	case instrument.KindMatrix:
		if len(resolved.Rows) == 0 || len(resolved.Columns) == 0 {
			return nil, &CompileError{EventKey: eventKey, Err: fmt.Errorf("matrix type requires rows and columns")}
		}
		for _, row := range resolved.Rows {
			compiledRow := &MatrixRow{ID: row.ID, Required: row.Required}
			for _, col := range resolved.Columns {
				cell, err := compileField(col, eventKey+"."+row.ID, catalog)
				if err != nil {
					return nil, err
				}
				compiledRow.Cells = append(compiledRow.Cells, cell)
				if col.Required {
					compiledRow.RequiredColumns = append(compiledRow.RequiredColumns, col.ID)
				}
			}
			node.Rows = append(node.Rows, compiledRow)
		}

	case instrument.KindFloat, instrument.KindInteger, instrument.KindText,
		instrument.KindEnumeration, instrument.KindEnumerationSet,
		instrument.KindBoolean, instrument.KindDate, instrument.KindTime,
		instrument.KindDateTime:
		// Scalar slots carry no nested schema.

	default:
		return nil, &CompileError{EventKey: eventKey, Err: fmt.Errorf("unhandled kind %s", resolved.Kind)}
	}
	return node, nil
}

func textType(catalog *instrument.TypeCatalog) *instrument.CanonicalType {
	t, _ := catalog.Lookup("text")
	return t
}
