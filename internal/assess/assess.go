// Package assess projects a live value tree into the submission-ready
// assessment document. The projection normalizes emptiness to null and
// lets the caller overlay per-field values, which is how hidden or
// disabled fields are nulled in the submitted document while the live
// tree keeps the user's answers for re-editing.
package assess

import (
	"encoding/json"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

// FieldValue is one field's entry in the assessment values map.
type FieldValue struct {
	Value       any `json:"value"`
	Explanation any `json:"explanation,omitempty"`
	Annotation  any `json:"annotation,omitempty"`
}

// Assessment is the persisted answer document. Its shape is the save
// payload's schema and must stay stable.
type Assessment struct {
	Instrument instrument.Reference   `json:"instrument"`
	Values     map[string]*FieldValue `json:"values"`
}

// MarshalJSON emits the document with stable key order (encoding/json
// sorts map keys).
func (a *Assessment) MarshalJSON() ([]byte, error) {
	type alias Assessment
	return json.Marshal((*alias)(a))
}

// CoerceEmptyToNull normalizes emptiness: empty strings, maps and slices
// collapse to nil. Slice elements are coerced individually and dropped
// when empty; a slice left with no elements collapses to nil. Map
// entries are coerced in place; a map left entirely empty collapses to
// nil. Idempotent: coercing an already-coerced value returns an equal
// value.
func CoerceEmptyToNull(v any) any {
	switch node := v.(type) {
	case nil:
		return nil
	case string:
		if node == "" {
			return nil
		}
		return node
	case []any:
		kept := make([]any, 0, len(node))
		for _, item := range node {
			coerced := CoerceEmptyToNull(item)
			if coerced == nil {
				continue
			}
			kept = append(kept, coerced)
		}
		if len(kept) == 0 {
			return nil
		}
		return kept
	case document.Map:
		out := make(document.Map, len(node))
		empty := true
		for k, item := range node {
			coerced := CoerceEmptyToNull(item)
			out[k] = coerced
			if coerced != nil {
				empty = false
			}
		}
		if empty {
			return nil
		}
		return out
	default:
		return v
	}
}

// Make walks the instrument record and builds the assessment from the
// live value tree. An overlay entry for a field id is used verbatim in
// place of the live value; recordList fields recurse per row; everything
// else passes through CoerceEmptyToNull with explanation and annotation
// carried along. The live tree is never modified.
func Make(value document.Map, def *instrument.Definition, catalog *instrument.TypeCatalog, overlay map[string]*FieldValue) (*Assessment, error) {
	values, err := makeValues(value, def.Record, catalog, overlay)
	if err != nil {
		return nil, err
	}
	return &Assessment{
		Instrument: instrument.Reference{ID: def.ID, Version: def.Version},
		Values:     values,
	}, nil
}

func makeValues(value document.Map, record []*instrument.FieldDefinition, catalog *instrument.TypeCatalog, overlay map[string]*FieldValue) (map[string]*FieldValue, error) {
	out := make(map[string]*FieldValue, len(record))
	for _, field := range record {
		if overlay != nil {
			if fv, ok := overlay[field.ID]; ok {
				out[field.ID] = fv
				continue
			}
		}
		resolved, err := catalog.Resolve(field.Type)
		if err != nil {
			return nil, err
		}
		wrapper, _ := value[field.ID].(document.Map)

		if resolved.Kind == instrument.KindRecordList {
			fv, err := makeRecordList(wrapper, resolved, catalog)
			if err != nil {
				return nil, err
			}
			out[field.ID] = fv
			continue
		}
		out[field.ID] = makeLeaf(wrapper)
	}
	return out, nil
}

func makeRecordList(wrapper document.Map, resolved *instrument.CanonicalType, catalog *instrument.TypeCatalog) (*FieldValue, error) {
	rows, _ := wrapper["value"].([]any)
	var kept []any
	for _, row := range rows {
		rowMap, _ := row.(document.Map)
		subValues, err := makeValues(rowMap, resolved.Record, catalog, nil)
		if err != nil {
			return nil, err
		}
		entry := make(document.Map, len(subValues))
		allEmpty := true
		for id, fv := range subValues {
			sub := document.Map{"value": fv.Value}
			if fv.Explanation != nil {
				sub["explanation"] = fv.Explanation
			}
			if fv.Annotation != nil {
				sub["annotation"] = fv.Annotation
			}
			entry[id] = sub
			// A row holding only an explanation or annotation is still
			// respondent data; it must survive the empty-row drop.
			if fv.Value != nil || fv.Explanation != nil || fv.Annotation != nil {
				allEmpty = false
			}
		}
		if !allEmpty {
			kept = append(kept, entry)
		}
	}
	if kept == nil {
		return &FieldValue{Value: nil}, nil
	}
	return &FieldValue{Value: kept}, nil
}

func makeLeaf(wrapper document.Map) *FieldValue {
	fv := &FieldValue{Value: CoerceEmptyToNull(wrapper["value"])}
	if explanation, ok := wrapper["explanation"]; ok {
		fv.Explanation = CoerceEmptyToNull(explanation)
	}
	if annotation, ok := wrapper["annotation"]; ok {
		fv.Annotation = CoerceEmptyToNull(annotation)
	}
	return fv
}
