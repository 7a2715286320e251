package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

func simpleField(id, typeName string) *instrument.FieldDefinition {
	return &instrument.FieldDefinition{ID: id, Type: instrument.TypeRef{Name: typeName}}
}

func enumSetField(id string, options ...string) *instrument.FieldDefinition {
	enums := make(map[string]*instrument.Enumeration, len(options))
	for _, opt := range options {
		enums[opt] = &instrument.Enumeration{}
	}
	return &instrument.FieldDefinition{
		ID:   id,
		Type: instrument.TypeRef{Object: &instrument.TypeObject{Base: "enumerationSet", Enumerations: enums}},
	}
}

func recordListField(id string, entries ...*instrument.FieldDefinition) *instrument.FieldDefinition {
	return &instrument.FieldDefinition{
		ID:   id,
		Type: instrument.TypeRef{Object: &instrument.TypeObject{Base: "recordList", Record: entries}},
	}
}

func matrixField(id string, rowIDs []string, columns ...*instrument.FieldDefinition) *instrument.FieldDefinition {
	rows := make([]*instrument.Row, 0, len(rowIDs))
	for _, rowID := range rowIDs {
		rows = append(rows, &instrument.Row{ID: rowID})
	}
	return &instrument.FieldDefinition{
		ID:   id,
		Type: instrument.TypeRef{Object: &instrument.TypeObject{Base: "matrix", Rows: rows, Columns: columns}},
	}
}

func compileFields(t *testing.T, fields ...*instrument.FieldDefinition) []*schema.FieldNode {
	t.Helper()
	catalog, err := instrument.NewCatalog(nil)
	require.NoError(t, err)
	record, err := schema.Compile(fields, "", catalog)
	require.NoError(t, err)
	return record
}

func rule(trigger, action string, targets ...string) *form.EventRule {
	return &form.EventRule{Trigger: trigger, Action: action, Targets: targets}
}

func failRule(trigger, text string, targets ...string) *form.EventRule {
	return &form.EventRule{
		Trigger: trigger,
		Action:  "fail",
		Targets: targets,
		Options: &form.EventOptions{Text: text},
	}
}

func enumRule(trigger string, hidden []string, targets ...string) *form.EventRule {
	return &form.EventRule{
		Trigger: trigger,
		Action:  "hideEnumeration",
		Targets: targets,
		Options: &form.EventOptions{Enumerations: hidden},
	}
}

func question(fieldID string, rules ...*form.EventRule) *form.Question {
	return &form.Question{FieldID: fieldID, Events: rules}
}

func formOf(questions ...*form.Question) *form.Form {
	elements := make([]*form.Element, 0, len(questions))
	for _, q := range questions {
		elements = append(elements, &form.Element{Type: form.ElementQuestion, Options: q})
	}
	return &form.Form{
		Instrument: instrument.Reference{ID: "urn:test", Version: "1.0"},
		Pages:      []*form.Page{{ID: "page1", Elements: elements}},
	}
}

// wrap builds a question wrapper around a raw answer.
func wrap(v any) document.Map {
	return document.Map{"value": v}
}

type fixture struct {
	t        *testing.T
	record   []*schema.FieldNode
	catalog  *Catalog
	warnings []Warning
	clock    *document.Clock
	scope    *Scope
}

func newFixture(t *testing.T, fields []*instrument.FieldDefinition, f *form.Form, value document.Map, params map[string]any) *fixture {
	t.Helper()
	record := compileFields(t, fields...)
	catalog, warnings, err := Create(f, record, NewCUEEvaluator())
	require.NoError(t, err)
	clock := document.NewClock()
	return &fixture{
		t:        t,
		record:   record,
		catalog:  catalog,
		warnings: warnings,
		clock:    clock,
		scope:    NewScope(catalog, record, value, params, clock),
	}
}

// edit advances the clock before rebinding, the way a session does after
// every mutation, so memoized predicates recompute.
func (fx *fixture) edit(value document.Map) {
	fx.clock.Advance()
	fx.scope.SetValue(value)
}

func pathStrings(paths []document.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.String())
	}
	return out
}
