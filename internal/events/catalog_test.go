package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

func TestCreate_DefaultTargetIsDeclaringField(t *testing.T) {
	fields := []*instrument.FieldDefinition{simpleField("q_age", "integer")}
	f := formOf(question("q_age", rule("q_age == null", "hide")))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)

	te, ok := fx.catalog.Field[ActionHide]["q_age"]
	require.True(t, ok)
	require.Len(t, te.Events, 1)
	assert.Equal(t, []string{"q_age.value"}, pathStrings(te.KeyPaths(document.Map{})))
}

func TestCreate_UnknownTargetSkippedWithWarning(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		simpleField("q_age", "integer"),
		simpleField("q_teen", "text"),
	}
	f := formOf(question("q_age", rule("q_age != null", "hide", "q_missing", "q_teen")))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	require.Len(t, fx.warnings, 1)
	assert.Equal(t, "q_age", fx.warnings[0].Question)
	assert.Equal(t, "q_missing", fx.warnings[0].Target)

	// The resolvable target of the same rule is still registered.
	_, ok := fx.catalog.Field[ActionHide]["q_teen"]
	assert.True(t, ok)
	_, ok = fx.catalog.Field[ActionHide]["q_missing"]
	assert.False(t, ok)
}

func TestCreate_TriggerParseErrorIsFatal(t *testing.T) {
	record := compileFields(t, simpleField("q_age", "integer"))
	f := formOf(question("q_age", rule("q_age >=", "hide")))
	_, _, err := Create(f, record, NewCUEEvaluator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q_age")
}

func TestCreate_UnknownActionIsFatal(t *testing.T) {
	record := compileFields(t, simpleField("q_age", "integer"))
	f := formOf(question("q_age", rule("q_age == null", "explode")))
	_, _, err := Create(f, record, NewCUEEvaluator())
	require.Error(t, err)
}

func TestCreate_TagExpandsToTaggedFields(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		simpleField("q_a", "text"),
		simpleField("q_b", "text"),
		simpleField("q_flag", "boolean"),
	}
	f := &form.Form{
		Instrument: instrument.Reference{ID: "urn:test", Version: "1.0"},
		Pages: []*form.Page{{
			ID: "page1",
			Elements: []*form.Element{
				{Type: form.ElementQuestion, Tags: []string{"optional_section"}, Options: question("q_a")},
				{Type: form.ElementQuestion, Tags: []string{"optional_section"}, Options: question("q_b")},
				{Type: form.ElementQuestion, Options: question("q_flag",
					rule("q_flag == true", "hide", "optional_section"))},
			},
		}},
	}

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)

	_, ok := fx.catalog.Tag[ActionHide]["optional_section"]
	assert.True(t, ok)
	for _, id := range []string{"q_a", "q_b"} {
		te, ok := fx.catalog.Field[ActionHide][id]
		require.True(t, ok, id)
		assert.Len(t, te.Events, 1)
	}
	_, ok = fx.catalog.Field[ActionHide]["q_flag"]
	assert.False(t, ok)
}

func TestCreate_PageTarget(t *testing.T) {
	fields := []*instrument.FieldDefinition{simpleField("q_done", "boolean")}
	f := formOf(question("q_done", rule("q_done == true", "hide", "page1")))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)
	_, ok := fx.catalog.Page[ActionHide]["page1"]
	assert.True(t, ok)
}

func TestCreate_RecordListNestedRulesGoToChildCatalog(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		recordListField("q_list",
			simpleField("q_thing", "text"),
			simpleField("q_like", "text"),
		),
	}
	listQuestion := question("q_list")
	listQuestion.Questions = []*form.Question{
		question("q_thing"),
		question("q_like", rule(`q_thing == "hideme"`, "hide")),
	}
	f := formOf(listQuestion)

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)

	child, ok := fx.catalog.Children["q_list"]
	require.True(t, ok)
	_, ok = child.Field[ActionHide]["q_like"]
	assert.True(t, ok)
	// Nested rules never leak into the root level.
	_, ok = fx.catalog.Field[ActionHide]["q_like"]
	assert.False(t, ok)
}

func TestCreate_MatrixColumnRulesStayAtCurrentLevel(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		simpleField("q_mode", "text"),
		matrixField("q_matrix", []string{"somerow", "anotherrow"},
			simpleField("q_blah", "text"),
			simpleField("q_foobar", "text"),
		),
	}
	matrixQuestion := question("q_matrix")
	matrixQuestion.Questions = []*form.Question{
		question("q_blah", rule(`q_mode == "short"`, "disable")),
		question("q_foobar"),
	}
	f := formOf(question("q_mode"), matrixQuestion)

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)
	assert.Empty(t, fx.catalog.Children)

	te, ok := fx.catalog.Field[ActionDisable]["q_blah"]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		"q_matrix.value.somerow.q_blah.value",
		"q_matrix.value.anotherrow.q_blah.value",
	}, pathStrings(te.KeyPaths(document.Map{})))
}

func TestKeyPaths_RecordListScalesWithRows(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		simpleField("q_mode", "text"),
		recordListField("q_list", simpleField("q_thing", "text")),
	}
	f := formOf(question("q_mode", rule(`q_mode == "hide"`, "hide", "q_list.q_thing")))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	// The dotted target id resolves to the nested field; registration is
	// keyed by the bare field id.
	te, ok := fx.catalog.Field[ActionHide]["q_thing"]
	require.True(t, ok)

	oneRow := document.Map{
		"q_list": wrap([]any{
			document.Map{"q_thing": wrap("thing1")},
		}),
	}
	assert.Equal(t, []string{"q_list.value.0.q_thing.value"},
		pathStrings(te.KeyPaths(oneRow)))

	twoRows := document.Map{
		"q_list": wrap([]any{
			document.Map{"q_thing": wrap("thing1")},
			document.Map{},
		}),
	}
	assert.Equal(t, []string{
		"q_list.value.0.q_thing.value",
		"q_list.value.1.q_thing.value",
	}, pathStrings(te.KeyPaths(twoRows)))

	// No rows, no paths.
	assert.Empty(t, te.KeyPaths(document.Map{}))
}

func TestKeyPaths_BareNestedIDResolvesToo(t *testing.T) {
	fields := []*instrument.FieldDefinition{
		simpleField("q_mode", "text"),
		recordListField("q_list", simpleField("q_thing", "text")),
	}
	f := formOf(question("q_mode", rule(`q_mode == "hide"`, "hide", "q_thing")))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)
	_, ok := fx.catalog.Field[ActionHide]["q_thing"]
	assert.True(t, ok)
}

func TestCreate_TargetIDsAreNFCNormalized(t *testing.T) {
	// Field declared with precomposed \u00e9, rule targeting the
	// decomposed spelling (e + combining acute). Same id after NFC.
	precomposed := "q_caf\u00e9"
	decomposed := "q_cafe\u0301"
	fields := []*instrument.FieldDefinition{simpleField(precomposed, "text")}
	f := formOf(question(precomposed, rule("1 > 0", "hide", decomposed)))

	fx := newFixture(t, fields, f, document.Map{}, nil)
	assert.Empty(t, fx.warnings)
	_, ok := fx.catalog.Field[ActionHide][precomposed]
	assert.True(t, ok)
}
