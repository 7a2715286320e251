package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInstrument_JSON(t *testing.T) {
	path := writeFile(t, "instrument.json", `{
		"id": "urn:demo",
		"version": "1.0",
		"record": [
			{"id": "q_name", "type": "text", "required": true},
			{"id": "q_age", "type": {"base": "integer", "range": {"min": 0}}}
		]
	}`)

	def, err := LoadInstrument(path)
	require.NoError(t, err)
	assert.Equal(t, "urn:demo", def.ID)
	require.Len(t, def.Record, 2)
	assert.Equal(t, "text", def.Record[0].Type.Name)
	require.NotNil(t, def.Record[1].Type.Object)
	assert.Equal(t, "integer", def.Record[1].Type.Object.Base)
}

func TestLoadInstrument_YAML(t *testing.T) {
	path := writeFile(t, "instrument.yaml", `
id: urn:demo
version: "1.0"
record:
  - id: q_name
    type: text
    required: true
`)
	def, err := LoadInstrument(path)
	require.NoError(t, err)
	assert.Equal(t, "urn:demo", def.ID)
	require.Len(t, def.Record, 1)
	assert.True(t, def.Record[0].Required)
}

func TestLoadInstrument_CUE(t *testing.T) {
	path := writeFile(t, "instrument.cue", `
id:      "urn:demo"
version: "1.0"
record: [{
	id:       "q_name"
	type:     "text"
	required: true
}]
`)
	def, err := LoadInstrument(path)
	require.NoError(t, err)
	assert.Equal(t, "urn:demo", def.ID)
	require.NoError(t, def.Validate())
}

func TestLoadForm(t *testing.T) {
	path := writeFile(t, "form.json", `{
		"instrument": {"id": "urn:demo", "version": "1.0"},
		"pages": [{
			"id": "page1",
			"elements": [{"type": "question", "options": {"fieldId": "q_name"}}]
		}]
	}`)
	f, err := LoadForm(path)
	require.NoError(t, err)
	assert.Equal(t, instrument.Reference{ID: "urn:demo", Version: "1.0"}, f.Instrument)
	require.NoError(t, f.Validate())
}

func TestLoadValue(t *testing.T) {
	path := writeFile(t, "values.json", `{"q_name": {"value": "Ada"}}`)
	value, err := LoadValue(path)
	require.NoError(t, err)
	wrapper, ok := value["q_name"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", wrapper["value"])
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "instrument.toml", `id = "urn:demo"`)
	_, err := LoadInstrument(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported definition format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadInstrument(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
