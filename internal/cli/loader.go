package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

// Definitions are accepted in CUE, JSON or YAML; the extension decides.
// CUE and YAML inputs are funneled through JSON so all three formats
// share one set of decoding rules.

// LoadInstrument reads an instrument definition from a file.
func LoadInstrument(path string) (*instrument.Definition, error) {
	def := &instrument.Definition{}
	if err := loadInto(path, def); err != nil {
		return nil, fmt.Errorf("loading instrument %s: %w", path, err)
	}
	return def, nil
}

// LoadForm reads a form definition from a file.
func LoadForm(path string) (*form.Form, error) {
	f := &form.Form{}
	if err := loadInto(path, f); err != nil {
		return nil, fmt.Errorf("loading form %s: %w", path, err)
	}
	return f, nil
}

// LoadValue reads a value document (the live answer tree) from a file.
func LoadValue(path string) (document.Map, error) {
	value := document.Map{}
	if err := loadInto(path, &value); err != nil {
		return nil, fmt.Errorf("loading values %s: %w", path, err)
	}
	return value, nil
}

func loadInto(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch filepath.Ext(path) {
	case ".cue":
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return fmt.Errorf("compiling CUE: %w", err)
		}
		jsonData, err := v.MarshalJSON()
		if err != nil {
			return fmt.Errorf("exporting CUE: %w", err)
		}
		return json.Unmarshal(jsonData, target)
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("converting YAML: %w", err)
		}
		return json.Unmarshal(jsonData, target)
	case ".json":
		return json.Unmarshal(data, target)
	default:
		return fmt.Errorf("unsupported definition format %q (want .cue, .json, .yaml)", filepath.Ext(path))
	}
}
