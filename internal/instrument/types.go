package instrument

import (
	"encoding/json"
	"fmt"
)

// Definition is a complete instrument: identity plus the root record.
type Definition struct {
	ID      string                 `json:"id" yaml:"id"`
	Version string                 `json:"version" yaml:"version"`
	Title   string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Types   map[string]*TypeObject `json:"types,omitempty" yaml:"types,omitempty"`
	Record  []*FieldDefinition     `json:"record" yaml:"record"`
}

// Reference identifies the instrument an assessment was collected against.
type Reference struct {
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
}

// Mode controls whether a field accepts an annotation or explanation.
type Mode string

const (
	ModeNone     Mode = "none"
	ModeOptional Mode = "optional"
	ModeRequired Mode = "required"
)

// Enabled reports whether the mode asks for the companion sub-field at all.
func (m Mode) Enabled() bool {
	return m == ModeOptional || m == ModeRequired
}

// FieldDefinition is one entry of an instrument record. Immutable after
// the instrument is compiled.
type FieldDefinition struct {
	ID           string  `json:"id" yaml:"id"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	Type         TypeRef `json:"type" yaml:"type"`
	Required     bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Identifiable bool    `json:"identifiable,omitempty" yaml:"identifiable,omitempty"`
	Annotation   Mode    `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Explanation  Mode    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// TypeRef is either the name of a built-in or instrument-defined type, or
// an inline type object. Exactly one of Name/Object is set.
type TypeRef struct {
	Name   string
	Object *TypeObject
}

// UnmarshalJSON accepts either a string type name or an inline object.
func (r *TypeRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Name)
	}
	r.Object = &TypeObject{}
	return json.Unmarshal(data, r.Object)
}

// MarshalJSON emits the name form when set, the object form otherwise.
func (r TypeRef) MarshalJSON() ([]byte, error) {
	if r.Name != "" {
		return json.Marshal(r.Name)
	}
	return json.Marshal(r.Object)
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML-format definitions.
func (r *TypeRef) UnmarshalYAML(unmarshal func(any) error) error {
	if err := unmarshal(&r.Name); err == nil {
		return nil
	}
	r.Object = &TypeObject{}
	return unmarshal(r.Object)
}

// TypeObject is an inline or named type definition before resolution.
type TypeObject struct {
	Base         string                  `json:"base" yaml:"base"`
	Range        *Range                  `json:"range,omitempty" yaml:"range,omitempty"`
	Length       *Length                 `json:"length,omitempty" yaml:"length,omitempty"`
	Pattern      string                  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enumerations map[string]*Enumeration `json:"enumerations,omitempty" yaml:"enumerations,omitempty"`
	Record       []*FieldDefinition      `json:"record,omitempty" yaml:"record,omitempty"`
	Rows         []*Row                  `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns      []*FieldDefinition      `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Range bounds a numeric, date, time or dateTime value. Numeric kinds use
// float64 bounds; temporal kinds use the literal wire format, which for
// the ISO shapes involved compares correctly as a string.
type Range struct {
	Min any `json:"min,omitempty" yaml:"min,omitempty"`
	Max any `json:"max,omitempty" yaml:"max,omitempty"`
}

// Length bounds text length, enumerationSet selection count, or
// recordList row count.
type Length struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// Enumeration describes one selectable option of an enumeration or
// enumerationSet type.
type Enumeration struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Row is one fixed row of a matrix type.
type Row struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Validate performs shallow structural checks on a definition before type
// resolution: identity present and a non-empty root record with unique
// field ids.
func (d *Definition) Validate() error {
	if d.ID == "" || d.Version == "" {
		return fmt.Errorf("instrument definition requires id and version")
	}
	if len(d.Record) == 0 {
		return fmt.Errorf("instrument %s: record must contain at least one field", d.ID)
	}
	seen := make(map[string]bool, len(d.Record))
	for _, field := range d.Record {
		if field.ID == "" {
			return fmt.Errorf("instrument %s: field with empty id", d.ID)
		}
		if seen[field.ID] {
			return fmt.Errorf("instrument %s: duplicate field id %q", d.ID, field.ID)
		}
		seen[field.ID] = true
	}
	return nil
}
