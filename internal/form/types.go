// Package form holds the declarative page/layout definition of a
// questionnaire: pages of elements referencing instrument fields, plus
// the event rules that drive conditional behavior. Forms are consumed,
// never generated, by this module.
package form

import (
	"fmt"

	"github.com/fieldwork-io/fieldwork/internal/instrument"
)

// Form is a complete form definition bound to one instrument version.
type Form struct {
	Instrument instrument.Reference `json:"instrument" yaml:"instrument"`
	Defaults   map[string]any       `json:"defaultLocalization,omitempty" yaml:"defaultLocalization,omitempty"`
	Parameters map[string]string    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Pages      []*Page              `json:"pages" yaml:"pages"`
}

// Page is one step of the questionnaire.
type Page struct {
	ID       string     `json:"id" yaml:"id"`
	Elements []*Element `json:"elements" yaml:"elements"`
}

// ElementType discriminates the element variants. Only questions matter
// to the event engine; the rest are presentation.
type ElementType string

const (
	ElementQuestion ElementType = "question"
	ElementHeader   ElementType = "header"
	ElementText     ElementType = "text"
	ElementDivider  ElementType = "divider"
)

// Element is one entry on a page. Tags make the element addressable by
// tag-targeted event rules.
type Element struct {
	Type    ElementType `json:"type" yaml:"type"`
	Tags    []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Options *Question   `json:"options,omitempty" yaml:"options,omitempty"`
}

// Question configures a question element or a nested sub-question (a
// recordList entry question or a matrix column).
type Question struct {
	FieldID string       `json:"fieldId" yaml:"fieldId"`
	Text    string       `json:"text,omitempty" yaml:"text,omitempty"`
	Help    string       `json:"help,omitempty" yaml:"help,omitempty"`
	Widget  *Widget      `json:"widget,omitempty" yaml:"widget,omitempty"`
	Events  []*EventRule `json:"events,omitempty" yaml:"events,omitempty"`

	// Questions configures nested questions: the entry questions of a
	// recordList, or the column questions of a matrix.
	Questions []*Question `json:"questions,omitempty" yaml:"questions,omitempty"`

	// Rows carries presentation text for matrix rows; the row set
	// itself is declared by the instrument.
	Rows []*RowText `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Widget is an opaque rendering hint passed through to the presentation
// layer.
type Widget struct {
	Type    string         `json:"type" yaml:"type"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// RowText is the presentation text for one matrix row.
type RowText struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// EventRule is one conditional rule: when the trigger expression is
// truthy, the action applies to each target. An empty target list means
// the declaring question itself.
type EventRule struct {
	Trigger string        `json:"trigger" yaml:"trigger"`
	Action  string        `json:"action" yaml:"action"`
	Targets []string      `json:"targets,omitempty" yaml:"targets,omitempty"`
	Options *EventOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// EventOptions carries per-action payloads: the failure text for fail
// rules, the option ids for hideEnumeration rules.
type EventOptions struct {
	Text         string   `json:"text,omitempty" yaml:"text,omitempty"`
	Enumerations []string `json:"enumerations,omitempty" yaml:"enumerations,omitempty"`
}

// Questions returns the question elements of a page in order.
func (p *Page) Questions() []*Question {
	var out []*Question
	for _, el := range p.Elements {
		if el.Type == ElementQuestion && el.Options != nil {
			out = append(out, el.Options)
		}
	}
	return out
}

// Question returns the top-level question for a field id, or nil.
func (f *Form) Question(fieldID string) *Question {
	for _, page := range f.Pages {
		for _, q := range page.Questions() {
			if q.FieldID == fieldID {
				return q
			}
		}
	}
	return nil
}

// Validate performs shallow structural checks: instrument reference
// present, unique page ids, and every question element naming a field.
func (f *Form) Validate() error {
	if f.Instrument.ID == "" || f.Instrument.Version == "" {
		return fmt.Errorf("form requires an instrument reference with id and version")
	}
	if len(f.Pages) == 0 {
		return fmt.Errorf("form requires at least one page")
	}
	seen := make(map[string]bool, len(f.Pages))
	for _, page := range f.Pages {
		if page.ID == "" {
			return fmt.Errorf("page with empty id")
		}
		if seen[page.ID] {
			return fmt.Errorf("duplicate page id %q", page.ID)
		}
		seen[page.ID] = true
		for _, el := range page.Elements {
			if el.Type == ElementQuestion && (el.Options == nil || el.Options.FieldID == "") {
				return fmt.Errorf("page %s: question element without a field id", page.ID)
			}
		}
	}
	return nil
}
