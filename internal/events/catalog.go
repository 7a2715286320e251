package events

import (
	"fmt"

	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// CompiledEvent is one declared rule with its trigger parsed once at
// catalog-build time.
type CompiledEvent struct {
	Action       Action
	Trigger      Expression
	Text         string
	Enumerations []string
}

// TargetEvents collects every rule registered against one target for one
// action, plus the keyPath closure for field targets.
type TargetEvents struct {
	Events   []*CompiledEvent
	KeyPaths KeyPathsFunc
}

// Catalog is the unbound event catalog of one nesting level: per domain
// and action, the rules indexed by target id. Children holds the
// sub-catalogs of recordList fields, one level each, built from the
// rules declared on their nested questions.
type Catalog struct {
	Field map[Action]map[string]*TargetEvents
	Page  map[Action]map[string]*TargetEvents
	Tag   map[Action]map[string]*TargetEvents

	Children map[string]*Catalog

	targets *targetCatalog
}

// Warning reports a non-fatal catalog anomaly: a rule naming a target id
// the form does not define. The rule is skipped, matching the inherited
// silent-drop behavior, but the anomaly is surfaced to the caller.
type Warning struct {
	Question string
	Target   string
	Message  string
}

func (w Warning) String() string {
	return fmt.Sprintf("question %s: %s", w.Question, w.Message)
}

func newCatalog(targets *targetCatalog) *Catalog {
	c := &Catalog{
		Field:    make(map[Action]map[string]*TargetEvents),
		Page:     make(map[Action]map[string]*TargetEvents),
		Tag:      make(map[Action]map[string]*TargetEvents),
		Children: make(map[string]*Catalog),
		targets:  targets,
	}
	for _, a := range allActions {
		c.Field[a] = make(map[string]*TargetEvents)
		c.Page[a] = make(map[string]*TargetEvents)
		c.Tag[a] = make(map[string]*TargetEvents)
	}
	return c
}

// Create builds the unbound event catalog for a form over its compiled
// schema. Trigger expressions are parsed exactly once per rule; a parse
// failure aborts with an error (a malformed trigger is a definition
// bug). Rules naming unknown targets are skipped with a warning.
func Create(f *form.Form, record []*schema.FieldNode, eval Evaluator) (*Catalog, []Warning, error) {
	targets := newTargetCatalog(record, rootBase)
	targets.addFormTargets(f)
	cat := newCatalog(targets)

	var warnings []Warning
	for _, page := range f.Pages {
		for _, q := range page.Questions() {
			w, err := cat.registerQuestion(q, record, eval)
			warnings = append(warnings, w...)
			if err != nil {
				return nil, warnings, err
			}
		}
	}
	return cat, warnings, nil
}

// registerQuestion registers a question's rules at this level, matrix
// column rules at this level too (matrix rows are fixed, not scoped),
// and recordList sub-question rules into a child catalog.
func (c *Catalog) registerQuestion(q *form.Question, record []*schema.FieldNode, eval Evaluator) ([]Warning, error) {
	var warnings []Warning
	w, err := c.registerRules(q, eval)
	warnings = append(warnings, w...)
	if err != nil {
		return warnings, err
	}

	node := schema.Find(record, q.FieldID)
	if node == nil || len(q.Questions) == 0 {
		return warnings, nil
	}

	switch {
	case node.Value.Record != nil:
		child := newCatalog(newTargetCatalog(node.Value.Record, rootBase))
		for _, sub := range q.Questions {
			w, err := child.registerQuestion(sub, node.Value.Record, eval)
			warnings = append(warnings, w...)
			if err != nil {
				return warnings, err
			}
		}
		c.Children[q.FieldID] = child

	case node.Value.Rows != nil:
		for _, sub := range q.Questions {
			w, err := c.registerRules(sub, eval)
			warnings = append(warnings, w...)
			if err != nil {
				return warnings, err
			}
		}
	}
	return warnings, nil
}

func (c *Catalog) registerRules(q *form.Question, eval Evaluator) ([]Warning, error) {
	var warnings []Warning
	for _, rule := range q.Events {
		action, err := ParseAction(rule.Action)
		if err != nil {
			return warnings, fmt.Errorf("question %s: %w", q.FieldID, err)
		}
		trigger, err := eval.Parse(rule.Trigger)
		if err != nil {
			return warnings, fmt.Errorf("question %s: %w", q.FieldID, err)
		}
		event := &CompiledEvent{Action: action, Trigger: trigger}
		if rule.Options != nil {
			event.Text = rule.Options.Text
			event.Enumerations = rule.Options.Enumerations
		}

		targets := rule.Targets
		if len(targets) == 0 {
			targets = []string{q.FieldID}
		}
		for _, targetID := range targets {
			target, ok := c.targets.lookup(targetID)
			if !ok {
				warnings = append(warnings, Warning{
					Question: q.FieldID,
					Target:   targetID,
					Message:  fmt.Sprintf("event rule targets unknown id %q; rule skipped", targetID),
				})
				continue
			}
			c.register(action, target, event)
		}
	}
	return warnings, nil
}

func (c *Catalog) register(action Action, target *Target, event *CompiledEvent) {
	switch target.Kind {
	case TargetPage:
		appendEvent(c.Page[action], target.ID, nil, event)
	case TargetField:
		appendEvent(c.Field[action], target.ID, target.KeyPaths, event)
	case TargetTag:
		// A tag expands two ways: the tag id itself stays queryable,
		// and every field carrying the tag picks up the rule directly.
		appendEvent(c.Tag[action], target.ID, nil, event)
		for _, fieldID := range target.Tagged {
			if fieldTarget, ok := c.targets.lookup(fieldID); ok && fieldTarget.Kind == TargetField {
				appendEvent(c.Field[action], fieldTarget.ID, fieldTarget.KeyPaths, event)
			}
		}
	}
}

func appendEvent(m map[string]*TargetEvents, id string, keyPaths KeyPathsFunc, event *CompiledEvent) {
	te, ok := m[id]
	if !ok {
		te = &TargetEvents{KeyPaths: keyPaths}
		m[id] = te
	}
	te.Events = append(te.Events, event)
}
