package events

import (
	"sort"
	"strconv"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// Process applies the event actions to a value snapshot and returns the
// transformed tree. Pass order is fixed: disable-nulling, then
// hide-nulling, then hide-enumeration filtering — later passes observe
// the writes of earlier ones, so a field both disabled and hidden is
// nulled exactly once. After the local passes every child scope
// processes its own row sub-value, and the results are threaded back in.
//
// The input is never mutated. Re-applying Process to its own output is a
// no-op by effect.
func (s *Scope) Process(value document.Map) document.Map {
	out := any(value)
	out = s.nullingPass(ActionDisable, out)
	out = s.nullingPass(ActionHide, out)
	out = s.enumerationPass(out)

	result, _ := out.(document.Map)
	s.SetValue(result)

	for _, node := range s.record {
		if node.Value.Record == nil {
			continue
		}
		fieldID := node.Field.ID
		rows := s.rows(fieldID)
		for i := range rows {
			child, ok := s.children[fieldID+"."+strconv.Itoa(i)]
			if !ok {
				continue
			}
			rowValue, _ := rows[i].(document.Map)
			processed := child.Process(rowValue)
			rowPath := document.Path{fieldID, "value"}.Index(i)
			out = document.Set(out, rowPath, processed)
		}
	}

	result, _ = out.(document.Map)
	s.SetValue(result)
	return result
}

// nullingPass nulls the concrete paths of every field target whose
// rules for the action are in force. Targets are visited in sorted order
// for determinism, though nulling is commutative across targets.
func (s *Scope) nullingPass(action Action, value any) any {
	current, _ := value.(document.Map)
	for _, id := range sortedTargets(s.catalog.Field[action]) {
		te := s.catalog.Field[action][id]
		on, _ := s.bound.Predicate(DomainField, action, id, current)
		if !on {
			continue
		}
		for _, path := range te.KeyPaths(value) {
			value = document.Set(value, path, nil)
		}
		current, _ = value.(document.Map)
	}
	return value
}

// enumerationPass removes hidden options from enumerationSet values and
// nulls scalar enumeration values whose current choice became hidden.
func (s *Scope) enumerationPass(value any) any {
	current, _ := value.(document.Map)
	for _, id := range sortedTargets(s.catalog.Field[ActionHideEnumeration]) {
		te := s.catalog.Field[ActionHideEnumeration][id]
		hidden, _ := s.bound.HiddenEnumerations(id, current)
		if len(hidden) == 0 {
			continue
		}
		hiddenSet := make(map[string]bool, len(hidden))
		for _, enum := range hidden {
			hiddenSet[enum] = true
		}
		for _, path := range te.KeyPaths(value) {
			switch v := document.Get(value, path).(type) {
			case string:
				if hiddenSet[v] {
					value = document.Set(value, path, nil)
				}
			case []any:
				kept := make([]any, 0, len(v))
				for _, item := range v {
					if choice, ok := item.(string); ok && hiddenSet[choice] {
						continue
					}
					kept = append(kept, item)
				}
				if len(kept) != len(v) {
					if len(kept) == 0 {
						value = document.Set(value, path, nil)
					} else {
						value = document.Set(value, path, kept)
					}
				}
			}
		}
		current, _ = value.(document.Map)
	}
	return value
}

// Validate evaluates every fail rule eagerly against the value and
// returns one force-displayed violation per (message × concrete path).
// Child scopes validate their rows with paths prefixed back to the
// root.
func (s *Scope) Validate(value document.Map) []schema.Violation {
	var out []schema.Violation
	for _, id := range sortedTargets(s.catalog.Field[ActionFail]) {
		te := s.catalog.Field[ActionFail][id]
		messages := s.bound.FailMessages(id, value)
		if len(messages) == 0 {
			continue
		}
		for _, path := range te.KeyPaths(value) {
			for _, message := range messages {
				out = append(out, schema.Violation{
					Field:   path.String(),
					Message: message,
					Force:   true,
				})
			}
		}
	}

	for _, node := range s.record {
		if node.Value.Record == nil {
			continue
		}
		fieldID := node.Field.ID
		rows, _ := document.Get(value, document.Path{fieldID, "value"}).([]any)
		for i := range rows {
			child, ok := s.children[fieldID+"."+strconv.Itoa(i)]
			if !ok {
				continue
			}
			rowValue, _ := rows[i].(document.Map)
			prefix := document.Path{fieldID, "value"}.Index(i)
			for _, v := range child.Validate(rowValue) {
				v.Field = prefix.String() + "." + v.Field
				out = append(out, v)
			}
		}
	}
	return out
}

func sortedTargets(m map[string]*TargetEvents) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
