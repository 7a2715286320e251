package events

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// Scope binds an event catalog to one live value subtree. Scopes form a
// tree mirroring the document's repeating structure: the root scope
// covers the whole document, and one child scope exists per currently
// present row of every recordList field, keyed by the row's dotted key
// path ("q_list.0").
//
// A child's parent reference is a non-owning back-pointer: hide/disable
// lookups that find no local rules defer up the chain, because rules
// declared at an ancestor level still apply to descendant fields. Child
// scopes have no identity across row changes: whenever a recordList's
// row count changes, all of its row scopes are discarded and rebuilt
// (index-positional, not identity-stable).
type Scope struct {
	catalog *Catalog
	bound   *Bound
	record  []*schema.FieldNode
	params  map[string]any
	clock   *document.Clock
	parent  *Scope

	value     document.Map
	children  map[string]*Scope
	rowCounts map[string]int
}

// emptyCatalog backs child scopes for recordLists whose nested questions
// declare no events; lookups miss locally and defer to the parent.
var emptyCatalog = newCatalog(&targetCatalog{entries: map[string]*Target{}})

// NewScope creates the root scope for a document.
func NewScope(catalog *Catalog, record []*schema.FieldNode, value document.Map, params map[string]any, clock *document.Clock) *Scope {
	s := &Scope{
		catalog:   catalog,
		bound:     Bind(catalog, params, clock),
		record:    record,
		params:    params,
		clock:     clock,
		children:  make(map[string]*Scope),
		rowCounts: make(map[string]int),
	}
	s.SetValue(value)
	return s
}

func (s *Scope) newChild(catalog *Catalog, record []*schema.FieldNode, value document.Map) *Scope {
	if catalog == nil {
		catalog = emptyCatalog
	}
	child := &Scope{
		catalog:   catalog,
		bound:     Bind(catalog, s.params, s.clock),
		record:    record,
		params:    s.params,
		clock:     s.clock,
		parent:    s,
		children:  make(map[string]*Scope),
		rowCounts: make(map[string]int),
	}
	child.SetValue(value)
	return child
}

// Value returns the subtree the scope is currently bound to.
func (s *Scope) Value() document.Map { return s.value }

// SetValue rebinds the scope to a new value snapshot and re-derives the
// child scopes for every recordList field.
func (s *Scope) SetValue(value document.Map) {
	s.value = value
	s.deriveChildren()
}

// deriveChildren reconciles the child-scope map with current row
// membership. A changed row count replaces that field's scopes
// wholesale; an unchanged count keeps the scopes and rebinds their
// values.
func (s *Scope) deriveChildren() {
	for _, node := range s.record {
		if node.Value.Record == nil {
			continue
		}
		fieldID := node.Field.ID
		rows := s.rows(fieldID)

		if s.rowCounts[fieldID] != len(rows) {
			prefix := fieldID + "."
			for key := range s.children {
				if strings.HasPrefix(key, prefix) {
					delete(s.children, key)
				}
			}
			s.rowCounts[fieldID] = len(rows)
		}

		childCatalog := s.catalog.Children[fieldID]
		for i, row := range rows {
			rowValue, _ := row.(document.Map)
			key := fieldID + "." + strconv.Itoa(i)
			if child, ok := s.children[key]; ok {
				child.SetValue(rowValue)
			} else {
				s.children[key] = s.newChild(childCatalog, node.Value.Record, rowValue)
			}
		}
	}
}

func (s *Scope) rows(fieldID string) []any {
	rows, _ := document.Get(s.value, document.Path{fieldID, "value"}).([]any)
	return rows
}

// Select returns the child scope for a dotted row key path, descending
// through nested repeating levels ("q_list.0", "q_list.0.q_inner.2").
func (s *Scope) Select(keyPath string) *Scope {
	if keyPath == "" {
		return s
	}
	if child, ok := s.children[keyPath]; ok {
		return child
	}
	segs := strings.SplitN(keyPath, ".", 3)
	if len(segs) < 3 {
		return nil
	}
	child, ok := s.children[segs[0]+"."+segs[1]]
	if !ok {
		return nil
	}
	return child.Select(segs[2])
}

// IsHidden reports whether a field target is hidden. Rules local to this
// scope win; with no local rules the parent chain decides; with no rules
// anywhere the field is visible.
func (s *Scope) IsHidden(id string) bool {
	return s.chainedFlag(DomainField, ActionHide, id)
}

// IsDisabled is IsHidden's counterpart for the disable action.
func (s *Scope) IsDisabled(id string) bool {
	return s.chainedFlag(DomainField, ActionDisable, id)
}

func (s *Scope) chainedFlag(d Domain, action Action, id string) bool {
	for scope := s; scope != nil; scope = scope.parent {
		if result, defined := scope.bound.Predicate(d, action, id, scope.value); defined {
			return result
		}
	}
	return false
}

// IsElementHidden reports whether any of the element's tags is hidden.
// Across tags the aggregation is a disjunction, unlike the conjunction
// across rules within a single target.
func (s *Scope) IsElementHidden(tags ...string) bool {
	for _, tag := range tags {
		if s.chainedFlag(DomainTag, ActionHide, tag) {
			return true
		}
	}
	return false
}

// IsElementDisabled is IsElementHidden's counterpart for disable.
func (s *Scope) IsElementDisabled(tags ...string) bool {
	for _, tag := range tags {
		if s.chainedFlag(DomainTag, ActionDisable, tag) {
			return true
		}
	}
	return false
}

// IsPageHidden reports whether a page is hidden. Pages never chain to
// parent scopes.
func (s *Scope) IsPageHidden(id string) bool {
	result, _ := s.bound.Predicate(DomainPage, ActionHide, id, s.value)
	return result
}

// IsPageDisabled is IsPageHidden's counterpart for disable.
func (s *Scope) IsPageDisabled(id string) bool {
	result, _ := s.bound.Predicate(DomainPage, ActionDisable, id, s.value)
	return result
}

// HiddenEnumerations returns the option ids hidden for a field: the
// union of the local result and the parent chain's, so an option hidden
// by an ancestor rule stays hidden regardless of local rules.
func (s *Scope) HiddenEnumerations(id string) []string {
	hidden := make(map[string]bool)
	for scope := s; scope != nil; scope = scope.parent {
		if enums, defined := scope.bound.HiddenEnumerations(id, scope.value); defined {
			for _, enum := range enums {
				hidden[enum] = true
			}
		}
	}
	if len(hidden) == 0 {
		return nil
	}
	out := make([]string, 0, len(hidden))
	for enum := range hidden {
		out = append(out, enum)
	}
	sort.Strings(out)
	return out
}

// Calculation returns the computed value of a calculation field, walking
// the parent chain like the boolean predicates. The second result is
// false when no calculate rules target the id.
func (s *Scope) Calculation(id string) (any, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if result, defined := scope.bound.Calculation(id, scope.value); defined {
			return result, true
		}
	}
	return nil, false
}
