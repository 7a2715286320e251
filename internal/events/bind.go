package events

import (
	"fmt"
	"sort"

	"github.com/fieldwork-io/fieldwork/internal/document"
)

// Domain selects which target namespace a lookup runs against.
type Domain int

const (
	DomainField Domain = iota
	DomainPage
	DomainTag
)

// Bound is an event catalog bound to form parameters and a document
// clock. Boolean and collection computations are memoized against the
// clock: a cached result is reused until the document version advances.
// Fail evaluation is deliberately never cached so validation messages
// always reflect the latest value.
type Bound struct {
	catalog *Catalog
	params  map[string]any
	clock   *document.Clock
	memo    map[string]memoEntry
}

type memoEntry struct {
	stamp  int64
	result any
}

// Bind attaches a catalog to parameters and a clock. The live value is
// not captured here; every computation takes the value it must read, so
// a Bound never holds a stale tree.
func Bind(catalog *Catalog, params map[string]any, clock *document.Clock) *Bound {
	return &Bound{
		catalog: catalog,
		params:  params,
		clock:   clock,
		memo:    make(map[string]memoEntry),
	}
}

func (b *Bound) domain(d Domain) map[Action]map[string]*TargetEvents {
	switch d {
	case DomainPage:
		return b.catalog.Page
	case DomainTag:
		return b.catalog.Tag
	default:
		return b.catalog.Field
	}
}

// Lookup returns the registered events for a target, if any.
func (b *Bound) Lookup(d Domain, action Action, id string) (*TargetEvents, bool) {
	te, ok := b.domain(d)[action][canonicalID(id)]
	return te, ok
}

func (b *Bound) cached(key string, compute func() any) any {
	version := b.clock.Version()
	if entry, ok := b.memo[key]; ok && entry.stamp == version {
		return entry.result
	}
	result := compute()
	b.memo[key] = memoEntry{stamp: version, result: result}
	return result
}

// evaluate runs one trigger against the current value. Evaluator
// failures are definition bugs: they escape as a panic rather than being
// silently treated as false.
func (b *Bound) evaluate(event *CompiledEvent, value document.Map) any {
	result, err := event.Trigger.Evaluate(NewResolver(value, b.params))
	if err != nil {
		panic(fmt.Sprintf("event trigger %q: %v", event.Trigger.Source(), err))
	}
	return result
}

// Predicate reports whether a boolean target computation (hide, disable)
// is in force. All rules registered for the same target must be truthy:
// aggregation is a conjunction. The second result reports whether the
// target has any rules at all, so scopes can chain to their parent.
func (b *Bound) Predicate(d Domain, action Action, id string, value document.Map) (bool, bool) {
	te, ok := b.Lookup(d, action, id)
	if !ok {
		return false, false
	}
	key := fmt.Sprintf("%d/%d/%s", d, action, canonicalID(id))
	result := b.cached(key, func() any {
		for _, event := range te.Events {
			if !Truthy(b.evaluate(event, value)) {
				return false
			}
		}
		return true
	})
	return result.(bool), true
}

// HiddenEnumerations returns the union of option ids hidden by truthy
// hideEnumeration rules for a field, sorted for determinism. The second
// result reports whether any rules are registered.
func (b *Bound) HiddenEnumerations(id string, value document.Map) ([]string, bool) {
	te, ok := b.Lookup(DomainField, ActionHideEnumeration, id)
	if !ok {
		return nil, false
	}
	key := fmt.Sprintf("enum/%s", canonicalID(id))
	result := b.cached(key, func() any {
		hidden := make(map[string]bool)
		for _, event := range te.Events {
			if Truthy(b.evaluate(event, value)) {
				for _, enum := range event.Enumerations {
					hidden[enum] = true
				}
			}
		}
		out := make([]string, 0, len(hidden))
		for enum := range hidden {
			out = append(out, enum)
		}
		sort.Strings(out)
		return out
	})
	return result.([]string), true
}

// FailMessages evaluates a target's fail rules eagerly and returns the
// texts of the ones whose triggers are truthy. Never memoized.
func (b *Bound) FailMessages(id string, value document.Map) []string {
	te, ok := b.Lookup(DomainField, ActionFail, id)
	if !ok {
		return nil
	}
	var out []string
	for _, event := range te.Events {
		if Truthy(b.evaluate(event, value)) {
			out = append(out, event.Text)
		}
	}
	return out
}

// Calculation evaluates a target's calculate rules and returns the value
// of the last one in declaration order (later rules win). Memoized like
// the boolean predicates.
func (b *Bound) Calculation(id string, value document.Map) (any, bool) {
	te, ok := b.Lookup(DomainField, ActionCalculate, id)
	if !ok {
		return nil, false
	}
	key := fmt.Sprintf("calc/%s", canonicalID(id))
	result := b.cached(key, func() any {
		var out any
		for _, event := range te.Events {
			out = b.evaluate(event, value)
		}
		return out
	})
	return result, true
}
