// Package session is the form controller: it owns the live value tree,
// the document clock and the root event scope, and drives the
// edit → process → autosave cycle the rendering layer calls into.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fieldwork-io/fieldwork/internal/assess"
	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/draft"
	"github.com/fieldwork-io/fieldwork/internal/events"
	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/instrument"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// Session binds one respondent's pass through a form: compiled schema,
// event scope, live value, and optional draft autosave.
type Session struct {
	token    string
	def      *instrument.Definition
	formDef  *form.Form
	catalog  *instrument.TypeCatalog
	record   []*schema.FieldNode
	scope    *events.Scope
	clock    *document.Clock
	value    document.Map
	params   map[string]any
	warnings []events.Warning

	store  *draft.Store
	logger *slog.Logger
}

// Option configures a session.
type Option func(*Session)

// WithDraftStore enables autosave snapshots after every edit.
func WithDraftStore(store *draft.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the logger used for autosave diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithToken fixes the session token. Tests use this for deterministic
// snapshot rows; production sessions get a UUIDv7.
func WithToken(token string) Option {
	return func(s *Session) { s.token = token }
}

// New compiles the instrument and form, builds the event catalog, and
// binds the root scope over an initial value (nil for a fresh, empty
// document).
func New(def *instrument.Definition, formDef *form.Form, initial document.Map, params map[string]any, opts ...Option) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := formDef.Validate(); err != nil {
		return nil, err
	}
	if formDef.Instrument.ID != def.ID || formDef.Instrument.Version != def.Version {
		return nil, fmt.Errorf("form targets instrument %s v%s, got %s v%s",
			formDef.Instrument.ID, formDef.Instrument.Version, def.ID, def.Version)
	}

	catalog, err := instrument.NewCatalog(def.Types)
	if err != nil {
		return nil, err
	}
	record, err := schema.Compile(def.Record, "", catalog)
	if err != nil {
		return nil, err
	}
	eventCatalog, warnings, err := events.Create(formDef, record, events.NewCUEEvaluator())
	if err != nil {
		return nil, err
	}

	if initial == nil {
		initial = document.Map{}
	}
	clock := document.NewClock()

	s := &Session{
		def:      def,
		formDef:  formDef,
		catalog:  catalog,
		record:   record,
		clock:    clock,
		value:    initial,
		params:   params,
		warnings: warnings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.token == "" {
		s.token = uuid.Must(uuid.NewV7()).String()
	}
	s.scope = events.NewScope(eventCatalog, record, initial, params, clock)
	return s, nil
}

// Token returns the session token.
func (s *Session) Token() string { return s.token }

// Warnings returns the non-fatal catalog anomalies found when the form
// was compiled (rules naming unknown targets).
func (s *Session) Warnings() []events.Warning { return s.warnings }

// Scope returns the root event scope, for predicate reads by the
// rendering layer.
func (s *Session) Scope() *events.Scope { return s.scope }

// Value returns the current live value tree. Callers must treat it as a
// snapshot, not a handle.
func (s *Session) Value() document.Map { return s.value }

// Record returns the compiled schema record.
func (s *Session) Record() []*schema.FieldNode { return s.record }

// Edit writes one value slot, runs the field's update hook, advances the
// clock, processes event actions, and autosaves. Returns the new value
// snapshot.
func (s *Session) Edit(ctx context.Context, path document.Path, v any) document.Map {
	next := s.value
	next, _ = document.Set(next, path, v).(document.Map)

	// Writes to a value slot trigger the node hook (answering clears a
	// recorded annotation).
	if len(path) >= 2 && path[len(path)-1] == "value" {
		if node := schema.FindByPath(s.record, path); node != nil {
			wrapperPath := path[:len(path)-1]
			if wrapper, ok := document.Get(next, wrapperPath).(document.Map); ok {
				next, _ = document.Set(next, wrapperPath, node.ApplyUpdate(wrapper)).(document.Map)
			}
		}
	}

	s.clock.Advance()
	s.value = s.scope.Process(next)
	s.autosave(ctx)
	return s.value
}

// Replace swaps the whole value tree (e.g. when resuming a draft),
// advances the clock and processes.
func (s *Session) Replace(ctx context.Context, value document.Map) document.Map {
	s.clock.Advance()
	s.value = s.scope.Process(value)
	s.autosave(ctx)
	return s.value
}

// Validate runs schema validation over the whole document plus the
// eager event-rule fail checks.
func (s *Session) Validate() []schema.Violation {
	out := schema.ValidateDocument(s.record, s.value)
	out = append(out, s.scope.Validate(s.value)...)
	return out
}

// Complete builds the submission document: hidden and disabled fields
// are overlaid to null in the output while the live tree keeps the
// respondent's answers in case the fields become visible again.
func (s *Session) Complete() (*assess.Assessment, error) {
	return assess.Make(s.value, s.def, s.catalog, s.overlay())
}

func (s *Session) overlay() map[string]*assess.FieldValue {
	overlay := make(map[string]*assess.FieldValue)
	hiddenPages := make(map[string]bool)
	for _, page := range s.formDef.Pages {
		if s.scope.IsPageHidden(page.ID) {
			hiddenPages[page.ID] = true
		}
	}
	for _, page := range s.formDef.Pages {
		for _, q := range page.Questions() {
			if hiddenPages[page.ID] || s.scope.IsHidden(q.FieldID) || s.scope.IsDisabled(q.FieldID) {
				overlay[q.FieldID] = &assess.FieldValue{Value: nil}
			}
		}
	}
	if len(overlay) == 0 {
		return nil
	}
	return overlay
}

func (s *Session) autosave(ctx context.Context) {
	if s.store == nil {
		return
	}
	doc, err := s.Complete()
	if err != nil {
		s.logger.Warn("autosave: building assessment failed", "session", s.token, "error", err)
		return
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("autosave: encoding assessment failed", "session", s.token, "error", err)
		return
	}
	if _, err := s.store.Save(ctx, s.token, s.def.ID, s.def.Version, s.clock.Version(), payload); err != nil {
		s.logger.Warn("autosave: persisting snapshot failed", "session", s.token, "error", err)
	}
}
