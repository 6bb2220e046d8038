// Package formengine renders and manages a data-entry form from field
// descriptors, independent of which module it represents: per-field state,
// rule application, lazy dropdown loading, validation and submission.
package formengine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/render"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/rules"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/session"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/validation"
	"github.com/harkutabhilash/justpressedinternalapp/internal/dateutil"
)

// MasterData is the master-store surface the engine needs: option derivation
// for module-qualified dropdown sources and cross-module value lookup.
type MasterData interface {
	Options(ctx context.Context, source string) ([]string, error)
	LookupValue(ctx context.Context, module, matchField, matchValue, mapTo string) (string, bool, error)
}

// HandleResolver resolves a module name to its storage handle.
type HandleResolver interface {
	SheetID(ctx context.Context, module string, refresh bool) (string, error)
}

// Engine owns one module form: the visible descriptor set, the current form
// state, the option map, and the submission lifecycle. Each module's form
// owns its state independently; there is no shared mutable state across
// engines.
type Engine struct {
	mu sync.Mutex

	module  string
	sheetID string
	fields  []fieldconfig.FieldDescriptor
	grouped map[int][]fieldconfig.FieldDescriptor
	rowKeys []int

	state   map[string]string
	errors  validation.ErrorMap
	options fieldconfig.OptionMap
	pending map[string]*pendingFetch

	submitting bool

	caller     modules.Caller
	master     MasterData
	resolver   HandleResolver
	validators *validation.Registry
	sess       *session.Session
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// Option customises the engine.
type Option func(*Engine)

// WithCaller injects the gateway used for submissions.
func WithCaller(caller modules.Caller) Option {
	return func(e *Engine) { e.caller = caller }
}

// WithMasterData injects the master-data source for lazy dropdowns and
// lookups.
func WithMasterData(master MasterData) Option {
	return func(e *Engine) { e.master = master }
}

// WithResolver injects the module-to-sheet resolver.
func WithResolver(resolver HandleResolver) Option {
	return func(e *Engine) { e.resolver = resolver }
}

// WithValidators injects the validation registry. The default carries only
// the common rules.
func WithValidators(registry *validation.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.validators = registry
		}
	}
}

// WithSession injects the session used for audit stamping.
func WithSession(sess *session.Session) Option {
	return func(e *Engine) { e.sess = sess }
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an engine and loads the given module configuration.
func New(module string, config modules.FormConfig, options ...Option) *Engine {
	e := &Engine{
		validators: validation.NewRegistry(),
		sess:       session.New(nil),
		now:        time.Now,
		logger:     zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	e.Load(module, config)
	return e
}

// Load switches the engine to a new module configuration. All derivations
// are recomputed and prior in-progress edits are discarded; this runs on
// module switch, not on every keystroke.
func (e *Engine) Load(module string, config modules.FormConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.module = module
	e.sheetID = config.SheetID
	e.fields = fieldconfig.Visible(config.Fields)

	e.grouped = make(map[int][]fieldconfig.FieldDescriptor)
	for _, field := range e.fields {
		e.grouped[field.FormRow] = append(e.grouped[field.FormRow], field)
	}
	for row := range e.grouped {
		group := e.grouped[row]
		// Ascending formColumn; ties keep original order.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].FormColumn < group[j].FormColumn
		})
	}
	e.rowKeys = make([]int, 0, len(e.grouped))
	for row := range e.grouped {
		e.rowKeys = append(e.rowKeys, row)
	}
	sort.Ints(e.rowKeys)

	e.options = make(fieldconfig.OptionMap, len(config.Dropdowns))
	for key, list := range config.Dropdowns {
		e.options[key] = append([]string(nil), list...)
	}
	e.pending = make(map[string]*pendingFetch)

	e.resetStateLocked()
}

// resetStateLocked reinitialises the form state to its post-load defaults:
// today for date fields, empty string otherwise.
func (e *Engine) resetStateLocked() {
	state := make(map[string]string, len(e.fields))
	today := dateutil.Today(e.now())
	for _, field := range e.fields {
		if field.DataType == fieldconfig.DataDate {
			state[field.Key] = today
		} else {
			state[field.Key] = ""
		}
	}
	e.state = state
	e.errors = make(validation.ErrorMap)
}

// Module returns the loaded module name.
func (e *Engine) Module() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.module
}

// Fields returns the visible descriptors in layout order: rows ascending,
// columns ascending within a row.
func (e *Engine) Fields() []fieldconfig.FieldDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]fieldconfig.FieldDescriptor, 0, len(e.fields))
	for _, row := range e.rowKeys {
		out = append(out, e.grouped[row]...)
	}
	return out
}

// Rows returns the grouped layout: one slice per form row, in vertical
// order.
func (e *Engine) Rows() [][]fieldconfig.FieldDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]fieldconfig.FieldDescriptor, 0, len(e.rowKeys))
	for _, row := range e.rowKeys {
		out = append(out, append([]fieldconfig.FieldDescriptor(nil), e.grouped[row]...))
	}
	return out
}

// Value returns the current value for a field key.
func (e *Engine) Value(key string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state[key]
}

// State returns a copy of the form state.
func (e *Engine) State() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyState(e.state)
}

// SetValue assigns a field value. The assignment itself has no cross-field
// side effects; only fields that declare derive rules are re-derived
// afterwards, in descriptor order.
func (e *Engine) SetValue(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitting {
		return
	}
	if _, ok := e.state[key]; !ok {
		return
	}
	e.state[key] = value

	for _, field := range e.fields {
		if len(field.Derive) == 0 {
			continue
		}
		if next, changed := rules.ApplyDerive(field, e.state); changed {
			e.state[field.Key] = next
		}
	}
}

// VisibleNow filters the loaded fields by their showWhen rules against the
// current state.
func (e *Engine) VisibleNow() []fieldconfig.FieldDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]fieldconfig.FieldDescriptor, 0, len(e.fields))
	for _, row := range e.rowKeys {
		for _, field := range e.grouped[row] {
			if rules.IsVisible(field, e.state) {
				out = append(out, field)
			}
		}
	}
	return out
}

// EffectiveField returns the descriptor after variantWhen resolution along
// with the options the control should present right now (injected options
// win over the field's own list).
func (e *Engine) EffectiveField(key string) (fieldconfig.FieldDescriptor, []string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, field := range e.fields {
		if field.Key != key {
			continue
		}
		effective, injected := rules.ApplyVariant(field, e.state, e.options)
		if injected != nil {
			return effective, injected, true
		}
		return effective, e.options[key], true
	}
	return fieldconfig.FieldDescriptor{}, nil, false
}

// Errors returns the validation errors from the last submit attempt.
func (e *Engine) Errors() validation.ErrorMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(validation.ErrorMap, len(e.errors))
	for key, message := range e.errors {
		out[key] = message
	}
	return out
}

// Submitting reports whether a submission is in flight, the busy indicator
// for the UI.
func (e *Engine) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Snapshot captures the current form as a read-only view for renderers.
func (e *Engine) Snapshot() render.View {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := make([][]fieldconfig.FieldDescriptor, 0, len(e.rowKeys))
	for _, row := range e.rowKeys {
		visible := make([]fieldconfig.FieldDescriptor, 0, len(e.grouped[row]))
		for _, field := range e.grouped[row] {
			if rules.IsVisible(field, e.state) {
				visible = append(visible, field)
			}
		}
		if len(visible) > 0 {
			rows = append(rows, visible)
		}
	}

	options := make(fieldconfig.OptionMap, len(e.options))
	for key, list := range e.options {
		options[key] = append([]string(nil), list...)
	}
	errors := make(map[string]string, len(e.errors))
	for key, message := range e.errors {
		errors[key] = message
	}

	return render.View{
		Module:  e.module,
		Title:   e.module,
		Rows:    rows,
		Values:  copyState(e.state),
		Options: options,
		Errors:  errors,
	}
}

func (e *Engine) fieldByKey(key string) (fieldconfig.FieldDescriptor, bool) {
	for _, field := range e.fields {
		if field.Key == key {
			return field, true
		}
	}
	return fieldconfig.FieldDescriptor{}, false
}

func copyState(state map[string]string) map[string]string {
	out := make(map[string]string, len(state))
	for key, value := range state {
		out[key] = value
	}
	return out
}
