package formengine

import (
	"context"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/rules"
)

// pendingFetch coalesces concurrent option loads for one field key. options
// is written once, before done is closed.
type pendingFetch struct {
	done    chan struct{}
	options []string
}

// OpenDropdown returns the options for a field, loading them lazily from the
// referenced module's master data on first open. Concurrent opens of the
// same field share a single fetch. A failed load resolves to an empty list
// for that key only; the field stays choosable.
func (e *Engine) OpenDropdown(ctx context.Context, key string) []string {
	e.mu.Lock()

	if existing := e.options[key]; len(existing) > 0 {
		e.mu.Unlock()
		return append([]string(nil), existing...)
	}

	field, ok := e.fieldByKey(key)
	if !ok || !field.HasModuleSource() || e.master == nil {
		options := append([]string(nil), e.options[key]...)
		e.mu.Unlock()
		return options
	}

	if p, inFlight := e.pending[key]; inFlight {
		e.mu.Unlock()
		<-p.done
		return append([]string(nil), p.options...)
	}

	p := &pendingFetch{done: make(chan struct{})}
	e.pending[key] = p
	e.mu.Unlock()

	options, err := e.master.Options(ctx, field.DropdownSource)
	if err != nil {
		e.logger.Warnw("dropdown option load failed",
			"field", key, "source", field.DropdownSource, "error", err)
		options = []string{}
	}

	e.mu.Lock()
	// A Load() may have swapped the module mid-fetch; a late completion for
	// the abandoned form is handed to its waiters but never stored.
	if current, inFlight := e.pending[key]; inFlight && current == p {
		e.options[key] = options
		delete(e.pending, key)
	}
	e.mu.Unlock()

	p.options = options
	close(p.done)
	return append([]string(nil), options...)
}

// RunLookups walks the visible fields and fills every armed cross-module
// lookup from the referenced module's master data. Fields the user already
// edited are skipped unless the rule allows an override; a missing match
// leaves the field untouched.
func (e *Engine) RunLookups(ctx context.Context) {
	if e.master == nil {
		return
	}

	e.mu.Lock()
	fields := append([]fieldconfig.FieldDescriptor(nil), e.fields...)
	state := copyState(e.state)
	e.mu.Unlock()

	for _, field := range fields {
		rule := field.Lookup
		if rule == nil || !rules.ShouldRunLookup(field, state) {
			continue
		}
		if state[field.Key] != "" && !rule.AllowUserOverride {
			continue
		}
		matchValue := state[rule.Match.Field]
		// An unset match field must not fire the lookup; rows with a blank
		// match column would match it.
		if matchValue == "" {
			continue
		}
		value, found, err := e.master.LookupValue(ctx, rule.FromModule, rule.Match.Field, matchValue, rule.MapTo)
		if err != nil {
			e.logger.Warnw("cross-module lookup failed",
				"field", field.Key, "fromModule", rule.FromModule, "error", err)
			continue
		}
		if !found {
			continue
		}
		e.mu.Lock()
		e.state[field.Key] = value
		e.mu.Unlock()
		state[field.Key] = value
	}
}
