package formengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/harkutabhilash/justpressedinternalapp/internal/dateutil"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/gateway"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/modules"
)

// ErrSubmitInFlight reports a submit attempted while one is already running.
var ErrSubmitInFlight = errors.New("formengine: submission already in flight")

// ErrValidationFailed reports a submit blocked by field errors; the details
// are on Errors().
var ErrValidationFailed = errors.New("formengine: validation failed")

// Submit validates the form and, when clean, sends the enriched entry to the
// backend. Validation failure aborts before any network activity and leaves
// the per-field messages on the engine. A backend failure preserves the
// user's input; success resets the form to its defaults.
//
// Only one submission runs at a time; a second call while busy returns
// ErrSubmitInFlight.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return ErrSubmitInFlight
	}
	e.submitting = true
	module := e.module
	sheetID := e.sheetID
	fields := append([]fieldconfig.FieldDescriptor(nil), e.fields...)
	state := copyState(e.state)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
	}()

	fieldErrors := e.validators.Validate(module, fields, state)
	if len(fieldErrors) > 0 {
		e.mu.Lock()
		e.errors = fieldErrors
		e.mu.Unlock()
		return ErrValidationFailed
	}

	entry := e.enrich(fields, state)

	if sheetID == "" {
		resolved, err := e.resolveSheetID(ctx, module)
		if err != nil {
			return err
		}
		sheetID = resolved
	}

	if e.caller == nil {
		return fmt.Errorf("formengine: no gateway configured for %q", module)
	}
	_, err := e.caller.Call(ctx, "saveLogEntry", gateway.Payload{
		"module":  module,
		"sheetId": sheetID,
		"tab":     "master",
		"entry":   entry,
	})
	if err != nil {
		e.logger.Errorw("log entry submission failed", "module", module, "error", err)
		return fmt.Errorf("formengine: submit entry for %q: %w", module, err)
	}

	e.mu.Lock()
	e.resetStateLocked()
	e.mu.Unlock()
	e.logger.Infow("log entry saved", "module", module)
	return nil
}

// enrich converts the validated state into the submission record: date
// fields move to their display form and the audit columns are stamped from
// the session and the clock. createdOn and modifiedOn always carry the same
// timestamp on a new entry.
func (e *Engine) enrich(fields []fieldconfig.FieldDescriptor, state map[string]string) map[string]any {
	entry := make(map[string]any, len(state)+4)
	for key, value := range state {
		entry[key] = value
	}
	for _, field := range fields {
		if field.DataType != fieldconfig.DataDate {
			continue
		}
		if formatted := dateutil.FormatDisplayDate(state[field.Key]); formatted != "" {
			entry[field.Key] = formatted
		}
	}

	username := "Unknown"
	if e.sess != nil {
		username = e.sess.Username()
	}
	stamp := dateutil.FormatTimestamp(e.now())
	entry["createdBy"] = username
	entry["modifiedBy"] = username
	entry["createdOn"] = stamp
	entry["modifiedOn"] = stamp
	return entry
}

// resolveSheetID resolves the module's storage handle, allowing the catalog
// one forced refresh before failing loudly.
func (e *Engine) resolveSheetID(ctx context.Context, module string) (string, error) {
	if e.resolver == nil {
		return "", &modules.ConfigError{Module: module, Reason: "no sheet id in module catalog"}
	}
	sheetID, err := e.resolver.SheetID(ctx, module, false)
	if err != nil {
		sheetID, err = e.resolver.SheetID(ctx, module, true)
	}
	if err != nil {
		e.logger.Errorw("sheet id resolution failed", "module", module, "error", err)
		return "", &modules.ConfigError{Module: module, Reason: "no sheet id in module catalog"}
	}
	return sheetID, nil
}
