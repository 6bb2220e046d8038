// Package validation implements the common field rules plus a pluggable
// registry of per-module validators. Every rule is pure and total: no input
// shape may make a validator panic.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
)

// ErrorMap maps field keys to human-readable messages. It is recomputed
// wholesale per submit attempt.
type ErrorMap map[string]string

// ModuleValidator adds module-specific errors for a form state. Returned
// entries merge over (not replace) the common-rule errors.
type ModuleValidator func(state map[string]string) ErrorMap

// Registry stores module validators by module name. The common rules stay
// closed while modules extend validation through here.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]ModuleValidator
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]ModuleValidator)}
}

// Register adds a validator for a module. Duplicate registrations return an
// error so wiring mistakes surface early.
func (r *Registry) Register(module string, validator ModuleValidator) error {
	if strings.TrimSpace(module) == "" {
		return fmt.Errorf("validation: module name is required")
	}
	if validator == nil {
		return fmt.Errorf("validation: validator is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[module]; exists {
		return fmt.Errorf("validation: module %q already registered", module)
	}
	r.validators[module] = validator
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(module string, validator ModuleValidator) {
	if err := r.Register(module, validator); err != nil {
		panic(err)
	}
}

// Validate runs the common rules over the visible fields and merges in the
// module validator, when one is registered.
func (r *Registry) Validate(module string, fields []fieldconfig.FieldDescriptor, state map[string]string) ErrorMap {
	errors := ValidateCommon(fields, state)

	r.mu.RLock()
	validator := r.validators[module]
	r.mu.RUnlock()

	if validator != nil {
		for key, message := range validator(state) {
			errors[key] = message
		}
	}
	return errors
}

// ValidateCommon applies the shared rules per field: required short-circuits
// the rest; number and positiveNumber checks only consider non-empty values.
func ValidateCommon(fields []fieldconfig.FieldDescriptor, state map[string]string) ErrorMap {
	errors := make(ErrorMap)

	for _, field := range fields {
		value := strings.TrimSpace(state[field.Key])
		label := field.DisplayLabel()

		if field.IsRequired && value == "" {
			errors[field.Key] = label + " is required"
			continue
		}
		if value == "" {
			continue
		}

		switch field.DataType {
		case fieldconfig.DataNumber:
			if _, ok := parseFinite(value); !ok {
				errors[field.Key] = label + " must be a valid number"
			}
		case fieldconfig.DataPositiveNumber:
			if n, ok := parseFinite(value); !ok || n < 0 {
				errors[field.Key] = label + " must be a positive number"
			}
		}
	}
	return errors
}

func parseFinite(value string) (float64, bool) {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	// ParseFloat accepts "Inf" and "NaN" spellings; both are invalid input.
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
