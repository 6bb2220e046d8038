// Package rules evaluates the data-driven condition model attached to field
// descriptors: visibility, conditional variants, derive passes and lookup
// triggers. Rules are data evaluated uniformly here, never ad hoc per-field
// handlers.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
)

// FormState is the current value per field key.
type FormState = map[string]string

// EvalCondition reports whether a condition holds against the form state. A
// nil condition always holds. "all" groups require every clause, "any"
// groups require at least one; otherwise the condition is read as a single
// direct clause.
func EvalCondition(cond *fieldconfig.Condition, state FormState) bool {
	if cond == nil {
		return true
	}
	if len(cond.All) > 0 {
		for _, clause := range cond.All {
			if !evalClause(clause, state) {
				return false
			}
		}
		return true
	}
	if len(cond.Any) > 0 {
		for _, clause := range cond.Any {
			if evalClause(clause, state) {
				return true
			}
		}
		return false
	}
	return evalClause(fieldconfig.Clause{Field: cond.Field, Op: cond.Op, Value: cond.Value}, state)
}

func evalClause(clause fieldconfig.Clause, state FormState) bool {
	if clause.Field == "" {
		return true
	}
	left := state[clause.Field]

	op := clause.Op
	if op == "" {
		op = "="
	}

	switch op {
	case "=":
		return left == stringify(clause.Value)
	case "!=":
		return left != stringify(clause.Value)
	case ">", "<", ">=", "<=":
		l, lok := toNumber(left)
		r, rok := toNumber(stringify(clause.Value))
		if !lok || !rok {
			return false
		}
		switch op {
		case ">":
			return l > r
		case "<":
			return l < r
		case ">=":
			return l >= r
		default:
			return l <= r
		}
	case "in":
		return contains(clause.Value, left)
	case "notIn":
		return !contains(clause.Value, left)
	default:
		// Unknown operator falls back to a truthy check on the field.
		return left != ""
	}
}

// IsVisible applies a field's showWhen rule.
func IsVisible(field fieldconfig.FieldDescriptor, state FormState) bool {
	return EvalCondition(field.ShowWhen, state)
}

// ApplyVariant returns the effective descriptor after the variantWhen rule
// picks its branch, plus options borrowed from another field's list when the
// branch asks for them. Fields without a rule come back unchanged.
func ApplyVariant(field fieldconfig.FieldDescriptor, state FormState, options fieldconfig.OptionMap) (fieldconfig.FieldDescriptor, []string) {
	rule := field.VariantWhen
	if rule == nil {
		return field, nil
	}

	pick := rule.Else
	if EvalCondition(rule.When, state) {
		pick = rule.Then
	}
	if pick == nil {
		return field, nil
	}

	out := field
	if pick.InputType != "" {
		out.InputType = fieldconfig.InputType(strings.ToLower(pick.InputType))
	}
	var injected []string
	if pick.OptionsFromField != "" {
		injected = options[pick.OptionsFromField]
	}
	return out, injected
}

// ApplyDerive runs a field's derive rules against the state and returns the
// value the field should carry. "default" mode only fills an empty value;
// any other mode overwrites.
func ApplyDerive(field fieldconfig.FieldDescriptor, state FormState) (string, bool) {
	current := state[field.Key]
	next := current
	for _, rule := range field.Derive {
		if !EvalCondition(rule.When, state) {
			continue
		}
		if rule.SetTo.FromField == "" {
			continue
		}
		source := state[rule.SetTo.FromField]
		if rule.Mode == "default" {
			if next == "" {
				next = source
			}
		} else {
			next = source
		}
	}
	return next, next != current
}

// ShouldRunLookup reports whether a field's lookup rule is armed for the
// current state.
func ShouldRunLookup(field fieldconfig.FieldDescriptor, state FormState) bool {
	if field.Lookup == nil {
		return false
	}
	return EvalCondition(field.Lookup.When, state)
}

func contains(value any, needle string) bool {
	list, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if stringify(item) == needle {
			return true
		}
	}
	return false
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toNumber(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
