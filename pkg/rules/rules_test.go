package rules_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/rules"
)

func TestEvalCondition(t *testing.T) {
	state := rules.FormState{"txnType": "cash", "qty": "12", "empty": ""}

	cases := []struct {
		name string
		cond *fieldconfig.Condition
		want bool
	}{
		{"nil condition holds", nil, true},
		{"equality", &fieldconfig.Condition{Field: "txnType", Op: "=", Value: "cash"}, true},
		{"equality default op", &fieldconfig.Condition{Field: "txnType", Value: "cash"}, true},
		{"inequality", &fieldconfig.Condition{Field: "txnType", Op: "!=", Value: "upi"}, true},
		{"numeric gt", &fieldconfig.Condition{Field: "qty", Op: ">", Value: float64(10)}, true},
		{"numeric le fails", &fieldconfig.Condition{Field: "qty", Op: "<=", Value: float64(10)}, false},
		{"numeric on empty fails", &fieldconfig.Condition{Field: "empty", Op: ">", Value: float64(0)}, false},
		{"in", &fieldconfig.Condition{Field: "txnType", Op: "in", Value: []any{"cash", "upi"}}, true},
		{"notIn", &fieldconfig.Condition{Field: "txnType", Op: "notIn", Value: []any{"upi"}}, true},
		{"unknown op is truthy check", &fieldconfig.Condition{Field: "txnType", Op: "matches"}, true},
		{"unknown op on empty", &fieldconfig.Condition{Field: "empty", Op: "matches"}, false},
		{
			"all group",
			&fieldconfig.Condition{All: []fieldconfig.Clause{
				{Field: "txnType", Op: "=", Value: "cash"},
				{Field: "qty", Op: ">", Value: float64(1)},
			}},
			true,
		},
		{
			"any group",
			&fieldconfig.Condition{Any: []fieldconfig.Clause{
				{Field: "txnType", Op: "=", Value: "upi"},
				{Field: "qty", Op: ">", Value: float64(1)},
			}},
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.EvalCondition(tc.cond, state); got != tc.want {
				t.Errorf("EvalCondition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsVisible(t *testing.T) {
	field := fieldconfig.FieldDescriptor{
		Key:      "entryType",
		ShowWhen: &fieldconfig.Condition{Field: "txnType", Op: "=", Value: "cash"},
	}
	if !rules.IsVisible(field, rules.FormState{"txnType": "cash"}) {
		t.Fatal("expected visible")
	}
	if rules.IsVisible(field, rules.FormState{"txnType": "upi"}) {
		t.Fatal("expected hidden")
	}
}

func TestApplyVariant(t *testing.T) {
	field := fieldconfig.FieldDescriptor{
		Key:       "handledBy",
		InputType: fieldconfig.InputText,
		VariantWhen: &fieldconfig.VariantRule{
			When: &fieldconfig.Condition{Field: "txnType", Op: "=", Value: "cash"},
			Then: &fieldconfig.VariantOutcome{InputType: "Dropdown", OptionsFromField: "cashHandledBy"},
			Else: &fieldconfig.VariantOutcome{InputType: "text"},
		},
	}
	options := fieldconfig.OptionMap{"cashHandledBy": {"alice", "bob"}}

	matched, injected := rules.ApplyVariant(field, rules.FormState{"txnType": "cash"}, options)
	if matched.InputType != fieldconfig.InputDropdown {
		t.Fatalf("expected dropdown, got %s", matched.InputType)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, injected); diff != "" {
		t.Errorf("injected options mismatch (-want +got):\n%s", diff)
	}

	unmatched, injected := rules.ApplyVariant(field, rules.FormState{"txnType": "upi"}, options)
	if unmatched.InputType != fieldconfig.InputText || injected != nil {
		t.Fatalf("expected else branch, got %s %v", unmatched.InputType, injected)
	}
}

func TestApplyDerive(t *testing.T) {
	field := fieldconfig.FieldDescriptor{Key: "billedQty"}
	field.Derive = []fieldconfig.DeriveRule{{Mode: "default"}}
	field.Derive[0].SetTo.FromField = "qty"

	// default mode fills only empty targets
	value, changed := rules.ApplyDerive(field, rules.FormState{"qty": "5", "billedQty": ""})
	if !changed || value != "5" {
		t.Fatalf("expected derive to fill empty target, got %q changed=%v", value, changed)
	}
	value, changed = rules.ApplyDerive(field, rules.FormState{"qty": "5", "billedQty": "7"})
	if changed || value != "7" {
		t.Fatalf("expected default mode to keep user value, got %q changed=%v", value, changed)
	}

	// overwrite mode always copies
	field.Derive[0].Mode = ""
	value, changed = rules.ApplyDerive(field, rules.FormState{"qty": "5", "billedQty": "7"})
	if !changed || value != "5" {
		t.Fatalf("expected overwrite, got %q changed=%v", value, changed)
	}
}

func TestShouldRunLookup(t *testing.T) {
	field := fieldconfig.FieldDescriptor{Key: "monoCarton"}
	if rules.ShouldRunLookup(field, rules.FormState{}) {
		t.Fatal("no rule should not trigger")
	}
	field.Lookup = &fieldconfig.LookupRule{
		When: &fieldconfig.Condition{Field: "skuId", Op: "!=", Value: ""},
	}
	if !rules.ShouldRunLookup(field, rules.FormState{"skuId": "SKU-1"}) {
		t.Fatal("expected lookup to trigger")
	}
}
