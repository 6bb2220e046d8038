package fieldconfig_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return out
}

func TestNormalizeConfig_EquivalentShapesProduceSameDescriptors(t *testing.T) {
	n := fieldconfig.NewNormalizer()

	shapes := map[string]string{
		"array-of-objects": `[
			{"key":"qty","label":"Quantity","inputType":"Number","dataType":"float64","showInApp":"TRUE","isRequired":"true","formRow":"1","formColumn":"2"}
		]`,
		"data-wrapped": `{"data":{"data":[
			{"key":"qty","label":"Quantity","inputType":"Number","dataType":"float64","showInApp":"TRUE","isRequired":"true","formRow":"1","formColumn":"2"}
		]}}`,
		"headers-positional": `{
			"headers":["key","label","inputType","dataType","showInApp","isRequired","formRow","formColumn"],
			"rows":[["qty","Quantity","Number","float64","TRUE","true","1","2"]]
		}`,
		"rows-of-objects": `{"rows":[
			{"key":"qty","label":"Quantity","inputType":"Number","dataType":"float64","showInApp":"TRUE","isRequired":"true","formRow":"1","formColumn":"2"}
		]}`,
	}

	want := []fieldconfig.FieldDescriptor{{
		Key:        "qty",
		Label:      "Quantity",
		InputType:  fieldconfig.InputNumber,
		DataType:   fieldconfig.DataNumber,
		ShowInApp:  true,
		IsRequired: true,
		FormRow:    1,
		FormColumn: 2,
	}}

	for name, raw := range shapes {
		got := n.NormalizeConfig(decode(t, raw))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("shape %s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestNormalizeConfig_UnknownShapeDegradesToEmpty(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	if got := n.NormalizeConfig("not a config"); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := n.NormalizeConfig(nil); len(got) != 0 {
		t.Fatalf("expected empty result for nil, got %v", got)
	}
}

func TestNormalizeConfig_BooleanCoercion(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	cases := []struct {
		value any
		want  bool
	}{
		{true, true},
		{"true", true},
		{"TRUE", true},
		{" True ", true},
		{"false", false},
		{"", false},
		{nil, false},
		{"yes", false},
		{float64(1), false},
	}
	for _, tc := range cases {
		raw := []any{map[string]any{"key": "f", "showInApp": tc.value}}
		got := n.NormalizeConfig(raw)
		if len(got) != 1 || got[0].ShowInApp != tc.want {
			t.Errorf("showInApp=%v normalized to %v, want %v", tc.value, got[0].ShowInApp, tc.want)
		}
	}
}

func TestNormalizeConfig_DateInputForcesDateType(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	raw := decode(t, `[{"key":"logDate","inputType":"Date","dataType":"text","showInApp":true}]`)
	got := n.NormalizeConfig(raw)
	if got[0].InputType != fieldconfig.InputDate || got[0].DataType != fieldconfig.DataDate {
		t.Fatalf("expected date/date, got %s/%s", got[0].InputType, got[0].DataType)
	}
}

func TestNormalizeConfig_RuleCellsDecodeFromJSONStrings(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	raw := []any{map[string]any{
		"key":         "entryType",
		"showInApp":   "true",
		"showWhen":    `{"field":"txnType","op":"=","value":"cash"}`,
		"variantWhen": `{"when":{"field":"txnType","op":"=","value":"cash"},"then":{"inputType":"dropdown","optionsFromField":"cashHandledBy"}}`,
		"derive":      `[{"when":{"field":"qty","op":">","value":0},"setTo":{"fromField":"qty"},"mode":"default"}]`,
	}}
	got := n.NormalizeConfig(raw)
	field := got[0]
	if field.ShowWhen == nil || field.ShowWhen.Field != "txnType" {
		t.Fatalf("showWhen not decoded: %+v", field.ShowWhen)
	}
	if field.VariantWhen == nil || field.VariantWhen.Then.OptionsFromField != "cashHandledBy" {
		t.Fatalf("variantWhen not decoded: %+v", field.VariantWhen)
	}
	if len(field.Derive) != 1 || field.Derive[0].SetTo.FromField != "qty" {
		t.Fatalf("derive not decoded: %+v", field.Derive)
	}
}

func TestNormalizeConfig_BrokenRuleCellIsDropped(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	raw := []any{map[string]any{"key": "f", "showInApp": "true", "showWhen": "{broken"}}
	got := n.NormalizeConfig(raw)
	if len(got) != 1 || got[0].ShowWhen != nil {
		t.Fatalf("expected broken rule dropped, got %+v", got)
	}
}

func TestVisible_DropsKeylessAndHiddenDescriptors(t *testing.T) {
	fields := []fieldconfig.FieldDescriptor{
		{Key: "qty", ShowInApp: true},
		{Key: "", ShowInApp: true},
		{Key: "hidden", ShowInApp: false},
	}
	got := fieldconfig.Visible(fields)
	if len(got) != 1 || got[0].Key != "qty" {
		t.Fatalf("unexpected visible set: %+v", got)
	}
}

func TestNormalizeDropdowns_MapShape(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	raw := decode(t, `{"warehouse":["  B ","A","","A"],"grade":["1"]}`)
	got := n.NormalizeDropdowns(raw)
	want := fieldconfig.OptionMap{"warehouse": {"A", "B"}, "grade": {"1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDropdowns_RowShapes(t *testing.T) {
	n := fieldconfig.NewNormalizer()
	want := fieldconfig.OptionMap{"grade": {"A", "B"}, "unit": {"kg"}}

	fromRows := n.NormalizeDropdowns(decode(t, `{"rows":[{"grade":"B","unit":"kg"},{"grade":"A","unit":" kg "},{"grade":""}]}`))
	if diff := cmp.Diff(want, fromRows); diff != "" {
		t.Errorf("rows shape mismatch (-want +got):\n%s", diff)
	}

	fromList := n.NormalizeDropdowns(decode(t, `[{"grade":"B","unit":"kg"},{"grade":"A","unit":"kg"}]`))
	if diff := cmp.Diff(want, fromList); diff != "" {
		t.Errorf("list shape mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitModuleSource(t *testing.T) {
	if module, prop, ok := fieldconfig.SplitModuleSource("product.category"); !ok || module != "product" || prop != "category" {
		t.Fatalf("unexpected parse: %s %s %v", module, prop, ok)
	}
	for _, bad := range []string{"", "product", "product.", ".category"} {
		if _, _, ok := fieldconfig.SplitModuleSource(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
