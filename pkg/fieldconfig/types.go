// Package fieldconfig turns heterogeneous backend config and dropdown
// payloads into the canonical field-descriptor model. It is the single point
// where untyped spreadsheet data becomes typed; nothing downstream sees raw
// key/value bags.
package fieldconfig

// InputType enumerates the supported form controls. Source values are
// case-insensitive and canonicalize to these constants.
type InputType string

const (
	InputText     InputType = "text"
	InputNumber   InputType = "number"
	InputDropdown InputType = "dropdown"
	InputTextarea InputType = "textarea"
	InputDate     InputType = "date"
	InputRadio    InputType = "radio"
)

// DataType drives both value casting and validation.
type DataType string

const (
	DataText           DataType = "text"
	DataNumber         DataType = "number"
	DataPositiveNumber DataType = "positiveNumber"
	DataDate           DataType = "date"
)

// Clause is a single field comparison inside a rule condition.
type Clause struct {
	Field string `json:"field"`
	Op    string `json:"op,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Condition is either a single clause or an all/any group of clauses. A nil
// condition always holds.
type Condition struct {
	All []Clause `json:"all,omitempty"`
	Any []Clause `json:"any,omitempty"`

	// Direct single-clause form.
	Field string `json:"field,omitempty"`
	Op    string `json:"op,omitempty"`
	Value any    `json:"value,omitempty"`
}

// VariantOutcome describes the override applied when a variant rule picks a
// branch: an input-type swap and, optionally, options borrowed from another
// field's option list.
type VariantOutcome struct {
	InputType        string `json:"inputType,omitempty"`
	OptionsFromField string `json:"optionsFromField,omitempty"`
}

// VariantRule conditionally overrides a field's input type or options.
type VariantRule struct {
	When *Condition      `json:"when,omitempty"`
	Then *VariantOutcome `json:"then,omitempty"`
	Else *VariantOutcome `json:"else,omitempty"`
}

// DeriveRule copies a value from another field when its condition holds. In
// "default" mode the copy only fills an empty target.
type DeriveRule struct {
	When  *Condition `json:"when,omitempty"`
	SetTo struct {
		FromField string `json:"fromField,omitempty"`
	} `json:"setTo"`
	Mode string `json:"mode,omitempty"`
}

// LookupRule fills a field from another module's master data: the first row
// whose match column equals the current match-field value supplies the
// mapped column.
type LookupRule struct {
	When       *Condition `json:"when,omitempty"`
	FromModule string     `json:"fromModule"`
	Match      struct {
		Field string `json:"field"`
	} `json:"match"`
	MapTo             string `json:"mapTo"`
	AllowUserOverride bool   `json:"allowUserOverride,omitempty"`
}

// FieldDescriptor is one logical input of a module form.
type FieldDescriptor struct {
	Key         string    `json:"key"`
	Label       string    `json:"label,omitempty"`
	Placeholder string    `json:"placeholderText,omitempty"`
	InputType   InputType `json:"inputType,omitempty"`
	DataType    DataType  `json:"dataType,omitempty"`
	ShowInApp   bool      `json:"showInApp"`
	IsRequired  bool      `json:"isRequired"`
	IsDisabled  bool      `json:"isDisabled"`
	FormRow     int       `json:"formRow"`
	FormColumn  int       `json:"formColumn"`

	// DropdownSource is either empty (statically supplied options) or a
	// "<module>.<property>" qualifier resolved lazily from that module's
	// master-data dump.
	DropdownSource string `json:"dropdownSource,omitempty"`

	ShowWhen    *Condition   `json:"showWhen,omitempty"`
	VariantWhen *VariantRule `json:"variantWhen,omitempty"`
	Derive      []DeriveRule `json:"derive,omitempty"`
	Lookup      *LookupRule  `json:"lookup,omitempty"`
}

// DisplayLabel returns the label, falling back to the key so error messages
// always name the field.
func (f FieldDescriptor) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// HasModuleSource reports whether the dropdown source carries a
// "<module>.<property>" qualifier.
func (f FieldDescriptor) HasModuleSource() bool {
	_, _, ok := SplitModuleSource(f.DropdownSource)
	return ok
}

// OptionMap maps a field key (or raw source column) to its deduplicated,
// lexicographically sorted option list.
type OptionMap map[string][]string
