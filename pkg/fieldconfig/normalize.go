package fieldconfig

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var numericDataType = regexp.MustCompile(`(?i)^(float|number)`)

// Normalizer converts raw backend payloads into descriptors and option maps.
// Malformed or unknown shapes never escape as errors; they degrade to empty
// collections and the form-loading path decides whether that is fatal.
type Normalizer struct {
	logger *zap.SugaredLogger
}

// Option customises the normalizer.
type Option func(*Normalizer)

// WithLogger injects the diagnostics logger used for unknown payload shapes.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(options ...Option) *Normalizer {
	n := &Normalizer{logger: zap.NewNop().Sugar()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(n)
	}
	return n
}

// NormalizeConfig accepts the raw config payload in any of its known shapes:
// an array of row objects, a payload wrapped under "data" (unwrapped
// recursively), parallel {headers, rows} with positional or keyed rows, or
// {rows: [objects]}. Unknown shapes log a diagnostic and come back empty.
func (n *Normalizer) NormalizeConfig(raw any) []FieldDescriptor {
	switch value := raw.(type) {
	case nil:
		n.logger.Warnw("config payload is nil")
		return nil
	case []any:
		out := make([]FieldDescriptor, 0, len(value))
		for _, row := range value {
			obj, ok := row.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, n.normalizeFieldRow(obj))
		}
		return out
	case map[string]any:
		if wrapped, ok := value["data"]; ok {
			return n.NormalizeConfig(wrapped)
		}
		if headers, rows, ok := headerRowShape(value); ok {
			out := make([]FieldDescriptor, 0, len(rows))
			for _, row := range rows {
				out = append(out, n.normalizeFieldRow(zipRow(headers, row)))
			}
			return out
		}
		if rows, ok := objectRows(value["rows"]); ok {
			out := make([]FieldDescriptor, 0, len(rows))
			for _, row := range rows {
				out = append(out, n.normalizeFieldRow(row))
			}
			return out
		}
	}
	n.logger.Warnw("config payload has unknown shape", "type", fmt.Sprintf("%T", raw))
	return nil
}

// Visible filters descriptors to those that participate in the rendered
// form. A visible descriptor without a key is dropped here, before any
// rendering happens.
func Visible(fields []FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(fields))
	for _, field := range fields {
		if field.ShowInApp && field.Key != "" {
			out = append(out, field)
		}
	}
	return out
}

func (n *Normalizer) normalizeFieldRow(row map[string]any) FieldDescriptor {
	field := FieldDescriptor{
		Key:            stringValue(row["key"]),
		Label:          stringValue(row["label"]),
		Placeholder:    stringValue(row["placeholderText"]),
		InputType:      InputType(strings.ToLower(stringValue(row["inputType"]))),
		DataType:       DataType(stringValue(row["dataType"])),
		ShowInApp:      boolValue(row["showInApp"]),
		IsRequired:     boolValue(row["isRequired"]),
		IsDisabled:     boolValue(row["isDisabled"]),
		FormRow:        intOrZero(row["formRow"]),
		FormColumn:     intOrZero(row["formColumn"]),
		DropdownSource: stringValue(row["dropdownSource"]),
	}

	if numericDataType.MatchString(string(field.DataType)) {
		field.DataType = DataNumber
		if field.InputType == "" {
			field.InputType = InputNumber
		}
	}
	if field.InputType == InputDate {
		field.DataType = DataDate
	}

	field.ShowWhen = decodeRule[Condition](n, row["showWhen"], field.Key, "showWhen")
	field.VariantWhen = decodeRule[VariantRule](n, row["variantWhen"], field.Key, "variantWhen")
	field.Lookup = decodeRule[LookupRule](n, row["lookup"], field.Key, "lookup")
	if rules := decodeRule[[]DeriveRule](n, row["derive"], field.Key, "derive"); rules != nil {
		field.Derive = *rules
	}

	return field
}

// NormalizeDropdowns accepts either a map of field key to raw value list, or
// a list of row objects (bare or under "rows") where every column becomes a
// candidate option set. Values are stringified, trimmed, deduplicated and
// sorted for determinism.
func (n *Normalizer) NormalizeDropdowns(raw any) OptionMap {
	switch value := raw.(type) {
	case nil:
		return OptionMap{}
	case map[string]any:
		if _, hasRows := value["rows"]; !hasRows {
			out := make(OptionMap, len(value))
			for key, list := range value {
				items, _ := list.([]any)
				values := make([]string, 0, len(items))
				for _, item := range items {
					values = append(values, stringValue(item))
				}
				out[key] = uniqueSorted(values)
			}
			return out
		}
		rows, _ := objectRows(value["rows"])
		return collectColumnOptions(rows)
	case []any:
		rows, _ := objectRows(value)
		return collectColumnOptions(rows)
	}
	n.logger.Warnw("dropdown payload has unknown shape", "type", fmt.Sprintf("%T", raw))
	return OptionMap{}
}

// SplitModuleSource parses a "<module>.<property>" dropdown source. Sources
// without both parts are bare static lists.
func SplitModuleSource(source string) (module, property string, ok bool) {
	parts := strings.SplitN(source, ".", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	module = strings.TrimSpace(parts[0])
	property = strings.TrimSpace(parts[1])
	if module == "" || property == "" {
		return "", "", false
	}
	return module, property, true
}

func collectColumnOptions(rows []map[string]any) OptionMap {
	seen := make(map[string]map[string]struct{})
	for _, row := range rows {
		for key, value := range row {
			s := stringValue(value)
			if s == "" {
				continue
			}
			if seen[key] == nil {
				seen[key] = make(map[string]struct{})
			}
			seen[key][s] = struct{}{}
		}
	}
	out := make(OptionMap, len(seen))
	for key, set := range seen {
		values := make([]string, 0, len(set))
		for value := range set {
			values = append(values, value)
		}
		sort.Strings(values)
		out[key] = values
	}
	return out
}

func uniqueSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func headerRowShape(value map[string]any) (headers []string, rows []any, ok bool) {
	rawHeaders, hasHeaders := value["headers"].([]any)
	rawRows, hasRows := value["rows"].([]any)
	if !hasHeaders || !hasRows {
		return nil, nil, false
	}
	headers = make([]string, 0, len(rawHeaders))
	for _, h := range rawHeaders {
		headers = append(headers, stringValue(h))
	}
	return headers, rawRows, true
}

// zipRow builds a row object from headers and either a positional value list
// or an already keyed object.
func zipRow(headers []string, row any) map[string]any {
	out := make(map[string]any, len(headers))
	switch value := row.(type) {
	case map[string]any:
		for _, header := range headers {
			out[header] = value[header]
		}
	case []any:
		for i, header := range headers {
			if i < len(value) {
				out[header] = value[i]
			}
		}
	}
	return out
}

func objectRows(value any) ([]map[string]any, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	if len(out) == 0 && len(list) > 0 {
		return nil, false
	}
	return out, true
}

// decodeRule accepts rule cells that arrive either as decoded JSON objects or
// as JSON text inside a spreadsheet cell. Anything that does not decode is
// dropped with a diagnostic; a broken rule must not break the form.
func decodeRule[T any](n *Normalizer, raw any, key, name string) *T {
	if raw == nil {
		return nil
	}

	var encoded []byte
	switch value := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil
		}
		encoded = []byte(trimmed)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			n.logger.Warnw("rule cell not serialisable", "field", key, "rule", name)
			return nil
		}
		encoded = data
	}

	out := new(T)
	if err := json.Unmarshal(encoded, out); err != nil {
		n.logger.Warnw("rule cell does not decode", "field", key, "rule", name, "error", err)
		return nil
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// boolValue normalizes boolean-ish source values: true only for boolean true
// or the case-insensitive string "true".
func boolValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func intOrZero(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if v < 0 {
			return 0
		}
		return int(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return int(parsed)
	case int:
		if v < 0 {
			return 0
		}
		return v
	default:
		return 0
	}
}
