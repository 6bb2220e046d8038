// Package openapiimport bootstraps a module's field configuration from an
// OpenAPI schema. It exists for onboarding: a business that already describes
// its records in an API document gets a first config sheet generated instead
// of typed by hand.
package openapiimport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
)

// fieldsPerRow controls the generated layout; two controls per form row
// matches the console's default rendering width.
const fieldsPerRow = 2

// Importer converts component schemas into field descriptors.
type Importer struct {
	logger *zap.SugaredLogger
}

// Option customises the importer.
type Option func(*Importer)

// WithLogger injects a structured logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New constructs an importer.
func New(options ...Option) *Importer {
	i := &Importer{logger: zap.NewNop().Sugar()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(i)
	}
	return i
}

// FromFile loads an OpenAPI document from disk and imports the named
// component schema.
func (i *Importer) FromFile(ctx context.Context, path, schemaName string) ([]fieldconfig.FieldDescriptor, fieldconfig.OptionMap, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("openapiimport: load %q: %w", path, err)
	}
	return i.fromDocument(ctx, doc, schemaName)
}

// FromData imports the named component schema from raw document bytes.
func (i *Importer) FromData(ctx context.Context, data []byte, schemaName string) ([]fieldconfig.FieldDescriptor, fieldconfig.OptionMap, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("openapiimport: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, nil, fmt.Errorf("openapiimport: load document: %w", err)
	}
	return i.fromDocument(ctx, doc, schemaName)
}

func (i *Importer) fromDocument(ctx context.Context, doc *openapi3.T, schemaName string) ([]fieldconfig.FieldDescriptor, fieldconfig.OptionMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, nil, errors.New("openapiimport: document has no component schemas")
	}

	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, nil, fmt.Errorf("openapiimport: schema %q not found (have: %s)", schemaName, strings.Join(schemaNames(doc), ", "))
	}
	schema := ref.Value
	if len(schema.Properties) == 0 {
		return nil, nil, fmt.Errorf("openapiimport: schema %q has no properties", schemaName)
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]fieldconfig.FieldDescriptor, 0, len(names))
	options := make(fieldconfig.OptionMap)
	position := 0
	for _, name := range names {
		property := schema.Properties[name]
		if property == nil || property.Value == nil {
			i.logger.Warnw("skipping unresolvable property", "schema", schemaName, "property", name)
			continue
		}

		field, enum := convertProperty(name, property.Value, required[name])
		field.FormRow = position/fieldsPerRow + 1
		field.FormColumn = position%fieldsPerRow + 1
		position++

		if len(enum) > 0 {
			options[name] = enum
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("openapiimport: schema %q yielded no usable fields", schemaName)
	}
	return fields, options, nil
}

// convertProperty maps one schema property onto a descriptor: type drives
// the control, format and bounds refine the data type, enums become static
// dropdown options.
func convertProperty(name string, schema *openapi3.Schema, isRequired bool) (fieldconfig.FieldDescriptor, []string) {
	field := fieldconfig.FieldDescriptor{
		Key:         name,
		Label:       labelFromKey(name),
		Placeholder: schema.Description,
		InputType:   fieldconfig.InputText,
		DataType:    fieldconfig.DataText,
		ShowInApp:   true,
		IsRequired:  isRequired,
	}

	switch firstType(schema.Type) {
	case "integer", "number":
		field.InputType = fieldconfig.InputNumber
		field.DataType = fieldconfig.DataNumber
		if schema.Min != nil && *schema.Min >= 0 {
			field.DataType = fieldconfig.DataPositiveNumber
		}
	case "boolean":
		field.InputType = fieldconfig.InputRadio
		return field, []string{"true", "false"}
	case "string":
		switch schema.Format {
		case "date", "date-time":
			field.InputType = fieldconfig.InputDate
			field.DataType = fieldconfig.DataDate
		default:
			if schema.MaxLength != nil && *schema.MaxLength > 200 {
				// Long free text gets the large control.
				field.InputType = fieldconfig.InputTextarea
			}
		}
	}

	if len(schema.Enum) > 0 {
		field.InputType = fieldconfig.InputDropdown
		var values []string
		for _, item := range schema.Enum {
			values = append(values, fmt.Sprintf("%v", item))
		}
		return field, values
	}
	return field, nil
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// labelFromKey turns a camelCase property name into a spaced, capitalised
// label, the same convention the config sheets use.
func labelFromKey(key string) string {
	var out strings.Builder
	for i, r := range key {
		if i == 0 {
			out.WriteRune(toUpper(r))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			out.WriteByte(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func schemaNames(doc *openapi3.T) []string {
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
