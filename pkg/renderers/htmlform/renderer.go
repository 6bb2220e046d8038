// Package htmlform renders a static HTML preview of a module form. The
// output is a plain document for review and printing; submission stays with
// the engine, not the page.
package htmlform

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
	"github.com/harkutabhilash/justpressedinternalapp/pkg/render"
)

// Renderer produces the HTML preview. Every string that originates in a
// spreadsheet cell passes through a strict sanitizer before templating;
// config sheets are editable by anyone in the business.
type Renderer struct {
	policy    *bluemonday.Policy
	templates *template.Template
}

// New constructs the renderer.
func New() (*Renderer, error) {
	templates, err := template.New("form").Parse(formTemplate)
	if err != nil {
		return nil, fmt.Errorf("htmlform: parse form template: %w", err)
	}
	return &Renderer{
		policy:    bluemonday.StrictPolicy(),
		templates: templates,
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the document for one form view.
func (r *Renderer) Render(ctx context.Context, view render.View, options render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := view.Title
	if options.Title != "" {
		title = options.Title
	}

	data := formData{Title: r.policy.Sanitize(title), Module: r.policy.Sanitize(view.Module)}
	for _, row := range view.Rows {
		var cells []fieldData
		for _, field := range row {
			cells = append(cells, r.fieldData(field, view, options))
		}
		data.Rows = append(data.Rows, cells)
	}

	var buf bytes.Buffer
	if err := r.templates.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("htmlform: render %q: %w", view.Module, err)
	}
	return buf.Bytes(), nil
}

type formData struct {
	Title  string
	Module string
	Rows   [][]fieldData
}

type fieldData struct {
	Key         string
	Label       string
	Placeholder string
	Control     string
	Value       string
	Options     []optionData
	Required    bool
	Disabled    bool
	Error       string
}

type optionData struct {
	Value    string
	Selected bool
}

func (r *Renderer) fieldData(field fieldconfig.FieldDescriptor, view render.View, options render.Options) fieldData {
	value := ""
	if options.IncludeValues {
		value = view.Values[field.Key]
	}

	out := fieldData{
		Key:         field.Key,
		Label:       r.policy.Sanitize(field.DisplayLabel()),
		Placeholder: r.policy.Sanitize(field.Placeholder),
		Control:     controlFor(field.InputType),
		Value:       r.policy.Sanitize(value),
		Required:    field.IsRequired,
		Disabled:    field.IsDisabled,
		Error:       r.policy.Sanitize(view.Errors[field.Key]),
	}
	for _, option := range view.Options[field.Key] {
		clean := r.policy.Sanitize(option)
		out.Options = append(out.Options, optionData{
			Value:    clean,
			Selected: options.IncludeValues && option == value,
		})
	}
	return out
}

func controlFor(input fieldconfig.InputType) string {
	switch input {
	case fieldconfig.InputDropdown:
		return "select"
	case fieldconfig.InputRadio:
		return "radio"
	case fieldconfig.InputTextarea:
		return "textarea"
	case fieldconfig.InputDate:
		return "date"
	case fieldconfig.InputNumber:
		return "number"
	default:
		return "text"
	}
}

const formTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<form class="module-form" data-module="{{.Module}}">
<h1>{{.Title}}</h1>
{{- range .Rows}}
<div class="form-row">
{{- range .}}
<div class="form-field{{if .Error}} has-error{{end}}">
<label for="{{.Key}}">{{.Label}}{{if .Required}} *{{end}}</label>
{{- if eq .Control "select"}}
<select id="{{.Key}}" name="{{.Key}}"{{if .Disabled}} disabled{{end}}>
<option value=""></option>
{{- range .Options}}
<option{{if .Selected}} selected{{end}}>{{.Value}}</option>
{{- end}}
</select>
{{- else if eq .Control "radio"}}
{{- $field := .}}
{{- range .Options}}
<label><input type="radio" name="{{$field.Key}}" value="{{.Value}}"{{if .Selected}} checked{{end}}{{if $field.Disabled}} disabled{{end}}> {{.Value}}</label>
{{- end}}
{{- else if eq .Control "textarea"}}
<textarea id="{{.Key}}" name="{{.Key}}" placeholder="{{.Placeholder}}"{{if .Disabled}} disabled{{end}}>{{.Value}}</textarea>
{{- else}}
<input type="{{.Control}}" id="{{.Key}}" name="{{.Key}}" value="{{.Value}}" placeholder="{{.Placeholder}}"{{if .Disabled}} disabled{{end}}>
{{- end}}
{{- if .Error}}
<span class="field-error">{{.Error}}</span>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}
</form>
</body>
</html>
`
