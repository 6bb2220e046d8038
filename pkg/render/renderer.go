// Package render defines the read-only form view handed to output renderers
// and the registry they are discovered through. Renderers never touch engine
// state; they consume a snapshot.
package render

import (
	"context"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/fieldconfig"
)

// View is a point-in-time snapshot of one module form: the grouped layout,
// the current values, the option lists, and any validation errors to surface
// inline.
type View struct {
	Module  string
	Title   string
	Rows    [][]fieldconfig.FieldDescriptor
	Values  map[string]string
	Options fieldconfig.OptionMap
	Errors  map[string]string
}

// Renderer converts a form view into a byte representation (HTML, plain
// text, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View, options Options) ([]byte, error)
}
