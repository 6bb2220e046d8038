package render

// Options describe per-request data renderers can use to customise their
// output without mutating the view.
type Options struct {
	// Title overrides the view's own title when non-empty.
	Title string
	// IncludeValues asks the renderer to pre-populate controls from the
	// view's current values instead of rendering a blank form.
	IncludeValues bool
}
