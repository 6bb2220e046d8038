// Package paginate slices bulk datasets into pages on the client side.
package paginate

// Row is one master-data record as it arrives from the backend.
type Row = map[string]any

// Window is a derived view over a row set; it is recomputed whenever the
// page, limit, or underlying rows change, never stored.
type Window struct {
	Slice []Row
	Page  int
	Limit int
	Total int
	Pages int
}

// Paginate returns the window for one page. It is pure and safe for any
// page value: out-of-range pages yield an empty slice, and pages is always
// at least 1. Callers clamp page to [1, Pages] before display.
func Paginate(rows []Row, page, limit int) Window {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	total := len(rows)
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return Window{
		Slice: rows[start:end],
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}
