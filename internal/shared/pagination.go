package shared

import (
	"net/http"
	"strconv"
)

// DefaultPageSize bounds list endpoints that do not ask for a limit.
const DefaultPageSize = 50

// MaxPageSize is the hard ceiling for a single page.
const MaxPageSize = 500

// Page holds limit/offset parameters for list queries.
type Page struct {
	Limit  int
	Offset int
}

// PageFromRequest reads limit/offset query parameters with sane bounds.
func PageFromRequest(r *http.Request) Page {
	page := Page{Limit: DefaultPageSize}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page.Limit = parsed
		}
	}
	if page.Limit > MaxPageSize {
		page.Limit = MaxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			page.Offset = parsed
		}
	}
	return page
}
