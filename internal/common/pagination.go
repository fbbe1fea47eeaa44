package common

import "net/http"

// Pagination is the metadata block list endpoints return next to "data".
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParsePagination reads ?page and ?limit, falling back to page 1 and the
// endpoint's default page size. Handlers cap perPage themselves.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = AtoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage = AtoiDefault(q.Get("limit"), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}
