package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps the page size a client may request.
const MaxPerPage = 100

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ParsePagination reads the page and limit query parameters. Missing or invalid
// values fall back to page 1 and defaultPerPage; limit is capped at MaxPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page, perPage = 1, defaultPerPage
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return page, min(perPage, MaxPerPage)
}

// NewPagination builds the metadata for page of a list holding total items.
func NewPagination(page, perPage, total int) Pagination {
	p := Pagination{Page: page, PerPage: perPage, TotalItems: total}
	if perPage > 0 {
		p.TotalPages = (total + perPage - 1) / perPage
	}
	return p
}

// Bounds returns the half-open [start, end) index range of the page, clamped to
// TotalItems.
func (p Pagination) Bounds() (start, end int) {
	start = min(max(p.Page-1, 0)*p.PerPage, p.TotalItems)
	end = min(start+p.PerPage, p.TotalItems)
	return start, end
}
