package handler

import (
	"net/http"
	"strconv"
)

// Booking search paging bounds. Limits above the maximum are clamped;
// offsets past MaxSearchOffset are clamped to keep OFFSET scans short.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxSearchOffset    = 10000
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	page := PaginationParams{Limit: DefaultSearchLimit}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		page.Limit = min(limit, MaxSearchLimit)
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		page.Offset = min(offset, MaxSearchOffset)
	}
	return page
}
