package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultSearchLimit, 0},
		{"limit=10&offset=5", 10, 5},
		{"limit=0", DefaultSearchLimit, 0},
		{"limit=101", MaxSearchLimit, 0},
		{"limit=100&offset=-3", 100, 0},
		{"offset=250000", DefaultSearchLimit, MaxSearchOffset},
		{"limit=abc&offset=xyz", DefaultSearchLimit, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/search?"+tt.query, nil)
		got := ParsePagination(r)
		assert.Equal(t, PaginationParams{Limit: tt.limit, Offset: tt.offset}, got, tt.query)
	}
}
