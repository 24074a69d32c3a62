package handlers

import (
	"net/http"
	"strconv"
)

// Raw-record paging limits. A dataset row is small, so the cap is generous;
// clients wanting the whole file use the export endpoint instead.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// PaginationParams is the parsed limit/offset pair of a listing request.
type PaginationParams struct {
	Limit  int
	Offset int
}

// PaginatedResponse wraps one page of items with the paging state and the
// total row count, so clients can render page controls without a second
// request.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ParsePagination reads the limit and offset query parameters. Values that
// are missing, unparseable or out of range fall back silently: defaultLimit
// (capped at MaxLimit) and offset 0.
func ParsePagination(r *http.Request, defaultLimit int) PaginationParams {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	limit := defaultLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > MaxLimit {
				limit = MaxLimit
			}
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return PaginationParams{Limit: limit, Offset: offset}
}
