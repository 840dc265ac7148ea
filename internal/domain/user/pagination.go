package user

import "math"

// Pagination represents pagination information for list responses.
type Pagination struct {
	CurrentPage  int64 // Current page number (1-based)
	TotalPages   int64 // Total number of pages, 0 when nothing matches
	TotalItems   int64 // Number of rows matching the filter, ignoring limit and offset
	ItemsPerPage int64 // Page size used for the query
	HasNextPage  bool
	HasPrevPage  bool
}

// NewPagination creates a new Pagination instance with calculated total pages.
func NewPagination(totalItems, page, limit int64) *Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (totalItems + limit - 1) / limit
	}

	return &Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: limit,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
}

// Offset returns the number of rows to skip for a 1-based page.
// Pages whose offset does not fit in an int64 get math.MaxInt64, which lies past every row.
func Offset(page, limit int64) int64 {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return (page - 1) * limit
}
