package shared

import "math"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination computes pagination metadata. Out of range page and limit
// values are clamped.
func NewPagination(page, limit, total int) Pagination {
	page, limit = NormalizePage(page, limit)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// NormalizePage clamps page and limit to usable values.
func NormalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, limit
}

// Offset returns the number of rows to skip for the page.
func Offset(page, limit int) int {
	page, limit = NormalizePage(page, limit)
	return (page - 1) * limit
}
