package services

// Pagination addresses one page of a listing. Callers clamp Page and PageSize to >= 1.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before this page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages is ceil(total/pageSize); an empty listing has zero pages.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// PageResult is one page of items plus the numbers needed to render a pager.
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResult wraps items fetched for p out of total matches.
func NewPageResult[T any](items []T, total int64, p Pagination) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: TotalPages(total, p.PageSize),
	}
}
