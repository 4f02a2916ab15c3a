package domain

// Paging defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

// Normalize applies defaults and bounds.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

// Page is a slice of results with totals.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// Paginate cuts the requested page out of items, which must already be sorted.
func Paginate[T any](items []T, req PageRequest) Page[T] {
	req = req.Normalize()
	start := len(items)
	if req.Page <= len(items)/req.Size {
		start = req.Page * req.Size
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + req.Size
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, Page: req.Page, Size: req.Size, Total: len(items)}
}
