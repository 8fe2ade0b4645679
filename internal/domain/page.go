package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 0-based page request
type Page struct {
	Number int
	Size   int
}

// NewPage clamps page parameters to the allowed range
func NewPage(number, size int) Page {
	if number < 0 {
		number = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset of the page
func (p Page) Offset() int {
	return p.Number * p.Size
}

// PageResult is one page of items with the total count
type PageResult[T any] struct {
	Items []T
	Total int64
	Page  Page
}
