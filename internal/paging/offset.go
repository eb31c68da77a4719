package paging

import "math"

// OffsetPage is one numbered page of a snapshot.
type OffsetPage[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
	HasNext  bool
	HasPrev  bool
	BaseLink string
}

// Paginate slices page pageNumber (1-based) of pageSize items out of items.
// A pageSize below 1 is treated as 1 and a pageNumber below 1 as 1. Pages
// past the end are empty.
func Paginate[T any](items []T, pageNumber, pageSize int, baseLink string) OffsetPage[T] {
	pageSize = max(pageSize, 1)
	pageNumber = max(pageNumber, 1)
	total := len(items)

	start := total
	if pageNumber-1 <= (math.MaxInt-1)/pageSize {
		start = min((pageNumber-1)*pageSize, total)
	}
	end := total
	if start <= math.MaxInt-pageSize {
		end = min(start+pageSize, total)
	}

	page := make([]T, end-start)
	copy(page, items[start:end])

	return OffsetPage[T]{
		Items:    page,
		Total:    total,
		Page:     pageNumber,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  pageNumber > 1,
		BaseLink: baseLink,
	}
}
