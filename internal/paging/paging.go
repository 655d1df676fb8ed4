// Package paging holds the pagination state shared between the viewport
// engine and the presentation layer, plus the pure index arithmetic used by
// the viewport slicer.
package paging

// State is the pagination state observed by the presentation layer.
// FirstItemIndex and LastItemIndex are 1-based; both are 0 when the
// viewport is empty.
type State struct {
	Page            int  `json:"page"`
	HasMore         bool `json:"hasMore"`
	HasMoreOnServer bool `json:"hasMoreOnServer"`
	HasPrevious     bool `json:"hasPrevious"`
	TotalPages      int  `json:"totalPages"`
	TotalResults    int  `json:"totalResults"`
	FirstItemIndex  int  `json:"firstItemIndex"`
	LastItemIndex   int  `json:"lastItemIndex"`
}

// Empty returns the reset template applied before a fresh load. Nothing has
// been fetched yet, so the server is assumed to have more.
func Empty() State {
	return State{HasMoreOnServer: true}
}

// TotalPages returns ceil(totalResults / pageSize), 0 when unpaginated.
func TotalPages(totalResults, pageSize int) int {
	if pageSize <= 0 || totalResults <= 0 {
		return 0
	}
	return (totalResults + pageSize - 1) / pageSize
}

// Bounds returns the half-open slice bounds [start, end) of the given page
// within a cached collection of the given length. In bidirectional mode the
// slice covers exactly one page; otherwise it grows from the start so that
// backward navigation never needs a refetch.
func Bounds(page, pageSize, length int, bidirectional bool) (start, end int) {
	if page < 1 || pageSize <= 0 {
		return 0, 0
	}
	end = pageSize * page
	if end > length {
		end = length
	}
	if bidirectional {
		start = pageSize * (page - 1)
		if start > end {
			start = end
		}
	}
	return start, end
}

// PageOnlyIndices returns the 1-based first/last display indices for
// page-only caching, where the cache holds just the current page and the
// absolute position is derived arithmetically.
func PageOnlyIndices(page, pageSize, count int) (first, last int) {
	if count == 0 || page < 1 || pageSize <= 0 {
		return 0, 0
	}
	first = pageSize*(page-1) + 1
	last = first + count - 1
	return first, last
}
