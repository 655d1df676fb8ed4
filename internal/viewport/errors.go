package viewport

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPreviousPage is returned by PreviousPage on page 1 or before the
	// first load.
	ErrNoPreviousPage = errors.New("no previous page")
	// ErrNoMoreData is returned when a load-more finds neither cached nor
	// server-side items remaining.
	ErrNoMoreData = errors.New("no more data cached or on server")
	// ErrPageJump is returned by MoveToPage outside page-only caching.
	ErrPageJump = errors.New("page jump requires page-only caching")
	// ErrPageOutOfRange is returned by MoveToPage for pages outside
	// [1, totalPages].
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrRecordNotFound is returned by Remove for a record not in the
	// collection.
	ErrRecordNotFound = errors.New("record not in collection")
)

// PaginationError reports a pagination precondition violation. It is fatal
// to the triggering call only; the engine state stays valid.
type PaginationError struct {
	Op   string
	Page int
	Err  error
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("%s (page %d): %v", e.Op, e.Page, e.Err)
}

func (e *PaginationError) Unwrap() error {
	return e.Err
}
