// Package source defines the remote data source contract the viewport
// engine fetches from, and an HTTP implementation of it.
package source

import (
	"context"
	"fmt"

	"github.com/syntrixbase/viewcache/pkg/model"
)

// CountUnreported marks a Response whose payload did not carry a total
// count (bare-array payloads).
const CountUnreported = -1

// Params are the query parameters for a page fetch. Extra carries the
// caller-configured persistent and first-fetch-only arguments verbatim.
type Params struct {
	Page   int               `schema:"page"`
	Search string            `schema:"search,omitempty"`
	Extra  map[string]string `schema:"-"`
}

// Response is a normalized query result. Raw payloads (a bare JSON array)
// have no cursor and Count == CountUnreported. Envelope payloads carry the
// item array under a configured attribute; every other envelope field ends
// up in Meta.
type Response struct {
	Items []model.Record
	Next  string
	Count int
	Meta  map[string]any
	Raw   bool
}

// Source is the remote request/response service the engine is a client of.
// Both calls block until the server answers; cancellation is the context's.
type Source interface {
	// Query fetches one page of records.
	Query(ctx context.Context, p Params) (*Response, error)

	// Create asks the server to create a fresh record and returns it.
	Create(ctx context.Context) (model.Record, error)
}

// StatusError is returned for non-2xx responses from an HTTP source.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote source returned status %d: %s", e.Code, e.Body)
}
