// Package viewport implements the cached, ordered view of records fetched
// from a paginated remote source: the canonical collections, the displayed
// slice, pagination state, push-event reconciliation, a search overlay and
// an optional persistence mirror.
//
// A View is deliberately not safe for concurrent use. All mutation entry
// points run to completion before yielding and must be serialized by the
// caller (events.Binder does this for push events). Fetch responses applied
// from concurrent dispatchers may interleave in any order; the stale-search
// guard is the only defense, per the remote contract.
package viewport

import (
	"fmt"
	"log/slog"

	"github.com/syntrixbase/viewcache/internal/filter"
	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/internal/reconcile"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// Push event names seen by the PreProcessUpdate hook.
const (
	EventUpdate = "update"
	EventDelete = "delete"
)

// Flags is the mutable presentation state.
type Flags struct {
	IsLoading        bool
	IsLoadingMore    bool
	IsCreatingObject bool
	IsSearching      bool
	EditMode         bool
}

// IsSearchDone reports a settled search: searching and not loading.
func (f Flags) IsSearchDone() bool {
	return f.IsSearching && !f.IsLoading
}

// View owns the cached collections and everything derived from them.
type View struct {
	opts         Options
	hooks        Hooks
	rec          reconcile.Reconciler
	updateFilter *filter.Filter
	log          *slog.Logger

	objects       []model.Record
	searchResults []model.Record
	viewport      []model.Record

	pagination      paging.State
	savedPagination paging.State
	hasSnapshot     bool

	flags      Flags
	searchText string
	serverMeta map[string]any

	firstFetchDone bool
	hydrateTried   bool
}

// New creates a View. The returned View has an empty viewport; call
// LoadMore (or push records at it) to populate it.
func New(opts Options) (*View, error) {
	if opts.Source == nil && !opts.LocalOnly {
		return nil, fmt.Errorf("viewport: a Source is required unless LocalOnly is set")
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("viewport: negative page size %d", opts.PageSize)
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = NoopHooks{}
	}
	var updateFilter *filter.Filter
	if opts.UpdateFilter != "" {
		compiler, err := filter.NewCompiler()
		if err != nil {
			return nil, err
		}
		updateFilter, err = compiler.Compile(opts.UpdateFilter)
		if err != nil {
			return nil, fmt.Errorf("viewport: %w", err)
		}
	}
	return &View{
		opts:         opts,
		hooks:        hooks,
		rec:          reconcile.Reconciler{Compare: opts.Compare, Reverse: opts.Reverse},
		updateFilter: updateFilter,
		log:          slog.Default(),
		pagination:   paging.Empty(),
		serverMeta:   map[string]any{},
	}, nil
}

// Viewport returns the displayed slice. The records are shared; the slice
// is a copy.
func (v *View) Viewport() []model.Record {
	return append([]model.Record(nil), v.viewport...)
}

// Pagination returns the live pagination state.
func (v *View) Pagination() paging.State {
	return v.pagination
}

// Flags returns the presentation flags.
func (v *View) Flags() Flags {
	return v.flags
}

// SetEditMode toggles the edit-mode flag.
func (v *View) SetEditMode(on bool) {
	v.flags.EditMode = on
}

// SearchText returns the active search term, empty outside search mode.
func (v *View) SearchText() string {
	return v.searchText
}

// ServerMeta returns a copy of the envelope metadata accumulated from fetch
// responses.
func (v *View) ServerMeta() map[string]any {
	out := make(map[string]any, len(v.serverMeta))
	for k, val := range v.serverMeta {
		out[k] = val
	}
	return out
}

// Objects returns a copy of the main collection, mostly for tests and
// diagnostics; presentation reads Viewport.
func (v *View) Objects() []model.Record {
	return append([]model.Record(nil), v.objects...)
}

// activeCollection is the collection the viewport is sliced from.
func (v *View) activeCollection() []model.Record {
	if v.flags.IsSearching {
		return v.searchResults
	}
	return v.objects
}

// clearLoading drops both loading flags. Hydration can turn an initial
// fetch into a load-more mid-flight, so completion clears unconditionally.
func (v *View) clearLoading() {
	v.flags.IsLoading = false
	v.flags.IsLoadingMore = false
}
