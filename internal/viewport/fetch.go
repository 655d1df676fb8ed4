package viewport

import (
	"context"

	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/internal/persist"
	"github.com/syntrixbase/viewcache/internal/source"
)

type loadOptions struct {
	background bool
	// hydrate allows the persisted-bootstrap snapshot to be layered in.
	// Only the initial foreground load sets it; page jumps and previous-page
	// refetches pass through Page == 0 without being a first load.
	hydrate bool
}

type ingestOptions struct {
	initial    bool
	background bool
}

// LoadMore loads the next page into the viewport: from cache when the full
// cache already holds it, from the server otherwise.
func (v *View) LoadMore(ctx context.Context) error {
	return v.requestMore(ctx, false)
}

// NextPage is LoadMore under the name the presentation layer uses for
// paginated controls.
func (v *View) NextPage(ctx context.Context) error {
	return v.requestMore(ctx, false)
}

func (v *View) requestMore(ctx context.Context, hideLoading bool) error {
	isInitial := v.pagination.Page == 0
	if !hideLoading {
		if isInitial {
			v.flags.IsLoading = true
		} else {
			v.flags.IsLoadingMore = true
		}
	}

	if v.opts.PageSize > 0 && v.opts.CacheMode == CacheFull && !isInitial {
		active := v.activeCollection()
		upper := v.opts.PageSize * (v.pagination.Page + 1)
		switch {
		case upper > len(active) && v.pagination.HasMoreOnServer:
			return v.loadFromServer(ctx, loadOptions{})
		case len(active) > v.opts.PageSize*v.pagination.Page:
			// The next page is already cached; no network needed.
			v.pagination.Page++
			v.pagination.HasPrevious = v.pagination.Page > 1
			v.resetViewport()
			v.clearLoading()
			v.persist(ctx)
			return nil
		default:
			v.clearLoading()
			return &PaginationError{Op: "loadMore", Page: v.pagination.Page, Err: ErrNoMoreData}
		}
	}

	if v.opts.LocalOnly {
		if v.pagination.Page == 0 {
			v.pagination.Page = 1
		}
		v.clearLoading()
		v.resetViewport()
		v.persist(ctx)
		return nil
	}

	return v.loadFromServer(ctx, loadOptions{hydrate: isInitial})
}

// Refresh drops pagination and reloads page 1. When searching it first
// clears the search overlay, so the reload targets the main collection.
func (v *View) Refresh(ctx context.Context) error {
	return v.refresh(ctx, false)
}

func (v *View) refresh(ctx context.Context, hideLoading bool) error {
	if v.flags.IsSearching {
		v.ClearSearch()
	}
	v.pagination = paging.Empty()
	return v.requestMore(ctx, hideLoading)
}

// BackgroundRefresh reloads page 1 of the main collection without
// disturbing the displayed viewport. When a search overlay is active this
// keeps the underlying cache warm; otherwise it is a plain Refresh.
func (v *View) BackgroundRefresh(ctx context.Context) error {
	if !v.flags.IsSearching {
		return v.Refresh(ctx)
	}
	v.savedPagination = paging.Empty()
	return v.loadFromServer(ctx, loadOptions{background: true})
}

// PreviousPage steps one page back. With a full cache this is purely
// local; in page-only mode the previous page must be refetched.
func (v *View) PreviousPage(ctx context.Context) error {
	if v.pagination.Page <= 1 {
		return &PaginationError{Op: "previousPage", Page: v.pagination.Page, Err: ErrNoPreviousPage}
	}
	if v.opts.CacheMode == CacheFull {
		v.pagination.Page--
		v.pagination.HasPrevious = v.pagination.Page > 1
		v.resetViewport()
		v.persist(ctx)
		return nil
	}
	return v.fetchPage(ctx, v.pagination.Page-1)
}

// MoveToPage jumps to an arbitrary page. Only legal in page-only mode:
// a full cache is built strictly forward.
func (v *View) MoveToPage(ctx context.Context, n int) error {
	if v.opts.CacheMode != CachePageOnly {
		return &PaginationError{Op: "moveToPage", Page: n, Err: ErrPageJump}
	}
	if n < 1 || (v.pagination.TotalPages > 0 && n > v.pagination.TotalPages) {
		return &PaginationError{Op: "moveToPage", Page: n, Err: ErrPageOutOfRange}
	}
	return v.fetchPage(ctx, n)
}

func (v *View) fetchPage(ctx context.Context, n int) error {
	v.flags.IsLoading = true
	v.pagination.Page = n - 1
	return v.loadFromServer(ctx, loadOptions{})
}

func (v *View) loadFromServer(ctx context.Context, lo loadOptions) error {
	// Persisted bootstrap: before the very first foreground fetch of the
	// main collection, layer in the warm snapshot. The network fetch then
	// proceeds on top as a load-more over the hydrated pages.
	if lo.hydrate && !v.hydrateTried && v.opts.Mirror != nil &&
		!v.flags.IsSearching && v.pagination.Page == 0 {
		v.hydrateTried = true
		if snap, ok := v.opts.Mirror.Load(ctx); ok {
			v.applySnapshot(snap)
		}
	}

	pg := v.ingestTarget(lo.background)
	isInitial := pg.Page == 0

	if v.opts.Source == nil {
		v.clearLoading()
		return nil
	}

	params := source.Params{Page: pg.Page + 1, Extra: map[string]string{}}
	for k, val := range v.opts.QueryArgs {
		params.Extra[k] = val
	}
	if isInitial {
		for k, val := range v.opts.InitialArgs {
			params.Extra[k] = val
		}
	}
	for k, val := range v.hooks.QueryArgs(isInitial) {
		params.Extra[k] = val
	}

	searching := v.flags.IsSearching && !lo.background
	term := v.searchText
	if searching {
		params.Search = term
	}

	resp, err := v.opts.Source.Query(ctx, params)
	if err != nil {
		v.clearLoading()
		return err
	}

	if searching && term != v.searchText {
		// A different search started while this request was in flight;
		// its response has nowhere to go. Defined no-op, but the flags must
		// not stay stuck: a ClearSearch supersession leaves no later fetch
		// to drop them.
		v.clearLoading()
		v.log.Debug("stale search response discarded",
			"dispatched", term, "current", v.searchText)
		return nil
	}

	v.ingest(ctx, resp, ingestOptions{
		initial:    isInitial,
		background: lo.background,
	})
	return nil
}

// ingestTarget picks the pagination a fetch result lands in: the saved
// main-collection snapshot for background refreshes during search, the
// live state otherwise.
func (v *View) ingestTarget(background bool) *paging.State {
	if background && v.flags.IsSearching {
		return &v.savedPagination
	}
	return &v.pagination
}

func (v *View) ingest(ctx context.Context, resp *source.Response, io ingestOptions) {
	pg := v.ingestTarget(io.background)
	pg.Page++
	pg.HasPrevious = pg.Page > 1
	pg.HasMore = resp.Next != ""
	pg.HasMoreOnServer = pg.HasMore
	if resp.Count != source.CountUnreported {
		pg.TotalResults = resp.Count
	}

	for k, val := range resp.Meta {
		v.serverMeta[k] = val
	}

	if !v.flags.IsSearching || io.background {
		if io.initial || v.opts.CacheMode == CachePageOnly {
			v.objects = nil
		}
		for _, rec := range resp.Items {
			v.objects, _ = v.rec.Sync(rec, v.objects)
		}
		if resp.Count == source.CountUnreported {
			pg.TotalResults = len(v.objects)
		}
	} else {
		// Search results are a server-side answer to a term; they are
		// appended verbatim, with no reconciliation against each other.
		if io.initial {
			v.searchResults = nil
		}
		v.searchResults = append(v.searchResults, resp.Items...)
		if resp.Count == source.CountUnreported {
			pg.TotalResults = len(v.searchResults)
		}
	}

	if !io.background {
		v.resetViewport()
	}
	v.clearLoading()

	if !v.firstFetchDone && !io.background {
		v.firstFetchDone = true
		v.hooks.FirstFetchFinished()
	}

	v.persist(ctx)
}

// applySnapshot ingests a persisted snapshot as a background,
// non-incrementing update: the hydrated page counter makes the following
// network fetch a non-initial load layered on top.
func (v *View) applySnapshot(snap *persist.Snapshot) {
	for _, rec := range snap.Objects {
		v.objects, _ = v.rec.Sync(rec, v.objects)
	}
	v.pagination = snap.Pagination
	for k, val := range snap.Meta {
		v.serverMeta[k] = val
	}
	v.resetViewport()
	v.log.Info("viewport hydrated from persisted cache",
		"records", len(snap.Objects), "page", snap.Pagination.Page)
}

// persist mirrors the main collection and its pagination. Nil-mirror safe;
// never fails the calling mutation.
func (v *View) persist(ctx context.Context) {
	if v.opts.Mirror == nil {
		return
	}
	pg := v.pagination
	if v.flags.IsSearching {
		pg = v.savedPagination
	}
	v.opts.Mirror.Save(ctx, persist.Snapshot{
		Objects:    v.objects,
		Pagination: pg,
		Meta:       v.serverMeta,
	})
}
