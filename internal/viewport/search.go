package viewport

import (
	"context"

	"github.com/syntrixbase/viewcache/internal/paging"
)

// Search enters (or re-enters) search mode for term and loads page 1 of
// the search results. An empty term is a clear.
//
// The pre-search pagination is snapshotted on first entry and restored by
// ClearSearch. In AutoSearch mode the current viewport stays visible while
// the term is retyped; otherwise it is blanked until results arrive.
func (v *View) Search(ctx context.Context, term string) error {
	if term == "" {
		v.ClearSearch()
		return nil
	}
	if !v.flags.IsSearching {
		v.savedPagination = v.pagination
		v.hasSnapshot = true
		v.flags.IsSearching = true
	}
	v.searchText = term
	if !v.opts.AutoSearch {
		v.viewport = nil
	}
	v.pagination = paging.Empty()
	v.flags.IsLoading = true
	return v.loadFromServer(ctx, loadOptions{})
}

// ClearSearch leaves search mode: flags and term reset, the pre-search
// pagination restored, the search collection discarded, and the viewport
// re-sliced from the main collection.
func (v *View) ClearSearch() {
	v.flags.IsSearching = false
	v.searchText = ""
	v.searchResults = nil
	if v.hasSnapshot {
		v.pagination = v.savedPagination
		v.hasSnapshot = false
	}
	v.resetViewport()
}
