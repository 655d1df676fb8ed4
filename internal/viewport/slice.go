package viewport

import (
	"sort"

	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// resetViewport recomputes the displayed slice and the derived pagination
// fields from the active collection. Every mutation that can change what
// the user sees funnels through here.
func (v *View) resetViewport() {
	if v.opts.Sort != nil {
		sort.SliceStable(v.objects, func(i, j int) bool {
			return v.opts.Sort(v.objects[i], v.objects[j])
		})
	}

	active := v.activeCollection()
	pg := &v.pagination
	pg.TotalPages = paging.TotalPages(pg.TotalResults, v.opts.PageSize)

	switch {
	case v.opts.CacheMode == CachePageOnly:
		// The collection already holds exactly the current page.
		v.viewport = copyRecords(active)
		pg.FirstItemIndex, pg.LastItemIndex = paging.PageOnlyIndices(
			pg.Page, v.opts.PageSize, len(v.viewport))

	case v.opts.PageSize <= 0:
		// Unpaginated "load more" mode mirrors the whole collection.
		v.viewport = copyRecords(active)
		if n := len(v.viewport); n > 0 {
			pg.FirstItemIndex, pg.LastItemIndex = 1, n
		} else {
			pg.FirstItemIndex, pg.LastItemIndex = 0, 0
		}

	default:
		arr := copyRecords(active)
		if v.opts.Reverse {
			reverseRecords(arr)
		}
		start, end := paging.Bounds(pg.Page, v.opts.PageSize, len(arr), v.opts.Bidirectional)
		slice := append([]model.Record(nil), arr[start:end]...)
		moreCached := end < len(arr)
		if v.opts.Reverse {
			reverseRecords(slice)
		}
		v.viewport = slice

		pg.HasMore = pg.HasMoreOnServer || moreCached
		switch {
		case len(slice) == 0:
			pg.FirstItemIndex, pg.LastItemIndex = 0, 0
		case v.opts.Reverse:
			// Positions within the unreversed collection.
			pg.FirstItemIndex = len(arr) - end + 1
			pg.LastItemIndex = len(arr) - start
		default:
			pg.FirstItemIndex = start + 1
			pg.LastItemIndex = end
		}
	}
}

func copyRecords(recs []model.Record) []model.Record {
	return append([]model.Record(nil), recs...)
}

func reverseRecords(recs []model.Record) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}
