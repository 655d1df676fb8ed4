package viewport

import (
	"context"

	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/internal/reconcile"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// ApplyUpdates merges a pushed record batch into the main collection and
// returns the records that should trigger a user notification: every new
// record, plus every matched one when NotifyUpdates is configured.
//
// While searching, the displayed search results are left alone: the main
// collection is updated underneath and only re-sliced when membership or
// ordering changed (a new record, or a sort comparator in play).
func (v *View) ApplyUpdates(ctx context.Context, recs []model.Record) []model.Record {
	recs = v.updateFilter.Apply(recs)
	recs = v.hooks.PreProcessUpdate(EventUpdate, recs)
	if len(recs) == 0 {
		return nil
	}

	var notifiable []model.Record
	anyNew := false
	for _, rec := range recs {
		var out reconcile.Outcome
		v.objects, out = v.rec.Merge(rec, v.objects)
		switch {
		case out.Kind == reconcile.KindNew:
			anyNew = true
			notifiable = append(notifiable, out.Target)
		case v.opts.NotifyUpdates:
			notifiable = append(notifiable, out.Target)
		}
	}

	if !v.flags.IsSearching || anyNew || v.opts.Sort != nil {
		v.resetViewport()
	}
	v.persist(ctx)
	return notifiable
}

// ApplyDeletes removes the pushed records from the main collection by
// identity. A record not present is a no-op; a record with no identity
// attribute is an error.
func (v *View) ApplyDeletes(ctx context.Context, recs []model.Record) error {
	recs = v.hooks.PreProcessUpdate(EventDelete, recs)
	// Validate the whole batch before touching the collection. Bailing out
	// mid-removal would leave the viewport and mirror showing records the
	// collection no longer holds.
	for _, rec := range recs {
		if _, _, err := rec.Identity(); err != nil {
			return err
		}
	}
	removed := false
	for _, rec := range recs {
		i, _ := reconcile.ResolveByIdentity(rec, v.objects)
		if i >= 0 {
			v.objects = reconcile.Remove(v.objects, i)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	if !v.flags.IsSearching {
		v.resetViewport()
	}
	v.persist(ctx)
	return nil
}

// ApplyPoll handles a server-initiated "something changed" signal: reset
// pagination and reload from scratch. Push-triggered, so the reload skips
// the loading indicators.
func (v *View) ApplyPoll(ctx context.Context) error {
	if v.flags.IsSearching {
		v.savedPagination = paging.Empty()
	} else {
		v.pagination = paging.Empty()
	}
	return v.refresh(ctx, true)
}
