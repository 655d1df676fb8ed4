package viewport

import (
	"context"
	"fmt"

	"github.com/syntrixbase/viewcache/internal/reconcile"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// Create asks the remote source for a fresh record, marks it editable and
// puts it at the display head. The reconciler is bypassed: a record the
// server just created cannot already be cached.
func (v *View) Create(ctx context.Context) (model.Record, error) {
	if v.opts.Source == nil {
		return nil, fmt.Errorf("viewport: no source to create records with")
	}
	v.flags.IsCreatingObject = true
	rec, err := v.opts.Source.Create(ctx)
	v.flags.IsCreatingObject = false
	if err != nil {
		return nil, err
	}

	rec.GenerateIDIfEmpty()
	rec.MarkEditable()
	v.flags.EditMode = true

	v.objects = v.rec.Insert(rec, v.objects)
	v.resetViewport()
	v.persist(ctx)
	return rec, nil
}

// Remove deletes a record from the main collection. Asking to remove a
// record that is not cached is a caller bug, reported as
// ErrRecordNotFound.
func (v *View) Remove(ctx context.Context, rec model.Record) error {
	i := v.rec.Resolve(rec, v.objects)
	if i < 0 {
		return ErrRecordNotFound
	}
	v.objects = reconcile.Remove(v.objects, i)
	v.resetViewport()
	v.persist(ctx)
	return nil
}
