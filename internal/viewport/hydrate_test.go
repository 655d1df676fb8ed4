package viewport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntrixbase/viewcache/internal/paging"
	"github.com/syntrixbase/viewcache/internal/persist"
	"github.com/syntrixbase/viewcache/internal/persist/memory"
	"github.com/syntrixbase/viewcache/internal/source"
	"github.com/syntrixbase/viewcache/pkg/model"
)

func TestWarmStartFromMirror(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := persist.NewMirror(store, "orders")

	// First life: fetch a page, which mirrors the cache.
	src1 := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("more", 4, rec(1), rec(2)), nil
	}}
	v1, err := New(Options{Source: src1, PageSize: 2, Mirror: mirror})
	require.NoError(t, err)
	require.NoError(t, v1.LoadMore(ctx))

	// Second life, same store: hydration fills the viewport and the
	// follow-up fetch continues where the snapshot left off.
	src2 := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("", 4, rec(3), rec(4)), nil
	}}
	v2, err := New(Options{
		Source:      src2,
		PageSize:    2,
		Mirror:      mirror,
		InitialArgs: map[string]string{"bootstrap": "1"},
	})
	require.NoError(t, err)
	require.NoError(t, v2.LoadMore(ctx))

	require.Len(t, src2.calls, 1)
	assert.Equal(t, 2, src2.calls[0].Page, "hydrated page 1 makes the fetch a load-more")
	assert.NotContains(t, src2.calls[0].Extra, "bootstrap",
		"a hydrated start is not an initial fetch")

	assert.Equal(t, []int{1, 2, 3, 4}, ids(v2.Objects()))
	assert.Equal(t, 2, v2.Pagination().Page)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(v2.Viewport()))
	assert.False(t, v2.Pagination().HasMore)
}

func TestColdStartWithEmptyMirror(t *testing.T) {
	ctx := context.Background()
	mirror := persist.NewMirror(memory.New(), "orders")

	src := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("", 1, rec(1)), nil
	}}
	v, err := New(Options{Source: src, Mirror: mirror})
	require.NoError(t, err)

	require.NoError(t, v.LoadMore(ctx))
	require.Len(t, src.calls, 1)
	assert.Equal(t, 1, src.calls[0].Page, "nothing stored, plain initial fetch")
	assert.Equal(t, []int{1}, ids(v.Objects()))
}

func TestHydrationTriedOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := persist.NewMirror(store, "orders")

	seed, err := New(Options{Source: &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("more", 6, rec(1), rec(2)), nil
	}}, PageSize: 2, Mirror: mirror})
	require.NoError(t, err)
	require.NoError(t, seed.LoadMore(ctx))

	src := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("more", 6, rec(p.Page*2 - 1), rec(p.Page*2)), nil
	}}
	v, err := New(Options{Source: src, PageSize: 2, Mirror: mirror})
	require.NoError(t, err)

	require.NoError(t, v.LoadMore(ctx))
	assert.Equal(t, []int{1, 2, 3, 4}, ids(v.Objects()), "hydrated page plus fetched page")

	require.NoError(t, v.ApplyPoll(ctx))

	// The poll resets pagination to zero; the refetch must be a true
	// initial load, not a second hydration.
	require.Len(t, src.calls, 2)
	assert.Equal(t, 2, src.calls[0].Page)
	assert.Equal(t, 1, src.calls[1].Page)
	assert.Equal(t, []int{1, 2}, ids(v.Objects()))
	assert.Equal(t, 1, v.Pagination().Page)
}

func TestPageJumpDoesNotHydrate(t *testing.T) {
	ctx := context.Background()
	mirror := persist.NewMirror(memory.New(), "orders")
	mirror.Save(ctx, persist.Snapshot{
		Objects:    []model.Record{rec(7), rec(8)},
		Pagination: paging.State{Page: 3, HasMoreOnServer: true},
	})

	src := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		return respPage("more", 6, rec(p.Page*2-1), rec(p.Page*2)), nil
	}}
	v, err := New(Options{Source: src, PageSize: 2, CacheMode: CachePageOnly, Mirror: mirror})
	require.NoError(t, err)

	// A jump to page 1 passes through a zero page counter without being a
	// first load; the stored snapshot must not redirect it.
	require.NoError(t, v.MoveToPage(ctx, 1))

	require.Len(t, src.calls, 1)
	assert.Equal(t, 1, src.calls[0].Page, "the fetch asks for the page the caller asked for")
	assert.Equal(t, []int{1, 2}, ids(v.Viewport()))
	assert.Equal(t, 1, v.Pagination().Page)
}

func TestMirroredSnapshotOmitsSearchOverlay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := persist.NewMirror(store, "orders")

	src := &stubSource{queryFn: func(p source.Params) (*source.Response, error) {
		if p.Search != "" {
			return respPage("", 1, rec(99)), nil
		}
		return respPage("", 2, rec(1), rec(2)), nil
	}}
	v, err := New(Options{Source: src, Mirror: mirror})
	require.NoError(t, err)
	require.NoError(t, v.LoadMore(ctx))
	require.NoError(t, v.Search(ctx, "foo"))

	snap, ok := mirror.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, ids(snap.Objects), "search results never persisted")
	assert.Equal(t, 1, snap.Pagination.Page, "main pagination persisted, not the overlay's")
}
