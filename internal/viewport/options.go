package viewport

import (
	"fmt"

	"github.com/syntrixbase/viewcache/internal/persist"
	"github.com/syntrixbase/viewcache/internal/reconcile"
	"github.com/syntrixbase/viewcache/internal/source"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// CacheMode selects how much fetched history the main collection retains.
type CacheMode int

const (
	// CacheFull keeps every fetched record, allowing backward navigation
	// and load-more page advances without refetching.
	CacheFull CacheMode = iota
	// CachePageOnly retains only the most recently fetched page; any
	// navigation is a new fetch, and page jumps become legal.
	CachePageOnly
)

func (m CacheMode) String() string {
	switch m {
	case CacheFull:
		return "full"
	case CachePageOnly:
		return "page-only"
	default:
		return fmt.Sprintf("CacheMode(%d)", int(m))
	}
}

// ParseCacheMode parses the configuration spelling of a cache mode.
func ParseCacheMode(s string) (CacheMode, error) {
	switch s {
	case "", "full":
		return CacheFull, nil
	case "page-only":
		return CachePageOnly, nil
	default:
		return CacheFull, fmt.Errorf("unknown cache mode %q", s)
	}
}

// Hooks are the optional embedder extension points. Embed NoopHooks and
// override what you need.
type Hooks interface {
	// PreProcessUpdate may transform or filter a pushed record batch
	// before reconciliation. Returning an empty slice aborts the batch.
	PreProcessUpdate(event string, recs []model.Record) []model.Record

	// FirstFetchFinished fires once, after the first successful foreground
	// fetch.
	FirstFetchFinished()

	// QueryArgs contributes extra query parameters per fetch.
	QueryArgs(initial bool) map[string]string
}

// NoopHooks is the default Hooks implementation.
type NoopHooks struct{}

func (NoopHooks) PreProcessUpdate(_ string, recs []model.Record) []model.Record { return recs }
func (NoopHooks) FirstFetchFinished()                                           {}
func (NoopHooks) QueryArgs(bool) map[string]string                              { return nil }

// Options configure a View. Immutable after construction.
type Options struct {
	// Source is the remote data source. Required unless LocalOnly.
	Source source.Source

	// Mirror persists the cache for warm starts. Nil disables persistence.
	Mirror *persist.Mirror

	// PageSize is the viewport page length; 0 means the viewport mirrors
	// the whole active collection ("load more" mode).
	PageSize int

	// Reverse flips display order: new records insert at the tail and
	// slicing works from the end.
	Reverse bool

	// CacheMode selects full-history or page-only caching.
	CacheMode CacheMode

	// Bidirectional allows cached backward navigation: the viewport covers
	// exactly one page instead of growing from the start.
	Bidirectional bool

	// QueryArgs are sent with every fetch; InitialArgs only with the first.
	QueryArgs   map[string]string
	InitialArgs map[string]string

	// AutoSearch keeps the current viewport visible while a search term is
	// being retyped, for callers re-triggering Search per keystroke.
	AutoSearch bool

	// NotifyUpdates includes matched (not only new) records in the
	// notifiable result of ApplyUpdates.
	NotifyUpdates bool

	// LocalOnly disables server fetches entirely: the viewport is driven
	// by pushed and locally created records.
	LocalOnly bool

	// Compare overrides identity-attribute matching during reconciliation.
	Compare reconcile.Comparator

	// Sort, when set, keeps the main collection sorted on every viewport
	// recomputation.
	Sort func(a, b model.Record) bool

	// UpdateFilter is a CEL expression over `record`; pushed updates
	// failing it are dropped before PreProcessUpdate runs.
	UpdateFilter string

	// Hooks are the embedder extension points; nil means NoopHooks.
	Hooks Hooks
}
