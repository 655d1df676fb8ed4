// Package reconcile resolves incoming records against a cached collection by
// identity and merges them in place, preserving collection order.
package reconcile

import (
	"fmt"

	"github.com/syntrixbase/viewcache/pkg/model"
)

// Comparator decides whether an incoming record matches an existing cached
// record. Optional override for sources whose identity is not a single
// attribute.
type Comparator func(incoming, existing model.Record) bool

// Kind classifies a merge outcome.
type Kind int

const (
	// KindUpdated means the incoming record matched and was merged into an
	// existing record.
	KindUpdated Kind = iota
	// KindNew means the incoming record was inserted.
	KindNew
)

// Outcome reports what Merge did. Target is the record now living in the
// collection (the existing one on update, the incoming one on insert).
type Outcome struct {
	Kind   Kind
	Target model.Record
}

// Reconciler merges incoming records into an ordered collection.
// Reverse flips the insert position for new records so that newest-first
// and newest-last display orders stay consistent.
type Reconciler struct {
	Compare Comparator
	Reverse bool
}

// Resolve returns the index of the cached record matching rec, or -1.
// With a Comparator configured it is called pairwise until true; otherwise
// records match when they agree on rec's identity attribute. O(n) by
// design: collections are in-memory and small.
func (rc *Reconciler) Resolve(rec model.Record, coll []model.Record) int {
	if rc.Compare != nil {
		for i, existing := range coll {
			if rc.Compare(rec, existing) {
				return i
			}
		}
		return -1
	}
	i, _ := ResolveByIdentity(rec, coll)
	return i
}

// ResolveByIdentity matches strictly by identity attribute, ignoring any
// comparator override. Delete events use this form: a comparator tuned for
// update payloads has no say over deletions, and a record with no identity
// attribute is a contract violation worth surfacing.
func ResolveByIdentity(rec model.Record, coll []model.Record) (int, error) {
	key, want, err := rec.Identity()
	if err != nil {
		return -1, err
	}
	for i, existing := range coll {
		if got, ok := existing[key]; ok && equalValues(want, got) {
			return i, nil
		}
	}
	return -1, nil
}

// Merge applies a notifiable merge: an incoming push update either updates
// an existing record in place (bumping its update counter) or is inserted
// as new (marked, at the head unless Reverse). Returns the possibly regrown
// collection and the outcome.
func (rc *Reconciler) Merge(rec model.Record, coll []model.Record) ([]model.Record, Outcome) {
	if i := rc.Resolve(rec, coll); i >= 0 {
		existing := coll[i]
		existing.Extend(rec)
		existing.BumpUpdateCount()
		return coll, Outcome{Kind: KindUpdated, Target: existing}
	}
	rec.MarkNew()
	return rc.Insert(rec, coll), Outcome{Kind: KindNew, Target: rec}
}

// Sync applies the fetch-variant merge: a re-fetched record silently
// extends its cached counterpart with no markers, since a fetch is a
// re-synchronization rather than a notifiable event. New records are
// appended in server order (prepended when Reverse). The second return
// reports whether collection membership changed.
func (rc *Reconciler) Sync(rec model.Record, coll []model.Record) ([]model.Record, bool) {
	if i := rc.Resolve(rec, coll); i >= 0 {
		coll[i].Extend(rec)
		return coll, false
	}
	if rc.Reverse {
		return append([]model.Record{rec}, coll...), true
	}
	return append(coll, rec), true
}

// Insert places a known-new record at the display head: index 0 unless
// Reverse, the tail otherwise.
func (rc *Reconciler) Insert(rec model.Record, coll []model.Record) []model.Record {
	if rc.Reverse {
		return append(coll, rec)
	}
	return append([]model.Record{rec}, coll...)
}

// Remove deletes the record at index i, preserving order.
func Remove(coll []model.Record, i int) []model.Record {
	return append(coll[:i], coll[i+1:]...)
}

// equalValues compares identity values loosely. Fetch payloads decode JSON
// numbers as float64 while in-process records may carry ints; a strict ==
// would treat id 1 and id 1.0 as different records.
func equalValues(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
