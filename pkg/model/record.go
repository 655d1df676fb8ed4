package model

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Reserved keys managed by the engine. They live inside the record bag so
// the presentation layer can read them without a side table.
const (
	KeyIsNew       = "isNew"
	KeyUpdateCount = "updateCount"
	KeyEditable    = "editable"
)

// Record is a user facing record type, represents a JSON object.
//
//	"isNew" field is reserved: true once a record first arrives via a push
//	update, never cleared.
//	"updateCount" field is reserved: number of push updates that matched
//	this record, absent until the first match.
//	"editable" field is reserved: set on locally created records.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IdentityKey returns the record's identity attribute name: the first key,
// in lexicographic order, whose name contains "id" (case-insensitive).
// Map iteration order is randomized in Go, so candidates are sorted to keep
// the choice stable across calls.
func (r Record) IdentityKey() (string, bool) {
	keys := make([]string, 0, len(r))
	for k := range r {
		if isReservedKey(k) {
			continue
		}
		if strings.Contains(strings.ToLower(k), "id") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	// Prefer an exact "id" key when present.
	for _, k := range keys {
		if strings.EqualFold(k, "id") {
			return k, true
		}
	}
	return keys[0], true
}

// Identity returns the identity attribute name and value.
// Returns ErrMissingIdentity when the record carries no identity attribute.
func (r Record) Identity() (string, any, error) {
	key, ok := r.IdentityKey()
	if !ok {
		return "", nil, ErrMissingIdentity
	}
	return key, r[key], nil
}

// MarkNew flags the record as first observed via a push update.
// The flag is set once and never cleared.
func (r Record) MarkNew() {
	r[KeyIsNew] = true
}

// IsNew reports whether the record was first observed via a push update.
func (r Record) IsNew() bool {
	v, _ := r[KeyIsNew].(bool)
	return v
}

// BumpUpdateCount increments the push-update counter and returns the new
// value. The counter starts unset; the first bump yields 1.
func (r Record) BumpUpdateCount() int {
	n := r.UpdateCount() + 1
	r[KeyUpdateCount] = n
	return n
}

// UpdateCount returns the push-update counter, 0 when unset. Handles both
// int (in-process bumps) and float64 (counters rehydrated from JSON).
func (r Record) UpdateCount() int {
	switch n := r[KeyUpdateCount].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Extend copies all of other's fields into r, overwriting on conflict.
// Engine-reserved keys are skipped: a remote payload must not be able to
// reset local bookkeeping.
func (r Record) Extend(other Record) {
	for k, v := range other {
		if isReservedKey(k) {
			continue
		}
		r[k] = v
	}
}

// MarkEditable flags a locally created record for inline editing.
func (r Record) MarkEditable() {
	r[KeyEditable] = true
}

// GenerateIDIfEmpty assigns a uuid under "id" when the record has no
// identity attribute at all.
func (r Record) GenerateIDIfEmpty() {
	if _, ok := r.IdentityKey(); !ok {
		r["id"] = uuid.New().String()
	}
}

func isReservedKey(k string) bool {
	return k == KeyIsNew || k == KeyUpdateCount || k == KeyEditable
}
