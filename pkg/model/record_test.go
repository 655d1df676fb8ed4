package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	rec := Record{"userId": 7, "name": "ada"}
	key, ok := rec.IdentityKey()
	assert.True(t, ok)
	assert.Equal(t, "userId", key)

	// Exact "id" wins over other candidates regardless of sort order.
	rec = Record{"accountId": 1, "id": 2, "guid": 3}
	key, ok = rec.IdentityKey()
	assert.True(t, ok)
	assert.Equal(t, "id", key)

	_, ok = Record{"name": "ada"}.IdentityKey()
	assert.False(t, ok)
}

func TestIdentityKeyDeterministic(t *testing.T) {
	// Two candidates, neither an exact "id": the lexicographically first
	// must win on every call despite randomized map iteration.
	rec := Record{"widgetId": 1, "gridId": 2}
	for i := 0; i < 50; i++ {
		key, ok := rec.IdentityKey()
		require.True(t, ok)
		require.Equal(t, "gridId", key)
	}
}

func TestIdentity(t *testing.T) {
	_, _, err := Record{"name": "x"}.Identity()
	assert.ErrorIs(t, err, ErrMissingIdentity)

	key, val, err := Record{"id": "abc"}.Identity()
	require.NoError(t, err)
	assert.Equal(t, "id", key)
	assert.Equal(t, "abc", val)
}

func TestMarkers(t *testing.T) {
	rec := Record{"id": 1}
	assert.False(t, rec.IsNew())
	assert.Equal(t, 0, rec.UpdateCount())
	_, present := rec[KeyUpdateCount]
	assert.False(t, present, "counter starts unset")

	rec.MarkNew()
	assert.True(t, rec.IsNew())

	assert.Equal(t, 1, rec.BumpUpdateCount())
	assert.Equal(t, 2, rec.BumpUpdateCount())
	assert.Equal(t, 2, rec.UpdateCount())
}

func TestUpdateCountFromJSON(t *testing.T) {
	// Counters that round-tripped through JSON decode as float64.
	rec := Record{"id": 1, KeyUpdateCount: float64(3)}
	assert.Equal(t, 3, rec.UpdateCount())
	assert.Equal(t, 4, rec.BumpUpdateCount())
}

func TestExtendSkipsReservedKeys(t *testing.T) {
	rec := Record{"id": 1, "v": "a"}
	rec.MarkNew()
	rec.BumpUpdateCount()

	rec.Extend(Record{"v": "b", "w": "c", KeyIsNew: false, KeyUpdateCount: 99})
	assert.Equal(t, "b", rec["v"])
	assert.Equal(t, "c", rec["w"])
	assert.True(t, rec.IsNew())
	assert.Equal(t, 1, rec.UpdateCount())
}

func TestGenerateIDIfEmpty(t *testing.T) {
	rec := Record{"name": "ada"}
	rec.GenerateIDIfEmpty()
	assert.NotEmpty(t, rec["id"])

	existing := Record{"uid": "fixed"}
	existing.GenerateIDIfEmpty()
	_, hasID := existing["id"]
	assert.False(t, hasID, "existing identity attribute is kept")
}

func TestClone(t *testing.T) {
	rec := Record{"id": 1, "v": "a"}
	cp := rec.Clone()
	cp["v"] = "b"
	assert.Equal(t, "a", rec["v"])
}
