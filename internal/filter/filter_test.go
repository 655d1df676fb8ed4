package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntrixbase/viewcache/pkg/model"
)

func TestCompileEmptyExpression(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	f, err := c.Compile("")
	require.NoError(t, err)
	assert.Nil(t, f)

	match, err := f.Match(model.Record{"id": 1})
	require.NoError(t, err)
	assert.True(t, match, "nil filter matches everything")
}

func TestCompileError(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	_, err = c.Compile("record.status ==")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	f, err := c.Compile(`record.status == "open"`)
	require.NoError(t, err)

	match, err := f.Match(model.Record{"id": 1, "status": "open"})
	require.NoError(t, err)
	assert.True(t, match)

	match, err = f.Match(model.Record{"id": 2, "status": "closed"})
	require.NoError(t, err)
	assert.False(t, match)
}

func TestApply(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	f, err := c.Compile(`record.priority >= 3`)
	require.NoError(t, err)

	recs := []model.Record{
		{"id": 1, "priority": 5},
		{"id": 2, "priority": 1},
		{"id": 3}, // missing field: evaluation error, dropped
		{"id": 4, "priority": 3},
	}
	out := f.Apply(recs)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0]["id"])
	assert.Equal(t, 4, out[1]["id"])
}

func TestApplyNilFilter(t *testing.T) {
	var f *Filter
	recs := []model.Record{{"id": 1}}
	assert.Equal(t, recs, f.Apply(recs))
}
