// Package filter provides CEL-based pre-filtering of pushed record updates.
// A configured expression sees each incoming record as `record` (a map) and
// must evaluate to a boolean; records failing it never reach the cache.
package filter

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/syntrixbase/viewcache/pkg/model"
)

var celNewEnv = cel.NewEnv

// Compiler compiles CEL filter expressions.
type Compiler struct {
	env *cel.Env
}

// NewCompiler creates a compiler with the standard environment and the
// `record` variable bound to a string-keyed map.
func NewCompiler() (*Compiler, error) {
	env, err := celNewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &Compiler{env: env}, nil
}

// Compile compiles expr into a Filter. An empty expression yields a nil
// Filter, which matches everything.
func (c *Compiler) Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// Filter is a compiled update filter.
type Filter struct {
	expr string
	prg  cel.Program
}

// Match evaluates the filter against a record. A nil filter matches all.
func (f *Filter) Match(rec model.Record) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{
		"record": map[string]any(rec),
	})
	if err != nil {
		return false, err
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not evaluate to a boolean", f.expr)
	}
	return match, nil
}

// Apply returns the records matching the filter. Records whose evaluation
// errors are dropped with a warning: a broken filter must not let
// unfiltered updates through.
func (f *Filter) Apply(recs []model.Record) []model.Record {
	if f == nil {
		return recs
	}
	out := recs[:0:0]
	for _, rec := range recs {
		match, err := f.Match(rec)
		if err != nil {
			slog.Warn("update filter evaluation failed, record dropped",
				"expr", f.expr, "error", err)
			continue
		}
		if match {
			out = append(out, rec)
		}
	}
	return out
}
