package viewport

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/syntrixbase/viewcache/internal/source"
	"github.com/syntrixbase/viewcache/pkg/model"
)

// mockSource is a testify mock of source.Source for expectation-style
// tests.
type mockSource struct {
	mock.Mock
}

func (m *mockSource) Query(ctx context.Context, p source.Params) (*source.Response, error) {
	args := m.Called(ctx, p)
	if resp := args.Get(0); resp != nil {
		return resp.(*source.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) Create(ctx context.Context) (model.Record, error) {
	args := m.Called(ctx)
	if rec := args.Get(0); rec != nil {
		return rec.(model.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubSource is a scripted source for scenario tests: queryFn decides the
// response, calls records every request for assertion.
type stubSource struct {
	queryFn  func(p source.Params) (*source.Response, error)
	createFn func() (model.Record, error)
	calls    []source.Params
}

func (s *stubSource) Query(_ context.Context, p source.Params) (*source.Response, error) {
	s.calls = append(s.calls, p)
	if s.queryFn == nil {
		return &source.Response{Count: source.CountUnreported}, nil
	}
	return s.queryFn(p)
}

func (s *stubSource) Create(context.Context) (model.Record, error) {
	if s.createFn == nil {
		return model.Record{"id": "created"}, nil
	}
	return s.createFn()
}

// respPage builds an envelope-style response.
func respPage(next string, count int, recs ...model.Record) *source.Response {
	return &source.Response{Items: recs, Next: next, Count: count}
}

func rec(id int, kv ...string) model.Record {
	r := model.Record{"id": id}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i]] = kv[i+1]
	}
	return r
}

func ids(recs []model.Record) []int {
	out := make([]int, 0, len(recs))
	for _, r := range recs {
		switch v := r["id"].(type) {
		case int:
			out = append(out, v)
		case float64:
			out = append(out, int(v))
		}
	}
	return out
}
