package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntrixbase/viewcache/internal/events"
	"github.com/syntrixbase/viewcache/internal/events/memory"
	"github.com/syntrixbase/viewcache/pkg/model"
)

type fakeHandler struct {
	mu      sync.Mutex
	updates [][]model.Record
	deletes [][]model.Record
	polls   int
}

func (h *fakeHandler) ApplyUpdates(_ context.Context, recs []model.Record) []model.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, recs)
	return recs // everything notifiable, for the test
}

func (h *fakeHandler) ApplyDeletes(_ context.Context, recs []model.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes = append(h.deletes, recs)
	return nil
}

func (h *fakeHandler) ApplyPoll(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
	return nil
}

func (h *fakeHandler) snapshot() (int, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates), len(h.deletes), h.polls
}

func TestBinderDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := memory.New()
	defer provider.Close()

	handler := &fakeHandler{}
	var notified [][]model.Record
	var notifiedMu sync.Mutex

	binder := events.NewBinder(provider, events.Subjects{
		Update: "inbox.update",
		Delete: "inbox.delete",
		Poll:   "inbox.poll",
	}, handler, func(recs []model.Record) {
		notifiedMu.Lock()
		notified = append(notified, recs)
		notifiedMu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- binder.Run(ctx) }()

	// Give the binder a moment to subscribe.
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, provider.Publish(ctx, "inbox.update", []byte(`[{"id": 1, "v": "a"}]`)))
	require.NoError(t, provider.Publish(ctx, "inbox.delete", []byte(`[{"id": 1}]`)))
	require.NoError(t, provider.Publish(ctx, "inbox.poll", nil))

	require.Eventually(t, func() bool {
		u, d, p := handler.snapshot()
		return u == 1 && d == 1 && p == 1
	}, time.Second, 10*time.Millisecond)

	notifiedMu.Lock()
	require.Len(t, notified, 1)
	assert.Equal(t, float64(1), notified[0][0]["id"])
	notifiedMu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestBinderMalformedPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := memory.New()
	defer provider.Close()

	handler := &fakeHandler{}
	binder := events.NewBinder(provider, events.Subjects{Update: "u"}, handler, nil)

	done := make(chan error, 1)
	go func() { done <- binder.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, provider.Publish(ctx, "u", []byte(`{not json`)))
	require.NoError(t, provider.Publish(ctx, "u", []byte(`[{"id": 2}]`)))

	require.Eventually(t, func() bool {
		u, _, _ := handler.snapshot()
		return u == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestBinderStopsWhenChannelsClose(t *testing.T) {
	provider := memory.New()
	handler := &fakeHandler{}
	binder := events.NewBinder(provider, events.Subjects{Update: "u"}, handler, nil)

	done := make(chan error, 1)
	go func() { done <- binder.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	provider.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("binder did not stop after transport closed")
	}
}
