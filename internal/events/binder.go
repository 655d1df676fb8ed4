package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/syntrixbase/viewcache/pkg/model"
)

// Handler is the mutation surface the binder drives. The viewport engine
// implements it. All calls happen on the binder's goroutine, which is what
// gives the engine its serial-writer guarantee.
type Handler interface {
	ApplyUpdates(ctx context.Context, recs []model.Record) []model.Record
	ApplyDeletes(ctx context.Context, recs []model.Record) error
	ApplyPoll(ctx context.Context) error
}

// Subjects names the up-to-three event channels. An empty name disables
// that channel.
type Subjects struct {
	Update string `yaml:"update"`
	Delete string `yaml:"delete"`
	Poll   string `yaml:"poll"`
}

// Binder subscribes the configured subjects on a Provider and applies their
// events to a Handler. Notifiable records returned by ApplyUpdates are
// forwarded to the notify callback.
type Binder struct {
	provider Provider
	subjects Subjects
	handler  Handler
	notify   func([]model.Record)
	log      *slog.Logger
}

// NewBinder wires a provider to a handler. notify may be nil.
func NewBinder(provider Provider, subjects Subjects, handler Handler, notify func([]model.Record)) *Binder {
	return &Binder{
		provider: provider,
		subjects: subjects,
		handler:  handler,
		notify:   notify,
		log:      slog.Default(),
	}
}

// Run consumes events until ctx is cancelled or every channel has closed.
// All handler calls are serialized on this goroutine.
func (b *Binder) Run(ctx context.Context) error {
	var consumers []Consumer
	defer func() {
		for _, c := range consumers {
			c.Close()
		}
	}()

	subscribe := func(subject string) (<-chan Message, error) {
		if subject == "" {
			return nil, nil
		}
		c, err := b.provider.Consumer(subject)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, c)
		return c.Subscribe(ctx)
	}

	updateCh, err := subscribe(b.subjects.Update)
	if err != nil {
		return err
	}
	deleteCh, err := subscribe(b.subjects.Delete)
	if err != nil {
		return err
	}
	pollCh, err := subscribe(b.subjects.Poll)
	if err != nil {
		return err
	}

	for updateCh != nil || deleteCh != nil || pollCh != nil {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-updateCh:
			if !ok {
				updateCh = nil
				continue
			}
			b.onUpdate(ctx, msg)
		case msg, ok := <-deleteCh:
			if !ok {
				deleteCh = nil
				continue
			}
			b.onDelete(ctx, msg)
		case _, ok := <-pollCh:
			if !ok {
				pollCh = nil
				continue
			}
			if err := b.handler.ApplyPoll(ctx); err != nil {
				b.log.Warn("poll refresh failed", "error", err)
			}
		}
	}
	return nil
}

func (b *Binder) onUpdate(ctx context.Context, msg Message) {
	recs, ok := b.decode(msg)
	if !ok {
		return
	}
	notifiable := b.handler.ApplyUpdates(ctx, recs)
	if len(notifiable) > 0 && b.notify != nil {
		b.notify(notifiable)
	}
}

func (b *Binder) onDelete(ctx context.Context, msg Message) {
	recs, ok := b.decode(msg)
	if !ok {
		return
	}
	if err := b.handler.ApplyDeletes(ctx, recs); err != nil {
		b.log.Warn("delete event rejected", "subject", msg.Subject(), "error", err)
	}
}

func (b *Binder) decode(msg Message) ([]model.Record, bool) {
	var recs []model.Record
	if err := json.Unmarshal(msg.Data(), &recs); err != nil {
		b.log.Warn("malformed record list dropped", "subject", msg.Subject(), "error", err)
		return nil, false
	}
	return recs, true
}
