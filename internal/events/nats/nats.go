// Package nats provides an events.Provider over core NATS subscriptions,
// one subscription per named event channel.
package nats

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/syntrixbase/viewcache/internal/events"
)

const channelBufSize = 64

// Provider creates consumers over an existing NATS connection. The
// connection is owned by the caller; Close only tears down subscriptions.
type Provider struct {
	nc *nats.Conn

	mu        sync.Mutex
	consumers []*consumer
}

// New creates a provider over nc.
func New(nc *nats.Conn) *Provider {
	return &Provider{nc: nc}
}

// Consumer subscribes to subject.
func (p *Provider) Consumer(subject string) (events.Consumer, error) {
	raw := make(chan *nats.Msg, channelBufSize)
	sub, err := p.nc.ChanSubscribe(subject, raw)
	if err != nil {
		return nil, err
	}
	c := &consumer{sub: sub, raw: raw}
	p.mu.Lock()
	p.consumers = append(p.consumers, c)
	p.mu.Unlock()
	return c, nil
}

// Close unsubscribes all consumers created by this provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.consumers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.consumers = nil
	return firstErr
}

type consumer struct {
	sub  *nats.Subscription
	raw  chan *nats.Msg
	once sync.Once
}

// Subscribe converts the raw NATS channel into the events.Message stream.
// The returned channel closes when ctx is cancelled or the subscription
// ends.
func (c *consumer) Subscribe(ctx context.Context) (<-chan events.Message, error) {
	out := make(chan events.Message, channelBufSize)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-c.raw:
				if !ok {
					return
				}
				select {
				case out <- &message{msg: msg}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close unsubscribes.
func (c *consumer) Close() error {
	var err error
	c.once.Do(func() {
		err = c.sub.Unsubscribe()
	})
	return err
}

type message struct {
	msg *nats.Msg
}

func (m *message) Data() []byte    { return m.msg.Data }
func (m *message) Subject() string { return m.msg.Subject }
