// Package memory provides an in-process events.Provider, used in tests and
// by embedders whose push events originate in the same process.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/syntrixbase/viewcache/internal/events"
)

// ErrEngineClosed is returned on operations against a closed provider.
var ErrEngineClosed = errors.New("memory provider closed")

const channelBufSize = 64

// Provider is an in-process broker with exact-subject matching.
type Provider struct {
	mu     sync.RWMutex
	subs   map[string][]chan events.Message
	closed atomic.Bool
}

// New creates an empty provider.
func New() *Provider {
	return &Provider{subs: make(map[string][]chan events.Message)}
}

// Publish delivers data to all consumers of subject. Delivery blocks when a
// consumer's buffer is full, preserving event order.
func (p *Provider) Publish(ctx context.Context, subject string, data []byte) error {
	if p.closed.Load() {
		return ErrEngineClosed
	}
	p.mu.RLock()
	targets := p.subs[subject]
	p.mu.RUnlock()

	for _, ch := range targets {
		msg := &message{data: data, subject: subject}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consumer creates a consumer for subject.
func (p *Provider) Consumer(subject string) (events.Consumer, error) {
	if p.closed.Load() {
		return nil, ErrEngineClosed
	}
	ch := make(chan events.Message, channelBufSize)
	p.mu.Lock()
	p.subs[subject] = append(p.subs[subject], ch)
	p.mu.Unlock()
	return &consumer{provider: p, subject: subject, ch: ch}, nil
}

// Close drops all subscriptions.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, chans := range p.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	p.subs = make(map[string][]chan events.Message)
	return nil
}

func (p *Provider) drop(subject string, ch chan events.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	chans := p.subs[subject]
	for i, c := range chans {
		if c == ch {
			p.subs[subject] = append(chans[:i], chans[i+1:]...)
			close(ch)
			return
		}
	}
}

type consumer struct {
	provider *Provider
	subject  string
	ch       chan events.Message
	once     sync.Once
}

// Subscribe returns the consumer's channel. Cancelling the context does not
// drain it; callers stop reading instead.
func (c *consumer) Subscribe(_ context.Context) (<-chan events.Message, error) {
	return c.ch, nil
}

// Close unsubscribes and closes the channel.
func (c *consumer) Close() error {
	c.once.Do(func() {
		if !c.provider.closed.Load() {
			c.provider.drop(c.subject, c.ch)
		}
	})
	return nil
}

type message struct {
	data    []byte
	subject string
}

func (m *message) Data() []byte    { return m.data }
func (m *message) Subject() string { return m.subject }
