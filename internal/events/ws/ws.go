// Package ws provides an events.Provider over a websocket stream. The peer
// sends JSON frames of the form {"event": name, "records": [...]}; each
// frame is routed to the consumer subscribed to that event name.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syntrixbase/viewcache/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	channelBufSize = 64
)

// Send pings to peer with this period. Must be less than pongWait.
var pingPeriod = (pongWait * 9) / 10

// ErrClosed is returned on operations against a closed intake.
var ErrClosed = errors.New("websocket intake closed")

// frame is the wire format of a push event.
type frame struct {
	Event   string          `json:"event"`
	Records json.RawMessage `json:"records"`
}

// Intake is an events.Provider reading push frames from a websocket.
// Create consumers first, then call Run to start the read loop.
type Intake struct {
	conn *websocket.Conn
	log  *slog.Logger

	mu     sync.Mutex
	subs   map[string]chan events.Message
	closed bool
}

// Dial connects to a push stream endpoint.
func Dial(ctx context.Context, url string) (*Intake, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing push stream %s: %w", url, err)
	}
	return &Intake{
		conn: conn,
		log:  slog.Default(),
		subs: make(map[string]chan events.Message),
	}, nil
}

// Consumer registers interest in one event name. Frames for names nobody
// consumes are dropped.
func (in *Intake) Consumer(subject string) (events.Consumer, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil, ErrClosed
	}
	if _, dup := in.subs[subject]; dup {
		return nil, fmt.Errorf("event %q already has a consumer", subject)
	}
	ch := make(chan events.Message, channelBufSize)
	in.subs[subject] = ch
	return &consumer{intake: in, subject: subject, ch: ch}, nil
}

// Run pumps frames from the websocket to consumers until ctx is cancelled
// or the connection fails. There is at most one reader on the connection:
// all reads happen on the goroutine calling Run.
func (in *Intake) Run(ctx context.Context) error {
	defer in.Close()

	in.conn.SetReadLimit(maxMessageSize)
	in.conn.SetReadDeadline(time.Now().Add(pongWait))
	in.conn.SetPongHandler(func(string) error {
		return in.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go in.pingLoop(ctx)

	for {
		_, payload, err := in.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("push stream read: %w", err)
		}

		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			in.log.Warn("malformed push frame dropped", "error", err)
			continue
		}

		in.mu.Lock()
		ch, ok := in.subs[f.Event]
		in.mu.Unlock()
		if !ok {
			continue
		}

		msg := &message{data: []byte(f.Records), subject: f.Event}
		select {
		case ch <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (in *Intake) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			in.conn.SetWriteDeadline(time.Now().Add(writeWait))
			in.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			in.conn.Close()
			return
		case <-ticker.C:
			in.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := in.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears down the connection and all consumer channels.
func (in *Intake) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true
	for _, ch := range in.subs {
		close(ch)
	}
	in.subs = make(map[string]chan events.Message)
	return in.conn.Close()
}

type message struct {
	data    []byte
	subject string
}

func (m *message) Data() []byte    { return m.data }
func (m *message) Subject() string { return m.subject }

type consumer struct {
	intake  *Intake
	subject string
	ch      chan events.Message
}

// Subscribe returns the consumer's channel; Run feeds it.
func (c *consumer) Subscribe(_ context.Context) (<-chan events.Message, error) {
	return c.ch, nil
}

// Close deregisters the consumer.
func (c *consumer) Close() error {
	c.intake.mu.Lock()
	defer c.intake.mu.Unlock()
	if ch, ok := c.intake.subs[c.subject]; ok && ch == c.ch {
		delete(c.intake.subs, c.subject)
		close(ch)
	}
	return nil
}
