package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// pushServer upgrades one connection and writes each frame in frames.
func pushServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestIntakeRoutesFrames(t *testing.T) {
	srv := pushServer(t, []string{
		`{"event": "update", "records": [{"id": 1}]}`,
		`{"event": "ignored", "records": []}`,
		`not json at all`,
		`{"event": "delete", "records": [{"id": 1}]}`,
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	intake, err := Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer intake.Close()

	updates, err := intake.Consumer("update")
	require.NoError(t, err)
	deletes, err := intake.Consumer("delete")
	require.NoError(t, err)

	updateCh, _ := updates.Subscribe(ctx)
	deleteCh, _ := deletes.Subscribe(ctx)

	go intake.Run(ctx)

	select {
	case msg := <-updateCh:
		assert.Equal(t, "update", msg.Subject())
		assert.JSONEq(t, `[{"id": 1}]`, string(msg.Data()))
	case <-time.After(time.Second):
		t.Fatal("update frame not delivered")
	}

	select {
	case msg := <-deleteCh:
		assert.Equal(t, "delete", msg.Subject())
	case <-time.After(time.Second):
		t.Fatal("delete frame not delivered")
	}
}

func TestIntakeDuplicateConsumer(t *testing.T) {
	srv := pushServer(t, nil)
	defer srv.Close()

	intake, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer intake.Close()

	_, err = intake.Consumer("update")
	require.NoError(t, err)
	_, err = intake.Consumer("update")
	assert.Error(t, err)
}

func TestIntakeCloseEndsConsumers(t *testing.T) {
	srv := pushServer(t, nil)
	defer srv.Close()

	intake, err := Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)

	c, err := intake.Consumer("update")
	require.NoError(t, err)
	ch, _ := c.Subscribe(context.Background())

	require.NoError(t, intake.Close())
	_, open := <-ch
	assert.False(t, open)
}
