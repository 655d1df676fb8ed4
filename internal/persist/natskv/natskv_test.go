package natskv

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
)

func TestNewJetStreamInitError(t *testing.T) {
	orig := jetStreamNew
	defer func() { jetStreamNew = orig }()
	jetStreamNew = func(*nats.Conn) (jetstream.JetStream, error) {
		return nil, assert.AnError
	}

	store, err := New(context.Background(), nil, "bucket")
	assert.Nil(t, store)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "jetstream init")
}

func TestCloseLeavesConnectionAlone(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}
