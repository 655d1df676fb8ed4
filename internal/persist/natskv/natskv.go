// Package natskv implements persist.Store over a NATS JetStream KeyValue
// bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// jetStreamNew is a variable to allow mocking in tests.
var jetStreamNew = func(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc)
}

// Store is a persist.Store backed by a JetStream KeyValue bucket. The NATS
// connection is owned by the caller; Close does not touch it.
type Store struct {
	kv jetstream.KeyValue
}

// New ensures the bucket exists and returns a store over it.
func New(ctx context.Context, nc *nats.Conn, bucket string) (*Store, error) {
	js, err := jetStreamNew(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure kv bucket %q: %w", bucket, err)
	}
	return &Store{kv: kv}, nil
}

// Get returns the payload stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set stores payload under key.
func (s *Store) Set(ctx context.Context, key string, payload []byte) error {
	_, err := s.kv.Put(ctx, key, payload)
	return err
}

// Close is a no-op; the NATS connection belongs to the caller.
func (s *Store) Close() error {
	return nil
}
