package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dropwatch/internal/store"
)

const backend = "redis"

// StateStore keeps the last-seen id under a single string key.
// A SET replaces the value atomically, so readers never see a partial id.
type StateStore struct {
	client *redis.Client
	key    string
}

var _ store.Store = (*StateStore)(nil)

// NewStateStore wraps an already connected client. key may be empty.
func NewStateStore(client *redis.Client, key string) *StateStore {
	return &StateStore{
		client: client,
		key:    StateKey(key),
	}
}

func (s *StateStore) Backend() string { return backend }

func (s *StateStore) Key() string { return s.key }

func (s *StateStore) Load(ctx context.Context) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, &store.ReadError{Backend: backend, Err: err}
	}

	id := strings.TrimSpace(val)
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Save stores id without expiry.
func (s *StateStore) Save(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, s.key, id, 0).Err(); err != nil {
		return &store.WriteError{Backend: backend, ID: id, Err: err}
	}
	return nil
}

// Ping reports whether the server answers; used by /readyz.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *StateStore) Close() error {
	return s.client.Close()
}
