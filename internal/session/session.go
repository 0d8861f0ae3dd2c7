// Package session keeps the per-applicant interview session state (the
// confirmation hold and the preferred locale) out of the application
// document, in redis with a TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-app/visaflow/internal/confirm"
)

const ttl = 24 * time.Hour

// State is the session value object stored per user.
type State struct {
	Confirmation confirm.State `json:"confirmation"`
	Locale       string        `json:"locale,omitempty"`
}

type Store interface {
	Get(ctx context.Context, userID string) (State, error)
	Put(ctx context.Context, userID string, st State) error
	Clear(ctx context.Context, userID string) error
}

type redisStore struct {
	client *redis.Client
}

func NewStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func key(userID string) string {
	return "session:" + userID
}

// Get returns the stored session state. A missing key is a fresh idle
// session, not an error.
func (s *redisStore) Get(ctx context.Context, userID string) (State, error) {
	data, err := s.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return State{Confirmation: confirm.Idle()}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get session: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		// A corrupt session entry is recoverable: drop it and start idle.
		_ = s.client.Del(ctx, key(userID)).Err()
		return State{Confirmation: confirm.Idle()}, nil
	}
	if st.Confirmation.Phase == "" {
		st.Confirmation = confirm.Idle()
	}
	return st, nil
}

func (s *redisStore) Put(ctx context.Context, userID string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Memory is an in-process Store for tests and single-node development.
type Memory struct {
	m map[string]State
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]State)}
}

func (s *Memory) Get(_ context.Context, userID string) (State, error) {
	if st, ok := s.m[userID]; ok {
		return st, nil
	}
	return State{Confirmation: confirm.Idle()}, nil
}

func (s *Memory) Put(_ context.Context, userID string, st State) error {
	s.m[userID] = st
	return nil
}

func (s *Memory) Clear(_ context.Context, userID string) error {
	delete(s.m, userID)
	return nil
}
