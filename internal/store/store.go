package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound means no row matched.
	ErrNotFound = errors.New("store: not found")
	// ErrCorruptPayload means the application row exists but its document is
	// null or undecodable. Surfaced distinctly so callers never silently
	// default over previously-saved answers.
	ErrCorruptPayload = errors.New("store: corrupt application payload")
	// ErrVersionConflict means a conditional write lost a read-modify-write
	// race; the caller retries the turn from a fresh read.
	ErrVersionConflict = errors.New("store: payload version conflict")
	// ErrFlowUnavailable means the interview script could not be loaded.
	// Distinct from an exhausted flow, which is interview completion.
	ErrFlowUnavailable = errors.New("store: flow unavailable")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}
