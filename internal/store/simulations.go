package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wayfarer-app/visaflow/internal/scoring"
)

// Simulation is one persisted mock-interview run. The turn history is the
// source of truth; the score column is the fold over it, stored for queries.
type Simulation struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	InitialScore  int
	Score         int
	Turns         []scoring.Turn
	Verdict       scoring.Verdict
	Settings      scoring.Settings
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateSimulation starts a new run seeded with a static score.
func (s *Store) CreateSimulation(ctx context.Context, applicationID uuid.UUID, initialScore int, settings scoring.Settings) (*Simulation, error) {
	sim := &Simulation{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		InitialScore:  initialScore,
		Score:         initialScore,
		Settings:      settings,
	}
	cfg, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO simulations (id, application_id, initial_score, score, turns, verdict, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '[]', '', $5, now(), now())`,
		sim.ID, sim.ApplicationID, sim.InitialScore, sim.Score, cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("insert simulation: %w", err)
	}
	return sim, nil
}

// GetSimulation loads a run with its full history.
func (s *Store) GetSimulation(ctx context.Context, id uuid.UUID) (*Simulation, error) {
	var (
		sim     Simulation
		turns   []byte
		cfg     []byte
		verdict string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, application_id, initial_score, score, turns, verdict, settings, created_at, updated_at
		FROM simulations WHERE id = $1`,
		id,
	).Scan(&sim.ID, &sim.ApplicationID, &sim.InitialScore, &sim.Score, &turns, &verdict, &cfg, &sim.CreatedAt, &sim.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select simulation: %w", err)
	}
	if err := json.Unmarshal(turns, &sim.Turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	if err := json.Unmarshal(cfg, &sim.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	sim.Verdict = scoring.Verdict(verdict)
	return &sim, nil
}

// AppendTurn commits one completed exchange atomically: history append,
// score update and turn count move together or not at all.
func (s *Store) AppendTurn(ctx context.Context, id uuid.UUID, turn scoring.Turn, verdict scoring.Verdict) error {
	entry, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE simulations
		SET turns = turns || $1::jsonb, score = $2, verdict = $3, updated_at = now()
		WHERE id = $4 AND verdict = ''`,
		entry, turn.Score, string(verdict), id,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append turn: %w", ErrNotFound)
	}
	return nil
}
