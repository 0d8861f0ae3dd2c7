package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wayfarer-app/visaflow/internal/payload"
)

// Application is one applicant's DS-160 record. Version implements
// optimistic concurrency on the payload: every successful write increments
// it, and writes carry the version they read.
type Application struct {
	ID           uuid.UUID
	UserID       string
	Payload      payload.Document
	Version      int
	Status       string
	TriageScore  *int
	ProfileScore *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Application statuses.
const (
	StatusDraft     = "draft"
	StatusInterview = "interview"
	StatusComplete  = "complete"
	StatusSubmitted = "submitted"
)

// CreateApplication inserts a fresh application with an empty document.
func (s *Store) CreateApplication(ctx context.Context, userID string) (*Application, error) {
	app := &Application{
		ID:      uuid.New(),
		UserID:  userID,
		Payload: payload.New(),
		Version: 1,
		Status:  StatusDraft,
	}
	doc, err := json.Marshal(app.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO applications (id, user_id, payload, version, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())`,
		app.ID, app.UserID, doc, app.Version, app.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// GetApplicationByUser loads the applicant's record. A row whose document is
// null or undecodable returns ErrCorruptPayload, never an empty document,
// which would risk overwriting legitimate prior answers on the next save.
func (s *Store) GetApplicationByUser(ctx context.Context, userID string) (*Application, error) {
	var (
		app Application
		doc []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, payload, version, status, triage_score, profile_score, created_at, updated_at
		FROM applications WHERE user_id = $1`,
		userID,
	).Scan(&app.ID, &app.UserID, &doc, &app.Version, &app.Status, &app.TriageScore, &app.ProfileScore, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select application: %w", err)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: null document for user %s", ErrCorruptPayload, userID)
	}
	if err := json.Unmarshal(doc, &app.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return &app, nil
}

// GetApplication loads a record by id, with the same corrupt-document
// handling as GetApplicationByUser.
func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	var (
		app Application
		doc []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, payload, version, status, triage_score, profile_score, created_at, updated_at
		FROM applications WHERE id = $1`,
		id,
	).Scan(&app.ID, &app.UserID, &doc, &app.Version, &app.Status, &app.TriageScore, &app.ProfileScore, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select application: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: null document for application %s", ErrCorruptPayload, id)
	}
	if err := json.Unmarshal(doc, &app.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return &app, nil
}

// UpdatePayload persists the whole document conditionally on the version the
// caller read. A stale version returns ErrVersionConflict and changes
// nothing; the caller re-reads and retries the turn.
func (s *Store) UpdatePayload(ctx context.Context, app *Application) error {
	doc, err := json.Marshal(app.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE applications SET payload = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3`,
		doc, app.ID, app.Version,
	)
	if err != nil {
		return fmt.Errorf("update payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	app.Version++
	return nil
}

// UpdateStatus moves the application through its lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE applications SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// SetScores records the static risk scores. Either pointer may be nil to
// leave that score untouched.
func (s *Store) SetScores(ctx context.Context, id uuid.UUID, triage, profile *int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE applications
		SET triage_score = COALESCE($1, triage_score),
		    profile_score = COALESCE($2, profile_score),
		    updated_at = now()
		WHERE id = $3`,
		triage, profile, id,
	)
	if err != nil {
		return fmt.Errorf("set scores: %w", err)
	}
	return nil
}
