package interview

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-app/visaflow/internal/events"
	"github.com/wayfarer-app/visaflow/internal/payload"
	"github.com/wayfarer-app/visaflow/internal/scoring"
	"github.com/wayfarer-app/visaflow/internal/store"
)

// ErrSimulationOver means the run already has a verdict.
var ErrSimulationOver = errors.New("interview: simulation already decided")

const openingQuestion = "Good morning. Why do you want to travel to the United States?"

// Officer is the per-turn classifier for the simulated consular interview.
// The reply's absolute score is authoritative; partial output may be
// surfaced through onDelta, but nothing is committed until the full reply
// parses.
type Officer interface {
	Interrogate(ctx context.Context, doc payload.Document, history []scoring.Turn, currentScore int, question, answer string, onDelta func(string)) (*scoring.TurnResult, error)
}

// Simulations is the store slice the simulator needs.
type Simulations interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*store.Application, error)
	GetApplicationByUser(ctx context.Context, userID string) (*store.Application, error)
	CreateSimulation(ctx context.Context, applicationID uuid.UUID, initialScore int, settings scoring.Settings) (*store.Simulation, error)
	GetSimulation(ctx context.Context, id uuid.UUID) (*store.Simulation, error)
	AppendTurn(ctx context.Context, id uuid.UUID, turn scoring.Turn, verdict scoring.Verdict) error
}

type Simulator struct {
	store     Simulations
	officer   Officer
	publisher Publisher
	settings  scoring.Settings
	logger    *slog.Logger
	now       func() time.Time
}

func NewSimulator(st Simulations, officer Officer, pub Publisher, settings scoring.Settings, logger *slog.Logger) *Simulator {
	return &Simulator{
		store:     st,
		officer:   officer,
		publisher: pub,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// SimStart is the response to starting a run.
type SimStart struct {
	SimulationID uuid.UUID `json:"simulation_id"`
	Score        int       `json:"score"`
	Question     string    `json:"question"`
}

// Start seeds a new run from the applicant's current payload. The seed score
// is computed once here and never recomputed for this run.
func (s *Simulator) Start(ctx context.Context, userID string) (*SimStart, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	app, err := s.store.GetApplicationByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seed := scoring.ProfileScore(app.Payload, s.now())
	sim, err := s.store.CreateSimulation(ctx, app.ID, seed, s.settings)
	if err != nil {
		return nil, err
	}
	return &SimStart{SimulationID: sim.ID, Score: seed, Question: openingQuestion}, nil
}

// SimTurn is the committed outcome of one exchange.
type SimTurn struct {
	Score        int             `json:"score"`
	Delta        int             `json:"delta"`
	Rationale    string          `json:"rationale,omitempty"`
	Verdict      scoring.Verdict `json:"verdict,omitempty"`
	NextQuestion string          `json:"next_question,omitempty"`
	Turns        int             `json:"turns"`
}

// Turn runs one exchange. The officer call may stream partial text through
// onDelta for the UI; state is committed only once the full structured reply
// is in. If the call fails or the context is cancelled mid-stream, the run
// is exactly as it was before the turn.
func (s *Simulator) Turn(ctx context.Context, simID uuid.UUID, answer string, onDelta func(string)) (*SimTurn, error) {
	sim, err := s.store.GetSimulation(ctx, simID)
	if err != nil {
		return nil, err
	}
	if sim.Verdict != scoring.VerdictNone {
		return nil, ErrSimulationOver
	}
	app, err := s.store.GetApplication(ctx, sim.ApplicationID)
	if err != nil {
		return nil, err
	}

	conv := scoring.NewConversation(sim.InitialScore, sim.Settings)
	conv.Turns = sim.Turns
	conv.Score = scoring.ReplayScore(sim.InitialScore, sim.Turns)

	question := currentQuestion(sim)
	res, err := s.officer.Interrogate(ctx, app.Payload, conv.Turns, conv.Score, question, answer, onDelta)
	if err != nil {
		return nil, err
	}

	verdict := conv.Commit(question, answer, *res)
	turn := conv.Turns[len(conv.Turns)-1]
	if err := s.store.AppendTurn(ctx, sim.ID, turn, verdict); err != nil {
		return nil, err
	}

	if verdict != scoring.VerdictNone && s.publisher != nil {
		if err := s.publisher.Publish(events.SubjectVerdictIssued, events.VerdictIssued{
			SimulationID:  sim.ID.String(),
			ApplicationID: sim.ApplicationID.String(),
			Verdict:       string(verdict),
			Score:         conv.Score,
			Turns:         len(conv.Turns),
		}); err != nil {
			s.logger.Warn("failed to publish verdict", "error", err)
		}
	}

	out := &SimTurn{
		Score:     conv.Score,
		Delta:     res.Delta,
		Rationale: res.Rationale,
		Verdict:   verdict,
		Turns:     len(conv.Turns),
	}
	if verdict == scoring.VerdictNone {
		out.NextQuestion = res.FollowUp
	}
	return out, nil
}

// currentQuestion is the question the incoming answer replies to: the
// opening line for a fresh run, otherwise the previous turn's follow-up.
func currentQuestion(sim *store.Simulation) string {
	if len(sim.Turns) == 0 {
		return openingQuestion
	}
	if fu := sim.Turns[len(sim.Turns)-1].FollowUp; fu != "" {
		return fu
	}
	return openingQuestion
}
