// Package events publishes application lifecycle events over NATS for
// downstream consumers (notifications, the admin backoffice, analytics).
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects emitted by the interview engine.
const (
	SubjectApplicationUpdated = "visa.application.updated"
	SubjectInterviewCompleted = "visa.interview.completed"
	SubjectVerdictIssued      = "visa.verdict.issued"
)

// ApplicationUpdated is published after each committed payload write so the
// backoffice and notification consumers can track form progress live.
type ApplicationUpdated struct {
	ApplicationID string `json:"application_id"`
	UserID        string `json:"user_id"`
	Field         string `json:"field,omitempty"`
	Version       int    `json:"version"`
	Progress      int    `json:"progress"`
}

// InterviewCompleted is published when the flow is exhausted and the static
// score has been computed.
type InterviewCompleted struct {
	ApplicationID string `json:"application_id"`
	UserID        string `json:"user_id"`
	ProfileScore  int    `json:"profile_score"`
	Progress      int    `json:"progress"`
}

// VerdictIssued is published when a simulation reaches a terminal verdict.
type VerdictIssued struct {
	SimulationID  string `json:"simulation_id"`
	ApplicationID string `json:"application_id"`
	Verdict       string `json:"verdict"`
	Score         int    `json:"score"`
	Turns         int    `json:"turns"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish sends an event. Event delivery is best-effort: the interview turn
// already committed, so failures are logged and swallowed by callers.
func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
