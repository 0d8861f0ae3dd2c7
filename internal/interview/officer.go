package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wayfarer-app/visaflow/internal/anthropic"
	"github.com/wayfarer-app/visaflow/internal/payload"
	"github.com/wayfarer-app/visaflow/internal/scoring"
)

const officerSystemPrompt = `You are a U.S. consular officer running a visa interview simulation. You have the applicant's DS-160 answers and a running approval score from 0 to 100.

Each turn you receive the current question and the applicant's answer. You judge the answer the way a real officer would: consistency with the form, plausibility, ties to the home country, signs of immigrant intent, composure. Statistical reality applies — young single applicants with weak employment draw harder questions; contradictions with the form cost heavily; calm specific answers recover ground. Move the score by roughly -20 to +10 per turn.

Respond ONLY with JSON:
{
  "delta": <signed integer, the change you applied>,
  "score": <integer 0-100, the new absolute score>,
  "rationale": "<one sentence, internal note>",
  "follow_up": "<your next question>",
  "immediate_fail": true|false
}

Set immediate_fail only for an outright self-admission of fraud, document forgery, or serious crime. The score field is authoritative; make it equal your previous score plus delta.`

// LLMOfficer is the production Officer, streaming its reply so the UI can
// render the officer "thinking" while the structured result is assembled.
type LLMOfficer struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewLLMOfficer(llm *anthropic.Client, logger *slog.Logger) *LLMOfficer {
	return &LLMOfficer{llm: llm, logger: logger}
}

func (o *LLMOfficer) Interrogate(ctx context.Context, doc payload.Document, history []scoring.Turn, currentScore int, question, answer string, onDelta func(string)) (*scoring.TurnResult, error) {
	messages := []anthropic.Message{anthropic.UserText(officerBriefing(doc, currentScore))}
	for _, t := range history {
		messages = append(messages,
			anthropic.AssistantText(t.Question),
			anthropic.UserText(t.Answer),
		)
	}
	messages = append(messages, anthropic.UserText(fmt.Sprintf("Current question: %s\n\nApplicant's answer: %s", question, answer)))

	raw, err := o.llm.CompleteStream(ctx, officerSystemPrompt, messages, 1024, onDelta)
	if err != nil {
		return nil, fmt.Errorf("officer turn: %w", err)
	}

	var reply struct {
		Delta         int    `json:"delta"`
		Score         int    `json:"score"`
		Rationale     string `json:"rationale"`
		FollowUp      string `json:"follow_up"`
		ImmediateFail bool   `json:"immediate_fail"`
	}
	if err := json.Unmarshal(anthropic.ExtractJSON(raw), &reply); err != nil {
		o.logger.Warn("officer returned malformed JSON", "raw", raw)
		return nil, fmt.Errorf("parse officer reply: %w", err)
	}
	return &scoring.TurnResult{
		Delta:         reply.Delta,
		Score:         reply.Score,
		Rationale:     reply.Rationale,
		FollowUp:      reply.FollowUp,
		ImmediateFail: reply.ImmediateFail,
	}, nil
}

// officerBriefing summarizes the form fields the officer would have in front
// of them.
func officerBriefing(doc payload.Document, currentScore int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Applicant file. Current approval score: %d.\n", currentScore)
	for _, f := range []struct{ label, path string }{
		{"Name", "personal.given_names"},
		{"Surname", "personal.surnames"},
		{"Date of birth", "personal.dob"},
		{"Marital status", "marital_status"},
		{"Occupation", "primary_occupation"},
		{"Employer", "work_history.current_employer"},
		{"Trip purpose", "travel.purpose"},
		{"Trip payer", "travel.trip_payer"},
		{"Prior refusals", "has_refusals"},
		{"Prior US visa", "has_previous_visa"},
	} {
		if v := payload.GetString(doc, f.path); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, v)
		}
	}
	if income, ok := payload.GetFloat(doc, "monthly_income"); ok {
		fmt.Fprintf(&b, "Monthly income: %.0f\n", income)
	}
	return b.String()
}
