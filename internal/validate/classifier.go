package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wayfarer-app/visaflow/internal/anthropic"
	"github.com/wayfarer-app/visaflow/internal/flow"
)

// LLMClassifier is the production Classifier backed by the Anthropic API.
type LLMClassifier struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewLLMClassifier(llm *anthropic.Client, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{llm: llm, logger: logger}
}

func (c *LLMClassifier) Classify(ctx context.Context, step *flow.Step, raw string) (*Outcome, error) {
	system := systemPromptFor(step)
	prompt := fmt.Sprintf(classifyUserPrompt, step.Prompt(flow.DefaultLocale), step.FieldPath, string(step.Context), raw)

	reply, err := c.llm.Complete(ctx, system, []anthropic.Message{anthropic.UserText(prompt)}, 1024)
	if err != nil {
		return nil, fmt.Errorf("classify answer: %w", err)
	}

	// The model's output is untrusted: decode defensively, defaulting every
	// missing field to its zero value.
	var out Outcome
	if err := json.Unmarshal(anthropic.ExtractJSON(reply), &out); err != nil {
		c.logger.Warn("classifier returned malformed JSON", "step", step.ID, "raw", reply)
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return &out, nil
}
