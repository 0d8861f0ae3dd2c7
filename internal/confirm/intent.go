package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wayfarer-app/visaflow/internal/anthropic"
)

// IntentClassifier reads a free-form reply to a confirmation prompt.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, proposed any, reply string) (Intent, error)
}

const intentSystemPrompt = `The user was shown a proposed rewrite of their answer on a visa application and asked "Is this correct?". Classify their reply.

Respond ONLY with JSON: {"intent": "confirm"} if they accept the proposed text, {"intent": "reject"} if they dispute or refuse it, {"intent": "unclear"} if you cannot tell. Accept/deny only — do not interpret the reply as a new answer.`

// LLMIntent is the production IntentClassifier. Short unambiguous replies
// never reach it; see ParseIntent.
type LLMIntent struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewLLMIntent(llm *anthropic.Client, logger *slog.Logger) *LLMIntent {
	return &LLMIntent{llm: llm, logger: logger}
}

func (c *LLMIntent) ClassifyIntent(ctx context.Context, proposed any, reply string) (Intent, error) {
	prompt := fmt.Sprintf("Proposed value: %v\n\nUser's reply:\n%s", proposed, reply)
	raw, err := c.llm.Complete(ctx, intentSystemPrompt, []anthropic.Message{anthropic.UserText(prompt)}, 128)
	if err != nil {
		return IntentUnclear, fmt.Errorf("classify intent: %w", err)
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(anthropic.ExtractJSON(raw), &out); err != nil {
		c.logger.Warn("intent classifier returned malformed JSON", "raw", raw)
		return IntentUnclear, nil
	}
	switch Intent(out.Intent) {
	case IntentConfirm, IntentReject:
		return Intent(out.Intent), nil
	}
	return IntentUnclear, nil
}

// Resolve combines the local fast path with the LLM classifier. Classifier
// failure reads as unclear: the safe outcome is a re-prompt, never a guess.
func Resolve(ctx context.Context, classifier IntentClassifier, proposed any, reply string) Intent {
	if intent := ParseIntent(reply); intent != IntentUnclear {
		return intent
	}
	if classifier == nil {
		return IntentUnclear
	}
	intent, err := classifier.ClassifyIntent(ctx, proposed, reply)
	if err != nil {
		return IntentUnclear
	}
	return intent
}
