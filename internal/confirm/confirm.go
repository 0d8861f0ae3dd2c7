// Package confirm holds an answer that the system reinterpreted until the
// applicant explicitly approves or rejects the rewrite.
package confirm

import (
	"strings"
	"unicode"
)

// Phase discriminates the session-state union.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseAwaiting Phase = "awaiting_confirmation"
)

// State is the per-session confirmation state. At most one confirmation is
// pending at a time; while one is, no new question may be asked.
type State struct {
	Phase    Phase  `json:"phase"`
	Field    string `json:"field,omitempty"`
	Proposed any    `json:"proposed,omitempty"`
	Prompt   string `json:"prompt,omitempty"` // the confirmation question shown to the user
}

// Idle is the zero confirmation state.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Hold creates the awaiting state for a proposed reinterpretation.
func Hold(field string, proposed any, prompt string) State {
	return State{Phase: PhaseAwaiting, Field: field, Proposed: proposed, Prompt: prompt}
}

// Pending reports whether a confirmation is outstanding.
func (s State) Pending() bool {
	return s.Phase == PhaseAwaiting
}

// NeedsConfirmation reports whether persisting value for raw input requires
// the applicant's sign-off. Only semantically meaningful rewrites count:
// case- or whitespace-only differences persist immediately, and non-string
// extractions (option codes, numbers, parsed objects) never ask.
func NeedsConfirmation(raw string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return canon(raw) != canon(s)
}

func canon(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Intent is the binary read of the applicant's reply to a confirmation
// prompt. Anything unclear re-prompts rather than guessing.
type Intent string

const (
	IntentConfirm Intent = "confirm"
	IntentReject  Intent = "reject"
	IntentUnclear Intent = "unclear"
)

// ParseIntent classifies short, unambiguous replies locally. Longer replies
// fall through to the LLM intent classifier.
func ParseIntent(reply string) Intent {
	switch canon(reply) {
	case "yes", "y", "yep", "yeah", "ok", "okay", "correct", "right", "confirm", "да", "ага", "верно":
		return IntentConfirm
	case "no", "n", "nope", "wrong", "incorrect", "нет", "неверно":
		return IntentReject
	}
	return IntentUnclear
}
