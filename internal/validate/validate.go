package validate

import (
	"context"
	"log/slog"
	"time"

	"github.com/wayfarer-app/visaflow/internal/flow"
)

// Outcome is the structured contract every classifier call must satisfy.
// Decoding is defensive: a missing field is its zero value, never a crash.
type Outcome struct {
	Valid            bool           `json:"is_valid"`
	Extracted        any            `json:"extracted_value"`
	Display          string         `json:"display_value"`
	Message          string         `json:"message"`
	HelpRequest      bool           `json:"is_help_request"`
	HelpResponse     string         `json:"help_response"`
	DetectedLanguage string         `json:"detected_language"`
	Additional       map[string]any `json:"additional_data"`
}

// Classifier turns free text into a structured Outcome for a given step.
// Implementations are expected to be non-deterministic; callers treat the
// result as untrusted input.
type Classifier interface {
	Classify(ctx context.Context, step *flow.Step, raw string) (*Outcome, error)
}

// Result is the validator's decision for one submitted answer.
type Result struct {
	Valid            bool           `json:"is_valid"`
	Extracted        any            `json:"extracted_value,omitempty"`
	Display          string         `json:"display_value,omitempty"`
	Message          string         `json:"message,omitempty"`
	Warning          string         `json:"warning,omitempty"`
	HelpRequest      bool           `json:"is_help_request,omitempty"`
	HelpResponse     string         `json:"help_response,omitempty"`
	DetectedLanguage string         `json:"detected_language,omitempty"`
	Additional       map[string]any `json:"additional_data,omitempty"`
}

type Validator struct {
	classifier Classifier
	logger     *slog.Logger
	now        func() time.Time
}

func New(classifier Classifier, logger *slog.Logger) *Validator {
	return &Validator{classifier: classifier, logger: logger, now: time.Now}
}

// SetClock overrides the validator's clock for date-rule tests.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Validate classifies and extracts a structured value from a raw answer.
//
// Closed-choice steps short-circuit on an exact option match with no
// classifier call. Otherwise the classifier runs first and the step's
// profile rules are applied to whatever it extracted. A classifier failure
// is a validation rejection (recoverable, re-ask), never a turn error.
func (v *Validator) Validate(ctx context.Context, step *flow.Step, raw string) *Result {
	if opt, ok := step.MatchOption(raw); ok {
		return &Result{Valid: true, Extracted: opt.Value, Display: opt.Label}
	}
	if step.InputType == flow.InputSelect {
		return &Result{Valid: false, Message: "Please pick one of the listed options."}
	}

	profile := step.ValidatorProfile()

	// Security answers get the local screen before any model call: flippant
	// or alarming content is refused with an explicit warning, not coached
	// around.
	if profile == flow.ProfileSecurity {
		if res := screenSecurityAnswer(raw); res != nil {
			return res
		}
	}

	out, err := v.classifier.Classify(ctx, step, raw)
	if err != nil {
		v.logger.Warn("classifier call failed", "step", step.ID, "error", err)
		return &Result{Valid: false, Message: "I couldn't process that answer. Could you try phrasing it differently?"}
	}
	if out == nil {
		return &Result{Valid: false, Message: "I couldn't process that answer. Could you try phrasing it differently?"}
	}

	if out.HelpRequest {
		return &Result{HelpRequest: true, HelpResponse: out.HelpResponse}
	}

	res := &Result{
		Valid:            out.Valid,
		Extracted:        out.Extracted,
		Display:          out.Display,
		Message:          out.Message,
		DetectedLanguage: out.DetectedLanguage,
		Additional:       out.Additional,
	}
	if !res.Valid {
		if res.Message == "" {
			res.Message = "That doesn't look like a valid answer for this question."
		}
		return res
	}

	// Domain rules run on top of whatever the classifier accepted.
	v.applyRules(profile, step, res)
	return res
}

func (v *Validator) applyRules(profile flow.Profile, step *flow.Step, res *Result) {
	switch profile {
	case flow.ProfilePassport:
		v.passportRules(step, res)
	case flow.ProfileTravel:
		v.travelRules(step, res)
	case flow.ProfileWork:
		workRules(step, res)
	case flow.ProfileSecurity:
		securityRules(res)
	}
	// Personal and generic profiles stay permissive: whatever the
	// classifier extracted stands.
}
