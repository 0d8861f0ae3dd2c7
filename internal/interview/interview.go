// Package interview orchestrates one atomic turn of the DS-160 interview:
// read the application, intercept a pending confirmation, validate, persist,
// resolve the next question, and score once the flow is exhausted.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-app/visaflow/internal/confirm"
	"github.com/wayfarer-app/visaflow/internal/events"
	"github.com/wayfarer-app/visaflow/internal/flow"
	"github.com/wayfarer-app/visaflow/internal/payload"
	"github.com/wayfarer-app/visaflow/internal/scoring"
	"github.com/wayfarer-app/visaflow/internal/session"
	"github.com/wayfarer-app/visaflow/internal/store"
	"github.com/wayfarer-app/visaflow/internal/validate"
)

var (
	// ErrUnauthenticated means no current user; nothing was read or written.
	ErrUnauthenticated = errors.New("interview: unauthenticated")
	// ErrUnknownField means the submitted field is not part of the script.
	ErrUnknownField = errors.New("interview: unknown field")
)

// Applications is the slice of the store the engine needs.
type Applications interface {
	GetApplicationByUser(ctx context.Context, userID string) (*store.Application, error)
	CreateApplication(ctx context.Context, userID string) (*store.Application, error)
	UpdatePayload(ctx context.Context, app *store.Application) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetScores(ctx context.Context, id uuid.UUID, triage, profile *int) error
	LoadFlow(ctx context.Context) ([]flow.Step, error)
}

// Validator validates one raw answer against its step.
type Validator interface {
	Validate(ctx context.Context, step *flow.Step, raw string) *validate.Result
}

// Publisher emits lifecycle events; failures are logged, never fatal.
type Publisher interface {
	Publish(subject string, data any) error
}

type Engine struct {
	store     Applications
	sessions  session.Store
	validator Validator
	intents   confirm.IntentClassifier
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func New(st Applications, sessions session.Store, v Validator, intents confirm.IntentClassifier, pub Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:     st,
		sessions:  sessions,
		validator: v,
		intents:   intents,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the engine clock in tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// TurnInput is one submitted answer.
type TurnInput struct {
	UserID string
	Field  string
	Answer string
	Locale string
}

// Confirmation is the hold prompt returned instead of a next step.
type Confirmation struct {
	Field    string `json:"field"`
	Proposed any    `json:"proposed"`
	Prompt   string `json:"prompt"`
}

// Risk is attached once the interview completes.
type Risk struct {
	ProfileScore int `json:"profile_score"`
}

// TurnOutput is the engine's response for one turn.
type TurnOutput struct {
	NextStep     *flow.Step       `json:"next_step,omitempty"`
	Complete     bool             `json:"complete"`
	Validation   *validate.Result `json:"validation,omitempty"`
	Confirmation *Confirmation    `json:"confirmation,omitempty"`
	Risk         *Risk            `json:"risk,omitempty"`
	Progress     int              `json:"progress"`
}

// HandleAnswer processes one interview turn. Recoverable outcomes (invalid
// answer, help request, pending confirmation) come back in the output;
// errors mean the turn could not run and nothing beyond already-committed
// state changed.
func (e *Engine) HandleAnswer(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	if in.UserID == "" {
		return nil, ErrUnauthenticated
	}

	app, err := e.loadOrCreate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	sess, err := e.sessions.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	locale := pickLocale(in.Locale, sess.Locale)
	if locale != sess.Locale {
		sess.Locale = locale
		if err := e.sessions.Put(ctx, in.UserID, sess); err != nil {
			return nil, err
		}
	}

	// A pending confirmation owns the turn: the reply is read as
	// accept-or-reject, never as a new answer.
	if sess.Confirmation.Pending() {
		return e.handleConfirmationReply(ctx, app, sess, in)
	}

	steps, err := e.store.LoadFlow(ctx)
	if err != nil {
		return nil, err
	}
	step := findStep(steps, in.Field)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, in.Field)
	}

	result := e.validator.Validate(ctx, step, in.Answer)

	// Help requests and rejections re-ask the same step with no mutation.
	if result.HelpRequest || !result.Valid {
		return &TurnOutput{
			NextStep:   localized(step, locale),
			Validation: result,
			Progress:   payload.Progress(app.Payload),
		}, nil
	}

	// Per-field rules see one date at a time; the issue/expiry ordering can
	// only be checked here, against the counterpart already on file.
	if msg := crossCheckPassportDates(app.Payload, step, result.Extracted); msg != "" {
		result.Valid = false
		result.Message = msg
		return &TurnOutput{
			NextStep:   localized(step, locale),
			Validation: result,
			Progress:   payload.Progress(app.Payload),
		}, nil
	}

	// Fields mentioned in passing are persisted immediately, before any
	// confirmation hold on the primary field.
	e.applyAdditional(app, result.Additional)

	// Picking from a closed list is explicit; only free-text rewrites are
	// held for sign-off.
	if step.InputType != flow.InputSelect && confirm.NeedsConfirmation(in.Answer, result.Extracted) {
		prompt := confirmationPrompt(result, locale)
		sess.Confirmation = confirm.Hold(step.FieldPath, result.Extracted, prompt)
		if len(result.Additional) > 0 {
			if err := e.store.UpdatePayload(ctx, app); err != nil {
				return nil, err
			}
			e.publishUpdated(app, "")
		}
		if err := e.sessions.Put(ctx, in.UserID, sess); err != nil {
			return nil, err
		}
		return &TurnOutput{
			Validation:   result,
			Confirmation: &Confirmation{Field: step.FieldPath, Proposed: result.Extracted, Prompt: prompt},
			Progress:     payload.Progress(app.Payload),
		}, nil
	}

	e.saveValue(app, step, result.Extracted)
	if err := e.store.UpdatePayload(ctx, app); err != nil {
		return nil, err
	}
	e.publishUpdated(app, step.FieldPath)

	out, err := e.advance(ctx, app, steps, locale)
	if err != nil {
		return nil, err
	}
	out.Validation = result
	return out, nil
}

func (e *Engine) handleConfirmationReply(ctx context.Context, app *store.Application, sess session.State, in TurnInput) (*TurnOutput, error) {
	pending := sess.Confirmation
	intent := confirm.Resolve(ctx, e.intents, pending.Proposed, in.Answer)

	switch intent {
	case confirm.IntentConfirm:
		payload.Set(app.Payload, pending.Field, pending.Proposed)
	case confirm.IntentReject:
		// Wipe, not revert: the step is re-asked from scratch.
		payload.Reset(app.Payload, pending.Field)
	default:
		// Ambiguous replies re-prompt rather than guess.
		return &TurnOutput{
			Confirmation: &Confirmation{Field: pending.Field, Proposed: pending.Proposed, Prompt: pending.Prompt},
			Progress:     payload.Progress(app.Payload),
		}, nil
	}

	if err := e.store.UpdatePayload(ctx, app); err != nil {
		return nil, err
	}
	e.publishUpdated(app, pending.Field)
	sess.Confirmation = confirm.Idle()
	if err := e.sessions.Put(ctx, in.UserID, sess); err != nil {
		return nil, err
	}

	steps, err := e.store.LoadFlow(ctx)
	if err != nil {
		return nil, err
	}
	return e.advance(ctx, app, steps, pickLocale(in.Locale, sess.Locale))
}

// NextStep answers GET next-step: the pending confirmation if one is
// outstanding, otherwise the first eligible unsatisfied step.
func (e *Engine) NextStep(ctx context.Context, userID, locale string) (*TurnOutput, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	app, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	locale = pickLocale(locale, sess.Locale)

	if sess.Confirmation.Pending() {
		p := sess.Confirmation
		return &TurnOutput{
			Confirmation: &Confirmation{Field: p.Field, Proposed: p.Proposed, Prompt: p.Prompt},
			Progress:     payload.Progress(app.Payload),
		}, nil
	}

	steps, err := e.store.LoadFlow(ctx)
	if err != nil {
		return nil, err
	}
	return e.advance(ctx, app, steps, locale)
}

// ResetField is the admin wipe-and-reask operation. It shares the
// deep-set-to-nil path with confirmation rejection.
func (e *Engine) ResetField(ctx context.Context, userID, field string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	app, err := e.store.GetApplicationByUser(ctx, userID)
	if err != nil {
		return err
	}
	payload.Reset(app.Payload, field)
	if err := e.store.UpdatePayload(ctx, app); err != nil {
		return err
	}
	e.publishUpdated(app, field)

	// A confirmation pending on the same field is now meaningless.
	sess, err := e.sessions.Get(ctx, userID)
	if err == nil && sess.Confirmation.Pending() && sess.Confirmation.Field == field {
		sess.Confirmation = confirm.Idle()
		_ = e.sessions.Put(ctx, userID, sess)
	}
	return nil
}

// Progress reports completion for the dashboard.
func (e *Engine) Progress(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	app, err := e.store.GetApplicationByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return payload.Progress(app.Payload), nil
}

// Triage computes and stores the cold-start score from whatever triage
// fields exist so far.
func (e *Engine) Triage(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	app, err := e.loadOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := scoring.TriageScore(app.Payload, e.now())
	if err := e.store.SetScores(ctx, app.ID, &score, nil); err != nil {
		return 0, err
	}
	return score, nil
}

// advance resolves the next question and, on completion, runs the one-time
// static scoring and publishes the completion event.
func (e *Engine) advance(ctx context.Context, app *store.Application, steps []flow.Step, locale string) (*TurnOutput, error) {
	progress := payload.Progress(app.Payload)
	res := flow.NextStep(app.Payload, steps, locale)
	if !res.Complete {
		return &TurnOutput{NextStep: res.Step, Progress: progress}, nil
	}

	score := scoring.ProfileScore(app.Payload, e.now())
	if app.ProfileScore == nil || *app.ProfileScore != score {
		if err := e.store.SetScores(ctx, app.ID, nil, &score); err != nil {
			return nil, err
		}
		if err := e.store.UpdateStatus(ctx, app.ID, store.StatusComplete); err != nil {
			return nil, err
		}
		app.ProfileScore = &score
		if e.publisher != nil {
			if err := e.publisher.Publish(events.SubjectInterviewCompleted, events.InterviewCompleted{
				ApplicationID: app.ID.String(),
				UserID:        app.UserID,
				ProfileScore:  score,
				Progress:      progress,
			}); err != nil {
				e.logger.Warn("failed to publish interview completed", "error", err)
			}
		}
	}

	return &TurnOutput{Complete: true, Risk: &Risk{ProfileScore: score}, Progress: progress}, nil
}

// publishUpdated emits the per-write lifecycle event. The write already
// committed, so a publish failure is logged and swallowed.
func (e *Engine) publishUpdated(app *store.Application, field string) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(events.SubjectApplicationUpdated, events.ApplicationUpdated{
		ApplicationID: app.ID.String(),
		UserID:        app.UserID,
		Field:         field,
		Version:       app.Version,
		Progress:      payload.Progress(app.Payload),
	}); err != nil {
		e.logger.Warn("failed to publish application updated", "error", err)
	}
}

func (e *Engine) loadOrCreate(ctx context.Context, userID string) (*store.Application, error) {
	app, err := e.store.GetApplicationByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return e.store.CreateApplication(ctx, userID)
	}
	return app, err
}

// saveValue persists the accepted answer. Spouse composites arrive as an
// object and are written per sub-field under the step's path.
func (e *Engine) saveValue(app *store.Application, step *flow.Step, value any) {
	if step.Context == flow.ContextSpouseParser {
		if obj, ok := value.(map[string]any); ok {
			for k, v := range obj {
				payload.Set(app.Payload, step.FieldPath+"."+k, v)
			}
			return
		}
	}
	payload.Set(app.Payload, step.FieldPath, value)
}

// applyAdditional saves fields the classifier extracted in passing. Paths
// come from model output, so anything off-schema or already answered is
// dropped rather than written.
func (e *Engine) applyAdditional(app *store.Application, extra map[string]any) {
	for path, v := range extra {
		if !payload.ValidPath(path) {
			e.logger.Warn("classifier proposed unknown field path", "path", path)
			continue
		}
		if payload.IsAnswered(app.Payload, path) {
			continue
		}
		payload.Set(app.Payload, path, v)
	}
}

// crossCheckPassportDates rejects an issue/expiry pair that is out of order.
// Each date validates on its own against the clock; the ordering between the
// two can only be checked once the counterpart is on file.
func crossCheckPassportDates(doc payload.Document, step *flow.Step, value any) string {
	v, ok := value.(string)
	if !ok || v == "" {
		return ""
	}
	var issue, expiry string
	switch step.FieldPath {
	case "passport.issue_date":
		issue, expiry = v, payload.GetString(doc, "passport.expiry_date")
	case "passport.expiry_date":
		issue, expiry = payload.GetString(doc, "passport.issue_date"), v
	default:
		return ""
	}
	if issue == "" || expiry == "" {
		return ""
	}
	if err := validate.CheckPassportDates(issue, expiry); err != nil {
		return "That would put the issue date after the expiration date. Please check both dates against your passport."
	}
	return ""
}

func findStep(steps []flow.Step, field string) *flow.Step {
	for i := range steps {
		if steps[i].FieldPath == field {
			return &steps[i]
		}
	}
	return nil
}

func localized(step *flow.Step, locale string) *flow.Step {
	s := *step
	s.Prompts = map[string]string{locale: step.Prompt(locale)}
	return &s
}

func pickLocale(requested, stored string) string {
	if requested != "" {
		return requested
	}
	if stored != "" {
		return stored
	}
	return flow.DefaultLocale
}

func confirmationPrompt(result *validate.Result, locale string) string {
	display := result.Display
	if display == "" {
		display = fmt.Sprintf("%v", result.Extracted)
	}
	if locale == "ru" {
		return fmt.Sprintf("Я запишу это в анкету как: «%s». Всё верно?", display)
	}
	return fmt.Sprintf("I'd put this on the form as: %q. Is that right?", display)
}
