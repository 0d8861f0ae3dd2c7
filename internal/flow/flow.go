package flow

// InputType is the UI widget a step renders with.
type InputType string

const (
	InputText    InputType = "text"
	InputSelect  InputType = "select"
	InputDate    InputType = "date"
	InputBoolean InputType = "boolean"
)

// Profile selects the validator ruleset for a step. Declared on the step
// rather than inferred from the field path, so the dispatch is a closed enum.
type Profile string

const (
	ProfilePersonal Profile = "personal"
	ProfilePassport Profile = "passport"
	ProfileTravel   Profile = "travel"
	ProfileWork     Profile = "work"
	ProfileSecurity Profile = "security"
	ProfileGeneric  Profile = "generic"
)

// Context tags a step for special handling by the turn pipeline.
type Context string

const (
	ContextNone         Context = ""
	ContextTranslate    Context = "needs_translation"
	ContextPolish       Context = "polish_content"
	ContextSpouseParser Context = "spouse_parser"
)

// Operator is a prerequisite comparison.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
)

// Condition gates a step on another field's current value.
type Condition struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value string   `json:"value"`
}

// Option is one closed choice for a select step.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DefaultLocale is the fallback when a step has no prompt for the
// requested locale.
const DefaultLocale = "en"

// Step is one question in the ordered interview script. Steps are immutable
// for the duration of a session.
type Step struct {
	ID        string            `json:"id"`
	Position  int               `json:"position"`
	FieldPath string            `json:"field"`
	Prompts   map[string]string `json:"prompts"`
	InputType InputType         `json:"type"`
	Options   []Option          `json:"options,omitempty"`
	Profile   Profile           `json:"profile"`
	Context   Context           `json:"context,omitempty"`
	Prereq    *Condition        `json:"prereq,omitempty"`
}

// Prompt returns the step's question text for the requested locale, falling
// back to the default locale and then to any available translation.
func (s *Step) Prompt(locale string) string {
	if p, ok := s.Prompts[locale]; ok && p != "" {
		return p
	}
	if p, ok := s.Prompts[DefaultLocale]; ok && p != "" {
		return p
	}
	for _, p := range s.Prompts {
		if p != "" {
			return p
		}
	}
	return ""
}

// MatchOption case-insensitively matches raw input against the step's option
// values and labels, returning the canonical option on a hit. Closed-choice
// answers never need an external classifier.
func (s *Step) MatchOption(raw string) (Option, bool) {
	trimmed := trimFold(raw)
	for _, opt := range s.Options {
		if trimFold(opt.Value) == trimmed || trimFold(opt.Label) == trimmed {
			return opt, true
		}
	}
	return Option{}, false
}

// ValidatorProfile returns the declared profile, inferring one from the field
// path only for legacy script rows that predate the profile column.
func (s *Step) ValidatorProfile() Profile {
	if s.Profile != "" {
		return s.Profile
	}
	return inferProfile(s.FieldPath)
}
