package scoring

// Conversational scoring: a simulated consular interview where an external
// classifier proposes a new absolute score each turn. The turn history is the
// source of truth; the running score is a fold over it.

// Verdict is the terminal outcome of a simulated interview.
type Verdict string

const (
	VerdictNone     Verdict = ""
	VerdictApproved Verdict = "approved"
	VerdictDenied   Verdict = "denied"
)

// Turn is one committed exchange in the simulation history.
type Turn struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Delta     int    `json:"delta"` // informational; Score is authoritative
	Score     int    `json:"score"`
	Rationale string `json:"rationale,omitempty"`
	FollowUp  string `json:"follow_up,omitempty"` // the officer's next question
}

// Settings bound the simulation. Zero values fall back to defaults.
type Settings struct {
	LowerBound int // score at or below this denies
	UpperBound int // score at or above this approves
	MinTurns   int // no verdict before this many turns, barring immediate fail
	MaxTurns   int // forced verdict at this many turns
}

// DefaultSettings mirrors the consulate simulation tuning.
func DefaultSettings() Settings {
	return Settings{LowerBound: 20, UpperBound: 85, MinTurns: 5, MaxTurns: 25}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.LowerBound == 0 {
		s.LowerBound = d.LowerBound
	}
	if s.UpperBound == 0 {
		s.UpperBound = d.UpperBound
	}
	if s.MinTurns == 0 {
		s.MinTurns = d.MinTurns
	}
	if s.MaxTurns == 0 {
		s.MaxTurns = d.MaxTurns
	}
	return s
}

// Conversation is the running state of one simulated interview.
type Conversation struct {
	Score    int
	Turns    []Turn
	Verdict  Verdict
	Settings Settings
}

// NewConversation starts a simulation from a static seed score, normally
// ProfileScore over the current payload.
func NewConversation(initialScore int, settings Settings) *Conversation {
	return &Conversation{Score: initialScore, Settings: settings.withDefaults()}
}

// TurnResult is what the external classifier reports for one answer.
type TurnResult struct {
	Delta         int
	Score         int
	Rationale     string
	FollowUp      string
	ImmediateFail bool // self-admission of fraud or crime
}

// Commit appends a completed turn and re-evaluates termination. The
// classifier's absolute score is authoritative; the delta is kept for audit.
// Commit is the only mutation point, so an abandoned stream leaves the
// conversation untouched.
func (c *Conversation) Commit(question, answer string, res TurnResult) Verdict {
	c.Turns = append(c.Turns, Turn{
		Question:  question,
		Answer:    answer,
		Delta:     res.Delta,
		Score:     res.Score,
		Rationale: res.Rationale,
		FollowUp:  res.FollowUp,
	})
	c.Score = res.Score

	c.Verdict = c.evaluate(res.ImmediateFail)
	return c.Verdict
}

// ReplayScore folds the committed history back into the running score.
// Used to rebuild state from storage and to assert history/score agreement.
func ReplayScore(initial int, turns []Turn) int {
	score := initial
	for _, t := range turns {
		score = t.Score
	}
	return score
}

func (c *Conversation) evaluate(immediateFail bool) Verdict {
	s := c.Settings
	turns := len(c.Turns)

	if immediateFail {
		return VerdictDenied
	}

	if turns >= s.MaxTurns {
		// Out of patience: the current score picks the side of the midpoint.
		if c.Score >= (s.LowerBound+s.UpperBound)/2 {
			return VerdictApproved
		}
		return VerdictDenied
	}

	// Threshold verdicts are suppressed until the interview has had a
	// minimum number of exchanges.
	if turns < s.MinTurns {
		return VerdictNone
	}
	if c.Score <= s.LowerBound {
		return VerdictDenied
	}
	if c.Score >= s.UpperBound {
		return VerdictApproved
	}
	return VerdictNone
}

// Done reports whether the simulation has reached a terminal verdict.
func (c *Conversation) Done() bool {
	return c.Verdict != VerdictNone
}
