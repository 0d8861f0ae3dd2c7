package flow

import (
	"fmt"
	"strings"

	"github.com/wayfarer-app/visaflow/internal/payload"
)

// Resolution is the outcome of a next-step pass. Complete is a real terminal
// state, distinct from a flow-load failure (which surfaces as an error before
// resolution ever runs).
type Resolution struct {
	Step     *Step
	Complete bool
}

// NextStep walks the script in order and returns the first eligible,
// unsatisfied step with its prompt localized. Deterministic for a fixed
// document and script. Complete=true means no eligible step remains.
func NextStep(doc payload.Document, steps []Step, locale string) Resolution {
	for i := range steps {
		step := &steps[i]
		if !prereqSatisfied(doc, step.Prereq) {
			continue
		}
		if stepSatisfied(doc, step) {
			continue
		}
		localized := *step
		localized.Prompts = map[string]string{locale: step.Prompt(locale)}
		return Resolution{Step: &localized}
	}
	return Resolution{Complete: true}
}

// prereqSatisfied evaluates a step's gate. A failed prerequisite skips the
// step entirely; it neither blocks nor gets asked.
func prereqSatisfied(doc payload.Document, cond *Condition) bool {
	if cond == nil {
		return true
	}
	current, _ := payload.Get(doc, cond.Field)
	match := compareLiteral(current, cond.Value)
	switch cond.Op {
	case OpNeq:
		return !match
	default:
		return match
	}
}

func compareLiteral(current any, want string) bool {
	if current == nil {
		return want == ""
	}
	return fmt.Sprintf("%v", current) == want
}

// stepSatisfied reports whether a step already has its answer. A spouse
// composite counts only when all three identity sub-fields are present;
// a partial spouse object is re-asked in full.
func stepSatisfied(doc payload.Document, step *Step) bool {
	if step.Context == ContextSpouseParser {
		for _, sub := range []string{"surnames", "given_names", "dob"} {
			if !payload.IsAnswered(doc, step.FieldPath+"."+sub) {
				return false
			}
		}
		return true
	}
	return payload.IsAnswered(doc, step.FieldPath)
}

// inferProfile is the legacy substring dispatch, kept only for script rows
// without a declared profile.
func inferProfile(fieldPath string) Profile {
	p := strings.ToLower(fieldPath)
	switch {
	case strings.Contains(p, "personal"), strings.Contains(p, "spouse"), strings.Contains(p, "contact"):
		return ProfilePersonal
	case strings.Contains(p, "passport"):
		return ProfilePassport
	case strings.Contains(p, "travel"), strings.Contains(p, "purpose"):
		return ProfileTravel
	case strings.Contains(p, "work"), strings.Contains(p, "occupation"), strings.Contains(p, "income"):
		return ProfileWork
	case strings.Contains(p, "security"):
		return ProfileSecurity
	default:
		return ProfileGeneric
	}
}

func trimFold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
