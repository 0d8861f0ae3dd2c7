package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wayfarer-app/visaflow/internal/flow"
)

const dateLayout = "2006-01-02"

var passportNumberRe = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)

// passportRules enforces the strict document checks: number format, date
// format, issue-before-expiry ordering and expiry not in the past. A passport
// expiring within six months stays valid but carries a warning.
func (v *Validator) passportRules(step *flow.Step, res *Result) {
	value, _ := res.Extracted.(string)

	switch {
	case strings.HasSuffix(step.FieldPath, ".number"):
		normalized := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
		if !passportNumberRe.MatchString(normalized) {
			res.Valid = false
			res.Message = "A passport number is 6-12 letters and digits. Please check your document and try again."
			return
		}
		res.Extracted = normalized
		if res.Display == "" {
			res.Display = normalized
		}

	case strings.HasSuffix(step.FieldPath, ".expiry_date"):
		expiry, err := time.Parse(dateLayout, value)
		if err != nil {
			res.Valid = false
			res.Message = "Please give the expiration date as YYYY-MM-DD."
			return
		}
		now := v.now()
		if expiry.Before(now) {
			res.Valid = false
			res.Message = "This passport has expired. You will need a valid passport to apply."
			return
		}
		if expiry.Before(now.AddDate(0, 6, 0)) {
			res.Warning = "Your passport expires within six months. Many consulates require six months of validity beyond your stay."
		}

	case strings.HasSuffix(step.FieldPath, ".issue_date"):
		if _, err := time.Parse(dateLayout, value); err != nil {
			res.Valid = false
			res.Message = "Please give the issue date as YYYY-MM-DD."
			return
		}
	}
}

// CheckPassportDates cross-validates issue and expiry once both exist.
// Issuance after expiration means at least one of them is wrong.
func CheckPassportDates(issue, expiry string) error {
	i, err := time.Parse(dateLayout, issue)
	if err != nil {
		return fmt.Errorf("parse issue date: %w", err)
	}
	e, err := time.Parse(dateLayout, expiry)
	if err != nil {
		return fmt.Errorf("parse expiry date: %w", err)
	}
	if i.After(e) {
		return fmt.Errorf("issue date %s is after expiration %s", issue, expiry)
	}
	return nil
}

// visaCategories maps a normalized travel purpose to its visa-category code.
var visaCategories = map[string]string{
	"tourism":    "B-2",
	"vacation":   "B-2",
	"visit":      "B-2",
	"family":     "B-2",
	"medical":    "B-2",
	"business":   "B-1",
	"conference": "B-1",
	"meetings":   "B-1",
	"study":      "F-1",
	"student":    "F-1",
	"exchange":   "J-1",
	"work":       "H-1B",
	"transit":    "C-1",
}

// travelRules maps the purpose onto a known visa category and requires a
// future arrival date.
func (v *Validator) travelRules(step *flow.Step, res *Result) {
	value, _ := res.Extracted.(string)

	switch {
	case strings.HasSuffix(step.FieldPath, ".purpose"):
		code, ok := VisaCategory(value)
		if !ok {
			res.Valid = false
			res.Message = "I couldn't match that to a visa category. Is your trip for tourism, business, study, work, medical treatment or transit?"
			return
		}
		res.Extracted = code
		if res.Display == "" {
			res.Display = code
		}

	case strings.HasSuffix(step.FieldPath, ".arrival_date"):
		arrival, err := time.Parse(dateLayout, value)
		if err != nil {
			res.Valid = false
			res.Message = "Please give your planned arrival date as YYYY-MM-DD."
			return
		}
		if !arrival.After(v.now()) {
			res.Valid = false
			res.Message = "Your arrival date needs to be in the future."
		}
	}
}

// VisaCategory resolves a free-text purpose to its category code. Accepts
// either a known purpose keyword or an already-coded value.
func VisaCategory(purpose string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(purpose))
	if code, ok := visaCategories[p]; ok {
		return code, true
	}
	for _, code := range visaCategories {
		if strings.EqualFold(purpose, code) {
			return code, true
		}
	}
	for key, code := range visaCategories {
		if strings.Contains(p, key) {
			return code, true
		}
	}
	return "", false
}

// vagueOccupations are single-word answers that tell the consulate nothing.
var vagueOccupations = map[string]bool{
	"business": true,
	"work":     true,
	"job":      true,
	"trade":    true,
	"commerce": true,
	"stuff":    true,
}

// workRules rejects vague one-word occupations and flags implausibly low
// income for a follow-up instead of failing it.
func workRules(step *flow.Step, res *Result) {
	switch {
	case strings.Contains(step.FieldPath, "occupation") || strings.HasSuffix(step.FieldPath, ".duties"):
		value, _ := res.Extracted.(string)
		words := strings.Fields(value)
		if len(words) == 1 && vagueOccupations[strings.ToLower(words[0])] {
			res.Valid = false
			res.Message = "\"" + value + "\" is too vague for the form. What exactly do you do — your role, your industry, your employer?"
		}

	case strings.Contains(step.FieldPath, "income"):
		income, ok := toNumber(res.Extracted)
		if !ok {
			res.Valid = false
			res.Message = "Please give your monthly income as a number."
			return
		}
		res.Extracted = income
		if income <= 50 {
			res.Warning = "A near-zero income usually triggers questions about who funds the trip. We'll ask about your trip sponsor."
		}
	}
}

// alarmKeywords mark a security answer as flippant or alarming. These are
// refused with an explicit warning rather than silently dropped.
var alarmKeywords = []string{"bomb", "weapon", "explosive", "kill", "terror", "hijack"}

// screenSecurityAnswer runs before any classifier call. Returns nil when the
// answer passes the local screen.
func screenSecurityAnswer(raw string) *Result {
	lower := strings.ToLower(raw)
	for _, kw := range alarmKeywords {
		if strings.Contains(lower, kw) {
			return &Result{
				Valid:   false,
				Message: "Security questions are serious: answers like that can permanently bar you from entry. Please answer truthfully with yes or no.",
			}
		}
	}
	return nil
}

// securityRules requires an unambiguous yes or no from the classifier.
func securityRules(res *Result) {
	value, _ := res.Extracted.(string)
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "no":
		res.Extracted = strings.ToLower(strings.TrimSpace(value))
	default:
		res.Valid = false
		res.Message = "This question needs a clear yes or no."
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "$", "", " ", "").Replace(n))
		var f float64
		if _, err := fmt.Sscanf(cleaned, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
