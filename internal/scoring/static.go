package scoring

import (
	"strings"
	"time"

	"github.com/wayfarer-app/visaflow/internal/payload"
)

// Two static formulas coexist on purpose: ProfileScore seeds a simulated
// interview from a filled-in application, TriageScore rates a cold profile
// before the interview starts. They have different floors and must stay
// separate strategies; callers pick one explicitly.

// Marital status codes as stored in the payload.
const (
	MaritalMarried   = "M"
	MaritalCommonLaw = "C"
	MaritalSingle    = "S"
)

// Occupation codes as stored in the payload.
const (
	OccupationEmployed   = "E"
	OccupationBusiness   = "B"
	OccupationStudent    = "ST"
	OccupationUnemployed = "U"
)

// ProfileScore computes the pre-interview eligibility estimate from a richer
// application payload. Base 50, adjustments summed independently, clamped to
// [20,80]: never hopeless, never certain.
func ProfileScore(doc payload.Document, now time.Time) int {
	score := 50

	if age, ok := ApplicantAge(doc, now); ok {
		switch {
		case age >= 18 && age <= 29:
			score -= 10
		case age > 60:
			score += 10
		default:
			score += 5
		}
	}

	switch payload.GetString(doc, "marital_status") {
	case MaritalMarried, MaritalCommonLaw:
		score += 10
	case MaritalSingle:
		score -= 5
	}

	switch payload.GetString(doc, "primary_occupation") {
	case OccupationUnemployed:
		score -= 15
	case OccupationStudent:
		score += 5
	case OccupationEmployed, OccupationBusiness:
		score += 10
	}

	if income, ok := payload.GetFloat(doc, "monthly_income"); ok {
		if income > 2000 {
			score += 5
		}
		if income > 5000 {
			score += 5
		}
	}

	if answeredYes(doc, "has_previous_visa") {
		score += 15
	}
	if answeredYes(doc, "has_refusals") {
		score -= 15
	}

	return clamp(score, 20, 80)
}

// TriageScore rates a cold-start profile from the handful of triage fields
// captured before the interview. Lower floor than ProfileScore: with this
// little signal the model never gets optimistic. Clamped to [10,65].
func TriageScore(doc payload.Document, now time.Time) int {
	score := 15

	age, hasAge := ApplicantAge(doc, now)
	single := payload.GetString(doc, "marital_status") == MaritalSingle

	if hasAge {
		switch {
		case age >= 18 && age <= 29:
			if single {
				// Young and unattached reads as flight risk at the consulate.
				score -= 10
			}
		case age >= 30 && age <= 55:
			score += 10
		case age > 60:
			score += 8
		}
	}

	switch payload.GetString(doc, "primary_occupation") {
	case OccupationEmployed:
		score += 12
	case OccupationBusiness:
		score += 15
	case OccupationStudent:
		score += 5
	case OccupationUnemployed:
		score -= 12
	}

	if income, ok := payload.GetFloat(doc, "monthly_income"); ok {
		switch {
		case income > 5000:
			score += 12
		case income > 2000:
			score += 8
		case income > 500:
			score += 3
		}
	}

	if answeredYes(doc, "has_previous_visa") {
		score += 12
	}
	if answeredYes(doc, "has_refusals") {
		score -= 12
	}
	if answeredYes(doc, "triage_property") {
		score += 5
	}
	if answeredYes(doc, "triage_has_children") {
		score += 5
	}

	return clamp(score, 10, 65)
}

// ApplicantAge derives whole years from personal.dob (YYYY-MM-DD).
func ApplicantAge(doc payload.Document, now time.Time) (int, bool) {
	dob := payload.GetString(doc, "personal.dob")
	if dob == "" {
		return 0, false
	}
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return 0, false
	}
	age := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		age--
	}
	if age < 0 || age > 130 {
		return 0, false
	}
	return age, true
}

// answeredYes reads an affirmative answer at path. Boolean steps store a
// real bool; free-text steps store whatever string the applicant typed.
func answeredYes(doc payload.Document, path string) bool {
	v, ok := payload.Get(doc, path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true", "1":
			return true
		}
	}
	return false
}

func clamp(score, lo, hi int) int {
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}
