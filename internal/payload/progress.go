package payload

import "math"

// requiredFields is the fixed checklist behind the completion percentage.
// Order is cosmetic; only the count matters.
var requiredFields = []string{
	"personal.surnames",
	"personal.given_names",
	"personal.dob",
	"personal.birth_place",
	"contact.phone",
	"contact.email",
	"contact.address",
	"passport.number",
	"primary_occupation",
	"monthly_income",
	"marital_status",
	"travel.purpose",
	"travel.trip_payer",
	"work_history.current_employer",
	"security_questions.criminal_record",
	"security_questions.prior_deportation",
}

// Progress derives a 0-100 completion percentage from the required-field
// checklist. Pure; safe to call on every turn.
func Progress(doc Document) int {
	answered := 0
	for _, f := range requiredFields {
		if IsAnswered(doc, f) {
			answered++
		}
	}
	pct := int(math.Round(float64(answered) / float64(len(requiredFields)) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// RequiredFieldCount exposes the checklist length for UI copy ("12 of 16").
func RequiredFieldCount() int {
	return len(requiredFields)
}
