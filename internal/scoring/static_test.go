package scoring

import (
	"testing"
	"time"

	"github.com/wayfarer-app/visaflow/internal/payload"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func docWith(fields map[string]any) payload.Document {
	doc := payload.New()
	for path, v := range fields {
		payload.Set(doc, path, v)
	}
	return doc
}

func TestProfileScoreScenarioD(t *testing.T) {
	// Unemployed, 22, single, no prior visa:
	// 50 - 10(age) - 5(single) - 15(unemployed) = 20, already at the floor.
	doc := docWith(map[string]any{
		"personal.dob":       "2004-01-10",
		"marital_status":     "S",
		"primary_occupation": "U",
	})

	if got := ProfileScore(doc, testNow); got != 20 {
		t.Errorf("ProfileScore = %d, want 20", got)
	}
}

func TestProfileScoreAdjustments(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   int
	}{
		{"empty payload is neutral", nil, 50},
		{"prime age bonus", map[string]any{"personal.dob": "1985-06-01"}, 55},
		{"senior bonus", map[string]any{"personal.dob": "1960-01-01"}, 60},
		{"young penalty", map[string]any{"personal.dob": "2004-01-10"}, 40},
		{"married", map[string]any{"marital_status": "M"}, 60},
		{"common-law", map[string]any{"marital_status": "C"}, 60},
		{"single", map[string]any{"marital_status": "S"}, 45},
		{"unemployed", map[string]any{"primary_occupation": "U"}, 35},
		{"student", map[string]any{"primary_occupation": "ST"}, 55},
		{"employed", map[string]any{"primary_occupation": "E"}, 60},
		{"business owner", map[string]any{"primary_occupation": "B"}, 60},
		{"income over 2000", map[string]any{"monthly_income": 2500}, 55},
		{"income over 5000 stacks", map[string]any{"monthly_income": 6000}, 60},
		{"prior visa", map[string]any{"has_previous_visa": "yes"}, 65},
		{"prior refusal", map[string]any{"has_refusals": "yes"}, 35},
		{"prior visa stored as bool", map[string]any{"has_previous_visa": true}, 65},
		{"prior refusal stored as bool", map[string]any{"has_refusals": true}, 35},
		{"refusal stored as false bool", map[string]any{"has_refusals": false}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfileScore(docWith(tt.fields), testNow); got != tt.want {
				t.Errorf("ProfileScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProfileScoreClamped(t *testing.T) {
	worst := docWith(map[string]any{
		"personal.dob":       "2004-01-10",
		"marital_status":     "S",
		"primary_occupation": "U",
		"has_refusals":       "yes",
	})
	if got := ProfileScore(worst, testNow); got != 20 {
		t.Errorf("worst case = %d, want clamp at 20", got)
	}

	best := docWith(map[string]any{
		"personal.dob":       "1960-01-01",
		"marital_status":     "M",
		"primary_occupation": "B",
		"monthly_income":     9000,
		"has_previous_visa":  "yes",
	})
	if got := ProfileScore(best, testNow); got != 80 {
		t.Errorf("best case = %d, want clamp at 80", got)
	}
}

func TestTriageScoreClamped(t *testing.T) {
	worst := docWith(map[string]any{
		"personal.dob":       "2005-01-01",
		"marital_status":     "S",
		"primary_occupation": "U",
		"has_refusals":       "yes",
	})
	if got := TriageScore(worst, testNow); got != 10 {
		t.Errorf("worst triage = %d, want clamp at 10", got)
	}

	best := docWith(map[string]any{
		"personal.dob":        "1980-01-01",
		"marital_status":      "M",
		"primary_occupation":  "B",
		"monthly_income":      9000,
		"has_previous_visa":   "yes",
		"triage_property":     "yes",
		"triage_has_children": "yes",
	})
	if got := TriageScore(best, testNow); got != 65 {
		t.Errorf("best triage = %d, want clamp at 65", got)
	}
}

func TestTriageScoreBooleanAnswers(t *testing.T) {
	// Yes/no steps persist real booleans, not the word "yes"; each boolean
	// flag must adjust the score exactly as its string form does.
	asStrings := docWith(map[string]any{
		"has_previous_visa":   "yes",
		"has_refusals":        "yes",
		"triage_property":     "yes",
		"triage_has_children": "yes",
	})
	asBools := docWith(map[string]any{
		"has_previous_visa":   true,
		"has_refusals":        true,
		"triage_property":     true,
		"triage_has_children": true,
	})

	s, b := TriageScore(asStrings, testNow), TriageScore(asBools, testNow)
	if s != b {
		t.Errorf("boolean answers scored %d, string answers scored %d", b, s)
	}
	if base := TriageScore(payload.New(), testNow); b == base {
		t.Errorf("boolean answers had no effect, score stuck at base %d", base)
	}
}

func TestTriageScoreFlightRisk(t *testing.T) {
	// Young + single triggers the penalty; young + married does not.
	young := map[string]any{"personal.dob": "2004-01-10"}

	single := docWith(young)
	payload.Set(single, "marital_status", "S")
	married := docWith(young)
	payload.Set(married, "marital_status", "M")

	if s, m := TriageScore(single, testNow), TriageScore(married, testNow); s >= m {
		t.Errorf("single young (%d) should score below married young (%d)", s, m)
	}
}

func TestApplicantAge(t *testing.T) {
	tests := []struct {
		name string
		dob  string
		want int
		ok   bool
	}{
		{"birthday passed", "2000-01-01", 26, true},
		{"birthday not yet", "2000-12-31", 25, true},
		{"missing", "", 0, false},
		{"garbage", "not-a-date", 0, false},
		{"future dob", "2030-01-01", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := payload.New()
			if tt.dob != "" {
				payload.Set(doc, "personal.dob", tt.dob)
			}
			age, ok := ApplicantAge(doc, testNow)
			if age != tt.want || ok != tt.ok {
				t.Errorf("ApplicantAge(%q) = %d, %v; want %d, %v", tt.dob, age, ok, tt.want, tt.ok)
			}
		})
	}
}
