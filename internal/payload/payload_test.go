package payload

import (
	"encoding/json"
	"testing"
)

func TestGetSet(t *testing.T) {
	doc := New()

	Set(doc, "personal.surnames", "IVANOVA")
	v, ok := Get(doc, "personal.surnames")
	if !ok || v != "IVANOVA" {
		t.Fatalf("Get(personal.surnames) = %v, %v; want IVANOVA, true", v, ok)
	}

	// Intermediate containers are created on write.
	Set(doc, "personal.spouse.dob", "1990-04-12")
	v, ok = Get(doc, "personal.spouse.dob")
	if !ok || v != "1990-04-12" {
		t.Fatalf("Get(personal.spouse.dob) = %v, %v", v, ok)
	}
}

func TestGetMissingPath(t *testing.T) {
	doc := New()

	tests := []struct {
		name string
		path string
	}{
		{"missing leaf", "personal.surnames"},
		{"missing branch", "personal.spouse.dob"},
		{"missing section", "nonexistent.field"},
		{"descent through scalar", "primary_occupation.sub"},
		{"empty path", ""},
	}

	Set(doc, "primary_occupation", "E")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Get(doc, tt.path); ok {
				t.Errorf("Get(%q) found a value, want unanswered", tt.path)
			}
		})
	}
}

func TestAnswered(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"empty string", "", false},
		{"string", "M", true},
		{"zero number", float64(0), true},
		{"false boolean", false, true},
		{"object", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Answered(tt.v); got != tt.want {
				t.Errorf("Answered(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	doc := New()
	Set(doc, "work_history.duties", "manages a team")
	Reset(doc, "work_history.duties")

	if IsAnswered(doc, "work_history.duties") {
		t.Error("field still answered after Reset")
	}
}

func TestSetSurvivesJSONRoundTrip(t *testing.T) {
	doc := New()
	Set(doc, "personal.spouse.surnames", "PETROV")
	Set(doc, "monthly_income", 2500)

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Document
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := GetString(back, "personal.spouse.surnames"); got != "PETROV" {
		t.Errorf("spouse.surnames after round trip = %q", got)
	}
	if n, ok := GetFloat(back, "monthly_income"); !ok || n != 2500 {
		t.Errorf("monthly_income after round trip = %v, %v", n, ok)
	}
}

func TestProgressScenario(t *testing.T) {
	// Only surnames and given_names filled: round(2/16*100) = 13.
	doc := New()
	Set(doc, "personal.surnames", "IVANOVA")
	Set(doc, "personal.given_names", "ANNA")

	if got := Progress(doc); got != 13 {
		t.Errorf("Progress = %d, want 13", got)
	}
}

func TestProgressBounds(t *testing.T) {
	empty := New()
	if got := Progress(empty); got != 0 {
		t.Errorf("Progress(empty) = %d, want 0", got)
	}

	full := New()
	for _, f := range requiredFields {
		Set(full, f, "x")
	}
	if got := Progress(full); got != 100 {
		t.Errorf("Progress(full) = %d, want 100", got)
	}
}

func TestProgressMonotonic(t *testing.T) {
	doc := New()
	prev := Progress(doc)
	for _, f := range requiredFields {
		Set(doc, f, "answered")
		cur := Progress(doc)
		if cur < prev {
			t.Fatalf("progress decreased from %d to %d after filling %s", prev, cur, f)
		}
		prev = cur
	}
}

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"personal.surnames", true},
		{"work_history.current_employer", true},
		{"marital_status", true},
		{"has_previous_visa", true},
		{"personal", true},
		{"", false},
		{"marital_status.extra", false}, // scalars take no sub-paths
		{"employment.duties", false},    // unknown section
		{"trvel.purpose", false},        // typo must not pass
	}
	for _, tt := range tests {
		if got := ValidPath(tt.path); got != tt.want {
			t.Errorf("ValidPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
