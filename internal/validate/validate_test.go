package validate

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/wayfarer-app/visaflow/internal/flow"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// stubClassifier returns a canned outcome and records whether it was called.
type stubClassifier struct {
	out    *Outcome
	err    error
	called bool
}

func (s *stubClassifier) Classify(_ context.Context, _ *flow.Step, _ string) (*Outcome, error) {
	s.called = true
	return s.out, s.err
}

func newValidator(stub *stubClassifier) *Validator {
	v := New(stub, slog.Default())
	v.SetClock(func() time.Time { return testNow })
	return v
}

func maritalStep() *flow.Step {
	return &flow.Step{
		ID:        "marital",
		FieldPath: "marital_status",
		InputType: flow.InputSelect,
		Options: []flow.Option{
			{Value: "M", Label: "Married"},
			{Value: "S", Label: "Single"},
		},
		Profile: flow.ProfilePersonal,
	}
}

func TestOptionShortCircuitSkipsClassifier(t *testing.T) {
	stub := &stubClassifier{}
	v := newValidator(stub)

	res := v.Validate(context.Background(), maritalStep(), "M")
	if !res.Valid || res.Extracted != "M" || res.Display != "Married" {
		t.Fatalf("result = %+v", res)
	}
	if stub.called {
		t.Error("classifier called for an exact option match")
	}
}

func TestSelectWithoutMatchRejectsLocally(t *testing.T) {
	stub := &stubClassifier{}
	v := newValidator(stub)

	res := v.Validate(context.Background(), maritalStep(), "well it's complicated")
	if res.Valid {
		t.Fatal("free text accepted for a select step")
	}
	if stub.called {
		t.Error("classifier called for a closed-choice step")
	}
}

func TestClassifierFailureIsRecoverable(t *testing.T) {
	stub := &stubClassifier{err: errors.New("timeout")}
	v := newValidator(stub)

	step := &flow.Step{ID: "bp", FieldPath: "personal.birth_place", InputType: flow.InputText, Profile: flow.ProfilePersonal}
	res := v.Validate(context.Background(), step, "Tashkent")
	if res.Valid {
		t.Fatal("classifier failure must not validate")
	}
	if res.Message == "" {
		t.Error("rejection needs a user-facing message")
	}
}

func TestHelpRequestPassesThrough(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{HelpRequest: true, HelpResponse: "It means the city where you were born."}}
	v := newValidator(stub)

	step := &flow.Step{ID: "bp", FieldPath: "personal.birth_place", InputType: flow.InputText, Profile: flow.ProfilePersonal}
	res := v.Validate(context.Background(), step, "what do you mean?")
	if !res.HelpRequest || res.HelpResponse == "" {
		t.Fatalf("result = %+v", res)
	}
	if res.Valid {
		t.Error("a help request is not a valid answer")
	}
}

func TestPassportRules(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		extracted string
		wantValid bool
		wantWarn  bool
	}{
		{"good number normalized", "passport.number", "fa 1234567", true, false},
		{"short number", "passport.number", "A12", false, false},
		{"symbols rejected", "passport.number", "AB-12345!", false, false},
		{"future expiry", "passport.expiry_date", "2031-05-01", true, false},
		{"expired", "passport.expiry_date", "2025-01-01", false, false},
		{"near expiry warns", "passport.expiry_date", "2026-06-01", true, true},
		{"bad date format", "passport.expiry_date", "05/01/2031", false, false},
		{"issue date ok", "passport.issue_date", "2021-05-01", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: tt.extracted}}
			v := newValidator(stub)
			step := &flow.Step{ID: "p", FieldPath: tt.field, InputType: flow.InputText, Profile: flow.ProfilePassport}

			res := v.Validate(context.Background(), step, tt.extracted)
			if res.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (%+v)", res.Valid, tt.wantValid, res)
			}
			if (res.Warning != "") != tt.wantWarn {
				t.Errorf("warning = %q, wantWarn %v", res.Warning, tt.wantWarn)
			}
		})
	}
}

func TestPassportNumberNormalized(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: "fa 1234567"}}
	v := newValidator(stub)
	step := &flow.Step{ID: "p", FieldPath: "passport.number", InputType: flow.InputText, Profile: flow.ProfilePassport}

	res := v.Validate(context.Background(), step, "fa 1234567")
	if res.Extracted != "FA1234567" {
		t.Errorf("extracted = %v, want FA1234567", res.Extracted)
	}
}

func TestCheckPassportDates(t *testing.T) {
	if err := CheckPassportDates("2021-05-01", "2031-05-01"); err != nil {
		t.Errorf("valid ordering rejected: %v", err)
	}
	if err := CheckPassportDates("2031-05-01", "2021-05-01"); err == nil {
		t.Error("issue after expiry accepted")
	}
}

func TestTravelPurposeMapsToCategory(t *testing.T) {
	tests := []struct {
		purpose string
		want    string
		ok      bool
	}{
		{"tourism", "B-2", true},
		{"business", "B-1", true},
		{"study", "F-1", true},
		{"transit", "C-1", true},
		{"b-2", "B-2", true},
		{"summer vacation with family", "B-2", true},
		{"conquering mars", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			code, ok := VisaCategory(tt.purpose)
			if ok != tt.ok || code != tt.want {
				t.Errorf("VisaCategory(%q) = %q, %v; want %q, %v", tt.purpose, code, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTravelArrivalMustBeFuture(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: "2025-12-01"}}
	v := newValidator(stub)
	step := &flow.Step{ID: "arr", FieldPath: "travel.arrival_date", InputType: flow.InputDate, Profile: flow.ProfileTravel}

	res := v.Validate(context.Background(), step, "2025-12-01")
	if res.Valid {
		t.Error("past arrival date accepted")
	}
}

func TestWorkRejectsVagueOccupation(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: "business"}}
	v := newValidator(stub)
	step := &flow.Step{ID: "occ", FieldPath: "work_history.occupation_detail", InputType: flow.InputText, Profile: flow.ProfileWork}

	res := v.Validate(context.Background(), step, "business")
	if res.Valid {
		t.Fatal("single-word vague occupation accepted")
	}

	stub.out = &Outcome{Valid: true, Extracted: "Import/export business owner, 12 employees"}
	res = v.Validate(context.Background(), step, "I run an import/export business with 12 employees")
	if !res.Valid {
		t.Fatalf("elaborated occupation rejected: %+v", res)
	}
}

func TestWorkIncomeFlagsNearZero(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: float64(0)}}
	v := newValidator(stub)
	step := &flow.Step{ID: "inc", FieldPath: "monthly_income", InputType: flow.InputText, Profile: flow.ProfileWork}

	res := v.Validate(context.Background(), step, "nothing right now")
	if !res.Valid {
		t.Fatalf("zero income should be valid-with-warning, got %+v", res)
	}
	if res.Warning == "" {
		t.Error("zero income needs a follow-up warning")
	}
}

func TestSecurityScreening(t *testing.T) {
	secStep := &flow.Step{ID: "sec", FieldPath: "security_questions.criminal_record", InputType: flow.InputText, Profile: flow.ProfileSecurity}

	t.Run("alarming answer refused before classifier", func(t *testing.T) {
		stub := &stubClassifier{}
		v := newValidator(stub)
		res := v.Validate(context.Background(), secStep, "just the bomb in my suitcase haha")
		if res.Valid {
			t.Fatal("alarming answer accepted")
		}
		if res.Message == "" {
			t.Error("refusal needs an explicit warning")
		}
		if stub.called {
			t.Error("classifier called for an alarming answer")
		}
	})

	t.Run("ambiguous extraction rejected", func(t *testing.T) {
		stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: "probably not"}}
		v := newValidator(stub)
		res := v.Validate(context.Background(), secStep, "probably not?")
		if res.Valid {
			t.Error("ambiguous security answer accepted")
		}
	})

	t.Run("clear no accepted", func(t *testing.T) {
		stub := &stubClassifier{out: &Outcome{Valid: true, Extracted: "No"}}
		v := newValidator(stub)
		res := v.Validate(context.Background(), secStep, "no, never")
		if !res.Valid || res.Extracted != "no" {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestAdditionalDataPassesThrough(t *testing.T) {
	stub := &stubClassifier{out: &Outcome{
		Valid:     true,
		Extracted: "tourism",
		Additional: map[string]any{
			"work_history.current_employer": "Epam Systems",
		},
	}}
	v := newValidator(stub)
	step := &flow.Step{ID: "purpose", FieldPath: "travel.purpose", InputType: flow.InputText, Profile: flow.ProfileTravel}

	res := v.Validate(context.Background(), step, "vacation; I work at Epam by the way")
	if !res.Valid || res.Extracted != "B-2" {
		t.Fatalf("result = %+v", res)
	}
	if res.Additional["work_history.current_employer"] != "Epam Systems" {
		t.Errorf("additional data lost: %+v", res.Additional)
	}
}
