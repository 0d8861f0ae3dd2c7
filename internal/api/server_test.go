package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wayfarer-app/visaflow/internal/interview"
	"github.com/wayfarer-app/visaflow/internal/ocr"
	"github.com/wayfarer-app/visaflow/internal/store"
)

type stubEngine struct {
	answerOut  *interview.TurnOutput
	answerErr  error
	lastInput  interview.TurnInput
	resetUser  string
	resetField string
	scan       *interview.PassportScan
}

func (s *stubEngine) HandleAnswer(_ context.Context, in interview.TurnInput) (*interview.TurnOutput, error) {
	s.lastInput = in
	return s.answerOut, s.answerErr
}

func (s *stubEngine) NextStep(_ context.Context, userID, _ string) (*interview.TurnOutput, error) {
	if userID == "" {
		return nil, interview.ErrUnauthenticated
	}
	return s.answerOut, s.answerErr
}

func (s *stubEngine) Progress(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, interview.ErrUnauthenticated
	}
	return 42, nil
}

func (s *stubEngine) Triage(_ context.Context, _ string) (int, error) { return 27, nil }

func (s *stubEngine) ResetField(_ context.Context, userID, field string) error {
	s.resetUser, s.resetField = userID, field
	return nil
}

func (s *stubEngine) ApplyPassport(_ context.Context, _ string, _ *ocr.PassportData) (*interview.PassportScan, error) {
	return s.scan, nil
}

type stubSim struct {
	start *interview.SimStart
	turn  *interview.SimTurn
	err   error
	delta string
}

func (s *stubSim) Start(_ context.Context, userID string) (*interview.SimStart, error) {
	if userID == "" {
		return nil, interview.ErrUnauthenticated
	}
	return s.start, s.err
}

func (s *stubSim) Turn(_ context.Context, _ uuid.UUID, _ string, onDelta func(string)) (*interview.SimTurn, error) {
	if s.err != nil {
		return nil, s.err
	}
	if onDelta != nil && s.delta != "" {
		onDelta(s.delta)
	}
	return s.turn, nil
}

type stubExtractor struct {
	data *ocr.PassportData
	err  error
	got  []byte
}

func (s *stubExtractor) ExtractPassport(_ context.Context, image []byte, _ string) (*ocr.PassportData, error) {
	s.got = image
	return s.data, s.err
}

func newTestServer(engine *stubEngine, sim *stubSim, ex *stubExtractor) *Server {
	if engine == nil {
		engine = &stubEngine{}
	}
	if sim == nil {
		sim = &stubSim{}
	}
	if ex == nil {
		ex = &stubExtractor{}
	}
	return NewServer(8750, "secret", engine, sim, ex, slog.Default())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/visaflow/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "visaflow" {
		t.Errorf("expected service visaflow, got %q", body["service"])
	}
}

func TestAnswerEndpointPassesIdentityAndBody(t *testing.T) {
	engine := &stubEngine{answerOut: &interview.TurnOutput{Progress: 10}}
	srv := newTestServer(engine, nil, nil)

	body := bytes.NewBufferString(`{"field":"marital_status","answer":"M","locale":"ru"}`)
	req := httptest.NewRequest("POST", "/api/v1/interview/answer", body)
	req.Header.Set(userHeader, "u42")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	in := engine.lastInput
	if in.UserID != "u42" || in.Field != "marital_status" || in.Answer != "M" || in.Locale != "ru" {
		t.Errorf("engine got wrong input: %+v", in)
	}
}

func TestAnswerEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unauthenticated", interview.ErrUnauthenticated, http.StatusUnauthorized},
		{"unknown field", interview.ErrUnknownField, http.StatusBadRequest},
		{"version conflict", store.ErrVersionConflict, http.StatusConflict},
		{"flow unavailable", store.ErrFlowUnavailable, http.StatusServiceUnavailable},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"corrupt payload", store.ErrCorruptPayload, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubEngine{answerErr: tt.err}, nil, nil)

			req := httptest.NewRequest("POST", "/api/v1/interview/answer", bytes.NewBufferString(`{"field":"x","answer":"y"}`))
			req.Header.Set(userHeader, "u1")
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			if w.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, w.Code)
			}
		})
	}
}

func TestAnswerEndpointRejectsBadJSON(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/interview/answer", bytes.NewBufferString("{nope"))
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestProgressEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/interview/progress", nil)
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["progress"] != 42 {
		t.Errorf("expected progress 42, got %d", body["progress"])
	}
}

func TestProgressRequiresIdentity(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/interview/progress", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestResetFieldRequiresBearerToken(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(engine, nil, nil)
	body := `{"user_id":"u1","field":"marital_status"}`

	req := httptest.NewRequest("POST", "/api/v1/admin/reset-field", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if engine.resetField != "" {
		t.Error("engine must not be called without auth")
	}

	req = httptest.NewRequest("POST", "/api/v1/admin/reset-field", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if engine.resetUser != "u1" || engine.resetField != "marital_status" {
		t.Errorf("engine got %q/%q", engine.resetUser, engine.resetField)
	}
}

func TestPassportEndpointDecodesImage(t *testing.T) {
	ex := &stubExtractor{data: &ocr.PassportData{}}
	engine := &stubEngine{scan: &interview.PassportScan{Applied: []string{"passport.number"}, Progress: 6}}
	srv := newTestServer(engine, nil, ex)

	img := base64.StdEncoding.EncodeToString([]byte("raw-image-bytes"))
	body, _ := json.Marshal(map[string]string{"image": img, "media_type": "image/png"})
	req := httptest.NewRequest("POST", "/api/v1/documents/passport", bytes.NewReader(body))
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(ex.got) != "raw-image-bytes" {
		t.Errorf("extractor got %q", ex.got)
	}
	var scan interview.PassportScan
	if err := json.NewDecoder(w.Body).Decode(&scan); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(scan.Applied) != 1 || scan.Applied[0] != "passport.number" {
		t.Errorf("unexpected applied list: %v", scan.Applied)
	}
}

func TestPassportEndpointRejectsBadBase64(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	body := `{"image":"not-_-base64!!"}`
	req := httptest.NewRequest("POST", "/api/v1/documents/passport", bytes.NewBufferString(body))
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSimulationTurnJSON(t *testing.T) {
	sim := &stubSim{turn: &interview.SimTurn{Score: 70, Turns: 1, NextQuestion: "Who pays for the trip?"}}
	srv := newTestServer(nil, sim, nil)

	body, _ := json.Marshal(map[string]string{"simulation_id": uuid.NewString(), "answer": "tourism"})
	req := httptest.NewRequest("POST", "/api/v1/simulation/turn", bytes.NewReader(body))
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out interview.SimTurn
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Score != 70 || out.NextQuestion != "Who pays for the trip?" {
		t.Errorf("unexpected turn: %+v", out)
	}
}

func TestSimulationTurnSSEStreamsDeltasThenResult(t *testing.T) {
	sim := &stubSim{turn: &interview.SimTurn{Score: 70, Turns: 1}, delta: "hm, "}
	srv := newTestServer(nil, sim, nil)

	body, _ := json.Marshal(map[string]string{"simulation_id": uuid.NewString(), "answer": "tourism"})
	req := httptest.NewRequest("POST", "/api/v1/simulation/turn", bytes.NewReader(body))
	req.Header.Set(userHeader, "u1")
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
	out := w.Body.String()
	deltaAt := strings.Index(out, "event: delta")
	resultAt := strings.Index(out, "event: result")
	if deltaAt == -1 || resultAt == -1 || deltaAt > resultAt {
		t.Errorf("expected delta before result, got:\n%s", out)
	}
}

func TestSimulationTurnOverMapsToConflict(t *testing.T) {
	sim := &stubSim{err: interview.ErrSimulationOver}
	srv := newTestServer(nil, sim, nil)

	body, _ := json.Marshal(map[string]string{"simulation_id": uuid.NewString(), "answer": "x"})
	req := httptest.NewRequest("POST", "/api/v1/simulation/turn", bytes.NewReader(body))
	req.Header.Set(userHeader, "u1")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
