package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/wayfarer-app/visaflow/internal/interview"
	"github.com/wayfarer-app/visaflow/internal/store"
)

// AnswerRequest is one submitted interview answer.
type AnswerRequest struct {
	Field  string `json:"field"`
	Answer string `json:"answer"`
	Locale string `json:"locale,omitempty"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	out, err := s.engine.HandleAnswer(r.Context(), interview.TurnInput{
		UserID: userID,
		Field:  req.Field,
		Answer: req.Answer,
		Locale: req.Locale,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.NextStep(r.Context(), r.Header.Get(userHeader), r.URL.Query().Get("locale"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Progress(r.Context(), r.Header.Get(userHeader))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"progress": p})
}

func (s *Server) triage(w http.ResponseWriter, r *http.Request) {
	score, err := s.engine.Triage(r.Context(), r.Header.Get(userHeader))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"score": score})
}

// ResetFieldRequest is the admin wipe-and-reask request.
type ResetFieldRequest struct {
	UserID string `json:"user_id"`
	Field  string `json:"field"`
}

func (s *Server) resetField(w http.ResponseWriter, r *http.Request) {
	var req ResetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.UserID == "" || req.Field == "" {
		writeError(w, http.StatusBadRequest, "user_id and field are required")
		return
	}
	if err := s.engine.ResetField(r.Context(), req.UserID, req.Field); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// PassportRequest carries a passport photo for extraction.
type PassportRequest struct {
	Image     string `json:"image"` // base64
	MediaType string `json:"media_type"`
}

func (s *Server) passport(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	var req PassportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image must be base64")
		return
	}
	if req.MediaType == "" {
		req.MediaType = "image/jpeg"
	}

	data, err := s.extractor.ExtractPassport(r.Context(), image, req.MediaType)
	if err != nil {
		s.logger.Error("passport extraction failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not read the document, try a clearer photo")
		return
	}
	scan, err := s.engine.ApplyPassport(r.Context(), userID, data)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) simStart(w http.ResponseWriter, r *http.Request) {
	out, err := s.simulator.Start(r.Context(), r.Header.Get(userHeader))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SimTurnRequest is one applicant reply in the simulated interview.
type SimTurnRequest struct {
	SimulationID string `json:"simulation_id"`
	Answer       string `json:"answer"`
}

// simTurn runs one simulation exchange. With Accept: text/event-stream the
// officer's commentary streams as SSE deltas followed by one result event;
// otherwise the committed result comes back as plain JSON.
func (s *Server) simTurn(w http.ResponseWriter, r *http.Request) {
	var req SimTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	simID, err := uuid.Parse(req.SimulationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "simulation_id must be a UUID")
		return
	}

	if r.Header.Get("Accept") != "text/event-stream" {
		out, err := s.simulator.Turn(r.Context(), simID, req.Answer, nil)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	onDelta := func(text string) {
		chunk, _ := json.Marshal(map[string]string{"text": text})
		fmt.Fprintf(w, "event: delta\ndata: %s\n\n", chunk)
		flusher.Flush()
	}
	out, err := s.simulator.Turn(r.Context(), simID, req.Answer, onDelta)
	if err != nil {
		chunk, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", chunk)
		flusher.Flush()
		return
	}
	chunk, _ := json.Marshal(out)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", chunk)
	flusher.Flush()
}

// writeEngineError maps engine errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, interview.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "unknown field")
	case errors.Is(err, interview.ErrSimulationOver):
		writeError(w, http.StatusConflict, "simulation already decided")
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "application changed concurrently, retry")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrFlowUnavailable):
		writeError(w, http.StatusServiceUnavailable, "interview script unavailable")
	case errors.Is(err, store.ErrCorruptPayload):
		s.logger.Error("corrupt application payload", "error", err)
		writeError(w, http.StatusConflict, "application data corrupt, contact support")
	default:
		s.logger.Error("interview turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
