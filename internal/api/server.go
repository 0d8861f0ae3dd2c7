// Package api exposes the interview engine over HTTP. Applicant identity
// arrives as a gateway-verified header; admin routes additionally require
// the service bearer token.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wayfarer-app/visaflow/internal/interview"
	"github.com/wayfarer-app/visaflow/internal/ocr"
)

// userHeader carries the applicant id set by the authenticating gateway.
const userHeader = "X-User-ID"

// InterviewEngine is the slice of the engine the HTTP layer calls.
type InterviewEngine interface {
	HandleAnswer(ctx context.Context, in interview.TurnInput) (*interview.TurnOutput, error)
	NextStep(ctx context.Context, userID, locale string) (*interview.TurnOutput, error)
	Progress(ctx context.Context, userID string) (int, error)
	Triage(ctx context.Context, userID string) (int, error)
	ResetField(ctx context.Context, userID, field string) error
	ApplyPassport(ctx context.Context, userID string, data *ocr.PassportData) (*interview.PassportScan, error)
}

// SimulationEngine runs the mock consular interview.
type SimulationEngine interface {
	Start(ctx context.Context, userID string) (*interview.SimStart, error)
	Turn(ctx context.Context, simID uuid.UUID, answer string, onDelta func(string)) (*interview.SimTurn, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	apiToken  string
	engine    InterviewEngine
	simulator SimulationEngine
	extractor ocr.Extractor
	logger    *slog.Logger
}

func NewServer(port int, apiToken string, engine InterviewEngine, sim SimulationEngine, extractor ocr.Extractor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		apiToken:  apiToken,
		engine:    engine,
		simulator: sim,
		extractor: extractor,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/visaflow/status", s.status)

	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Post("/answer", s.answer)
		r.Get("/next", s.next)
		r.Get("/progress", s.progress)
		r.Post("/triage", s.triage)
	})
	router.Post("/api/v1/documents/passport", s.passport)
	router.Route("/api/v1/simulation", func(r chi.Router) {
		r.Post("/start", s.simStart)
		r.Post("/turn", s.simTurn)
	})
	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/reset-field", s.resetField)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}

// BearerAuthMiddleware guards admin routes with the service token.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusServiceUnavailable, "admin API disabled")
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "visaflow",
		"status":  "ok",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
