package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/straja-ai/wsd/internal/audit"
	"github.com/straja-ai/wsd/internal/config"
	"github.com/straja-ai/wsd/internal/sense"
	"github.com/straja-ai/wsd/internal/telemetry"
	"github.com/straja-ai/wsd/internal/wsd"
)

const maxBodyBytes = 4 << 20

// Predictor is the part of wsd.Predictor the HTTP layer needs.
type Predictor interface {
	Words() []sense.Word
	Predict(ctx context.Context, word sense.Word, sentences []string) ([]sense.Label, error)
	Explain(ctx context.Context, word sense.Word, sentences []string) ([]wsd.Decision, error)
}

// Server wraps the HTTP server components for wsd.
type Server struct {
	mux          *http.ServeMux
	predictor    Predictor
	telemetry    *telemetry.Provider
	audit        *audit.Emitter
	logger       *slog.Logger
	maxSentences int
	shutdown     time.Duration
}

type Option func(*Server)

func WithTelemetry(tel *telemetry.Provider) Option {
	return func(s *Server) { s.telemetry = tel }
}

// WithAudit emits one event per disambiguation request.
func WithAudit(em *audit.Emitter) Option {
	return func(s *Server) { s.audit = em }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the router.
func New(cfg config.ServerConfig, p Predictor, opts ...Option) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		predictor:    p,
		logger:       slog.Default(),
		maxSentences: cfg.MaxSentences,
		shutdown:     cfg.ShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Routes
	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /v1/words", s.handleWords)
	s.handle("POST /v1/disambiguate/{word}", s.handleDisambiguate)

	return s
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("wsd server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdown
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("shutting down", "timeout", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type wordsResponse struct {
	Words []sense.Word `json:"words"`
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wordsResponse{Words: s.predictor.Words()})
}

type disambiguateRequest struct {
	Sentences []string `json:"sentences"`
	Explain   bool     `json:"explain,omitempty"`
}

type disambiguateResponse struct {
	Word      sense.Word     `json:"word"`
	Labels    []sense.Label  `json:"labels"`
	Decisions []wsd.Decision `json:"decisions,omitempty"`
}

func (s *Server) handleDisambiguate(w http.ResponseWriter, r *http.Request) {
	word := sense.Word(r.PathValue("word")).Normalize()

	var req disambiguateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "request_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_request")
		return
	}
	if s.maxSentences > 0 && len(req.Sentences) > s.maxSentences {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("at most %d sentences per request", s.maxSentences), "request_too_large")
		return
	}
	if req.Sentences == nil {
		req.Sentences = []string{}
	}

	start := time.Now()
	var ev *audit.Event
	if s.audit != nil {
		ev = audit.NewEvent(word, len(req.Sentences))
		defer func() {
			ev.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
			s.audit.Emit(ev)
		}()
	}

	resp := disambiguateResponse{Word: word}
	var err error
	if req.Explain || ev != nil {
		var decisions []wsd.Decision
		decisions, err = s.predictor.Explain(r.Context(), word, req.Sentences)
		if err == nil {
			resp.Labels = make([]sense.Label, len(decisions))
			for i, d := range decisions {
				resp.Labels[i] = d.Label
			}
			if req.Explain {
				resp.Decisions = decisions
			}
			if ev != nil {
				ev.Tally(decisions)
			}
		}
	} else {
		resp.Labels, err = s.predictor.Predict(r.Context(), word, req.Sentences)
	}
	if err != nil {
		status := s.writePredictError(w, word, err)
		if ev != nil {
			ev.Status, ev.Error = status, err.Error()
		}
		return
	}
	if ev != nil {
		ev.Status = http.StatusOK
	}
	writeJSON(w, http.StatusOK, resp)
}

// writePredictError maps a predictor error onto a response and returns
// the status written.
func (s *Server) writePredictError(w http.ResponseWriter, word sense.Word, err error) int {
	switch {
	case errors.Is(err, sense.ErrUnsupportedWord):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unsupported word %q", word), "unsupported_word")
		return http.StatusNotFound
	case errors.Is(err, sense.ErrArtifactNotFound):
		s.logger.Error("artifacts missing", "word", word, "error", err)
		writeError(w, http.StatusInternalServerError, "trained artifacts are not available for this word", "artifact_error")
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request canceled", "canceled")
		return http.StatusServiceUnavailable
	default:
		s.logger.Error("prediction failed", "word", word, "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed", "internal_error")
		return http.StatusInternalServerError
	}
}

// --- Response helpers ---

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, message, typ string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: typ}})
}
