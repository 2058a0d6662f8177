// Package server exposes the synthesis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/f5-tts-api/internal/config"
	"github.com/book-expert/f5-tts-api/internal/core"
	"github.com/book-expert/f5-tts-api/internal/metrics"
)

// Routes served by the API.
const (
	routeSpeech  = "/v1/audio/speech"
	routeHealth  = "/health"
	routeMetrics = "/metrics"
)

// Error codes carried in the error response body.
const (
	codeInvalidInput     = "invalid_input"
	codeUnsafePath       = "unsafe_reference_path"
	codeRemoteFetch      = "remote_fetch_failed"
	codeSynthesisTimeout = "synthesis_timeout"
	codeSynthesisFailed  = "synthesis_failed"
)

// maxRequestBody bounds the JSON request body.
const maxRequestBody = 1 << 20

// SpeechService runs one synthesis request. Implemented by pipeline.Pipeline.
type SpeechService interface {
	Speak(ctx context.Context, req core.SpeechRequest) (*core.SpeechResult, error)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

// Server is the HTTP front of the service.
type Server struct {
	service    SpeechService
	collector  *metrics.Collector
	log        *logger.Logger
	httpServer *http.Server
}

// New creates a server with its routes registered.
func New(
	cfg config.ServerConfig,
	listenAddr string,
	service SpeechService,
	collector *metrics.Collector,
	log *logger.Logger,
) *Server {
	srv := &Server{
		service:    service,
		collector:  collector,
		log:        log,
		httpServer: nil,
	}

	srv.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           srv.buildHandler(),
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

// Handler returns the routed handler. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening on %s", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST "+routeSpeech, s.instrument(routeSpeech, s.handleSpeech))
	mux.Handle("GET "+routeHealth, s.instrument(routeHealth, s.handleHealth))
	mux.Handle("GET "+routeMetrics, s.collector.Handler())

	return mux
}

// handleSpeech synthesizes speech from the JSON request body and streams the
// audio back.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req core.SpeechRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()

	err := decoder.Decode(&req)
	if err != nil {
		s.writeError(
			w,
			http.StatusBadRequest,
			codeInvalidInput,
			"invalid request body: "+err.Error(),
		)

		return
	}

	result, err := s.service.Speak(r.Context(), req)
	if err != nil {
		status, code := classifyError(err)

		s.log.Error("Speech request failed (%d %s): %v", status, code, err)
		s.writeError(w, status, code, err.Error())

		return
	}

	filename := "speech." + string(result.Format)

	w.Header().Set("Content-Type", result.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	_, err = w.Write(result.Data)
	if err != nil {
		s.log.Warn("Failed to write audio response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write([]byte(`{"status":"ok"}`))
	if err != nil {
		s.log.Warn("Failed to write health response: %v", err)
	}
}

// classifyError maps pipeline errors to an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, core.ErrUnsafePath):
		return http.StatusBadRequest, codeUnsafePath
	case errors.Is(err, core.ErrRemoteFetch):
		return http.StatusBadRequest, codeRemoteFetch
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeSynthesisTimeout
	default:
		return http.StatusInternalServerError, codeSynthesisFailed
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(errorResponse{Detail: detail, ErrorCode: code})
	if err != nil {
		s.log.Warn("Failed to write error response: %v", err)
	}
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a handler with request counting and timing.
func (s *Server) instrument(path string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		s.collector.ObserveHTTPRequest(r.Method, path, recorder.status, time.Since(start))
	})
}
