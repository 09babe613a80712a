// Package chi exposes the keyword analysis API over HTTP.
package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/domain"
	"github.com/kailas-cloud/keywordsense/internal/domain/filter"
	"github.com/kailas-cloud/keywordsense/internal/domain/run"
	"github.com/kailas-cloud/keywordsense/internal/domain/summary"
	domusage "github.com/kailas-cloud/keywordsense/internal/domain/usage"
	"github.com/kailas-cloud/keywordsense/internal/export"
	"github.com/kailas-cloud/keywordsense/internal/ingest"
	logpkg "github.com/kailas-cloud/keywordsense/internal/logger"
	"github.com/kailas-cloud/keywordsense/internal/metrics"
	healthuc "github.com/kailas-cloud/keywordsense/internal/usecase/health"
	usageuc "github.com/kailas-cloud/keywordsense/internal/usecase/usage"
	"github.com/kailas-cloud/keywordsense/internal/version"
)

// DefaultMaxBodyBytes caps uploaded keyword lists.
const DefaultMaxBodyBytes int64 = 5 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Session is the analysis run owner the API drives.
type Session interface {
	Start(ctx context.Context, keywords []string) (run.Snapshot, error)
	Current() run.Snapshot
	Reset()
}

// Server serves the analysis API.
type Server struct {
	session       Session
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes <= 0 uses DefaultMaxBodyBytes.
func NewServer(
	session Session,
	usage *usageuc.Service,
	health *healthuc.Service,
	maxBodyBytes int64,
	logger *zap.Logger,
) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		session:      session,
		usage:        usage,
		health:       health,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		payloadTooLargeHandler,
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, ErrorResponseCodeEmptyInput),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrRunInProgress, http.StatusConflict, ErrorResponseCodeRunInProgress),
		sentinelHandler(domain.ErrNoRun, http.StatusNotFound, ErrorResponseCodeNoRun),
		sentinelHandler(domain.ErrConfiguration, http.StatusServiceUnavailable, ErrorResponseCodeNotConfigured),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, ErrorResponseCodeQuotaExceeded),
		sentinelHandler(domain.ErrInvalidResponse, http.StatusBadGateway, ErrorResponseCodeInvalidClassifierOut),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, ErrorResponseCodeClassifierError),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyses", s.StartAnalysis)
		r.Route("/analyses/current", func(r chi.Router) {
			r.Get("/", s.GetCurrentRun)
			r.Delete("/", s.ResetCurrentRun)
			r.Get("/keywords", s.ListKeywords)
			r.Get("/summary", s.GetSummary)
			r.Get("/export", s.ExportKeywords)
		})
		r.Get("/usage", s.GetUsage)
	})
}

// StartAnalysis handles POST /v1/analyses.
// The body is either JSON {"keywords": [...]} or a CSV / plain text keyword list.
func (s *Server) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	keywords, err := s.readKeywords(r)
	if err != nil {
		var ue *unsupportedMediaError
		if errors.As(err, &ue) {
			writeError(w, http.StatusUnsupportedMediaType, ErrorResponseCodeUnsupportedMedia, ue.Error())
			return
		}
		s.handleDomainError(w, r, err)
		return
	}

	snap, err := s.session.Start(r.Context(), keywords)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.requestLogger(r).Info("Analysis accepted",
		zap.String("run_id", snap.ID),
		zap.Int("keywords", snap.Total),
	)
	w.Header().Set("Location", "/v1/analyses/current")
	writeJSON(w, http.StatusAccepted, snapshotToResponse(snap))
}

type unsupportedMediaError struct {
	contentType string
}

func (e *unsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.contentType)
}

func (s *Server) readKeywords(r *http.Request) ([]string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || isJSON(ct) {
		var req StartAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: decode request body: %w", domain.ErrInvalidInput, err)
		}
		return ingest.Clean(req.Keywords), nil
	}

	format, ok := ingest.FormatFromContentType(ct)
	if !ok {
		return nil, &unsupportedMediaError{contentType: ct}
	}
	keywords, err := ingest.Parse(r.Body, format)
	if err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	return keywords, nil
}

// GetCurrentRun handles GET /v1/analyses/current. An idle session returns the idle snapshot.
func (s *Server) GetCurrentRun(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotToResponse(s.session.Current()))
}

// ResetCurrentRun handles DELETE /v1/analyses/current.
func (s *Server) ResetCurrentRun(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// ListKeywords handles GET /v1/analyses/current/keywords?q=&brand=&lang=&cluster=.
func (s *Server) ListKeywords(w http.ResponseWriter, r *http.Request) {
	snap, f, ok := s.filteredRun(w, r)
	if !ok {
		return
	}
	items := f.Apply(snap.Records)
	writeJSON(w, http.StatusOK, KeywordListResponse{
		Status: string(snap.Status),
		Total:  len(snap.Records),
		Count:  len(items),
		Items:  keywordsToResponse(items),
	})
}

// GetSummary handles GET /v1/analyses/current/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(summary.Summarize(snap.Records)))
}

// ExportKeywords handles GET /v1/analyses/current/export?format=csv|xlsx with the keyword filters.
func (s *Server) ExportKeywords(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("format must be csv or xlsx, got %q", format))
		return
	}
	snap, f, ok := s.filteredRun(w, r)
	if !ok {
		return
	}
	records := f.Apply(snap.Records)

	if format == "xlsx" {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, records); err != nil {
			s.requestLogger(r).Error("Workbook export failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "export failed")
			return
		}
		w.Header().Set("Content-Type", export.XLSXContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.XLSXFileName))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			s.requestLogger(r).Warn("Export interrupted", zap.Error(err))
		}
		return
	}

	bom := r.URL.Query().Get("bom") != "false"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, records, bom); err != nil {
		s.requestLogger(r).Warn("Export interrupted", zap.Error(err))
	}
}

func (s *Server) currentRun(w http.ResponseWriter, r *http.Request) (run.Snapshot, bool) {
	snap := s.session.Current()
	if snap.Status == run.StatusIdle {
		s.handleDomainError(w, r, domain.ErrNoRun)
		return run.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) filteredRun(w http.ResponseWriter, r *http.Request) (run.Snapshot, filter.Filter, bool) {
	q := r.URL.Query()
	f, err := filter.New(q.Get("q"), filter.Brand(q.Get("brand")), filter.Language(q.Get("lang")), q.Get("cluster"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return run.Snapshot{}, filter.Filter{}, false
	}
	snap, ok := s.currentRun(w, r)
	if !ok {
		return run.Snapshot{}, filter.Filter{}, false
	}
	return snap, f, true
}

// GetUsage handles GET /v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrInvalidInput,
		domain.ErrRunInProgress,
		domain.ErrNoRun,
		domain.ErrConfiguration,
		domain.ErrRateLimited,
		domain.ErrQuotaExceeded,
		domain.ErrInvalidResponse,
		domain.ErrTransport,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// payloadTooLargeHandler maps a body that exceeded MaxBytesReader to 413.
func payloadTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, ErrorResponseCodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
	return true
}

// requestLogger returns the request-scoped logger set by WideEventMiddleware.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
