// Package api is the HTTP surface of the ChatCut backend. The same handler
// serves the local server and, through an API Gateway adapter, Lambda.
//
// Endpoints:
//
//	GET  /                     service banner
//	POST /api/ping             liveness echo
//	GET  /health               provider status; ?probe=1 adds a connection check
//	POST /api/process-prompt   text to action result
//	POST /api/process-media    text plus local media files to action result
//	POST /api/ask-question     editing-help conversation
//	GET  /api/jobs/{id}        stored outcome of a process-media request
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/ai"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/chatcut/chatcut/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ServiceName is reported by the banner endpoint.
const ServiceName = "ChatCut Backend"

// maxBodyBytes bounds JSON request bodies. Media is referenced by path, never
// uploaded through this API.
const maxBodyBytes = 1 << 20

// MediaFetcher makes remote media references readable as local files.
type MediaFetcher interface {
	Localize(ctx context.Context, paths []string) (local []string, cleanup func(), err error)
}

// Server routes requests to a prompt-processing service.
type Server struct {
	svc     *service.Service
	version string
	jobs    store.JobStore
	fetcher MediaFetcher
	mux     *http.ServeMux
}

// New builds a Server and registers its routes. Job records are kept in
// memory until WithJobStore replaces the store.
func New(svc *service.Service, version string) *Server {
	s := &Server{svc: svc, version: version, jobs: store.NewMemoryStore(), mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /api/ping", s.handlePing)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/process-prompt", s.handleProcessPrompt)
	s.mux.HandleFunc("POST /api/process-media", s.handleProcessMedia)
	s.mux.HandleFunc("POST /api/ask-question", s.handleAskQuestion)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	return s
}

// WithJobStore sets where process-media outcomes are recorded.
func (s *Server) WithJobStore(js store.JobStore) *Server {
	s.jobs = js
	return s
}

// WithMediaFetcher lets process-media accept references such as s3:// URIs
// that the fetcher downloads before validation.
func (s *Server) WithMediaFetcher(f MediaFetcher) *Server {
	s.fetcher = f
	return s
}

// Handler returns the routes wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	return withMetrics(withLogging(withCORS(withGzip(s.mux))))
}

type bannerResponse struct {
	Name     string       `json:"name"`
	Version  string       `json:"version"`
	Status   string       `json:"status"`
	Provider service.Info `json:"provider"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, bannerResponse{
		Name:     ServiceName,
		Version:  s.version,
		Status:   "running",
		Provider: s.svc.ProviderInfo(),
	})
}

type pingRequest struct {
	Message string `json:"message"`
}

type pingResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Received string `json:"received"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	// An empty body is a valid ping.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		httpError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, pingResponse{
		Status:   "ok",
		Message:  "Backend is running",
		Received: req.Message,
	})
}

type healthResponse struct {
	Status     string       `json:"status"`
	Provider   service.Info `json:"provider"`
	Connection string       `json:"connection,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Provider: s.svc.ProviderInfo()}
	if probe := r.URL.Query().Get("probe"); probe == "1" || probe == "true" {
		resp.Connection = s.svc.Probe(r.Context())
	}
	respondJSON(w, http.StatusOK, resp)
}

type processPromptRequest struct {
	Prompt        string         `json:"prompt"`
	ContextParams map[string]any `json:"context_params,omitempty"`
}

func (s *Server) handleProcessPrompt(w http.ResponseWriter, r *http.Request) {
	var req processPromptRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		httpError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httpError(w, http.StatusUnprocessableEntity, "prompt is required")
		return
	}
	res := s.svc.ProcessPrompt(r.Context(), req.Prompt, req.ContextParams)
	respondJSON(w, http.StatusOK, res)
}

// processMediaRequest accepts a single filePath or a list of filePaths.
// trim_start and trim_end may be top-level fields or context_params keys.
type processMediaRequest struct {
	Prompt        string         `json:"prompt"`
	FilePath      string         `json:"filePath,omitempty"`
	FilePaths     []string       `json:"filePaths,omitempty"`
	TrimStart     *float64       `json:"trim_start,omitempty"`
	TrimEnd       *float64       `json:"trim_end,omitempty"`
	ContextParams map[string]any `json:"context_params,omitempty"`
}

// trim returns the requested source range. ok is false when none was given.
func (r processMediaRequest) trim() (t ai.Trim, ok bool, err error) {
	t.Start = action.Float(r.ContextParams, "trim_start", 0)
	t.End = action.Float(r.ContextParams, "trim_end", 0)
	if r.TrimStart != nil {
		t.Start = *r.TrimStart
	}
	if r.TrimEnd != nil {
		t.End = *r.TrimEnd
	}
	if t == (ai.Trim{}) {
		return t, false, nil
	}
	if t.Start < 0 || t.End < 0 || (t.End > 0 && t.End <= t.Start) {
		return t, false, fmt.Errorf("invalid trim range %g-%g", t.Start, t.End)
	}
	return t, true, nil
}

func (r processMediaRequest) paths() []string {
	var out []string
	if p := strings.TrimSpace(r.FilePath); p != "" {
		out = append(out, p)
	}
	for _, p := range r.FilePaths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleProcessMedia(w http.ResponseWriter, r *http.Request) {
	var req processMediaRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		httpError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httpError(w, http.StatusUnprocessableEntity, "prompt is required")
		return
	}
	paths := req.paths()
	if len(paths) == 0 {
		httpError(w, http.StatusUnprocessableEntity, "filePaths is required")
		return
	}
	ctx := r.Context()
	trim, ok, err := req.trim()
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, "invalid trim range", err.Error())
		return
	}
	if ok {
		ctx = ai.WithTrim(ctx, trim)
	}
	log.Debug().Int("files", len(paths)).Bool("trimmed", ok).Msg("Processing prompt with media")
	res := s.processMedia(ctx, req.Prompt, paths)

	// The job ID is reported as task_id. Providers that run remote jobs
	// already set it.
	if res.TaskID == "" {
		res.TaskID = uuid.NewString()
	}
	// A failed write only loses the lookup; the caller still gets the result.
	if err := s.jobs.PutJob(r.Context(), store.JobFromResult(res.TaskID, req.Prompt, paths, res, time.Now())); err != nil {
		log.Warn().Err(err).Str("job", res.TaskID).Msg("Failed to record job")
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) processMedia(ctx context.Context, prompt string, paths []string) action.Result {
	if s.fetcher == nil {
		return s.svc.ProcessMedia(ctx, prompt, paths)
	}
	local, cleanup, err := s.fetcher.Localize(ctx, paths)
	defer cleanup()
	if err != nil {
		res := service.FileFailure(err)
		log.Warn().Err(err).Str("code", res.Error).Msg("Media fetch failed")
		return res
	}
	return s.svc.ProcessMedia(ctx, prompt, local)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to read job", err.Error())
		return
	}
	if job == nil {
		httpError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

type askQuestionRequest struct {
	Messages []ai.Message `json:"messages"`
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	var req askQuestionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		httpError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		httpError(w, http.StatusUnprocessableEntity, "messages is required")
		return
	}
	respondJSON(w, http.StatusOK, s.svc.AskQuestion(r.Context(), req.Messages))
}
