// Package httpapi exposes the assessment controller over JSON HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/verte-zerg/neurlyn/internal/assessment"
	"github.com/verte-zerg/neurlyn/internal/model"
)

const maxBodyBytes = 64 << 10

// Options configure the HTTP server.
type Options struct {
	CORSOrigins []string
}

// Server routes requests to the assessment service.
type Server struct {
	svc    *assessment.Service
	logger *zap.Logger
}

// NewServer returns the HTTP handler with its middleware chain applied.
func NewServer(svc *assessment.Service, logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, logger: logger}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/assessments", s.handleStart)
	mux.HandleFunc("GET /api/assessments/{id}", s.handleResume)
	mux.HandleFunc("POST /api/assessments/{id}/responses", s.handleSubmit)
	mux.HandleFunc("POST /api/assessments/{id}/complete", s.handleComplete)

	return chainMiddlewares(mux,
		withRecover(logger),
		withCORS(opts.CORSOrigins),
		withLogging(logger),
		withRequestID,
	)
}

// DTOs

type startRequest struct {
	Tier         string            `json:"tier"`
	Concerns     []string          `json:"concerns,omitempty"`
	Demographics map[string]string `json:"demographics,omitempty"`
}

type questionResponse struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Category string         `json:"category"`
	Type     string         `json:"type"`
	ScaleMin float64        `json:"scaleMin"`
	ScaleMax float64        `json:"scaleMax"`
	Choices  []model.Choice `json:"choices,omitempty"`
	Pathway  string         `json:"pathway,omitempty"`
}

type startResponse struct {
	SessionID         string             `json:"sessionId"`
	Tier              string             `json:"tier"`
	Progress          model.Progress     `json:"progress"`
	Questions         []questionResponse `json:"questions"`
	ActivatedPathways []model.PathwayID  `json:"activatedPathways"`
}

type submitRequest struct {
	QuestionID string          `json:"questionId"`
	Value      *float64        `json:"value"`
	Choice     string          `json:"choice,omitempty"`
	LatencyMs  int64           `json:"latencyMs"`
	Behavior   *model.Behavior `json:"behavior,omitempty"`
}

type submitResponse struct {
	Progress          model.Progress     `json:"progress"`
	Questions         []questionResponse `json:"questions"`
	Complete          bool               `json:"complete"`
	ActivatedPathways []model.PathwayID  `json:"activatedPathways"`
	NewlyActivated    []model.PathwayID  `json:"newlyActivated,omitempty"`
	Duplicate         bool               `json:"duplicate,omitempty"`
}

type completeResponse struct {
	SessionID string `json:"sessionId"`
	model.Result
}

type resumeResponse struct {
	SessionID         string             `json:"sessionId"`
	Tier              string             `json:"tier"`
	Progress          model.Progress     `json:"progress"`
	ActivatedPathways []model.PathwayID  `json:"pathwaysActivated"`
	IsComplete        bool               `json:"isComplete"`
	Questions         []questionResponse `json:"questions"`
	Result            *model.Result      `json:"result,omitempty"`
}

// Handlers

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.svc.Start(r.Context(), assessment.StartInput{
		Tier:         req.Tier,
		Concerns:     req.Concerns,
		Demographics: req.Demographics,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{
		SessionID:         out.SessionID,
		Tier:              string(out.Tier),
		Progress:          out.Progress,
		Questions:         toQuestionResponses(out.Batch),
		ActivatedPathways: nonNil(out.Activated),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.svc.Submit(r.Context(), assessment.SubmitInput{
		SessionID:  r.PathValue("id"),
		QuestionID: req.QuestionID,
		Value:      req.Value,
		Choice:     req.Choice,
		LatencyMs:  req.LatencyMs,
		Behavior:   req.Behavior,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Progress:          out.Progress,
		Questions:         toQuestionResponses(out.Batch),
		Complete:          out.Complete,
		ActivatedPathways: nonNil(out.Activated),
		NewlyActivated:    out.NewlyActivated,
		Duplicate:         out.Duplicate,
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.svc.Complete(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	result.ActivatedPathways = nonNil(result.ActivatedPathways)
	writeJSON(w, http.StatusOK, completeResponse{SessionID: id, Result: result})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Resume(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resumeResponse{
		SessionID:         out.SessionID,
		Tier:              string(out.Tier),
		Progress:          out.Progress,
		ActivatedPathways: nonNil(out.Activated),
		IsComplete:        out.IsComplete,
		Questions:         toQuestionResponses(out.Batch),
		Result:            out.Result,
	})
}

// serviceError maps the controller's error taxonomy onto status codes.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assessment.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assessment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, assessment.ErrSessionClosed):
		writeError(w, http.StatusConflict, "session already completed")
	case errors.Is(err, assessment.ErrTransientStore):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		s.logger.Error("unexpected service error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Helpers

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func toQuestionResponses(qs []model.Question) []questionResponse {
	out := make([]questionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionResponse{
			ID:       q.ID,
			Text:     q.Text,
			Category: q.Category,
			Type:     string(q.Type),
			ScaleMin: q.ScaleMin,
			ScaleMax: q.ScaleMax,
			Choices:  q.Choices,
			Pathway:  string(q.Pathway),
		})
	}
	return out
}

func nonNil(ids []model.PathwayID) []model.PathwayID {
	if ids == nil {
		return []model.PathwayID{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
