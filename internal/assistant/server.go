package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskhive/taskhive/pkg/cerr"
)

// StatusSetter flips online/offline through the engine, so the change
// serializes with in-flight claims.
type StatusSetter interface {
	SetAssistantStatus(ctx context.Context, assistantID string, status Status) (*Assistant, error)
}

type Server struct {
	repo   Repository
	status StatusSetter
}

func NewServer(repo Repository, status StatusSetter) *Server {
	return &Server{repo: repo, status: status}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/assistants", s.handleRegister)
	r.Get("/assistants", s.handleList)
	r.Get("/assistants/{id}", s.handleGet)
	r.Put("/assistants/{id}/status", s.handleSetStatus)
}

type registerRequest struct {
	Name           string         `json:"name"`
	Specialization Specialization `json:"specialization"`
}

func (s *Server) handleRegister(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name must not be empty", nil)
		return
	}
	if !req.Specialization.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument,
			fmt.Sprintf("unknown specialization %q", req.Specialization), nil)
		return
	}

	now := time.Now()
	a := &Assistant{
		ID:             ulid.Make().String(),
		Name:           req.Name,
		Specialization: req.Specialization,
		Status:         StatusOffline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, a)
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistants, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"assistants": assistants})
}

func (s *Server) handleGet(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) handleSetStatus(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	a, err := s.status.SetAssistantStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}
