package assignment

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/taskhive/pkg/cerr"
)

// Assigner is the engine surface for standing preferences.
type Assigner interface {
	AssignClientToAssistant(ctx context.Context, clientID, assistantID, assignedBy string) (*Assignment, error)
}

type Server struct {
	assigner Assigner
	repo     Repository
}

func NewServer(assigner Assigner, repo Repository) *Server {
	return &Server{assigner: assigner, repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/assignments", s.handleAssign)
	r.Get("/assignments/{clientID}", s.handleGet)
	r.Delete("/assignments/{clientID}", s.handleDelete)
}

type assignRequest struct {
	ClientID    string `json:"client_id"`
	AssistantID string `json:"assistant_id"`
	AssignedBy  string `json:"assigned_by"`
}

func (s *Server) handleAssign(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.ClientID == "" || req.AssistantID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "client_id and assistant_id are required", nil)
		return
	}
	a, err := s.assigner.AssignClientToAssistant(ctx, req.ClientID, req.AssistantID, req.AssignedBy)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, a)
}

func (s *Server) handleGet(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.repo.GetByClient(ctx, chi.URLParam(r, "clientID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if a == nil {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "no assignment for this client", nil)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) handleDelete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "clientID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}
