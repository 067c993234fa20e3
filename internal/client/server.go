package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskhive/taskhive/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/clients", s.handleRegister)
	r.Get("/clients", s.handleList)
	r.Get("/clients/{id}", s.handleGet)
	r.Put("/clients/{id}/subscription", s.handleSetSubscription)
}

type registerRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
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

	now := time.Now()
	c := &Client{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Contact:   req.Contact,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, c)
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clients, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"clients": clients})
}

func (s *Server) handleGet(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}

type subscriptionRequest struct {
	Plan      string             `json:"plan"`
	Status    SubscriptionStatus `json:"status"`
	StartedAt *time.Time         `json:"started_at,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	AutoRenew bool               `json:"auto_renew"`
}

// handleSetSubscription is the payment-provider hook: it replaces the
// client's subscription state wholesale on activation, renewal, expiry
// and cancellation events.
func (s *Server) handleSetSubscription(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Plan == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "plan must not be empty", nil)
		return
	}
	if !req.Status.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument,
			fmt.Sprintf("unknown subscription status %q", req.Status), nil)
		return
	}

	c, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	now := time.Now()
	startedAt := now
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}
	c.Subscription = &Subscription{
		Plan:      req.Plan,
		Status:    req.Status,
		StartedAt: startedAt,
		ExpiresAt: req.ExpiresAt,
		AutoRenew: req.AutoRenew,
	}
	c.UpdatedAt = now
	if err := s.repo.Update(ctx, c); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, c)
}
