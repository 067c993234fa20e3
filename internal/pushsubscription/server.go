package pushsubscription

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/pkg/cerr"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     Repository
}

func NewServer(vapidEnv *config.VAPIDEnv, repo Repository) *Server {
	return &Server{vapidEnv: vapidEnv, repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/push/vapid-public-key", s.handleVapidPublicKey)
	r.Post("/push/subscriptions", s.handleSubscribe)
	r.Delete("/push/subscriptions/{id}", s.handleUnsubscribe)
}

func (s *Server) handleVapidPublicKey(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.vapidEnv.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"public_key": s.vapidEnv.VAPIDPublicKey})
}

type subscribeRequest struct {
	UserID    string `json:"user_id"`
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

// handleSubscribe is idempotent per endpoint: re-registering an existing
// endpoint refreshes its keys and owner instead of duplicating it.
func (s *Server) handleSubscribe(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.UserID == "" || req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument,
			"user_id, endpoint, p256dh_key and auth_key are required", nil)
		return
	}

	existing, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if existing != nil {
		existing.UserID = req.UserID
		existing.P256dhKey = req.P256dhKey
		existing.AuthKey = req.AuthKey
		if err := s.repo.Create(ctx, existing); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		cerr.SetJSONResponse(ctx, existing)
		return
	}

	sub := &Subscription{
		ID:        ulid.Make().String(),
		UserID:    req.UserID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, sub)
}

func (s *Server) handleUnsubscribe(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}
