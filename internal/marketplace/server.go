package marketplace

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/taskhive/pkg/cerr"
)

type Server struct {
	matcher *Matcher
}

func NewServer(matcher *Matcher) *Server {
	return &Server{matcher: matcher}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/marketplace", s.handleList)
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assistantID := r.URL.Query().Get("assistant_id")
	if assistantID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "assistant_id query parameter is required", nil)
		return
	}
	tasks, err := s.matcher.ListClaimable(ctx, assistantID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}
