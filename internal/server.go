package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/taskhive/taskhive/internal/assignment"
	"github.com/taskhive/taskhive/internal/assistant"
	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/marketplace"
	"github.com/taskhive/taskhive/internal/pushsubscription"
	"github.com/taskhive/taskhive/internal/stats"
	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
	"github.com/taskhive/taskhive/pkg/clog"
)

type Server struct {
	server            *http.Server
	env               *config.Env
	taskServer        *task.Server
	marketplaceServer *marketplace.Server
	assistantServer   *assistant.Server
	clientServer      *client.Server
	assignmentServer  *assignment.Server
	statsServer       *stats.Server
	pushServer        *pushsubscription.Server
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	marketplaceServer *marketplace.Server,
	assistantServer *assistant.Server,
	clientServer *client.Server,
	assignmentServer *assignment.Server,
	statsServer *stats.Server,
	pushServer *pushsubscription.Server,
) *Server {
	return &Server{
		env:               env,
		taskServer:        taskServer,
		marketplaceServer: marketplaceServer,
		assistantServer:   assistantServer,
		clientServer:      clientServer,
		assignmentServer:  assignmentServer,
		statsServer:       statsServer,
		pushServer:        pushServer,
	}
}

// Handler builds the full middleware and routing chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewResponseChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})

		s.taskServer.RegisterRoutes(r)
		s.marketplaceServer.RegisterRoutes(r)
		s.assistantServer.RegisterRoutes(r)
		s.clientServer.RegisterRoutes(r)
		s.assignmentServer.RegisterRoutes(r)
		s.statsServer.RegisterRoutes(r)
		s.pushServer.RegisterRoutes(r)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{})
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for incoming requests, so cancelling it (shutdown signal) also
// cancels in-flight request contexts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health stays open for load balancer probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
