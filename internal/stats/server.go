package stats

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/taskhive/internal/assistant"
	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
)

// Server computes dashboard projections on demand. At this scale a full
// scan per request beats maintaining another set of derived counters.
type Server struct {
	tasks      task.Repository
	assistants assistant.Repository
	clients    client.Repository
}

func NewServer(tasks task.Repository, assistants assistant.Repository, clients client.Repository) *Server {
	return &Server{tasks: tasks, assistants: assistants, clients: clients}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/stats", s.handleStats)
}

type clientStats struct {
	ClientID     string         `json:"client_id"`
	TotalTasks   int            `json:"total_tasks"`
	ByStatus     map[string]int `json:"by_status"`
	OpenTasks    int            `json:"open_tasks"`
	AwaitingYou  int            `json:"awaiting_you"`
	RatingsGiven int            `json:"ratings_given"`
}

type assistantStats struct {
	AssistantID         string         `json:"assistant_id"`
	ActiveTasks         int            `json:"active_tasks"`
	CapacityRemaining   int            `json:"capacity_remaining"`
	TotalTasksCompleted int            `json:"total_tasks_completed"`
	AverageRating       float64        `json:"average_rating"`
	RatingsCount        int            `json:"ratings_count"`
	ByStatus            map[string]int `json:"by_status"`
}

type managerStats struct {
	TotalTasks          int            `json:"total_tasks"`
	ByStatus            map[string]int `json:"by_status"`
	PendingOnMarket     int            `json:"pending_on_market"`
	AssistantsOnline    int            `json:"assistants_online"`
	AssistantsTotal     int            `json:"assistants_total"`
	ClientsTotal        int            `json:"clients_total"`
	ClientsSubscribed   int            `json:"clients_subscribed"`
	AssistantsAtCeiling int            `json:"assistants_at_ceiling"`
}

func (s *Server) handleStats(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	actor, actorID := q.Get("actor"), q.Get("actor_id")

	switch actor {
	case "client":
		if actorID == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "actor_id is required for client stats", nil)
			return
		}
		s.clientStats(r, actorID)
	case "assistant":
		if actorID == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "actor_id is required for assistant stats", nil)
			return
		}
		s.assistantStats(r, actorID)
	case "manager":
		s.managerStats(r)
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument,
			fmt.Sprintf("unknown actor %q, want client, assistant or manager", actor), nil)
	}
}

func (s *Server) clientStats(r *http.Request, clientID string) {
	ctx := r.Context()
	if _, err := s.clients.Get(ctx, clientID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks, err := s.tasks.List(ctx, task.Filter{ClientID: clientID})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	out := clientStats{ClientID: clientID, ByStatus: map[string]int{}}
	for _, t := range tasks {
		out.TotalTasks++
		out.ByStatus[string(t.Status)]++
		if !t.Status.Terminal() {
			out.OpenTasks++
		}
		if t.Status == task.StatusCompleted {
			out.AwaitingYou++
		}
		if t.Status == task.StatusApproved {
			out.RatingsGiven++
		}
	}
	cerr.SetJSONResponse(ctx, out)
}

func (s *Server) assistantStats(r *http.Request, assistantID string) {
	ctx := r.Context()
	a, err := s.assistants.Get(ctx, assistantID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks, err := s.tasks.List(ctx, task.Filter{AssistantID: assistantID})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	out := assistantStats{
		AssistantID:         a.ID,
		ActiveTasks:         a.ActiveTasks,
		CapacityRemaining:   assistant.MaxActiveTasks - a.ActiveTasks,
		TotalTasksCompleted: a.TotalTasksCompleted,
		AverageRating:       a.AverageRating,
		RatingsCount:        a.RatingsCount,
		ByStatus:            map[string]int{},
	}
	for _, t := range tasks {
		out.ByStatus[string(t.Status)]++
	}
	cerr.SetJSONResponse(ctx, out)
}

func (s *Server) managerStats(r *http.Request) {
	ctx := r.Context()
	tasks, err := s.tasks.List(ctx, task.Filter{})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	assistants, err := s.assistants.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	out := managerStats{ByStatus: map[string]int{}}
	for _, t := range tasks {
		out.TotalTasks++
		out.ByStatus[string(t.Status)]++
		if t.Status == task.StatusPending {
			out.PendingOnMarket++
		}
	}
	for _, a := range assistants {
		out.AssistantsTotal++
		if a.Status == assistant.StatusOnline {
			out.AssistantsOnline++
		}
		if a.AtCapacity() {
			out.AssistantsAtCeiling++
		}
	}
	for _, c := range clients {
		out.ClientsTotal++
		if c.Subscription != nil && c.Subscription.Status == client.SubscriptionActive {
			out.ClientsSubscribed++
		}
	}
	cerr.SetJSONResponse(ctx, out)
}
