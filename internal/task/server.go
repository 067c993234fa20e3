package task

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/taskhive/pkg/cerr"
)

// Engine is the slice of the transactional core the task handlers use.
type Engine interface {
	CreateTask(ctx context.Context, p CreateParams) (*Task, error)
	Claim(ctx context.Context, taskID, assistantID string) (*Task, error)
	Complete(ctx context.Context, taskID, assistantID, detailedResult, completionSummary string) (*Task, error)
	Approve(ctx context.Context, taskID, clientID string, rating int, feedback string) (*Task, error)
	RequestRevision(ctx context.Context, taskID, clientID, feedback, additionalRequirements string) (*Task, error)
	Reject(ctx context.Context, taskID, assistantID, reason string) (*Task, error)
	Reassign(ctx context.Context, taskID string, newAssistantID *string, managerID string) (*Task, error)
	Cancel(ctx context.Context, taskID, cancelledBy string) (*Task, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	ListTasks(ctx context.Context, f Filter) ([]*Task, error)
}

type Server struct {
	engine Engine
}

func NewServer(engine Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/tasks", s.handleCreate)
	r.Get("/tasks", s.handleList)
	r.Get("/tasks/{id}", s.handleGet)
	r.Post("/tasks/{id}/claim", s.handleClaim)
	r.Post("/tasks/{id}/complete", s.handleComplete)
	r.Post("/tasks/{id}/approve", s.handleApprove)
	r.Post("/tasks/{id}/revision", s.handleRequestRevision)
	r.Post("/tasks/{id}/reject", s.handleReject)
	r.Post("/tasks/{id}/cancel", s.handleCancel)
	r.Put("/tasks/{id}/assignee", s.handleSetAssignee)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

type createRequest struct {
	ClientID      string `json:"client_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Type          Type   `json:"task_type"`
	DeadlineHours int    `json:"deadline_hours,omitempty"`
}

func (s *Server) handleCreate(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	p := CreateParams{
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
	}
	if req.DeadlineHours > 0 {
		d := time.Now().Add(time.Duration(req.DeadlineHours) * time.Hour)
		p.Deadline = &d
	}

	t, err := s.engine.CreateTask(ctx, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) handleGet(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.engine.GetTask(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	f := Filter{
		ClientID:    q.Get("client_id"),
		AssistantID: q.Get("assistant_id"),
		Status:      Status(q.Get("status")),
		Type:        Type(q.Get("task_type")),
	}
	tasks, err := s.engine.ListTasks(ctx, f)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (s *Server) handleClaim(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		AssistantID string `json:"assistant_id"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Claim(ctx, chi.URLParam(r, "id"), req.AssistantID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleComplete(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		AssistantID       string `json:"assistant_id"`
		DetailedResult    string `json:"detailed_result"`
		CompletionSummary string `json:"completion_summary"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Complete(ctx, chi.URLParam(r, "id"), req.AssistantID, req.DetailedResult, req.CompletionSummary)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleApprove(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		ClientID string `json:"client_id"`
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Approve(ctx, chi.URLParam(r, "id"), req.ClientID, req.Rating, req.Feedback)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleRequestRevision(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		ClientID               string `json:"client_id"`
		Feedback               string `json:"feedback"`
		AdditionalRequirements string `json:"additional_requirements"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.RequestRevision(ctx, chi.URLParam(r, "id"), req.ClientID, req.Feedback, req.AdditionalRequirements)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleReject(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		AssistantID string `json:"assistant_id"`
		Reason      string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Reject(ctx, chi.URLParam(r, "id"), req.AssistantID, req.Reason)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleCancel(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		CancelledBy string `json:"cancelled_by"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.engine.Cancel(ctx, chi.URLParam(r, "id"), req.CancelledBy)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

// handleSetAssignee is the manager path: a string assistant_id moves the
// task, an explicit null returns it to the marketplace.
func (s *Server) handleSetAssignee(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		AssistantID *string `json:"assistant_id"`
		ManagerID   string  `json:"manager_id"`
	}
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.AssistantID != nil && *req.AssistantID == "" {
		req.AssistantID = nil
	}
	t, err := s.engine.Reassign(ctx, chi.URLParam(r, "id"), req.AssistantID, req.ManagerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}
