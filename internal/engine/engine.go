package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskhive/taskhive/internal/assignment"
	"github.com/taskhive/taskhive/internal/assistant"
	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/internal/entitlement"
	"github.com/taskhive/taskhive/internal/eventbus"
	"github.com/taskhive/taskhive/internal/task"
	"github.com/taskhive/taskhive/pkg/cerr"
)

// Engine serializes every state-changing operation behind one mutex, so
// a transition's guards, the mutation, the capacity and rating
// accounting, and the writes commit as a single unit. Two racing claims
// on the same task both enter Claim; the loser finds the task assigned.
type Engine struct {
	mu sync.Mutex

	tasks       task.Repository
	assistants  assistant.Repository
	clients     client.Repository
	assignments assignment.Repository

	gate *entitlement.Gate
	bus  *eventbus.Bus

	now func() time.Time
}

func New(
	tasks task.Repository,
	assistants assistant.Repository,
	clients client.Repository,
	assignments assignment.Repository,
	gate *entitlement.Gate,
	bus *eventbus.Bus,
) *Engine {
	return &Engine{
		tasks:       tasks,
		assistants:  assistants,
		clients:     clients,
		assignments: assignments,
		gate:        gate,
		bus:         bus,
		now:         time.Now,
	}
}

// CreateTask checks the client's entitlement and creates a pending task.
// When a manager has set a standing assignment for the client and that
// assistant has spare capacity and a matching specialization, the task
// skips the marketplace and starts in_progress.
func (e *Engine) CreateTask(ctx context.Context, p task.CreateParams) (*task.Task, error) {
	if p.Title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "title must not be empty", nil)
	}
	if !p.Type.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown task type %q", p.Type), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.clients.Get(ctx, p.ClientID)
	if err != nil {
		return nil, err
	}
	if err := e.gate.CanCreate(c, p.Type); err != nil {
		return nil, err
	}

	now := e.now()
	t := &task.Task{
		ID:          ulid.Make().String(),
		ClientID:    p.ClientID,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Status:      task.StatusPending,
		Deadline:    p.Deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	routed := e.tryPreRoute(ctx, t, now)

	if err := e.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	if routed != nil {
		routed.ActiveTasks++
		routed.UpdatedAt = now
		if err := e.assistants.Update(ctx, routed); err != nil {
			return nil, err
		}
	}

	e.bus.PublishNew(eventbus.TaskCreated, t.ID, t.ClientID, t.AssistantID, nil)
	if routed != nil {
		e.bus.PublishNew(eventbus.TaskClaimed, t.ID, t.ClientID, t.AssistantID,
			map[string]string{"pre_routed": "true"})
	}
	return t, nil
}

// tryPreRoute applies the client's standing assignment, if any. The
// preference is best effort: an offline, mismatched or full assistant
// just leaves the task on the marketplace.
func (e *Engine) tryPreRoute(ctx context.Context, t *task.Task, now time.Time) *assistant.Assistant {
	pref, err := e.assignments.GetByClient(ctx, t.ClientID)
	if err != nil || pref == nil {
		return nil
	}
	a, err := e.assistants.Get(ctx, pref.AssistantID)
	if err != nil {
		slog.WarnContext(ctx, "standing assignment points at unknown assistant",
			"client_id", t.ClientID, "assistant_id", pref.AssistantID)
		return nil
	}
	if a.Status != assistant.StatusOnline || a.AtCapacity() || !a.Specialization.Accepts(t.Type) {
		return nil
	}
	if err := t.AssignTo(a.ID, now); err != nil {
		return nil
	}
	return a
}

// Claim is the marketplace path: an assistant takes a pending task.
// Exactly one of N racing claimants wins; the rest get already_claimed.
func (e *Engine) Claim(ctx context.Context, taskID, assistantID string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, task.ErrGone(taskID)
	}
	if t.Status.Assigned() {
		return nil, task.ErrAlreadyClaimed(taskID)
	}

	a, err := e.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	if a.Status != assistant.StatusOnline {
		return nil, task.ErrNotEligible(fmt.Sprintf("assistant %s is offline", assistantID))
	}
	if !a.Specialization.Accepts(t.Type) {
		return nil, task.ErrNotEligible(fmt.Sprintf("assistant %s does not handle %s tasks", assistantID, t.Type))
	}
	if a.AtCapacity() {
		return nil, task.ErrNotEligible(fmt.Sprintf("assistant %s is at the active task ceiling", assistantID))
	}

	now := e.now()
	if err := t.Claim(assistantID, now); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	a.ActiveTasks++
	a.UpdatedAt = now
	if err := e.assistants.Update(ctx, a); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskClaimed, t.ID, t.ClientID, assistantID, nil)
	return t, nil
}

// Complete records the assigned assistant's result.
func (e *Engine) Complete(ctx context.Context, taskID, assistantID, detailedResult, completionSummary string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := t.Complete(assistantID, detailedResult, completionSummary, e.now()); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskCompleted, t.ID, t.ClientID, assistantID, nil)
	return t, nil
}

// Approve closes the task and folds the rating into the assistant's
// aggregates in the same unit of work.
func (e *Engine) Approve(ctx context.Context, taskID, clientID string, rating int, feedback string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	assistantID := t.AssistantID
	if err := t.Approve(clientID, rating, feedback, e.now()); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	a, err := e.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	a.ActiveTasks--
	a.TotalTasksCompleted++
	a.RecordRating(rating)
	a.UpdatedAt = t.UpdatedAt
	if err := e.assistants.Update(ctx, a); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskApproved, t.ID, t.ClientID, assistantID,
		map[string]string{"rating": fmt.Sprintf("%d", rating)})
	return t, nil
}

// RequestRevision sends a completed task back to its assistant. The
// assistant keeps holding the task, so capacity does not change.
func (e *Engine) RequestRevision(ctx context.Context, taskID, clientID, feedback, additionalRequirements string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := t.RequestRevision(clientID, feedback, additionalRequirements, e.now()); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskRevisionRequested, t.ID, t.ClientID, t.AssistantID, nil)
	return t, nil
}

// Reject returns the task to the marketplace and frees the assistant's slot.
func (e *Engine) Reject(ctx context.Context, taskID, assistantID, reason string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := t.Reject(assistantID, reason, now); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	a, err := e.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	a.ActiveTasks--
	a.UpdatedAt = now
	if err := e.assistants.Update(ctx, a); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskRejected, t.ID, t.ClientID, assistantID,
		map[string]string{"reason": reason})
	return t, nil
}

// Reassign is the manager override: move the task to newAssistantID, or
// back to the marketplace when newAssistantID is nil. It skips the
// marketplace eligibility filters but never the capacity ceiling.
func (e *Engine) Reassign(ctx context.Context, taskID string, newAssistantID *string, managerID string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	prevAssistantID := t.AssistantID

	var next *assistant.Assistant
	if newAssistantID != nil {
		if *newAssistantID == prevAssistantID {
			return t, nil
		}
		next, err = e.assistants.Get(ctx, *newAssistantID)
		if err != nil {
			return nil, err
		}
		if next.AtCapacity() {
			return nil, task.ErrCapacityExceeded(next.ID)
		}
	}

	now := e.now()
	if next != nil {
		err = t.AssignTo(next.ID, now)
	} else {
		err = t.Unassign(now)
	}
	if err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	if prevAssistantID != "" {
		prev, err := e.assistants.Get(ctx, prevAssistantID)
		if err != nil {
			return nil, err
		}
		prev.ActiveTasks--
		prev.UpdatedAt = now
		if err := e.assistants.Update(ctx, prev); err != nil {
			return nil, err
		}
	}
	if next != nil {
		next.ActiveTasks++
		next.UpdatedAt = now
		if err := e.assistants.Update(ctx, next); err != nil {
			return nil, err
		}
	}

	e.bus.PublishNew(eventbus.TaskReassigned, t.ID, t.ClientID, t.AssistantID,
		map[string]string{"previous_assistant_id": prevAssistantID, "manager_id": managerID})
	return t, nil
}

// Cancel withdraws a pending task, by its owner or a manager.
func (e *Engine) Cancel(ctx context.Context, taskID, cancelledBy string) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(cancelledBy, e.now()); err != nil {
		return nil, err
	}
	if err := e.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.TaskCancelled, t.ID, t.ClientID, "", nil)
	return t, nil
}

// AssignClientToAssistant records a standing preference: future tasks
// from the client are pre-routed to the assistant. Existing tasks are
// not moved.
func (e *Engine) AssignClientToAssistant(ctx context.Context, clientID, assistantID, assignedBy string) (*assignment.Assignment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.clients.Get(ctx, clientID); err != nil {
		return nil, err
	}
	if _, err := e.assistants.Get(ctx, assistantID); err != nil {
		return nil, err
	}

	a := &assignment.Assignment{
		ClientID:    clientID,
		AssistantID: assistantID,
		AssignedBy:  assignedBy,
		CreatedAt:   e.now(),
	}
	if err := e.assignments.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetAssistantStatus flips online/offline under the engine lock so a
// status change cannot interleave with a claim that read the old status.
func (e *Engine) SetAssistantStatus(ctx context.Context, assistantID string, status assistant.Status) (*assistant.Assistant, error) {
	if status != assistant.StatusOnline && status != assistant.StatusOffline {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown assistant status %q", status), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	a.Status = status
	a.UpdatedAt = e.now()
	if err := e.assistants.Update(ctx, a); err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.AssistantStatusChanged, "", "", a.ID,
		map[string]string{"status": string(status)})
	return a, nil
}

// Rebuild recomputes every assistant's derived counters from the task
// store. Run at startup before serving: the stored counters may lag the
// task records if the process died between the two writes of a unit of
// work.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	assistants, err := e.assistants.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*assistant.Assistant, len(assistants))
	for _, a := range assistants {
		a.ResetAggregates()
		byID[a.ID] = a
	}

	tasks, err := e.tasks.List(ctx, task.Filter{})
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Status.Assigned() {
			if a, ok := byID[t.AssistantID]; ok {
				a.ActiveTasks++
			}
		}
		if t.Status == task.StatusApproved {
			if a, ok := byID[t.CompletedBy]; ok {
				a.TotalTasksCompleted++
				a.RecordRating(t.ClientRating)
			}
		}
	}

	for _, a := range assistants {
		if err := e.assistants.Update(ctx, a); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "rebuilt assistant aggregates",
		"assistants", len(assistants), "tasks", len(tasks))
	return nil
}

// GetTask and ListTasks are read paths exposed for the HTTP layer.
func (e *Engine) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	return e.tasks.Get(ctx, taskID)
}

func (e *Engine) ListTasks(ctx context.Context, f task.Filter) ([]*task.Task, error) {
	return e.tasks.List(ctx, f)
}
