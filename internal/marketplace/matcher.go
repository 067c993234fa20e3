package marketplace

import (
	"context"
	"sort"

	"github.com/taskhive/taskhive/internal/assistant"
	"github.com/taskhive/taskhive/internal/task"
)

// Matcher builds the per-assistant marketplace view: the pending tasks
// the assistant could claim right now. The view is advisory; Claim
// re-checks every condition, so a stale view costs a retry, never a
// double assignment.
type Matcher struct {
	tasks      task.Repository
	assistants assistant.Repository
}

func NewMatcher(tasks task.Repository, assistants assistant.Repository) *Matcher {
	return &Matcher{tasks: tasks, assistants: assistants}
}

// ListClaimable returns the claimable tasks for the assistant, most
// urgent first. Offline and at-capacity assistants see an empty
// marketplace rather than an error.
func (m *Matcher) ListClaimable(ctx context.Context, assistantID string) ([]*task.Task, error) {
	a, err := m.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	if a.Status != assistant.StatusOnline || a.AtCapacity() {
		return []*task.Task{}, nil
	}

	pending, err := m.tasks.List(ctx, task.Filter{Status: task.StatusPending})
	if err != nil {
		return nil, err
	}

	claimable := make([]*task.Task, 0, len(pending))
	for _, t := range pending {
		if a.Specialization.Accepts(t.Type) {
			claimable = append(claimable, t)
		}
	}

	// Deadline ascending with undated tasks last, created_at as the tiebreak.
	sort.SliceStable(claimable, func(i, j int) bool {
		di, dj := claimable[i].Deadline, claimable[j].Deadline
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return claimable[i].CreatedAt.Before(claimable[j].CreatedAt)
	})
	return claimable, nil
}
