package task

import (
	"context"
	"time"
)

// CreateParams carries the client's create request into the engine.
type CreateParams struct {
	ClientID    string
	Title       string
	Description string
	Type        Type
	Deadline    *time.Time
}

// Filter narrows List results; zero values match everything.
type Filter struct {
	ClientID    string
	AssistantID string
	Status      Status
	Type        Type
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
}
