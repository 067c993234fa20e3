package assignment

import "context"

type Repository interface {
	// Put creates or replaces the preference for the client.
	Put(ctx context.Context, a *Assignment) error
	// GetByClient returns nil without error when no preference exists.
	GetByClient(ctx context.Context, clientID string) (*Assignment, error)
	Delete(ctx context.Context, clientID string) error
}
