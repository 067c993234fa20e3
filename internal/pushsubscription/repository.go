package pushsubscription

import "context"

type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	// FindByEndpoint returns nil without error when no subscription matches.
	FindByEndpoint(ctx context.Context, endpoint string) (*Subscription, error)
	Delete(ctx context.Context, id string) error
}
