package assistant

import "context"

type Repository interface {
	Create(ctx context.Context, a *Assistant) error
	Get(ctx context.Context, id string) (*Assistant, error)
	List(ctx context.Context) ([]*Assistant, error)
	Update(ctx context.Context, a *Assistant) error
}
