package client

import "context"

type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context) ([]*Client, error)
	Update(ctx context.Context, c *Client) error
}
