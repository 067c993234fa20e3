package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive/internal/client"
	"github.com/taskhive/taskhive/pkg/cerr"
	"github.com/taskhive/taskhive/pkg/storage"
)

const clientsPrefix = "clients"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", clientsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, c *client.Client) error {
	exists, err := r.storage.Exists(ctx, path(c.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "client already exists", nil)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal client: %w", err))
	}
	if err := r.storage.Write(ctx, path(c.ID), data); err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("client", err)
	}
	var c client.Client
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal client: %w", err))
	}
	return &c, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*client.Client, error) {
	paths, err := r.storage.List(ctx, clientsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("clients", err)
	}

	sort.Strings(paths)

	var all []*client.Client
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var c client.Client
		if err := yaml.Unmarshal(data, &c); err != nil {
			continue
		}
		all = append(all, &c)
	}
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, c *client.Client) error {
	exists, err := r.storage.Exists(ctx, path(c.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "client not found", nil)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal client: %w", err))
	}
	if err := r.storage.Write(ctx, path(c.ID), data); err != nil {
		return cerr.WrapStorageWriteError("client", err)
	}
	return nil
}
