package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive/internal/assignment"
	"github.com/taskhive/taskhive/pkg/cerr"
	"github.com/taskhive/taskhive/pkg/storage"
)

const assignmentsPrefix = "assignments"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(clientID string) string {
	return fmt.Sprintf("%s/%s.yaml", assignmentsPrefix, clientID)
}

func (r *YAMLRepository) Put(ctx context.Context, a *assignment.Assignment) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal assignment: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ClientID), data); err != nil {
		return cerr.WrapStorageWriteError("assignment", err)
	}
	return nil
}

func (r *YAMLRepository) GetByClient(ctx context.Context, clientID string) (*assignment.Assignment, error) {
	data, err := r.storage.Read(ctx, path(clientID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, cerr.WrapStorageReadError("assignment", err)
	}
	var a assignment.Assignment
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal assignment: %w", err))
	}
	return &a, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, clientID string) error {
	if err := r.storage.Delete(ctx, path(clientID)); err != nil {
		return cerr.WrapStorageDeleteError("assignment", err)
	}
	return nil
}
