package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive/internal/assistant"
	"github.com/taskhive/taskhive/pkg/cerr"
	"github.com/taskhive/taskhive/pkg/storage"
)

const assistantsPrefix = "assistants"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", assistantsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, a *assistant.Assistant) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("assistant", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "assistant already exists", nil)
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal assistant: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageWriteError("assistant", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*assistant.Assistant, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("assistant", err)
	}
	var a assistant.Assistant
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal assistant: %w", err))
	}
	return &a, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*assistant.Assistant, error) {
	paths, err := r.storage.List(ctx, assistantsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("assistants", err)
	}

	sort.Strings(paths)

	var all []*assistant.Assistant
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var a assistant.Assistant
		if err := yaml.Unmarshal(data, &a); err != nil {
			continue
		}
		all = append(all, &a)
	}
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, a *assistant.Assistant) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("assistant", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "assistant not found", nil)
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal assistant: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageWriteError("assistant", err)
	}
	return nil
}
