package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "tasks/t1.yaml", []byte("id: t1")))

	data, err := s.Read(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: t1", string(data))

	exists, err := s.Exists(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "tasks/t1.yaml"))

	exists, err = s.Exists(ctx, "tasks/t1.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageNotFound(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Read(ctx, "tasks/missing.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(ctx, "tasks/missing.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorageList(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "tasks/t1.yaml", []byte("a")))
	require.NoError(t, s.Write(ctx, "tasks/t2.yaml", []byte("b")))
	// Leftover temp files from interrupted writes are not documents.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks", "t3.yaml.tmp"), []byte("c"), 0o644))

	paths, err := s.List(ctx, "tasks")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tasks/t1.yaml", "tasks/t2.yaml"}, paths)

	paths, err = s.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalStorageOverwrite(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "k.yaml", []byte("v1")))
	require.NoError(t, s.Write(ctx, "k.yaml", []byte("v2")))

	data, err := s.Read(ctx, "k.yaml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
