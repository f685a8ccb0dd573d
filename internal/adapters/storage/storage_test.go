package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseorm/baseorm/internal/adapters/storage"
)

func TestStorageBackends(t *testing.T) {
	backends := map[string]storage.Storage{
		"memory":     storage.NewMemory(),
		"filesystem": storage.NewFilesystem(t.TempDir()),
	}

	for name, s := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			names, err := s.List(ctx, "migrations")
			require.NoError(t, err)
			assert.Empty(t, names)

			require.NoError(t, s.Write(ctx, filepath.Join("migrations", "b.yaml"), []byte("b")))
			require.NoError(t, s.Write(ctx, filepath.Join("migrations", "a.yaml"), []byte("a")))
			require.NoError(t, s.MkdirAll(ctx, filepath.Join("migrations", "nested")))

			names, err = s.List(ctx, "migrations")
			require.NoError(t, err)
			assert.Equal(t, []string{"a.yaml", "b.yaml"}, names)

			ok, err := s.Exists(ctx, filepath.Join("migrations", "a.yaml"))
			require.NoError(t, err)
			assert.True(t, ok)

			content, err := s.Read(ctx, filepath.Join("migrations", "b.yaml"))
			require.NoError(t, err)
			assert.Equal(t, []byte("b"), content)

			require.NoError(t, s.Delete(ctx, filepath.Join("migrations", "a.yaml")))
			_, err = s.Read(ctx, filepath.Join("migrations", "a.yaml"))
			assert.ErrorIs(t, err, storage.ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, filepath.Join("migrations", "a.yaml")), storage.ErrNotFound)
		})
	}
}

func TestStorageHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := storage.NewMemory()
	assert.ErrorIs(t, s.Write(ctx, "x", nil), context.Canceled)
	_, err := s.Read(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.List(ctx, ".")
	assert.ErrorIs(t, err, context.Canceled)
}
