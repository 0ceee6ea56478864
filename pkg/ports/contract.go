package ports

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPatchStoreContract runs a suite of tests to verify that a PatchStore
// implementation adheres to the defined interface contract.
// newPath returns a fresh location understood by the store.
func RunPatchStoreContract(t *testing.T, store PatchStore, newPath func(t *testing.T) string) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		path := newPath(t)
		set := domain.NewConnectionSet(
			domain.Connection{From: "system:capture_1", To: "app:in_l"},
			domain.Connection{From: "system:capture_2", To: "app:in_r"},
			domain.Connection{From: "a2j:Midi Through [14] (capture): Midi Through Port-0", To: "synth:midi_in"},
		)

		require.NoError(t, store.Save(ctx, path, set), "Save should not return error")

		loaded, err := store.Load(ctx, path)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, set.Equal(loaded), "round trip must keep the same pairs, got %v", loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, newPath(t))
		assert.ErrorIs(t, err, domain.ErrPatchNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		path := newPath(t)
		require.NoError(t, store.Save(ctx, path, domain.NewConnectionSet(domain.Connection{From: "a", To: "b"})))
		require.NoError(t, store.Save(ctx, path, domain.NewConnectionSet(domain.Connection{From: "c", To: "d"})))

		loaded, err := store.Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, domain.ConnectionSet{{From: "c", To: "d"}}, loaded)
	})

	t.Run("Empty Set", func(t *testing.T) {
		path := newPath(t)
		require.NoError(t, store.Save(ctx, path, nil))

		loaded, err := store.Load(ctx, path)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})
}

// TempPath returns a newPath function producing files under t.TempDir().
func TempPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "patch.xml")
}
