package receipt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSaveLoadRoundtrip ensures a receipt is persisted and loaded back intact.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := PathFor(filepath.Join(t.TempDir(), "micromamba"))
	repo := NewFileRepository(path)

	rec := &Receipt{
		Architecture: "amd64",
		Version:      "1.5.8-0",
		URL:          "https://example.com/micromamba-linux-64",
		SHA256:       "b8e792e6b36118c0a4ccfd9414dc07b67fa82ceb7a74da416259062039ece249",
		InstalledAt:  time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, repo.Save(ctx, rec))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rec, loaded)
}

// TestLoadMissing returns ErrNotFound when no receipt exists yet.
func TestLoadMissing(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}
