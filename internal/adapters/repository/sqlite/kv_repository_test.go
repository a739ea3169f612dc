package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	repo, err := Open(path)
	require.NoError(t, err)

	_, ok, err := repo.Get(ctx, "participantId")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "participantId", "p-1"))
	require.NoError(t, repo.Set(ctx, "participantId", "p-2"))
	require.NoError(t, repo.Set(ctx, "displayName", "Ada"))
	require.NoError(t, repo.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "participantId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p-2", v)

	v, _, err = reopened.Get(ctx, "displayName")
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)
}
