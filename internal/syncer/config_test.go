package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/store"
)

func TestConfigStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	cs := NewConfigStore(store.NewMemory())

	got, err := cs.SyncConfig(ctx)
	require.NoError(t, err)
	assert.False(t, IsConfigured(got))

	require.NoError(t, cs.Save(ctx, domain.SyncConfig{
		Username: " ada ", Repo: "journal", FilePath: "/backups/diary.json", Token: "tok\n",
	}))

	got, err = cs.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncConfig{Username: "ada", Repo: "journal", FilePath: "backups/diary.json", Token: "tok"}, got)
	assert.True(t, IsConfigured(got))

	require.NoError(t, cs.Clear(ctx))
	got, err = cs.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncConfig{}, got)
}

func TestConfigStore_RejectsIncomplete(t *testing.T) {
	ctx := context.Background()
	cs := NewConfigStore(store.NewMemory())

	err := cs.Save(ctx, domain.SyncConfig{Username: "ada", Repo: "  "})

	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "repo is required")
	assert.Contains(t, err.Error(), "filepath is required")
	assert.Contains(t, err.Error(), "token is required")

	got, err := cs.SyncConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncConfig{}, got)
}
