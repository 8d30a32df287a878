package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
)

func openTestRepo(t *testing.T) HistoryRepository {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepository(db)
}

func TestRecordAndListRecent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"白雲杉", "薰衣草", "甜橙"} {
		err := repo.Record(ctx, entity.Intake{
			Name:      name,
			Price:     "700",
			Volume:    "6",
			Expiry:    "2028-04",
			BatchCode: "7-330705",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	got, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "甜橙", got[0].Name, "newest first")
	assert.Equal(t, "薰衣草", got[1].Name)
	assert.Equal(t, "7-330705", got[0].BatchCode)
}

func TestRecord_FillsIDAndTimestamp(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, entity.Intake{Name: "白雲杉"}))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", got[0].ID.String())
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestClosedDatabaseSurfacesDatabaseError(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	repo := NewHistoryRepository(db)
	require.NoError(t, db.Close())

	err = repo.Record(context.Background(), entity.Intake{Name: "白雲杉"})
	assert.ErrorIs(t, err, common.ErrDatabase)

	_, err = repo.ListRecent(context.Background(), 5)
	assert.ErrorIs(t, err, common.ErrDatabase)
}

func TestListRecent_EmptyTable(t *testing.T) {
	repo := openTestRepo(t)
	got, err := repo.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
