package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"codevox/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection so every statement sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.ConversationContext{},
		&models.PendingChange{},
		&models.HistoryEntry{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.UserID)

	first.TurnCount = 3
	require.NoError(t, repo.Save(ctx, first))

	second, err := repo.GetOrCreate(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, uint(3), second.TurnCount)
}

func TestReplacePendingChangeSingleSlot(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplacePendingChange(ctx, &models.PendingChange{
		UserID: 100, ChangeID: "change_100_1", State: models.ChangePending,
	}))
	require.NoError(t, repo.ReplacePendingChange(ctx, &models.PendingChange{
		UserID: 100, ChangeID: "change_100_2", State: models.ChangePending,
	}))

	got, err := repo.GetPendingChange(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "change_100_2", got.ChangeID)
}

func TestGetPendingChangeAbsent(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	got, err := repo.GetPendingChange(context.Background(), 100)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearPendingChange(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.ReplacePendingChange(ctx, &models.PendingChange{
		UserID: 100, ChangeID: "c", State: models.ChangePending,
	}))
	require.NoError(t, repo.ClearPendingChange(ctx, 100))

	got, err := repo.GetPendingChange(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdatePendingChangePersistsDecision(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	change := &models.PendingChange{UserID: 100, ChangeID: "c", State: models.ChangePending}
	require.NoError(t, repo.ReplacePendingChange(ctx, change))

	now := time.Now()
	change.State = models.ChangeApproved
	change.DecidedAt = &now
	require.NoError(t, repo.UpdatePendingChange(ctx, change))

	got, err := repo.GetPendingChange(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeApproved, got.State)
	assert.NotNil(t, got.DecidedAt)
}

func TestAppendHistoryTrims(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, repo.AppendHistory(ctx, &models.HistoryEntry{
			UserID:    100,
			ChangeID:  fmt.Sprintf("change_100_%d", i),
			State:     models.ChangeRejected,
			Timestamp: time.Now(),
		}, models.HistoryLimit))
	}

	entries, err := repo.ListHistory(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, models.HistoryLimit)
	// Oldest five were trimmed; newest survives last.
	assert.Equal(t, "change_100_5", entries[0].ChangeID)
	assert.Equal(t, "change_100_24", entries[len(entries)-1].ChangeID)
}

func TestAppendHistoryKeepsUsersSeparate(t *testing.T) {
	repo := NewConversationRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AppendHistory(ctx, &models.HistoryEntry{UserID: 1, ChangeID: "a"}, models.HistoryLimit))
	require.NoError(t, repo.AppendHistory(ctx, &models.HistoryEntry{UserID: 2, ChangeID: "b"}, models.HistoryLimit))

	one, err := repo.ListHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "a", one[0].ChangeID)
}
