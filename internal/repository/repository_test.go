package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gemini-assistant/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestNewDBRejectsEmptyDSN(t *testing.T) {
	_, err := NewDB("")
	require.Error(t, err)
}

func TestNewDBSerializesConnections(t *testing.T) {
	db := newTestDB(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	var timeout int
	require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(newTestDB(t))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Append(ctx, 3, "q", "a")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	chats, err := repo.RecentByUser(ctx, 3, 50)
	require.NoError(t, err)
	assert.Len(t, chats, 20)
}

func TestRegisterUpsertsByUserID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	exists, err := repo.Exists(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Register(ctx, 42, "Ada", "ada", nil))
	first, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, first.PhoneNumber)

	oldPhone := "+100"
	newPhone := "+200"
	require.NoError(t, repo.Register(ctx, 42, "Ada", "ada", &oldPhone))
	require.NoError(t, repo.Register(ctx, 42, "Ada L.", "ada_l", &newPhone))

	var count int64
	require.NoError(t, repo.db.Model(&model.User{}).Where("user_id = ?", 42).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	user, err := repo.FindByUserID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, user.PhoneNumber)
	assert.Equal(t, newPhone, *user.PhoneNumber)
	assert.Equal(t, "Ada L.", user.FirstName)
	assert.Equal(t, "ada_l", user.Username)
	assert.False(t, user.RegisteredAt.Before(first.RegisteredAt))

	exists, err = repo.Exists(ctx, 42)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestChatAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(newTestDB(t))
	repo.now = stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Append(ctx, 7, "hello", "Hi there"))
	require.NoError(t, repo.Append(ctx, 7, "again", "Hello again"))
	require.NoError(t, repo.Append(ctx, 8, "other", "user"))

	chats, err := repo.RecentByUser(ctx, 7, 5)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "again", chats[0].UserInput)
	assert.Equal(t, "hello", chats[1].UserInput)
	assert.Equal(t, "Hi there", chats[1].BotResponse)

	limited, err := repo.RecentByUser(ctx, 7, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFileAppendWithoutUserRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewFileRepository(db)

	require.NoError(t, repo.Append(ctx, 99, "report.pdf", "Failed to extract text from PDF."))

	files, err := repo.RecentByUser(ctx, 99, 5)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "report.pdf", files[0].FileName)
	assert.Equal(t, "Failed to extract text from PDF.", files[0].Description)

	exists, err := NewUserRepository(db).Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)
}
