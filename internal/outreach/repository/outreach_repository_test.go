package repository

import (
	"testing"
	"time"

	"snapconnect-backend/internal/outreach/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepo(t *testing.T) OutreachRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ProactiveOutreachRecord{}))
	return NewOutreachRepository(db)
}

func TestLedger(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newRepo(t)

	require.NoError(t, repo.Append(&domain.ProactiveOutreachRecord{
		PersonaID: "coach", HumanID: "alice",
		TriggerType: domain.TriggerCheckIn, SentAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.Append(&domain.ProactiveOutreachRecord{
		PersonaID: "coach", HumanID: "alice",
		TriggerType: domain.TriggerCheckIn, SentAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, repo.Append(&domain.ProactiveOutreachRecord{
		PersonaID: "coach", HumanID: "alice",
		TriggerType: domain.TriggerRandomSocial, SentAt: now.Add(-30 * time.Hour),
	}))
	require.NoError(t, repo.Append(&domain.ProactiveOutreachRecord{
		PersonaID: "mentor", HumanID: "alice",
		TriggerType: domain.TriggerCheckIn, SentAt: now.Add(-time.Hour),
	}))

	t.Run("last sent is scoped per persona, human and trigger", func(t *testing.T) {
		last, err := repo.LastSent("coach", "alice", domain.TriggerCheckIn)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.WithinDuration(t, now.Add(-2*time.Hour), *last, time.Second)

		last, err = repo.LastSent("coach", "alice", domain.TriggerMotivationBoost)
		require.NoError(t, err)
		assert.Nil(t, last)

		last, err = repo.LastSent("coach", "bob", domain.TriggerCheckIn)
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("daily count spans personas and triggers", func(t *testing.T) {
		count, err := repo.CountForHumanSince("alice", now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = repo.CountForHumanSince("alice", now.Add(-72*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("last contact ignores the trigger type", func(t *testing.T) {
		last, err := repo.LastContact("coach", "alice")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.WithinDuration(t, now.Add(-2*time.Hour), *last, time.Second)
	})
}
