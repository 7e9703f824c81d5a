package usecase

import (
	"testing"
	"time"

	accountdomain "snapconnect-backend/internal/account/domain"
	accountrepo "snapconnect-backend/internal/account/repository"
	"snapconnect-backend/internal/message/domain"
	"snapconnect-backend/internal/message/repository"
	"snapconnect-backend/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type capturingPublisher struct {
	published []*domain.Message
}

func (p *capturingPublisher) Publish(message *domain.Message) {
	p.published = append(p.published, message)
}

type fixture struct {
	uc        MessageUsecase
	accounts  accountrepo.AccountRepository
	publisher *capturingPublisher
	db        *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{}, &accountdomain.Persona{}, &accountdomain.Friendship{},
		&domain.Message{},
	))

	accounts := accountrepo.NewAccountRepository(db)
	publisher := &capturingPublisher{}
	uc := NewMessageUsecase(
		repository.NewMessageRepository(db),
		accounts,
		accountrepo.NewSocialGraph(db),
		publisher,
		24*time.Hour,
		7*24*time.Hour,
		zap.NewNop(),
	)
	return &fixture{uc: uc, accounts: accounts, publisher: publisher, db: db}
}

func (f *fixture) human(t *testing.T, username string) *accountdomain.Account {
	account := &accountdomain.Account{Kind: accountdomain.KindHuman, Username: username}
	require.NoError(t, f.accounts.Create(account, nil))
	return account
}

func (f *fixture) persona(t *testing.T, username string) *accountdomain.Account {
	account := &accountdomain.Account{Kind: accountdomain.KindAIPersona, Username: username}
	require.NoError(t, f.accounts.Create(account, &accountdomain.Persona{
		PersonalityType: "fitness_coach",
		TypingSpeedCPS:  20,
	}))
	return account
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	require.NoError(t, f.db.Create(&accountdomain.Friendship{
		ID: a + "-" + b, AccountID: a, FriendID: b, Status: accountdomain.FriendshipAccepted,
	}).Error)
}

func TestSend(t *testing.T) {
	t.Run("sender and receiver must differ", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")

		_, err := f.uc.Send(alice.ID, alice.ID, SendInput{Content: "hi"})
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	})

	t.Run("content or media required", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		bob := f.human(t, "bob")

		_, err := f.uc.Send(alice.ID, bob.ID, SendInput{})
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	})

	t.Run("unknown receiver", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")

		_, err := f.uc.Send(alice.ID, "missing", SendInput{Content: "hi"})
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})

	t.Run("unconnected humans cannot message", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		bob := f.human(t, "bob")

		_, err := f.uc.Send(alice.ID, bob.ID, SendInput{Content: "hi"})
		assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
	})

	t.Run("connected humans message and publish", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		bob := f.human(t, "bob")
		f.befriend(t, alice.ID, bob.ID)

		msg, err := f.uc.Send(alice.ID, bob.ID, SendInput{Content: "hi"})
		require.NoError(t, err)
		assert.False(t, msg.IsAISender)
		assert.Equal(t, domain.MessageTypeText, msg.MessageType)
		assert.Nil(t, msg.ExpiresAt)
		require.Len(t, f.publisher.published, 1)
		assert.Equal(t, msg.ID, f.publisher.published[0].ID)
	})

	t.Run("human to persona needs no friendship", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		coach := f.persona(t, "coach")

		msg, err := f.uc.Send(alice.ID, coach.ID, SendInput{Content: "hello coach"})
		require.NoError(t, err)
		assert.False(t, msg.IsAISender)
	})

	t.Run("media message resolves its type", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		coach := f.persona(t, "coach")

		msg, err := f.uc.Send(alice.ID, coach.ID, SendInput{MediaURL: "https://cdn/x.mp4", MediaType: "video"})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeVideo, msg.MessageType)
	})
}

func TestSendAsPersona(t *testing.T) {
	t.Run("human account is rejected", func(t *testing.T) {
		f := newFixture(t)
		alice := f.human(t, "alice")
		bob := f.human(t, "bob")

		_, err := f.uc.SendAsPersona(alice.ID, bob.ID, SendInput{Content: "hi"}, "", nil)
		assert.True(t, apperr.Is(err, apperr.CodePermissionDenied))
	})

	t.Run("persona send bypasses the social graph", func(t *testing.T) {
		f := newFixture(t)
		coach := f.persona(t, "coach")
		alice := f.human(t, "alice")

		msg, err := f.uc.SendAsPersona(coach.ID, alice.ID, SendInput{Content: "keep it up!"},
			"fitness_coach", map[string]interface{}{"trigger": "reactive"})
		require.NoError(t, err)
		assert.True(t, msg.IsAISender)
		assert.Equal(t, "fitness_coach", msg.AIPersonalityType)
		assert.Nil(t, msg.ExpiresAt)
		require.Len(t, f.publisher.published, 1)
	})

	t.Run("deleted receiver surfaces not found", func(t *testing.T) {
		f := newFixture(t)
		coach := f.persona(t, "coach")

		_, err := f.uc.SendAsPersona(coach.ID, "gone", SendInput{Content: "hi"}, "fitness_coach", nil)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})
}

func TestMarkViewedLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.human(t, "alice")
	coach := f.persona(t, "coach")

	msg, err := f.uc.Send(alice.ID, coach.ID, SendInput{Content: "hi"})
	require.NoError(t, err)

	marked, err := f.uc.MarkViewed(msg.ID, coach.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	// second view stays idempotent through the usecase too
	marked, err = f.uc.MarkViewed(msg.ID, coach.ID)
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	alice := f.human(t, "alice")
	bob := f.human(t, "bob")
	eve := f.human(t, "eve")
	coach := f.persona(t, "coach")

	f.befriend(t, alice.ID, bob.ID)

	// persona conversation
	_, err := f.uc.Send(alice.ID, coach.ID, SendInput{Content: "hey coach"})
	require.NoError(t, err)
	// friend conversation
	_, err = f.uc.Send(alice.ID, bob.ID, SendInput{Content: "hey bob"})
	require.NoError(t, err)
	// a stray row from a non-friend never shows up in the list
	require.NoError(t, f.db.Create(&domain.Message{
		ID: "stray", SenderID: eve.ID, ReceiverID: alice.ID, Content: "hi", SentAt: time.Now(),
	}).Error)

	summaries, err := f.uc.ListConversations(alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	counterparts := []string{summaries[0].CounterpartID, summaries[1].CounterpartID}
	assert.Contains(t, counterparts, bob.ID)
	assert.Contains(t, counterparts, coach.ID)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	alice := f.human(t, "alice")
	coach := f.persona(t, "coach")

	longGone := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, f.db.Create(&domain.Message{
		ID: "ancient", SenderID: alice.ID, ReceiverID: coach.ID, Content: "old",
		SentAt: longGone, ExpiresAt: &longGone,
	}).Error)

	deleted, err := f.uc.SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
