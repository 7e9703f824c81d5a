package repository

import (
	"time"

	"snapconnect-backend/internal/message/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// Create persists a new message
	Create(message *domain.Message) error

	// FindByID finds a message by its ID, nil if missing
	FindByID(id string) (*domain.Message, error)

	// MarkViewed records the first view of a message by its receiver.
	// Returns false without touching the row when viewer is not the
	// receiver. A second call is a no-op: the expiry assigned on first
	// view is never extended or replaced. Only human-originated messages
	// acquire an expiry.
	MarkViewed(messageID, viewerID string, now time.Time, ttl time.Duration) (bool, error)

	// Conversation returns the most recent messages between two accounts,
	// newest first. AI-originated rows are always included; human rows past
	// their expiry are filtered out.
	Conversation(accountA, accountB string, limit int, now time.Time) ([]*domain.Message, error)

	// ListSummaries returns, per counterpart the account has exchanged
	// messages with, the latest message and the unread count.
	ListSummaries(accountID string, now time.Time) ([]*domain.ConversationSummary, error)

	// DeleteExpiredBefore hard-deletes human rows whose expiry passed
	// before the cutoff. The retention sweep is the only deletion path.
	DeleteExpiredBefore(cutoff time.Time) (int64, error)
}

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(message *domain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now()
	}
	return r.db.Create(message).Error
}

func (r *gormMessageRepository) FindByID(id string) (*domain.Message, error) {
	var message domain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) MarkViewed(messageID, viewerID string, now time.Time, ttl time.Duration) (bool, error) {
	viewed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var message domain.Message
		if err := tx.Where("id = ?", messageID).First(&message).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		if message.ReceiverID != viewerID {
			return nil
		}

		if message.IsViewed {
			// idempotent: first view already recorded, expiry untouched
			viewed = true
			return nil
		}

		message.IsViewed = true
		message.ViewedAt = &now
		if !message.IsAISender && message.ExpiresAt == nil {
			expiry := now.Add(ttl)
			message.ExpiresAt = &expiry
		}
		if err := tx.Save(&message).Error; err != nil {
			return err
		}
		viewed = true
		return nil
	})
	return viewed, err
}

func (r *gormMessageRepository) Conversation(accountA, accountB string, limit int, now time.Time) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := r.db.
		Where(
			r.db.Where("sender_id = ? AND receiver_id = ?", accountA, accountB).
				Or("sender_id = ? AND receiver_id = ?", accountB, accountA),
		).
		Where("is_ai_sender = ? OR expires_at IS NULL OR expires_at > ?", true, now).
		Order("sent_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *gormMessageRepository) ListSummaries(accountID string, now time.Time) ([]*domain.ConversationSummary, error) {
	var messages []*domain.Message
	err := r.db.
		Where("sender_id = ? OR receiver_id = ?", accountID, accountID).
		Where("is_ai_sender = ? OR expires_at IS NULL OR expires_at > ?", true, now).
		Order("sent_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byCounterpart := make(map[string]*domain.ConversationSummary)
	for _, m := range messages {
		counterpart := m.SenderID
		if counterpart == accountID {
			counterpart = m.ReceiverID
		}
		summary, ok := byCounterpart[counterpart]
		if !ok {
			summary = &domain.ConversationSummary{CounterpartID: counterpart, LastMessage: m}
			byCounterpart[counterpart] = summary
			order = append(order, counterpart)
		}
		if m.ReceiverID == accountID && !m.IsViewed {
			summary.UnreadCount++
		}
	}

	summaries := make([]*domain.ConversationSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, byCounterpart[id])
	}
	return summaries, nil
}

func (r *gormMessageRepository) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("is_ai_sender = ?", false).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&domain.Message{})
	return result.RowsAffected, result.Error
}
