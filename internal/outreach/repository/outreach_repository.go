package repository

import (
	"time"

	"snapconnect-backend/internal/outreach/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutreachRepository is the append-only rate-limit ledger
type OutreachRepository interface {
	// Append records a sent outreach; records are never updated
	Append(record *domain.ProactiveOutreachRecord) error

	// LastSent returns when the trigger last fired for the pair, nil if never
	LastSent(personaID, humanID string, trigger domain.TriggerType) (*time.Time, error)

	// CountForHumanSince counts outreach to a human across all personas and
	// triggers since the given time; enforces the daily cap
	CountForHumanSince(humanID string, since time.Time) (int64, error)

	// LastContact returns the most recent outreach from the persona to the
	// human regardless of trigger, nil if never
	LastContact(personaID, humanID string) (*time.Time, error)
}

type gormOutreachRepository struct {
	db *gorm.DB
}

func NewOutreachRepository(db *gorm.DB) OutreachRepository {
	return &gormOutreachRepository{db: db}
}

func (r *gormOutreachRepository) Append(record *domain.ProactiveOutreachRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now()
	}
	return r.db.Create(record).Error
}

func (r *gormOutreachRepository) LastSent(personaID, humanID string, trigger domain.TriggerType) (*time.Time, error) {
	var record domain.ProactiveOutreachRecord
	err := r.db.
		Where("persona_id = ? AND human_id = ? AND trigger_type = ?", personaID, humanID, trigger).
		Order("sent_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record.SentAt, nil
}

func (r *gormOutreachRepository) CountForHumanSince(humanID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ProactiveOutreachRecord{}).
		Where("human_id = ? AND sent_at >= ?", humanID, since).
		Count(&count).Error
	return count, err
}

func (r *gormOutreachRepository) LastContact(personaID, humanID string) (*time.Time, error) {
	var record domain.ProactiveOutreachRecord
	err := r.db.
		Where("persona_id = ? AND human_id = ?", personaID, humanID).
		Order("sent_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record.SentAt, nil
}
