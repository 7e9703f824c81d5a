package repository

import (
	"time"

	"snapconnect-backend/internal/memory/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryRepository defines persistence for conversation memories and their
// dated snapshots
type MemoryRepository interface {
	// FindByPair returns the memory row of a (persona, human) pair, nil if missing
	FindByPair(personaID, humanID string) (*domain.ConversationMemory, error)

	// Create persists a new memory row
	Create(memory *domain.ConversationMemory) error

	// Update saves an existing memory row
	Update(memory *domain.ConversationMemory) error

	// UpsertSnapshot creates the day's snapshot or updates it if the pair
	// already has one for that date
	UpsertSnapshot(snapshot *domain.ConversationSnapshot) error

	// RecentSnapshots returns up to limit snapshots, newest first
	RecentSnapshots(memoryID string, limit int) ([]*domain.ConversationSnapshot, error)
}

type gormMemoryRepository struct {
	db *gorm.DB
}

func NewMemoryRepository(db *gorm.DB) MemoryRepository {
	return &gormMemoryRepository{db: db}
}

func (r *gormMemoryRepository) FindByPair(personaID, humanID string) (*domain.ConversationMemory, error) {
	var memory domain.ConversationMemory
	err := r.db.Where("persona_id = ? AND human_id = ?", personaID, humanID).First(&memory).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &memory, nil
}

func (r *gormMemoryRepository) Create(memory *domain.ConversationMemory) error {
	if memory.ID == "" {
		memory.ID = uuid.New().String()
	}
	memory.CreatedAt = time.Now()
	memory.UpdatedAt = time.Now()
	return r.db.Create(memory).Error
}

func (r *gormMemoryRepository) Update(memory *domain.ConversationMemory) error {
	memory.UpdatedAt = time.Now()
	return r.db.Save(memory).Error
}

func (r *gormMemoryRepository) UpsertSnapshot(snapshot *domain.ConversationSnapshot) error {
	var existing domain.ConversationSnapshot
	err := r.db.Where("memory_id = ? AND date = ?", snapshot.MemoryID, snapshot.Date).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		if snapshot.ID == "" {
			snapshot.ID = uuid.New().String()
		}
		snapshot.CreatedAt = time.Now()
		snapshot.UpdatedAt = time.Now()
		return r.db.Create(snapshot).Error
	} else if err != nil {
		return err
	}

	existing.MessageCount = snapshot.MessageCount
	existing.Summary = snapshot.Summary
	existing.KeyTopics = snapshot.KeyTopics
	existing.EmotionalTone = snapshot.EmotionalTone
	existing.Importance = snapshot.Importance
	existing.ContainsMilestone = existing.ContainsMilestone || snapshot.ContainsMilestone
	existing.UpdatedAt = time.Now()
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	snapshot.ID = existing.ID
	return nil
}

func (r *gormMemoryRepository) RecentSnapshots(memoryID string, limit int) ([]*domain.ConversationSnapshot, error) {
	var snapshots []*domain.ConversationSnapshot
	err := r.db.
		Where("memory_id = ?", memoryID).
		Order("date DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}
