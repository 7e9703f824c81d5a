package usecase

import (
	"time"

	"snapconnect-backend/internal/memory/domain"
	"snapconnect-backend/internal/memory/repository"

	"go.uber.org/zap"
)

const contextSnapshotLimit = 5

// SessionInput describes one completed conversation session
type SessionInput struct {
	Summary           string            // optional; a snapshot is only written when present
	NewDetails        map[string]string // merged into the learned-details map, new keys win
	TopicsDiscussed   []string
	FollowUpItems     []string
	MessageCount      int
	EmotionalTone     domain.EmotionalTone
	Importance        int
	ContainsMilestone bool
}

// Context is what the response engine receives: the relationship record plus
// the most recent snapshots, newest first.
type Context struct {
	Memory    *domain.ConversationMemory
	Snapshots []*domain.ConversationSnapshot
}

// MemoryUsecase maintains per-pair relationship records
type MemoryUsecase interface {
	GetOrCreate(personaID, humanID string) (*domain.ConversationMemory, error)
	// Peek returns the pair's memory without creating one, nil if the pair
	// has never interacted
	Peek(personaID, humanID string) (*domain.ConversationMemory, error)
	RecordSession(personaID, humanID string, in SessionInput) (*domain.ConversationMemory, error)
	RetrieveContext(personaID, humanID string) (*Context, error)
	// PeekContext is RetrieveContext without the create: the Memory field is
	// nil when the pair has never interacted
	PeekContext(personaID, humanID string) (*Context, error)
}

type memoryUsecase struct {
	memories repository.MemoryRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewMemoryUsecase(memories repository.MemoryRepository, logger *zap.Logger) MemoryUsecase {
	return &memoryUsecase{
		memories: memories,
		logger:   logger.With(zap.String("component", "memory")),
		now:      time.Now,
	}
}

// GetOrCreate returns the pair's memory, creating it on first interaction
// with stage new_connection and a conversation count of one.
func (u *memoryUsecase) GetOrCreate(personaID, humanID string) (*domain.ConversationMemory, error) {
	memory, _, err := u.getOrCreate(personaID, humanID)
	return memory, err
}

func (u *memoryUsecase) Peek(personaID, humanID string) (*domain.ConversationMemory, error) {
	return u.memories.FindByPair(personaID, humanID)
}

func (u *memoryUsecase) getOrCreate(personaID, humanID string) (*domain.ConversationMemory, bool, error) {
	memory, err := u.memories.FindByPair(personaID, humanID)
	if err != nil {
		return nil, false, err
	}
	if memory != nil {
		return memory, false, nil
	}

	now := u.now()
	memory = &domain.ConversationMemory{
		PersonaID:           personaID,
		HumanID:             humanID,
		RelationshipStage:   domain.StageNewConnection,
		TotalConversations:  1,
		LastConversationAt:  &now,
		HumanDetailsLearned: map[string]string{},
	}
	if err := u.memories.Create(memory); err != nil {
		// lost a create race: the unique pair index means someone else
		// made it, re-read
		existing, findErr := u.memories.FindByPair(personaID, humanID)
		if findErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	u.logger.Info("created conversation memory",
		zap.String("persona_id", personaID),
		zap.String("human_id", humanID))
	return memory, true, nil
}

// RecordSession folds one completed session into the pair's memory and, when
// a summary is present, upserts the day's snapshot. A freshly created memory
// already counts the current conversation, so only pre-existing rows get
// their counter bumped.
func (u *memoryUsecase) RecordSession(personaID, humanID string, in SessionInput) (*domain.ConversationMemory, error) {
	memory, created, err := u.getOrCreate(personaID, humanID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if !created {
		memory.TotalConversations++
	}
	memory.TotalMessagesExchanged += in.MessageCount
	memory.LastConversationAt = &now

	if memory.HumanDetailsLearned == nil {
		memory.HumanDetailsLearned = map[string]string{}
	}
	for k, v := range in.NewDetails {
		memory.HumanDetailsLearned[k] = v
	}
	if len(in.TopicsDiscussed) > 0 {
		memory.OngoingTopics = mergeUnique(memory.OngoingTopics, in.TopicsDiscussed)
	}
	if len(in.FollowUpItems) > 0 {
		memory.FollowUpItems = mergeUnique(memory.FollowUpItems, in.FollowUpItems)
	}
	if in.Summary != "" {
		memory.LastConversationSummary = in.Summary
	}

	memory.RelationshipStage = domain.AdvanceStage(memory.RelationshipStage, memory.TotalConversations)

	if err := u.memories.Update(memory); err != nil {
		return nil, err
	}

	if in.Summary != "" {
		snapshot := &domain.ConversationSnapshot{
			MemoryID:          memory.ID,
			Date:              now.Format("2006-01-02"),
			MessageCount:      in.MessageCount,
			Summary:           in.Summary,
			KeyTopics:         in.TopicsDiscussed,
			EmotionalTone:     in.EmotionalTone,
			Importance:        domain.ClampImportance(in.Importance),
			ContainsMilestone: in.ContainsMilestone,
		}
		if snapshot.EmotionalTone == "" {
			snapshot.EmotionalTone = domain.ToneNeutral
		}
		if err := u.memories.UpsertSnapshot(snapshot); err != nil {
			return nil, err
		}
	}

	return memory, nil
}

func (u *memoryUsecase) RetrieveContext(personaID, humanID string) (*Context, error) {
	memory, err := u.GetOrCreate(personaID, humanID)
	if err != nil {
		return nil, err
	}
	snapshots, err := u.memories.RecentSnapshots(memory.ID, contextSnapshotLimit)
	if err != nil {
		return nil, err
	}
	return &Context{Memory: memory, Snapshots: snapshots}, nil
}

func (u *memoryUsecase) PeekContext(personaID, humanID string) (*Context, error) {
	memory, err := u.memories.FindByPair(personaID, humanID)
	if err != nil {
		return nil, err
	}
	if memory == nil {
		return &Context{}, nil
	}
	snapshots, err := u.memories.RecentSnapshots(memory.ID, contextSnapshotLimit)
	if err != nil {
		return nil, err
	}
	return &Context{Memory: memory, Snapshots: snapshots}, nil
}

func mergeUnique(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s]; !ok {
			existing = append(existing, s)
			seen[s] = struct{}{}
		}
	}
	return existing
}
