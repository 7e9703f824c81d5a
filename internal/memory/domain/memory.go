package domain

import "time"

// RelationshipStage classifies how well a persona and a human know each
// other. Stages only ever advance.
type RelationshipStage string

const (
	StageNewConnection        RelationshipStage = "new_connection"
	StageGettingAcquainted    RelationshipStage = "getting_acquainted"
	StageFriendlyAcquaintance RelationshipStage = "friendly_acquaintance"
	StageGoodFriend           RelationshipStage = "good_friend"
	StageCloseFriend          RelationshipStage = "close_friend"
)

var stageOrder = []RelationshipStage{
	StageNewConnection,
	StageGettingAcquainted,
	StageFriendlyAcquaintance,
	StageGoodFriend,
	StageCloseFriend,
}

// conversation-count thresholds at which each stage unlocks
var stageThresholds = map[RelationshipStage]int{
	StageNewConnection:        0,
	StageGettingAcquainted:    3,
	StageFriendlyAcquaintance: 8,
	StageGoodFriend:           15,
	StageCloseFriend:          30,
}

// StageRank returns the position of a stage in the ordered stage list
func StageRank(stage RelationshipStage) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return 0
}

// StageForConversations is the pure threshold function mapping a total
// conversation count to a stage.
func StageForConversations(total int) RelationshipStage {
	stage := StageNewConnection
	for _, s := range stageOrder {
		if total >= stageThresholds[s] {
			stage = s
		}
	}
	return stage
}

// AdvanceStage recomputes the stage from the conversation count. The result
// never regresses, and advances at most one step per call so a stage is
// crossed on the session that reaches its threshold, not skipped past.
func AdvanceStage(current RelationshipStage, totalConversations int) RelationshipStage {
	target := StageForConversations(totalConversations)
	currentRank := StageRank(current)
	targetRank := StageRank(target)
	if targetRank <= currentRank {
		return current
	}
	return stageOrder[currentRank+1]
}

// ConversationMemory is the durable relationship record of one
// (persona, human) pair.
type ConversationMemory struct {
	ID                      string            `json:"id" gorm:"primaryKey"`
	PersonaID               string            `json:"persona_id" gorm:"uniqueIndex:idx_memory_pair;not null"`
	HumanID                 string            `json:"human_id" gorm:"uniqueIndex:idx_memory_pair;not null"`
	RelationshipStage       RelationshipStage `json:"relationship_stage" gorm:"default:new_connection"`
	TotalConversations      int               `json:"total_conversations" gorm:"default:0"`
	TotalMessagesExchanged  int               `json:"total_messages_exchanged" gorm:"default:0"`
	LastConversationAt      *time.Time        `json:"last_conversation_at,omitempty"`
	HumanDetailsLearned     map[string]string `json:"human_details_learned" gorm:"serializer:json"`
	OngoingTopics           []string          `json:"ongoing_topics" gorm:"serializer:json"`
	FollowUpItems           []string          `json:"follow_up_items" gorm:"serializer:json"`
	LastConversationSummary string            `json:"last_conversation_summary" gorm:"type:text"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

func (ConversationMemory) TableName() string {
	return "conversation_memories"
}

// EmotionalTone labels the overall mood of one conversation session
type EmotionalTone string

const (
	TonePositive    EmotionalTone = "positive"
	ToneNeutral     EmotionalTone = "neutral"
	ToneSupportive  EmotionalTone = "supportive"
	ToneCelebratory EmotionalTone = "celebratory"
	ToneConcerned   EmotionalTone = "concerned"
)

// ConversationSnapshot is the dated summary of one conversation session.
// At most one snapshot exists per pair per calendar day; same-day sessions
// update the existing row. Append-only otherwise.
type ConversationSnapshot struct {
	ID                string        `json:"id" gorm:"primaryKey"`
	MemoryID          string        `json:"memory_id" gorm:"uniqueIndex:idx_snapshot_day;index;not null"`
	Date              string        `json:"date" gorm:"uniqueIndex:idx_snapshot_day;not null"` // YYYY-MM-DD
	MessageCount      int           `json:"message_count"`
	Summary           string        `json:"summary" gorm:"type:text"`
	KeyTopics         []string      `json:"key_topics" gorm:"serializer:json"`
	EmotionalTone     EmotionalTone `json:"emotional_tone" gorm:"default:neutral"`
	Importance        int           `json:"importance" gorm:"default:3"` // 1..5
	ContainsMilestone bool          `json:"contains_milestone" gorm:"default:false"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (ConversationSnapshot) TableName() string {
	return "conversation_snapshots"
}

// ClampImportance bounds an importance score to the 1..5 scale
func ClampImportance(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}
