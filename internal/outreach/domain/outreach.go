package domain

import "time"

// TriggerType is the categorical reason a proactive message is sent
type TriggerType string

const (
	TriggerOnboardingWelcome    TriggerType = "onboarding_welcome"
	TriggerWorkoutStreak        TriggerType = "workout_streak"
	TriggerMilestoneCelebration TriggerType = "milestone_celebration"
	TriggerMotivationBoost      TriggerType = "motivation_boost"
	TriggerCheckIn              TriggerType = "check_in"
	TriggerRandomSocial         TriggerType = "random_social"
)

// higher wins when several triggers are eligible in the same tick
var triggerPriority = map[TriggerType]int{
	TriggerMilestoneCelebration: 60,
	TriggerOnboardingWelcome:    50,
	TriggerWorkoutStreak:        40,
	TriggerCheckIn:              30,
	TriggerMotivationBoost:      20,
	TriggerRandomSocial:         10,
}

func Priority(trigger TriggerType) int {
	return triggerPriority[trigger]
}

// ProactiveOutreachRecord is one row of the append-only rate-limit ledger.
// Rows are never mutated or deleted.
type ProactiveOutreachRecord struct {
	ID                 string      `json:"id" gorm:"primaryKey"`
	PersonaID          string      `json:"persona_id" gorm:"index:idx_outreach_pair;not null"`
	HumanID            string      `json:"human_id" gorm:"index:idx_outreach_pair;index:idx_outreach_human;not null"`
	TriggerType        TriggerType `json:"trigger_type" gorm:"index:idx_outreach_pair;not null"`
	SentAt             time.Time   `json:"sent_at" gorm:"index:idx_outreach_human;not null"`
	ResultingMessageID string      `json:"resulting_message_id"`
}

func (ProactiveOutreachRecord) TableName() string {
	return "proactive_outreach_records"
}
