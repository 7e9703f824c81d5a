package domain

import (
	"fmt"
	"time"
)

// Persona holds the traits and outreach schedule of an AI persona account.
// Known fields are typed and validated; anything else the persona authoring
// tool attaches travels in Extra.
type Persona struct {
	AccountID       string            `json:"account_id" gorm:"primaryKey"`
	PersonalityType string            `json:"personality_type" gorm:"not null"` // e.g. "encouraging_coach"
	Tone            string            `json:"tone"`                             // e.g. "warm", "playful"
	Interests       []string          `json:"interests" gorm:"serializer:json"`
	ResponseStyle   string            `json:"response_style"` // free-text style guidance fed to the prompt
	TypingSpeedCPS  float64           `json:"typing_speed_cps" gorm:"default:10"` // simulated chars per second
	QuietHourStart  int               `json:"quiet_hour_start" gorm:"default:22"` // local hour, inclusive
	QuietHourEnd    int               `json:"quiet_hour_end" gorm:"default:8"`    // local hour, exclusive
	RestDays        []time.Weekday    `json:"rest_days" gorm:"serializer:json"`
	Extra           map[string]string `json:"extra,omitempty" gorm:"serializer:json"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Persona) TableName() string {
	return "personas"
}

// Validate checks the typed fields at the service boundary
func (p *Persona) Validate() error {
	if p.AccountID == "" {
		return fmt.Errorf("persona account id is required")
	}
	if p.PersonalityType == "" {
		return fmt.Errorf("personality type is required")
	}
	if p.TypingSpeedCPS <= 0 {
		return fmt.Errorf("typing speed must be positive")
	}
	if p.QuietHourStart < 0 || p.QuietHourStart > 23 || p.QuietHourEnd < 0 || p.QuietHourEnd > 23 {
		return fmt.Errorf("quiet hours must be within 0-23")
	}
	return nil
}

// ActiveAt reports whether the persona initiates outreach at the given time.
// Quiet hours may wrap midnight.
func (p *Persona) ActiveAt(t time.Time) bool {
	for _, d := range p.RestDays {
		if t.Weekday() == d {
			return false
		}
	}

	hour := t.Hour()
	if p.QuietHourStart == p.QuietHourEnd {
		return true
	}
	if p.QuietHourStart < p.QuietHourEnd {
		// quiet window within one day
		if hour >= p.QuietHourStart && hour < p.QuietHourEnd {
			return false
		}
		return true
	}
	// quiet window wraps midnight
	if hour >= p.QuietHourStart || hour < p.QuietHourEnd {
		return false
	}
	return true
}
