package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPersonaActiveAt(t *testing.T) {
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	t.Run("no quiet hours means always active", func(t *testing.T) {
		p := &Persona{TypingSpeedCPS: 10}
		assert.True(t, p.ActiveAt(monday))
		assert.True(t, p.ActiveAt(monday.Add(14*time.Hour))) // 02:00
	})

	t.Run("quiet window within one day", func(t *testing.T) {
		p := &Persona{TypingSpeedCPS: 10, QuietHourStart: 9, QuietHourEnd: 17}
		assert.False(t, p.ActiveAt(monday))                   // noon
		assert.True(t, p.ActiveAt(monday.Add(-5*time.Hour)))  // 07:00
		assert.True(t, p.ActiveAt(monday.Add(6*time.Hour)))   // 18:00
	})

	t.Run("quiet window wrapping midnight", func(t *testing.T) {
		p := &Persona{TypingSpeedCPS: 10, QuietHourStart: 22, QuietHourEnd: 7}
		assert.True(t, p.ActiveAt(monday))                    // noon
		assert.False(t, p.ActiveAt(monday.Add(11*time.Hour))) // 23:00
		assert.False(t, p.ActiveAt(monday.Add(14*time.Hour))) // 02:00
		assert.True(t, p.ActiveAt(monday.Add(20*time.Hour)))  // 08:00
	})

	t.Run("rest days win over everything", func(t *testing.T) {
		p := &Persona{TypingSpeedCPS: 10, RestDays: []time.Weekday{time.Monday}}
		assert.False(t, p.ActiveAt(monday))
		assert.True(t, p.ActiveAt(monday.Add(24*time.Hour)))
	})
}

func TestPersonaValidate(t *testing.T) {
	valid := &Persona{AccountID: "coach", PersonalityType: "fitness_coach", TypingSpeedCPS: 12}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Persona{PersonalityType: "x", TypingSpeedCPS: 1}).Validate())
	assert.Error(t, (&Persona{AccountID: "a", TypingSpeedCPS: 1}).Validate())
	assert.Error(t, (&Persona{AccountID: "a", PersonalityType: "x"}).Validate())
	assert.Error(t, (&Persona{AccountID: "a", PersonalityType: "x", TypingSpeedCPS: 1, QuietHourStart: 25}).Validate())
}
