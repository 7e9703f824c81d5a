package domain

import "time"

// AccountKind distinguishes human accounts from AI persona accounts
type AccountKind string

const (
	KindHuman     AccountKind = "human"
	KindAIPersona AccountKind = "ai_persona"
)

// Account is a sending/receiving identity. Both humans and AI personas are
// accounts; persona accounts additionally carry a Persona profile row.
type Account struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	Kind        AccountKind `json:"kind" gorm:"index;not null"`
	Username    string      `json:"username" gorm:"uniqueIndex;not null"`
	DisplayName string      `json:"display_name"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (a *Account) IsPersona() bool {
	return a.Kind == KindAIPersona
}

// FriendshipStatus is the state of a human-to-human connection
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is one direction of a human-to-human connection. The social
// graph itself is managed elsewhere; this core only reads it to authorize
// human-to-human sends.
type Friendship struct {
	ID        string           `json:"id" gorm:"primaryKey"`
	AccountID string           `json:"account_id" gorm:"index:idx_friend_pair;not null"`
	FriendID  string           `json:"friend_id" gorm:"index:idx_friend_pair;not null"`
	Status    FriendshipStatus `json:"status" gorm:"default:pending"`
	CreatedAt time.Time        `json:"created_at"`
}

// FCMToken represents a Firebase Cloud Messaging device token for push notifications
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	AccountID  string    `json:"account_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
