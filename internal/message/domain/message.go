package domain

import (
	"time"

	accountdomain "snapconnect-backend/internal/account/domain"
)

// MessageType classifies the message payload
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypePhoto MessageType = "photo"
	MessageTypeVideo MessageType = "video"
	MessageTypeMixed MessageType = "mixed"
)

// Sender is the kind-tagged sending identity of a message. Every message has
// exactly one sender of known kind; there is no null-sender convention.
type Sender struct {
	ID   string                    `json:"id"`
	Kind accountdomain.AccountKind `json:"kind"`
}

func HumanSender(id string) Sender {
	return Sender{ID: id, Kind: accountdomain.KindHuman}
}

func PersonaSender(id string) Sender {
	return Sender{ID: id, Kind: accountdomain.KindAIPersona}
}

// Message is one chat message between two accounts. Human-originated
// messages acquire a short-lived expiry once viewed; AI-originated messages
// never expire.
type Message struct {
	ID                string                 `json:"id" gorm:"primaryKey"`
	SenderID          string                 `json:"sender_id" gorm:"index:idx_msg_pair;not null"`
	ReceiverID        string                 `json:"receiver_id" gorm:"index:idx_msg_pair;not null"`
	IsAISender        bool                   `json:"is_ai_sender" gorm:"index;default:false"`
	AIPersonalityType string                 `json:"ai_personality_type,omitempty"`
	Content           string                 `json:"content,omitempty"`
	MediaURL          string                 `json:"media_url,omitempty"`
	MediaType         string                 `json:"media_type,omitempty"`
	MessageType       MessageType            `json:"message_type" gorm:"default:text"`
	ResponseContext   map[string]interface{} `json:"response_context,omitempty" gorm:"serializer:json"`
	SentAt            time.Time              `json:"sent_at" gorm:"index;not null"`
	ViewedAt          *time.Time             `json:"viewed_at,omitempty"`
	ExpiresAt         *time.Time             `json:"expires_at,omitempty"`
	IsViewed          bool                   `json:"is_viewed" gorm:"default:false"`
}

func (m *Message) Sender() Sender {
	if m.IsAISender {
		return PersonaSender(m.SenderID)
	}
	return HumanSender(m.SenderID)
}

// Expired reports whether the message is past its expiry. AI-originated
// messages are perpetually not expired regardless of view state.
func (m *Message) Expired(now time.Time) bool {
	if m.IsAISender {
		return false
	}
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// ResolveType derives the message type from the payload shape
func ResolveType(content, mediaURL, mediaType string) MessageType {
	switch {
	case content != "" && mediaURL != "":
		return MessageTypeMixed
	case mediaURL != "" && mediaType == "video":
		return MessageTypeVideo
	case mediaURL != "":
		return MessageTypePhoto
	default:
		return MessageTypeText
	}
}

// ConversationSummary is one entry of the conversation list: the counterpart,
// the most recent message and how many messages are still unread.
type ConversationSummary struct {
	CounterpartID string   `json:"counterpart_id"`
	LastMessage   *Message `json:"last_message"`
	UnreadCount   int      `json:"unread_count"`
}
