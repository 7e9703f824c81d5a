package usecase

import (
	"time"

	accountdomain "snapconnect-backend/internal/account/domain"
	accountrepo "snapconnect-backend/internal/account/repository"
	"snapconnect-backend/internal/message/domain"
	"snapconnect-backend/internal/message/repository"
	"snapconnect-backend/pkg/apperr"

	"go.uber.org/zap"
)

// SendInput is the payload of a send request; content and media are both
// optional but not both empty.
type SendInput struct {
	Content   string
	MediaURL  string
	MediaType string
}

// Publisher receives every persisted message row
type Publisher interface {
	Publish(message *domain.Message)
}

// MessageUsecase implements the message store contract
type MessageUsecase interface {
	Send(senderID, receiverID string, in SendInput) (*domain.Message, error)
	SendAsPersona(personaID, receiverID string, in SendInput, personalityTag string, responseContext map[string]interface{}) (*domain.Message, error)
	MarkViewed(messageID, viewerID string) (bool, error)
	FetchConversation(accountID, otherID string, limit int) ([]*domain.Message, error)
	ListConversations(accountID string) ([]*domain.ConversationSummary, error)
	SweepExpired() (int64, error)
}

type messageUsecase struct {
	messages  repository.MessageRepository
	accounts  accountrepo.AccountRepository
	graph     accountrepo.SocialGraph
	publisher Publisher
	logger    *zap.Logger

	ephemeralTTL time.Duration
	retention    time.Duration
	now          func() time.Time
}

func NewMessageUsecase(
	messages repository.MessageRepository,
	accounts accountrepo.AccountRepository,
	graph accountrepo.SocialGraph,
	publisher Publisher,
	ephemeralTTL, retention time.Duration,
	logger *zap.Logger,
) MessageUsecase {
	return &messageUsecase{
		messages:     messages,
		accounts:     accounts,
		graph:        graph,
		publisher:    publisher,
		logger:       logger.With(zap.String("component", "message")),
		ephemeralTTL: ephemeralTTL,
		retention:    retention,
		now:          time.Now,
	}
}

func (u *messageUsecase) validatePayload(senderID, receiverID string, in SendInput) error {
	if senderID == receiverID {
		return apperr.Validation("sender and receiver must differ")
	}
	if in.Content == "" && in.MediaURL == "" {
		return apperr.Validation("message needs content or media")
	}
	return nil
}

// Send persists a message from one account to another. Human-to-human sends
// require an accepted friendship; sends to a persona do not.
func (u *messageUsecase) Send(senderID, receiverID string, in SendInput) (*domain.Message, error) {
	if err := u.validatePayload(senderID, receiverID, in); err != nil {
		return nil, err
	}

	sender, err := u.accounts.FindByID(senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, apperr.NotFound("sender account not found")
	}
	receiver, err := u.accounts.FindByID(receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperr.NotFound("receiver account not found")
	}

	if sender.Kind == accountdomain.KindHuman && receiver.Kind == accountdomain.KindHuman {
		connected, err := u.graph.AreConnected(senderID, receiverID)
		if err != nil {
			return nil, err
		}
		if !connected {
			return nil, apperr.Forbidden("accounts are not connected")
		}
	}

	message := &domain.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		IsAISender:  sender.Kind == accountdomain.KindAIPersona,
		Content:     in.Content,
		MediaURL:    in.MediaURL,
		MediaType:   in.MediaType,
		MessageType: domain.ResolveType(in.Content, in.MediaURL, in.MediaType),
		SentAt:      u.now(),
	}
	if err := u.messages.Create(message); err != nil {
		return nil, err
	}

	u.publisher.Publish(message)
	return message, nil
}

// SendAsPersona persists a persona-originated message, bypassing the social
// graph entirely. The persona account must exist and be of persona kind.
func (u *messageUsecase) SendAsPersona(personaID, receiverID string, in SendInput, personalityTag string, responseContext map[string]interface{}) (*domain.Message, error) {
	if err := u.validatePayload(personaID, receiverID, in); err != nil {
		return nil, err
	}

	persona, err := u.accounts.FindByID(personaID)
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, apperr.NotFound("persona account not found")
	}
	if persona.Kind != accountdomain.KindAIPersona {
		return nil, apperr.Forbidden("account is not an AI persona")
	}

	receiver, err := u.accounts.FindByID(receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperr.NotFound("receiver account not found")
	}

	message := &domain.Message{
		SenderID:          personaID,
		ReceiverID:        receiverID,
		IsAISender:        true,
		AIPersonalityType: personalityTag,
		Content:           in.Content,
		MediaURL:          in.MediaURL,
		MediaType:         in.MediaType,
		MessageType:       domain.ResolveType(in.Content, in.MediaURL, in.MediaType),
		ResponseContext:   responseContext,
		SentAt:            u.now(),
		// ExpiresAt stays unset: AI-originated messages never expire
	}
	if err := u.messages.Create(message); err != nil {
		return nil, err
	}

	u.publisher.Publish(message)
	return message, nil
}

func (u *messageUsecase) MarkViewed(messageID, viewerID string) (bool, error) {
	return u.messages.MarkViewed(messageID, viewerID, u.now(), u.ephemeralTTL)
}

func (u *messageUsecase) FetchConversation(accountID, otherID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := u.messages.Conversation(accountID, otherID, limit, u.now())
	if err != nil {
		return nil, err
	}

	for _, m := range messages {
		// Mis-tagged rows are surfaced to observability, never blocked
		if m.IsAISender && m.AIPersonalityType == "" {
			u.logger.Warn("data integrity: AI-tagged message missing persona marker",
				zap.String("message_id", m.ID))
		}
		if !m.IsAISender && m.AIPersonalityType != "" {
			u.logger.Warn("data integrity: human-tagged message carries persona marker",
				zap.String("message_id", m.ID))
		}
	}
	return messages, nil
}

// ListConversations returns one summary per counterpart, restricted to
// accepted human friends and personas.
func (u *messageUsecase) ListConversations(accountID string) ([]*domain.ConversationSummary, error) {
	summaries, err := u.messages.ListSummaries(accountID, u.now())
	if err != nil {
		return nil, err
	}

	friendIDs, err := u.graph.AcceptedFriendIDs(accountID)
	if err != nil {
		return nil, err
	}
	friends := make(map[string]struct{}, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = struct{}{}
	}

	visible := make([]*domain.ConversationSummary, 0, len(summaries))
	for _, s := range summaries {
		if _, ok := friends[s.CounterpartID]; ok {
			visible = append(visible, s)
			continue
		}
		counterpart, err := u.accounts.FindByID(s.CounterpartID)
		if err != nil {
			return nil, err
		}
		if counterpart != nil && counterpart.Kind == accountdomain.KindAIPersona {
			visible = append(visible, s)
		}
	}
	return visible, nil
}

// SweepExpired deletes human rows whose expiry passed longer than the
// retention period ago.
func (u *messageUsecase) SweepExpired() (int64, error) {
	cutoff := u.now().Add(-u.retention)
	deleted, err := u.messages.DeleteExpiredBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		u.logger.Info("retention sweep removed expired messages", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
