package notification

import (
	"context"

	accountrepo "snapconnect-backend/internal/account/repository"
	"snapconnect-backend/internal/message/domain"
	"snapconnect-backend/pkg/fcm"
	"snapconnect-backend/pkg/sse"

	"go.uber.org/zap"
)

// SSESink forwards message rows to both participants' open SSE connections
type SSESink struct {
	manager *sse.Manager
}

func NewSSESink(manager *sse.Manager) *SSESink {
	return &SSESink{manager: manager}
}

func (s *SSESink) Deliver(message *domain.Message) {
	// both sides see the row; SendToUser skips slow clients without blocking
	s.manager.SendToUser(message.ReceiverID, "message", message)
	s.manager.SendToUser(message.SenderID, "message", message)
}

// FCMSink pushes a notification to the receiver's registered devices
type FCMSink struct {
	client *fcm.Client
	tokens accountrepo.FCMTokenRepository
	logger *zap.Logger
}

func NewFCMSink(client *fcm.Client, tokens accountrepo.FCMTokenRepository, logger *zap.Logger) *FCMSink {
	return &FCMSink{
		client: client,
		tokens: tokens,
		logger: logger.With(zap.String("component", "fcm-sink")),
	}
}

func (s *FCMSink) Deliver(message *domain.Message) {
	go func() {
		tokens, err := s.tokens.GetTokensByAccountID(message.ReceiverID)
		if err != nil {
			s.logger.Error("failed to load device tokens",
				zap.String("account_id", message.ReceiverID), zap.Error(err))
			return
		}
		if len(tokens) == 0 {
			return
		}

		tokenStrings := make([]string, 0, len(tokens))
		for _, t := range tokens {
			tokenStrings = append(tokenStrings, t.Token)
		}

		body := message.Content
		if body == "" {
			body = "Sent you a snap"
		}
		failedTokens, err := s.client.SendToDevices(context.Background(), tokenStrings, fcm.NotificationData{
			Title: "New message",
			Body:  body,
			Data: map[string]string{
				"type":       "message",
				"message_id": message.ID,
				"sender_id":  message.SenderID,
			},
		})
		if err != nil {
			s.logger.Error("push delivery failed", zap.Error(err))
			return
		}
		for _, token := range failedTokens {
			if err := s.tokens.DeleteToken(token); err != nil {
				s.logger.Warn("failed to clean up dead token", zap.Error(err))
			}
		}
	}()
}
