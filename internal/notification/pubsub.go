package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"snapconnect-backend/internal/message/domain"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PubSubBridge mirrors persisted message rows onto a Google Cloud Pub/Sub
// topic so sibling services (live-stream signaling, analytics) can consume
// them without touching this database.
type PubSubBridge struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

func NewPubSubBridge(ctx context.Context, projectID, topicName, credentialsFile string, logger *zap.Logger) (*PubSubBridge, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic existence: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicName)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic: %w", err)
		}
	}

	return &PubSubBridge{
		client: client,
		topic:  topic,
		logger: logger.With(zap.String("component", "pubsub-bridge")),
	}, nil
}

func (b *PubSubBridge) Deliver(message *domain.Message) {
	data, err := json.Marshal(message)
	if err != nil {
		b.logger.Error("failed to marshal message for pubsub", zap.Error(err))
		return
	}

	result := b.topic.Publish(context.Background(), &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"message_id": message.ID,
			"receiver":   message.ReceiverID,
		},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			b.logger.Error("pubsub publish failed",
				zap.String("message_id", message.ID), zap.Error(err))
		}
	}()
}

func (b *PubSubBridge) Close() error {
	b.topic.Stop()
	return b.client.Close()
}
