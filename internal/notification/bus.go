package notification

import (
	"sync"

	"snapconnect-backend/internal/message/domain"

	"go.uber.org/zap"
)

// Sink receives every published message row for delivery to an external
// transport (SSE, push, pub/sub). Sinks must not block the publisher.
type Sink interface {
	Deliver(message *domain.Message)
}

// Bus propagates persisted message rows to the dispatcher stream and to
// registered transport sinks. Delivery is at-least-once and follows
// per-conversation commit order; consumers dedupe by message id.
type Bus struct {
	stream chan *domain.Message
	mu     sync.RWMutex
	sinks  []Sink
	logger *zap.Logger
}

func NewBus(buffer int, logger *zap.Logger) *Bus {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bus{
		stream: make(chan *domain.Message, buffer),
		logger: logger.With(zap.String("component", "bus")),
	}
}

// AddSink registers a transport sink. Call during wiring, before traffic.
func (b *Bus) AddSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish fans a persisted message out to the dispatcher stream and all
// sinks. Publish order per conversation pair is commit order.
func (b *Bus) Publish(message *domain.Message) {
	select {
	case b.stream <- message:
	default:
		// stream full: the dispatcher is badly behind. Dropping here would
		// starve replies, so block until it drains.
		b.logger.Warn("dispatcher stream full, publish blocking",
			zap.String("message_id", message.ID))
		b.stream <- message
	}

	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, sink := range sinks {
		sink.Deliver(message)
	}
}

// Stream is the single consumed event channel feeding the dispatcher
func (b *Bus) Stream() <-chan *domain.Message {
	return b.stream
}

// Close stops the stream. Publish must not be called afterwards.
func (b *Bus) Close() {
	close(b.stream)
}
