package dispatch

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	accountdomain "snapconnect-backend/internal/account/domain"
	accountrepo "snapconnect-backend/internal/account/repository"
	memoryusecase "snapconnect-backend/internal/memory/usecase"
	messagedomain "snapconnect-backend/internal/message/domain"
	messageusecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/internal/respond"
	"snapconnect-backend/pkg/apperr"

	"go.uber.org/zap"
)

const (
	fallbackDelay = 2 * time.Second
	seenLimit     = 8192
	sessionMsgs   = 2 // inbound + reply
	summaryMaxLen = 120
)

type pairKey struct {
	personaID string
	humanID   string
}

// pairState is the per-pair Idle/Generating machine. pending records an
// inbound that arrived mid-generation and must be folded into a fresh
// generation instead of spawning a second one.
type pairState struct {
	generating  bool
	pending     bool
	lastInbound *messagedomain.Message
}

// Dispatcher consumes the notification bus stream and generates persona
// replies to inbound human messages. At most one generation is in flight
// per (persona, human) pair.
type Dispatcher struct {
	accounts accountrepo.AccountRepository
	messages messageusecase.MessageUsecase
	memories memoryusecase.MemoryUsecase
	engine   *respond.Engine
	logger   *zap.Logger

	historyLimit int

	mu    sync.Mutex
	pairs map[pairKey]*pairState

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string

	// sleep waits out the pacing delay; injected so tests run instantly
	sleep func(ctx context.Context, d time.Duration) error

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(
	accounts accountrepo.AccountRepository,
	messages messageusecase.MessageUsecase,
	memories memoryusecase.MemoryUsecase,
	engine *respond.Engine,
	historyLimit int,
	logger *zap.Logger,
) *Dispatcher {
	if historyLimit <= 0 {
		historyLimit = 12
	}
	return &Dispatcher{
		accounts:     accounts,
		messages:     messages,
		memories:     memories,
		engine:       engine,
		logger:       logger.With(zap.String("component", "dispatcher")),
		historyLimit: historyLimit,
		pairs:        make(map[pairKey]*pairState),
		seen:         make(map[string]struct{}),
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Start consumes the stream until it closes or ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context, stream <-chan *messagedomain.Message) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case message, ok := <-stream:
				if !ok {
					return
				}
				d.HandleEvent(ctx, message)
			case <-ctx.Done():
				return
			}
		}
	}()
	d.logger.Info("dispatcher started")
}

// Stop cancels in-flight generations and waits for them to finish
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// HandleEvent processes one bus event. The bus is at-least-once, so already
// seen ids are dropped; anything that is not human→persona is filtered.
func (d *Dispatcher) HandleEvent(ctx context.Context, message *messagedomain.Message) {
	if message == nil || d.alreadySeen(message.ID) {
		return
	}
	if message.IsAISender {
		// AI-originated rows (our own replies included) never trigger replies
		return
	}
	if message.SenderID == message.ReceiverID {
		return
	}

	receiver, err := d.accounts.FindByID(message.ReceiverID)
	if err != nil {
		d.logger.Error("failed to resolve receiver", zap.Error(err))
		return
	}
	if receiver == nil || receiver.Kind != accountdomain.KindAIPersona {
		return
	}

	key := pairKey{personaID: message.ReceiverID, humanID: message.SenderID}

	d.mu.Lock()
	state, ok := d.pairs[key]
	if !ok {
		state = &pairState{}
		d.pairs[key] = state
	}
	state.lastInbound = message
	if state.generating {
		// coalesce: fold into the in-flight generation's next context
		state.pending = true
		d.mu.Unlock()
		return
	}
	state.generating = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.generate(ctx, key, state)
	}()
}

// generate runs reply rounds for a pair until no coalesced inbound is left,
// then returns the pair to Idle. All engine failures degrade to the canned
// fallback; nothing escapes this loop.
func (d *Dispatcher) generate(ctx context.Context, key pairKey, state *pairState) {
	defer func() {
		d.mu.Lock()
		state.generating = false
		d.mu.Unlock()
	}()

	for {
		d.mu.Lock()
		state.pending = false
		inbound := state.lastInbound
		d.mu.Unlock()

		content, delay, personaTag := d.composeReply(ctx, key)

		if err := d.sleep(ctx, delay); err != nil {
			return
		}

		// a message that arrived during generation supersedes this reply;
		// regenerate with the fuller context instead of sending stale text
		d.mu.Lock()
		if state.pending {
			d.mu.Unlock()
			continue
		}
		d.mu.Unlock()

		responseContext := map[string]interface{}{"trigger": "reactive"}
		if inbound != nil {
			responseContext["in_reply_to"] = inbound.ID
		}

		_, err := d.messages.SendAsPersona(key.personaID, key.humanID,
			messageusecase.SendInput{Content: content}, personaTag, responseContext)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				// receiver deleted mid-generation: drop the persist quietly
				d.logger.Info("dropping reply, receiver gone",
					zap.String("human_id", key.humanID))
				return
			}
			d.logger.Error("failed to persist reply", zap.Error(err))
			return
		}

		summary := ""
		if inbound != nil && inbound.Content != "" {
			summary = "Chatted about: " + truncate(inbound.Content, summaryMaxLen)
		}
		if _, err := d.memories.RecordSession(key.personaID, key.humanID, memoryusecase.SessionInput{
			Summary:      summary,
			MessageCount: sessionMsgs,
		}); err != nil {
			d.logger.Error("failed to record session", zap.Error(err))
		}

		d.mu.Lock()
		if state.pending {
			d.mu.Unlock()
			continue
		}
		d.mu.Unlock()
		return
	}
}

// composeReply builds the reply text, pacing delay and personality tag,
// substituting the canned fallback on any engine failure
func (d *Dispatcher) composeReply(ctx context.Context, key pairKey) (string, time.Duration, string) {
	persona, err := d.accounts.GetPersona(key.personaID)
	if err != nil || persona == nil {
		d.logger.Warn("persona profile unavailable, using fallback",
			zap.String("persona_id", key.personaID), zap.Error(err))
		return respond.FallbackReply("reactive"), fallbackDelay, "unknown"
	}

	memoryCtx, err := d.memories.RetrieveContext(key.personaID, key.humanID)
	if err != nil {
		d.logger.Error("failed to retrieve memory context", zap.Error(err))
		memoryCtx = nil
	}

	history, err := d.messages.FetchConversation(key.personaID, key.humanID, d.historyLimit)
	if err != nil {
		d.logger.Error("failed to fetch history", zap.Error(err))
		history = nil
	}
	reverse(history) // store returns newest first, the engine wants newest last

	reply, err := d.engine.GenerateReply(ctx, persona, memoryCtx, history, respond.ReactiveFraming())
	if err != nil {
		d.logger.Warn("generation failed, sending canned reply",
			zap.String("persona_id", key.personaID), zap.Error(err))
		return respond.FallbackReply("reactive"), fallbackDelay, persona.PersonalityType
	}
	return reply.Content, reply.SuggestedDelay, persona.PersonalityType
}

func (d *Dispatcher) alreadySeen(id string) bool {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.seenOrder = append(d.seenOrder, id)
	if len(d.seenOrder) > seenLimit {
		drop := d.seenOrder[:seenLimit/2]
		d.seenOrder = append([]string(nil), d.seenOrder[seenLimit/2:]...)
		for _, old := range drop {
			delete(d.seen, old)
		}
	}
	return false
}

func reverse(messages []*messagedomain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// truncate cuts on a rune boundary so multi-byte characters stay intact
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
