package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	accountdomain "snapconnect-backend/internal/account/domain"
	memorydomain "snapconnect-backend/internal/memory/domain"
	memoryusecase "snapconnect-backend/internal/memory/usecase"
	messagedomain "snapconnect-backend/internal/message/domain"
	messageusecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/internal/respond"
	"snapconnect-backend/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	accounts map[string]*accountdomain.Account
	personas map[string]*accountdomain.Persona
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: map[string]*accountdomain.Account{},
		personas: map[string]*accountdomain.Persona{},
	}
}

func (f *fakeAccounts) Create(account *accountdomain.Account, persona *accountdomain.Persona) error {
	f.accounts[account.ID] = account
	if persona != nil {
		persona.AccountID = account.ID
		f.personas[account.ID] = persona
	}
	return nil
}

func (f *fakeAccounts) FindByID(id string) (*accountdomain.Account, error) {
	return f.accounts[id], nil
}

func (f *fakeAccounts) GetPersona(accountID string) (*accountdomain.Persona, error) {
	return f.personas[accountID], nil
}

func (f *fakeAccounts) ListPersonas() ([]*accountdomain.Persona, error) {
	var personas []*accountdomain.Persona
	for _, p := range f.personas {
		personas = append(personas, p)
	}
	return personas, nil
}

func (f *fakeAccounts) ListEligibleHumans(time.Time, time.Duration) ([]*accountdomain.Account, error) {
	var humans []*accountdomain.Account
	for _, a := range f.accounts {
		if a.Kind == accountdomain.KindHuman {
			humans = append(humans, a)
		}
	}
	return humans, nil
}

type sentReply struct {
	personaID       string
	receiverID      string
	content         string
	personalityTag  string
	responseContext map[string]interface{}
}

type fakeMessages struct {
	mu      sync.Mutex
	sent    []sentReply
	sentCh  chan sentReply
	sendErr error
	history []*messagedomain.Message
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{sentCh: make(chan sentReply, 16)}
}

func (f *fakeMessages) Send(senderID, receiverID string, in messageusecase.SendInput) (*messagedomain.Message, error) {
	return nil, errors.New("not used")
}

func (f *fakeMessages) SendAsPersona(personaID, receiverID string, in messageusecase.SendInput, tag string, responseContext map[string]interface{}) (*messagedomain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	reply := sentReply{
		personaID:       personaID,
		receiverID:      receiverID,
		content:         in.Content,
		personalityTag:  tag,
		responseContext: responseContext,
	}
	f.sent = append(f.sent, reply)
	f.sentCh <- reply
	return &messagedomain.Message{
		ID: uuid.New().String(), SenderID: personaID, ReceiverID: receiverID,
		IsAISender: true, Content: in.Content, SentAt: time.Now(),
	}, nil
}

func (f *fakeMessages) MarkViewed(string, string) (bool, error) { return false, nil }

func (f *fakeMessages) FetchConversation(string, string, int) ([]*messagedomain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeMessages) ListConversations(string) ([]*messagedomain.ConversationSummary, error) {
	return nil, nil
}

func (f *fakeMessages) SweepExpired() (int64, error) { return 0, nil }

type recordedSession struct {
	personaID string
	humanID   string
	input     memoryusecase.SessionInput
}

type fakeMemories struct {
	mu       sync.Mutex
	sessions []recordedSession
}

func (f *fakeMemories) GetOrCreate(personaID, humanID string) (*memorydomain.ConversationMemory, error) {
	return &memorydomain.ConversationMemory{PersonaID: personaID, HumanID: humanID}, nil
}

func (f *fakeMemories) Peek(string, string) (*memorydomain.ConversationMemory, error) {
	return nil, nil
}

func (f *fakeMemories) RecordSession(personaID, humanID string, in memoryusecase.SessionInput) (*memorydomain.ConversationMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, recordedSession{personaID, humanID, in})
	return &memorydomain.ConversationMemory{PersonaID: personaID, HumanID: humanID}, nil
}

func (f *fakeMemories) RetrieveContext(personaID, humanID string) (*memoryusecase.Context, error) {
	return &memoryusecase.Context{
		Memory: &memorydomain.ConversationMemory{PersonaID: personaID, HumanID: humanID},
	}, nil
}

func (f *fakeMemories) PeekContext(string, string) (*memoryusecase.Context, error) {
	return &memoryusecase.Context{}, nil
}

func (f *fakeMemories) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// gatedAI blocks each GenerateText call until released
type gatedAI struct {
	mu      sync.Mutex
	reply   string
	err     error
	gate    chan struct{}
	calls   int
	prompts []string
}

func (g *gatedAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *gatedAI) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type harness struct {
	dispatcher *Dispatcher
	accounts   *fakeAccounts
	messages   *fakeMessages
	memories   *fakeMemories
	ai         *gatedAI
}

func newHarness(t *testing.T, ai *gatedAI) *harness {
	accounts := newFakeAccounts()
	require.NoError(t, accounts.Create(
		&accountdomain.Account{ID: "coach", Kind: accountdomain.KindAIPersona, Username: "coach"},
		&accountdomain.Persona{PersonalityType: "fitness_coach", TypingSpeedCPS: 50},
	))
	require.NoError(t, accounts.Create(
		&accountdomain.Account{ID: "alice", Kind: accountdomain.KindHuman, Username: "alice"},
		nil,
	))

	messages := newFakeMessages()
	memories := &fakeMemories{}
	engine := respond.NewEngine(ai, 12, time.Second, time.Millisecond, 10*time.Millisecond, zap.NewNop())

	d := NewDispatcher(accounts, messages, memories, engine, 12, zap.NewNop())
	d.sleep = func(ctx context.Context, _ time.Duration) error { return nil }

	return &harness{dispatcher: d, accounts: accounts, messages: messages, memories: memories, ai: ai}
}

func inbound(senderID, receiverID, content string) *messagedomain.Message {
	return &messagedomain.Message{
		ID: uuid.New().String(), SenderID: senderID, ReceiverID: receiverID,
		Content: content, SentAt: time.Now(),
	}
}

func waitReply(t *testing.T, h *harness) sentReply {
	t.Helper()
	select {
	case reply := <-h.messages.sentCh:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a persona reply")
		return sentReply{}
	}
}

func assertNoReply(t *testing.T, h *harness) {
	t.Helper()
	select {
	case reply := <-h.messages.sentCh:
		t.Fatalf("unexpected reply: %+v", reply)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleEventRepliesToHuman(t *testing.T) {
	h := newHarness(t, &gatedAI{reply: "You got this!"})

	msg := inbound("alice", "coach", "feeling unmotivated")
	h.dispatcher.HandleEvent(context.Background(), msg)

	reply := waitReply(t, h)
	assert.Equal(t, "coach", reply.personaID)
	assert.Equal(t, "alice", reply.receiverID)
	assert.Equal(t, "You got this!", reply.content)
	assert.Equal(t, "fitness_coach", reply.personalityTag)
	assert.Equal(t, "reactive", reply.responseContext["trigger"])
	assert.Equal(t, msg.ID, reply.responseContext["in_reply_to"])

	require.Eventually(t, func() bool { return h.memories.sessionCount() == 1 },
		time.Second, 5*time.Millisecond)
	session := h.memories.sessions[0]
	assert.Equal(t, "coach", session.personaID)
	assert.Equal(t, "alice", session.humanID)
	assert.Contains(t, session.input.Summary, "feeling unmotivated")
}

func TestSessionSummaryStaysValidUTF8(t *testing.T) {
	h := newHarness(t, &gatedAI{reply: "nice!"})

	// long multi-byte content lands the summary cutoff mid-rune
	content := "x" + strings.Repeat("é", 100)
	h.dispatcher.HandleEvent(context.Background(), inbound("alice", "coach", content))
	waitReply(t, h)

	require.Eventually(t, func() bool { return h.memories.sessionCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.True(t, utf8.ValidString(h.memories.sessions[0].input.Summary))
}

func TestHandleEventFilters(t *testing.T) {
	t.Run("AI-originated events never trigger replies", func(t *testing.T) {
		h := newHarness(t, &gatedAI{reply: "x"})
		msg := inbound("coach", "alice", "hi")
		msg.IsAISender = true
		h.dispatcher.HandleEvent(context.Background(), msg)
		assertNoReply(t, h)
	})

	t.Run("human to human is ignored", func(t *testing.T) {
		h := newHarness(t, &gatedAI{reply: "x"})
		require.NoError(t, h.accounts.Create(
			&accountdomain.Account{ID: "bob", Kind: accountdomain.KindHuman, Username: "bob"}, nil))
		h.dispatcher.HandleEvent(context.Background(), inbound("alice", "bob", "hi"))
		assertNoReply(t, h)
	})

	t.Run("self sends are dropped", func(t *testing.T) {
		h := newHarness(t, &gatedAI{reply: "x"})
		h.dispatcher.HandleEvent(context.Background(), inbound("alice", "alice", "hi"))
		assertNoReply(t, h)
	})

	t.Run("redelivered event ids are deduped", func(t *testing.T) {
		h := newHarness(t, &gatedAI{reply: "x"})
		msg := inbound("alice", "coach", "hi")
		h.dispatcher.HandleEvent(context.Background(), msg)
		waitReply(t, h)

		h.dispatcher.HandleEvent(context.Background(), msg)
		assertNoReply(t, h)
	})
}

func TestCoalescing(t *testing.T) {
	gate := make(chan struct{})
	ai := &gatedAI{reply: "combined answer", gate: gate}
	h := newHarness(t, ai)

	first := inbound("alice", "coach", "first thought")
	second := inbound("alice", "coach", "second thought")

	h.dispatcher.HandleEvent(context.Background(), first)
	require.Eventually(t, func() bool { return ai.callCount() == 1 },
		time.Second, time.Millisecond)

	// second message lands while generation is in flight
	h.dispatcher.HandleEvent(context.Background(), second)
	close(gate)

	reply := waitReply(t, h)
	assert.Equal(t, "combined answer", reply.content)
	// the stale round was discarded and regenerated with the newer inbound
	assert.Equal(t, second.ID, reply.responseContext["in_reply_to"])
	assert.Equal(t, 2, ai.callCount())

	assertNoReply(t, h)
	require.Eventually(t, func() bool { return h.memories.sessionCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestEngineFailureFallsBack(t *testing.T) {
	h := newHarness(t, &gatedAI{err: errors.New("provider down")})

	h.dispatcher.HandleEvent(context.Background(), inbound("alice", "coach", "anyone there?"))

	reply := waitReply(t, h)
	assert.Equal(t, respond.FallbackReply("reactive"), reply.content)

	// the pair is back to Idle: the next inbound generates again
	h.ai.mu.Lock()
	h.ai.err = nil
	h.ai.reply = "recovered"
	h.ai.mu.Unlock()

	h.dispatcher.HandleEvent(context.Background(), inbound("alice", "coach", "hello?"))
	reply = waitReply(t, h)
	assert.Equal(t, "recovered", reply.content)
}

func TestReceiverGoneDropsQuietly(t *testing.T) {
	h := newHarness(t, &gatedAI{reply: "hi"})
	h.messages.sendErr = apperr.NotFound("receiver account not found")

	h.dispatcher.HandleEvent(context.Background(), inbound("alice", "coach", "hi"))

	assertNoReply(t, h)
	assert.Equal(t, 0, h.memories.sessionCount())
}
