package respond

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	accountdomain "snapconnect-backend/internal/account/domain"
	memoryusecase "snapconnect-backend/internal/memory/usecase"
	messagedomain "snapconnect-backend/internal/message/domain"
	"snapconnect-backend/pkg/ai"
	"snapconnect-backend/pkg/apperr"

	"go.uber.org/zap"
)

// Framing tells the engine why a reply is being generated: a reactive answer
// to an inbound message or a proactive trigger with its own instruction.
type Framing struct {
	Kind        string // "reactive" or a proactive trigger name
	Instruction string
}

func ReactiveFraming() Framing {
	return Framing{
		Kind:        "reactive",
		Instruction: "Reply naturally to the latest message from the human.",
	}
}

// Reply is the engine output: the generated text plus a pacing hint for the
// caller. The delay is never slept on inside the engine.
type Reply struct {
	Content        string
	SuggestedDelay time.Duration
}

// Engine assembles persona + memory + recent-history context and calls the
// external text-generation service. It performs no persistence.
type Engine struct {
	ai           ai.Service
	historyLimit int
	timeout      time.Duration
	delayMin     time.Duration
	delayMax     time.Duration
	logger       *zap.Logger
}

func NewEngine(service ai.Service, historyLimit int, timeout, delayMin, delayMax time.Duration, logger *zap.Logger) *Engine {
	if historyLimit <= 0 {
		historyLimit = 12
	}
	return &Engine{
		ai:           service,
		historyLimit: historyLimit,
		timeout:      timeout,
		delayMin:     delayMin,
		delayMax:     delayMax,
		logger:       logger.With(zap.String("component", "respond")),
	}
}

// GenerateReply produces a persona reply for the pair. Provider failures,
// timeouts and content-policy rejections all come back as an
// EXTERNAL_SERVICE error; callers substitute a canned reply instead of
// surfacing it.
func (e *Engine) GenerateReply(
	ctx context.Context,
	persona *accountdomain.Persona,
	memoryCtx *memoryusecase.Context,
	history []*messagedomain.Message,
	framing Framing,
) (*Reply, error) {
	prompt := e.buildPrompt(persona, memoryCtx, history, framing)

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.ai.GenerateText(genCtx, prompt)
	if err != nil {
		if ai.IsPolicyRejection(err) {
			e.logger.Warn("provider rejected prompt on policy grounds",
				zap.String("persona_id", persona.AccountID))
		}
		return nil, apperr.External("text generation failed", err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.External("text generation returned empty reply", nil)
	}

	return &Reply{
		Content:        content,
		SuggestedDelay: e.suggestedDelay(content, persona.TypingSpeedCPS),
	}, nil
}

// suggestedDelay simulates natural typing pace: monotone in reply length,
// scaled by the persona's typing speed, clamped to the configured bounds.
func (e *Engine) suggestedDelay(content string, typingSpeedCPS float64) time.Duration {
	if typingSpeedCPS <= 0 {
		typingSpeedCPS = 10
	}
	typing := time.Duration(float64(len(content)) / typingSpeedCPS * float64(time.Second))
	delay := e.delayMin + typing
	if delay > e.delayMax {
		return e.delayMax
	}
	return delay
}

func (e *Engine) buildPrompt(
	persona *accountdomain.Persona,
	memoryCtx *memoryusecase.Context,
	history []*messagedomain.Message,
	framing Framing,
) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an AI companion in a social chat app. Personality: %s.", persona.PersonalityType)
	if persona.Tone != "" {
		fmt.Fprintf(&b, " Tone: %s.", persona.Tone)
	}
	if len(persona.Interests) > 0 {
		fmt.Fprintf(&b, " Interests: %s.", strings.Join(persona.Interests, ", "))
	}
	if persona.ResponseStyle != "" {
		fmt.Fprintf(&b, "\nStyle guidance: %s", persona.ResponseStyle)
	}
	b.WriteString("\n")

	if memoryCtx != nil && memoryCtx.Memory != nil {
		m := memoryCtx.Memory
		fmt.Fprintf(&b, "\nRelationship stage: %s (%d conversations so far).\n",
			m.RelationshipStage, m.TotalConversations)
		if len(m.HumanDetailsLearned) > 0 {
			b.WriteString("What you know about them:\n")
			for k, v := range m.HumanDetailsLearned {
				fmt.Fprintf(&b, "- %s: %s\n", k, v)
			}
		}
		if len(m.OngoingTopics) > 0 {
			fmt.Fprintf(&b, "Ongoing topics: %s\n", strings.Join(m.OngoingTopics, ", "))
		}
		if len(m.FollowUpItems) > 0 {
			fmt.Fprintf(&b, "Things to follow up on: %s\n", strings.Join(m.FollowUpItems, ", "))
		}
		for _, s := range memoryCtx.Snapshots {
			fmt.Fprintf(&b, "On %s: %s\n", s.Date, truncate(s.Summary, 200))
		}
	}

	if len(history) > 0 {
		b.WriteString("\nRecent conversation (newest last):\n")
		start := 0
		if len(history) > e.historyLimit {
			start = len(history) - e.historyLimit
		}
		for _, m := range history[start:] {
			role := "Them"
			if m.IsAISender {
				role = "You"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, truncate(m.Content, 300))
		}
	}

	fmt.Fprintf(&b, "\n%s\nKeep it short and conversational, like a chat message. Reply with the message text only.", framing.Instruction)
	return b.String()
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
