package scheduler

import (
	"context"
	"sync"
	"time"

	accountdomain "snapconnect-backend/internal/account/domain"
	accountrepo "snapconnect-backend/internal/account/repository"
	memorydomain "snapconnect-backend/internal/memory/domain"
	memoryusecase "snapconnect-backend/internal/memory/usecase"
	messagedomain "snapconnect-backend/internal/message/domain"
	messageusecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/internal/outreach/domain"
	"snapconnect-backend/internal/outreach/repository"
	"snapconnect-backend/internal/respond"

	"go.uber.org/zap"
)

const (
	// streak length before a workout_streak outreach is worth sending
	minStreakDays = 3
	// inactivity before motivation_boost fires
	minInactiveDays = 2
	// silence after the last conversation before a check_in fires
	checkInAfter = 72 * time.Hour
	// messages pulled as generation context; the engine trims further
	historyFetchLimit = 12
)

// ActivitySignals are the human's recent activity facts sourced from the
// health/engagement services outside this subsystem.
type ActivitySignals struct {
	WorkoutStreakDays int
	RecentAchievement string
	DaysInactive      int
}

// ActivitySource supplies activity signals per human. Implementations live
// at the edge; a failing source is treated as "no signals".
type ActivitySource interface {
	SignalsFor(humanID string) (ActivitySignals, error)
}

type noopActivitySource struct{}

func (noopActivitySource) SignalsFor(string) (ActivitySignals, error) {
	return ActivitySignals{}, nil
}

// NoopActivitySource reports no activity for every human, which limits
// outreach to welcome, check_in and random_social triggers.
func NoopActivitySource() ActivitySource {
	return noopActivitySource{}
}

// Config bounds how often and how widely the scheduler reaches out
type Config struct {
	Interval         time.Duration // tick cadence
	Window           time.Duration // rolling per-(persona,human,trigger) window
	DailyCap         int           // per-human sends per calendar day, all triggers
	OnboardingWindow time.Duration // how long a new human counts as newly onboarded
	Workers          int           // concurrent pair evaluations
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	if c.DailyCap <= 0 {
		c.DailyCap = 3
	}
	if c.OnboardingWindow <= 0 {
		c.OnboardingWindow = 72 * time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// OutreachScheduler periodically evaluates every persona against every
// eligible human and sends at most one proactive message per pair per tick,
// subject to the outreach ledger's rate limits.
type OutreachScheduler struct {
	accounts accountrepo.AccountRepository
	memories memoryusecase.MemoryUsecase
	messages messageusecase.MessageUsecase
	ledger   repository.OutreachRepository
	engine   *respond.Engine
	activity ActivitySource
	cfg      Config
	logger   *zap.Logger

	now      func() time.Time
	stopChan chan struct{}
}

func NewOutreachScheduler(
	accounts accountrepo.AccountRepository,
	memories memoryusecase.MemoryUsecase,
	messages messageusecase.MessageUsecase,
	ledger repository.OutreachRepository,
	engine *respond.Engine,
	activity ActivitySource,
	cfg Config,
	logger *zap.Logger,
) *OutreachScheduler {
	cfg.applyDefaults()
	if activity == nil {
		activity = NoopActivitySource()
	}
	return &OutreachScheduler{
		accounts: accounts,
		memories: memories,
		messages: messages,
		ledger:   ledger,
		engine:   engine,
		activity: activity,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "outreach")),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *OutreachScheduler) Start() {
	s.logger.Info("starting proactive outreach scheduler",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("window", s.cfg.Window),
		zap.Int("daily_cap", s.cfg.DailyCap))

	go func() {
		// Run immediately on start
		s.tick()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick()
			case <-s.stopChan:
				s.logger.Info("outreach scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *OutreachScheduler) Stop() {
	close(s.stopChan)
}

// tick evaluates all persona × human pairs with bounded concurrency. One
// pair's failure never aborts the rest of the tick.
func (s *OutreachScheduler) tick() {
	now := s.now()

	personas, err := s.accounts.ListPersonas()
	if err != nil {
		s.logger.Error("listing personas failed", zap.Error(err))
		return
	}
	humans, err := s.accounts.ListEligibleHumans(now, s.cfg.OnboardingWindow)
	if err != nil {
		s.logger.Error("listing eligible humans failed", zap.Error(err))
		return
	}
	if len(personas) == 0 || len(humans) == 0 {
		return
	}

	active := make([]*accountdomain.Persona, 0, len(personas))
	for _, persona := range personas {
		if persona.ActiveAt(now) {
			active = append(active, persona)
		}
	}
	if len(active) == 0 {
		return
	}

	// All personas targeting one human evaluate on the same goroutine, so
	// the daily cap check cannot race with another persona's ledger append
	// for that human.
	sem := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	for _, human := range humans {
		wg.Add(1)
		sem <- struct{}{}
		go func(human *accountdomain.Account) {
			defer wg.Done()
			defer func() { <-sem }()
			for _, persona := range active {
				s.evaluatePair(persona, human, now)
			}
		}(human)
	}
	wg.Wait()
}

// candidate is one eligible trigger for a pair, with the last time the same
// trigger fired (nil = never) for tie-breaking.
type candidate struct {
	trigger  domain.TriggerType
	lastSent *time.Time
}

func (s *OutreachScheduler) evaluatePair(persona *accountdomain.Persona, human *accountdomain.Account, now time.Time) {
	log := s.logger.With(
		zap.String("persona_id", persona.AccountID),
		zap.String("human_id", human.ID))

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sentToday, err := s.ledger.CountForHumanSince(human.ID, midnight)
	if err != nil {
		log.Error("daily cap lookup failed", zap.Error(err))
		return
	}
	if sentToday >= int64(s.cfg.DailyCap) {
		return
	}

	signals, err := s.activity.SignalsFor(human.ID)
	if err != nil {
		log.Warn("activity source failed, proceeding without signals", zap.Error(err))
		signals = ActivitySignals{}
	}

	memCtx, err := s.memories.PeekContext(persona.AccountID, human.ID)
	if err != nil {
		log.Error("memory lookup failed", zap.Error(err))
		return
	}

	best, ok := s.selectTrigger(persona, human, memCtx.Memory, signals, now)
	if !ok {
		return
	}

	s.sendOutreach(persona, human, memCtx, best.trigger, log)
}

// selectTrigger evaluates the candidate triggers, drops those still inside
// their rolling window, and picks the highest-priority survivor. Equal
// priorities go to the trigger that has waited longest.
func (s *OutreachScheduler) selectTrigger(
	persona *accountdomain.Persona,
	human *accountdomain.Account,
	memory *memorydomain.ConversationMemory,
	signals ActivitySignals,
	now time.Time,
) (candidate, bool) {
	var best candidate
	found := false

	for _, trigger := range s.candidateTriggers(human, memory, signals, now) {
		lastSent, err := s.ledger.LastSent(persona.AccountID, human.ID, trigger)
		if err != nil {
			s.logger.Error("ledger lookup failed",
				zap.String("trigger", string(trigger)), zap.Error(err))
			continue
		}
		if lastSent != nil && now.Sub(*lastSent) < s.cfg.Window {
			continue
		}

		c := candidate{trigger: trigger, lastSent: lastSent}
		if !found || betterCandidate(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func betterCandidate(a, b candidate) bool {
	if domain.Priority(a.trigger) != domain.Priority(b.trigger) {
		return domain.Priority(a.trigger) > domain.Priority(b.trigger)
	}
	// never-sent beats previously-sent; otherwise older last send wins
	if a.lastSent == nil {
		return true
	}
	if b.lastSent == nil {
		return false
	}
	return a.lastSent.Before(*b.lastSent)
}

func (s *OutreachScheduler) candidateTriggers(
	human *accountdomain.Account,
	memory *memorydomain.ConversationMemory,
	signals ActivitySignals,
	now time.Time,
) []domain.TriggerType {
	var triggers []domain.TriggerType

	if memory == nil {
		// never conversed: only a welcome makes sense, and only while the
		// human is still newly onboarded
		if now.Sub(human.CreatedAt) <= s.cfg.OnboardingWindow {
			triggers = append(triggers, domain.TriggerOnboardingWelcome)
		}
		return triggers
	}

	if signals.RecentAchievement != "" {
		triggers = append(triggers, domain.TriggerMilestoneCelebration)
	}
	if signals.WorkoutStreakDays >= minStreakDays {
		triggers = append(triggers, domain.TriggerWorkoutStreak)
	}
	if signals.DaysInactive >= minInactiveDays {
		triggers = append(triggers, domain.TriggerMotivationBoost)
	}
	if memory.LastConversationAt != nil && now.Sub(*memory.LastConversationAt) >= checkInAfter {
		triggers = append(triggers, domain.TriggerCheckIn)
	}
	triggers = append(triggers, domain.TriggerRandomSocial)

	return triggers
}

func (s *OutreachScheduler) sendOutreach(
	persona *accountdomain.Persona,
	human *accountdomain.Account,
	memCtx *memoryusecase.Context,
	trigger domain.TriggerType,
	log *zap.Logger,
) {
	log = log.With(zap.String("trigger", string(trigger)))

	history, err := s.messages.FetchConversation(persona.AccountID, human.ID, historyFetchLimit)
	if err != nil {
		log.Error("history fetch failed", zap.Error(err))
		return
	}
	reverse(history)

	reply, err := s.engine.GenerateReply(context.Background(), persona, memCtx, history, triggerFraming(trigger, human))
	if err != nil {
		// proactive sends are best-effort: skip quietly and let a later
		// tick retry once the window allows
		log.Warn("generation failed, skipping outreach", zap.Error(err))
		return
	}

	message, err := s.messages.SendAsPersona(
		persona.AccountID,
		human.ID,
		messageusecase.SendInput{Content: reply.Content},
		persona.PersonalityType,
		map[string]interface{}{"trigger": string(trigger)},
	)
	if err != nil {
		log.Error("persisting outreach failed", zap.Error(err))
		return
	}

	if err := s.ledger.Append(&domain.ProactiveOutreachRecord{
		PersonaID:          persona.AccountID,
		HumanID:            human.ID,
		TriggerType:        trigger,
		SentAt:             s.now(),
		ResultingMessageID: message.ID,
	}); err != nil {
		log.Error("ledger append failed", zap.Error(err))
		return
	}

	log.Info("proactive outreach sent", zap.String("message_id", message.ID))
}

// triggerFraming builds the instruction handed to the engine for each
// proactive trigger type.
func triggerFraming(trigger domain.TriggerType, human *accountdomain.Account) respond.Framing {
	name := human.DisplayName
	if name == "" {
		name = human.Username
	}

	var instruction string
	switch trigger {
	case domain.TriggerOnboardingWelcome:
		instruction = "Send " + name + " a warm welcome message. They just joined; introduce yourself briefly and invite them to chat."
	case domain.TriggerWorkoutStreak:
		instruction = "Congratulate " + name + " on keeping their workout streak going and encourage them to keep it up."
	case domain.TriggerMilestoneCelebration:
		instruction = "Celebrate the milestone " + name + " just hit. Be genuinely excited for them."
	case domain.TriggerMotivationBoost:
		instruction = name + " has been inactive for a while. Send an encouraging nudge without being pushy."
	case domain.TriggerCheckIn:
		instruction = "It has been a while since you talked to " + name + ". Check in on them and pick up where you left off."
	default:
		instruction = "Start a light, friendly conversation with " + name + " about something you both might enjoy."
	}

	return respond.Framing{Kind: string(trigger), Instruction: instruction}
}

// repositories return conversations newest first; the engine wants them
// oldest first
func reverse(messages []*messagedomain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
