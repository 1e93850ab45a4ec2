// Package pipeline routes platform events through detection, punishment and scoring
// while keeping every user's events in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/detector"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/raid"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrStopped is returned when submitting to a stopped pipeline.
var ErrStopped = errors.New("pipeline stopped")

// Detector classifies messages.
type Detector interface {
	Check(ctx context.Context, msg *types.Message) (detector.Verdict, error)
}

// Punisher handles abusive verdicts.
type Punisher interface {
	Punish(ctx context.Context, msg *types.Message, verdict detector.Verdict) (*punishment.Outcome, error)
}

// UserStore maintains user rows and counters.
type UserStore interface {
	Touch(ctx context.Context, profile types.Profile, seenAt time.Time) (*types.User, error)
	GetUser(ctx context.Context, userID uint64) (*types.User, error)
	AddReactions(ctx context.Context, giverID, receiverID uint64, delta int64) error
	AddVoiceMinutes(ctx context.Context, userID uint64, minutes int64) error
}

// ActivityStore counts clean messages.
type ActivityStore interface {
	RecordMessage(ctx context.Context, userID, channelID uint64, at time.Time) error
}

// EventStore tracks reactions on stored messages.
type EventStore interface {
	AdjustReactions(ctx context.Context, messageID uint64, delta int) (uint64, error)
}

// Gamification updates streaks and achievements.
type Gamification interface {
	RecordActivity(ctx context.Context, user *types.User, at time.Time) error
	Evaluate(ctx context.Context, user *types.User, at time.Time) ([]config.Achievement, error)
}

// RaidTracker records joins.
type RaidTracker interface {
	RecordJoin(ctx context.Context, guildID, userID uint64, at time.Time) (*raid.Alert, error)
}

// Alerter delivers raid alerts.
type Alerter interface {
	RaidAlert(ctx context.Context, alert *raid.Alert)
}

// TrustScorer computes trust scores.
type TrustScorer interface {
	Recalculate(ctx context.Context, userID uint64) (*types.TrustScore, error)
}

// Deps groups the collaborators of a Pipeline.
type Deps struct {
	Detector     Detector
	Punisher     Punisher
	Users        UserStore
	Activity     ActivityStore
	Events       EventStore
	Gamification Gamification
	Raid         RaidTracker
	Alerter      Alerter
	Trust        TrustScorer
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Pipeline runs events on hash-sharded single goroutine queues.
// Events of one user always land on the same queue and run in submission order.
type Pipeline struct {
	deps    Deps
	shards  []chan task
	timeout time.Duration
	workers *pool.Pool
	mu      sync.RWMutex
	stopped bool
	logger  *zap.Logger
}

// New creates a Pipeline. Call Start before submitting events.
func New(deps Deps, cfg config.Pipeline, logger *zap.Logger) *Pipeline {
	shards := make([]chan task, max(cfg.Shards, 1))
	for i := range shards {
		shards[i] = make(chan task, max(cfg.QueueSize, 1))
	}

	return &Pipeline{
		deps:    deps,
		shards:  shards,
		timeout: time.Duration(cfg.EventTimeout) * time.Millisecond,
		logger:  logger.Named("pipeline"),
	}
}

// Start launches one goroutine per shard. The context bounds every event.
func (p *Pipeline) Start(ctx context.Context) {
	p.workers = pool.New().WithMaxGoroutines(len(p.shards))

	for i, queue := range p.shards {
		p.workers.Go(func() {
			for t := range queue {
				p.run(ctx, i, t)
			}
		})
	}

	p.logger.Info("Pipeline started", zap.Int("shards", len(p.shards)))
}

// Stop stops accepting events and waits for queued events to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, queue := range p.shards {
		close(queue)
	}
	p.mu.Unlock()

	if p.workers != nil {
		p.workers.Wait()
	}

	p.logger.Info("Pipeline stopped")
}

// SubmitMessage queues a message for its author.
func (p *Pipeline) SubmitMessage(ctx context.Context, msg *types.Message) error {
	return p.submit(ctx, msg.Author.UserID, "message", func(ctx context.Context) error {
		_, err := p.HandleMessage(ctx, msg)
		return err
	})
}

// SubmitReaction queues a reaction for the reacting user.
func (p *Pipeline) SubmitReaction(ctx context.Context, event ReactionEvent) error {
	return p.submit(ctx, event.Reactor.UserID, "reaction", func(ctx context.Context) error {
		return p.HandleReaction(ctx, event)
	})
}

// SubmitVoice queues an ended voice session.
func (p *Pipeline) SubmitVoice(ctx context.Context, event VoiceEvent) error {
	return p.submit(ctx, event.User.UserID, "voice", func(ctx context.Context) error {
		return p.HandleVoice(ctx, event)
	})
}

// SubmitJoin queues a member join.
func (p *Pipeline) SubmitJoin(ctx context.Context, event JoinEvent) error {
	return p.submit(ctx, event.Member.UserID, "join", func(ctx context.Context) error {
		return p.HandleJoin(ctx, event)
	})
}

// submit blocks while the user's queue is full. Stop waits for blocked submitters.
func (p *Pipeline) submit(ctx context.Context, userID uint64, name string, fn func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	queue := p.shards[userID%uint64(len(p.shards))]

	select {
	case queue <- task{name: name, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes one task with a timeout, a correlation ID and panic recovery.
func (p *Pipeline) run(ctx context.Context, shard int, t task) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger := p.logger.With(
		zap.String("event", t.name),
		zap.String("correlationID", uuid.NewString()),
		zap.Int("shard", shard))

	start := time.Now()

	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = t.fn(ctx)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		logger.Error("Panic while handling event", zap.Error(recovered.AsError()))
		return
	}

	if err != nil {
		logger.Error("Failed to handle event", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}

	logger.Debug("Handled event", zap.Duration("duration", time.Since(start)))
}

// HandleMessage classifies a message, punishes it when abusive and otherwise
// credits the author's counters, streak and achievements.
func (p *Pipeline) HandleMessage(ctx context.Context, msg *types.Message) (*MessageResult, error) {
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	user, err := p.deps.Users.Touch(ctx, msg.Author, at)
	if err != nil {
		return nil, err
	}

	verdict, err := p.deps.Detector.Check(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to classify message: %w", err)
	}

	result := &MessageResult{
		Abusive:  verdict.Abusive,
		Category: verdict.Category.String(),
		Reason:   verdict.Reason,
	}

	if verdict.Abusive {
		outcome, err := p.deps.Punisher.Punish(ctx, msg, verdict)
		if err != nil {
			return nil, fmt.Errorf("failed to punish: %w", err)
		}

		result.Outcome = outcome
		return result, nil
	}

	if err := p.deps.Activity.RecordMessage(ctx, user.ID, msg.ChannelID, at); err != nil {
		return nil, err
	}
	user.TotalMessages++

	if err := p.deps.Gamification.RecordActivity(ctx, user, at); err != nil {
		return nil, err
	}

	unlocked, err := p.deps.Gamification.Evaluate(ctx, user, at)
	if err != nil {
		return nil, err
	}

	result.Achievements = unlocked

	return result, nil
}

// HandleReaction credits reaction counters. Removals only lower the message's reaction count.
func (p *Pipeline) HandleReaction(ctx context.Context, event ReactionEvent) error {
	if !event.Added {
		_, err := p.deps.Events.AdjustReactions(ctx, event.MessageID, -1)
		return err
	}

	if _, err := p.deps.Users.Touch(ctx, event.Reactor, event.At); err != nil {
		return err
	}

	authorID, err := p.deps.Events.AdjustReactions(ctx, event.MessageID, 1)
	if err != nil {
		return err
	}

	if err := p.deps.Users.AddReactions(ctx, event.Reactor.UserID, authorID, 1); err != nil {
		return err
	}

	p.evaluate(ctx, event.Reactor.UserID, event.At)
	if authorID != 0 && authorID != event.Reactor.UserID {
		p.evaluate(ctx, authorID, event.At)
	}

	return nil
}

// HandleVoice adds the minutes of an ended voice session.
func (p *Pipeline) HandleVoice(ctx context.Context, event VoiceEvent) error {
	if event.Minutes <= 0 {
		return nil
	}

	if _, err := p.deps.Users.Touch(ctx, event.User, event.At); err != nil {
		return err
	}

	if err := p.deps.Users.AddVoiceMinutes(ctx, event.User.UserID, event.Minutes); err != nil {
		return err
	}

	p.evaluate(ctx, event.User.UserID, event.At)

	return nil
}

// HandleJoin records a join, scores the member and forwards any raid alert.
func (p *Pipeline) HandleJoin(ctx context.Context, event JoinEvent) error {
	if _, err := p.deps.Users.Touch(ctx, event.Member, event.At); err != nil {
		return err
	}

	// Members are scored on arrival
	if _, err := p.deps.Trust.Recalculate(ctx, event.Member.UserID); err != nil {
		p.logger.Warn("Failed to score joined member", zap.Uint64("userID", event.Member.UserID), zap.Error(err))
	}

	alert, err := p.deps.Raid.RecordJoin(ctx, event.GuildID, event.Member.UserID, event.At)
	if err != nil {
		return fmt.Errorf("failed to record join: %w", err)
	}

	if alert != nil {
		p.logger.Warn("Possible raid detected",
			zap.Uint64("guildID", alert.GuildID),
			zap.Int("joins", alert.Joins),
			zap.Duration("window", alert.Window))
		p.deps.Alerter.RaidAlert(ctx, alert)
	}

	return nil
}

// evaluate reloads a user and checks achievements. Failures are logged.
func (p *Pipeline) evaluate(ctx context.Context, userID uint64, at time.Time) {
	user, err := p.deps.Users.GetUser(ctx, userID)
	if err != nil {
		p.logger.Warn("Failed to load user for achievements", zap.Uint64("userID", userID), zap.Error(err))
		return
	}

	if _, err := p.deps.Gamification.Evaluate(ctx, user, at); err != nil {
		p.logger.Warn("Failed to evaluate achievements", zap.Uint64("userID", userID), zap.Error(err))
	}
}
