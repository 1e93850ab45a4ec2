// Package punishment turns abusive verdicts and moderator commands into cases,
// warnings and platform enforcement.
package punishment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/detector"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

// ErrNoDuration is returned when a manual timeout has no duration.
var ErrNoDuration = errors.New("timeout duration must be positive")

// Platform executes enforcement on the chat platform. Every call may fail.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	Timeout(ctx context.Context, userID uint64, duration time.Duration, reason string) error
	Ban(ctx context.Context, userID uint64, reason string) error
	Kick(ctx context.Context, userID uint64, reason string) error
	SendDirectMessage(ctx context.Context, userID uint64, content string) error
}

// Ledger stores a case and its warning together. build is called inside the ledger
// transaction with the active warning count before the new entry; the count after it is returned.
type Ledger interface {
	Record(
		ctx context.Context, userID uint64, now time.Time, build func(prior int) *types.Punishment,
	) (*types.Punishment, int, error)
}

// WarningStore is the warning side of the ledger.
type WarningStore interface {
	ListByUser(ctx context.Context, userID uint64, activeOnly bool, now time.Time) ([]*types.Warning, error)
	ExpireAll(ctx context.Context, userID uint64, at time.Time) (int64, error)
	CountByCategorySince(ctx context.Context, since time.Time) ([]types.CategoryCount, error)
}

// CaseStore reads cases.
type CaseStore interface {
	GetCase(ctx context.Context, caseID int64) (*types.Case, error)
	ListByUser(ctx context.Context, userID uint64, limit int) ([]*types.Case, error)
}

// EventStore flags punished message events.
type EventStore interface {
	MarkSpam(ctx context.Context, messageID uint64, deleted bool) error
}

// UserStore marks banned users.
type UserStore interface {
	MarkBanned(ctx context.Context, userID uint64) error
}

// TrustRecalculator forces a trust recomputation.
type TrustRecalculator interface {
	Recalculate(ctx context.Context, userID uint64) (*types.TrustScore, error)
}

// Outcome describes what happened for one punishment.
type Outcome struct {
	Case           *types.Case
	Warning        *types.Warning // Nil for kicks
	Decision       Decision
	ActiveWarnings int
	Deleted        bool // Offending message removed
	Enforced       bool // Platform action succeeded or none was needed
	Notified       bool // Direct message delivered
	Trust          *types.TrustScore
}

// Manager runs the punishment state machine.
type Manager struct {
	platform Platform
	ledger   Ledger
	warnings WarningStore
	cases    CaseStore
	events   EventStore
	users    UserStore
	trust    TrustRecalculator
	settings settings.Source
	logger   *zap.Logger
	now      func() time.Time
}

// Deps groups the collaborators of a Manager.
type Deps struct {
	Platform Platform
	Ledger   Ledger
	Warnings WarningStore
	Cases    CaseStore
	Events   EventStore
	Users    UserStore
	Trust    TrustRecalculator
	Settings settings.Source
}

// NewManager creates a Manager.
func NewManager(deps Deps, logger *zap.Logger) *Manager {
	return &Manager{
		platform: deps.Platform,
		ledger:   deps.Ledger,
		warnings: deps.Warnings,
		cases:    deps.Cases,
		events:   deps.Events,
		users:    deps.Users,
		trust:    deps.Trust,
		settings: deps.Settings,
		logger:   logger.Named("punishment"),
		now:      time.Now,
	}
}

// Punish handles an abusive verdict for a message. Platform failures are logged and the
// ledger entry is still written; only store failures are returned.
func (m *Manager) Punish(ctx context.Context, msg *types.Message, verdict detector.Verdict) (*Outcome, error) {
	cfg := m.settings.Current().Punishment
	now := m.now()
	userID := msg.Author.UserID

	outcome := &Outcome{}

	if err := m.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		m.logger.Warn("Failed to delete abusive message",
			zap.Uint64("messageID", msg.ID),
			zap.Uint64("channelID", msg.ChannelID),
			zap.Error(err))
	} else {
		outcome.Deleted = true
	}

	if err := m.events.MarkSpam(ctx, msg.ID, outcome.Deleted); err != nil {
		m.logger.Warn("Failed to flag message event", zap.Uint64("messageID", msg.ID), zap.Error(err))
	}

	var decision Decision

	p, active, err := m.ledger.Record(ctx, userID, now, func(prior int) *types.Punishment {
		decision = Decide(&cfg, prior+1)
		return autoPunishment(&cfg, msg, verdict, decision, prior+1, now)
	})
	if err != nil {
		return nil, err
	}

	outcome.Case = p.Case
	outcome.Warning = p.Warning
	outcome.Decision = decision
	outcome.ActiveWarnings = active

	// Banned users can no longer be reached, so the notice goes out first
	outcome.Notified = m.notify(ctx, userID, autoNotice(verdict.Reason, active, cfg.BanThreshold, decision))
	outcome.Enforced = m.enforce(ctx, userID, decision, verdict.Reason)
	outcome.Trust = m.recalculate(ctx, userID)

	m.logger.Info("Punished user",
		zap.Uint64("userID", userID),
		zap.Int64("caseID", p.Case.ID),
		zap.String("category", verdict.Category.String()),
		zap.String("action", decision.Action.String()),
		zap.Int("activeWarnings", active),
		zap.Bool("enforced", outcome.Enforced))

	return outcome, nil
}

// autoPunishment builds the ledger entry for the ordinal-th active warning of the author.
func autoPunishment(
	cfg *config.Punishment, msg *types.Message, verdict detector.Verdict, decision Decision, ordinal int, now time.Time,
) *types.Punishment {
	seconds := int(decision.Timeout / time.Second)

	return &types.Punishment{
		Case: &types.Case{
			Type:      enum.CaseTypeFor(decision.Action),
			UserID:    msg.Author.UserID,
			Reason:    verdict.Reason,
			CreatedBy: cfg.SystemActor,
			Action:    decision.Action,
			Status:    enum.CaseStatusOpen,
			Evidence: types.CaseEvidence{
				Category:     verdict.Category,
				Content:      utils.Truncate(msg.Content, 1000),
				WarningCount: ordinal,
				Duration:     seconds,
			},
			ChannelID: msg.ChannelID,
			MessageID: msg.ID,
			CreatedAt: now,
		},
		Warning: &types.Warning{
			UserID:          msg.Author.UserID,
			Reason:          verdict.Reason,
			IssuedBy:        cfg.SystemActor,
			Category:        verdict.Category,
			Severity:        verdict.Category.Severity(),
			Action:          decision.Action,
			TimeoutDuration: seconds,
			MessageID:       msg.ID,
			ChannelID:       msg.ChannelID,
			IssuedAt:        now,
		},
	}
}

// enforce applies the decided platform action and reports whether it succeeded.
func (m *Manager) enforce(ctx context.Context, userID uint64, decision Decision, reason string) bool {
	switch decision.Action {
	case enum.ActionBan:
		// The stored state records the ban even when the platform refuses it
		if err := m.users.MarkBanned(ctx, userID); err != nil {
			m.logger.Error("Failed to mark user banned", zap.Uint64("userID", userID), zap.Error(err))
		}

		if err := m.platform.Ban(ctx, userID, reason); err != nil {
			m.logger.Error("Failed to ban user", zap.Uint64("userID", userID), zap.Error(err))
			return false
		}
	case enum.ActionTimeout:
		if err := m.platform.Timeout(ctx, userID, decision.Timeout, reason); err != nil {
			m.logger.Error("Failed to timeout user",
				zap.Uint64("userID", userID),
				zap.Duration("duration", decision.Timeout),
				zap.Error(err))
			return false
		}
	case enum.ActionWarningOnly:
	}

	return true
}

// notify sends a direct message. Users with closed direct messages are expected.
func (m *Manager) notify(ctx context.Context, userID uint64, content string) bool {
	if err := m.platform.SendDirectMessage(ctx, userID, content); err != nil {
		m.logger.Debug("Could not notify user", zap.Uint64("userID", userID), zap.Error(err))
		return false
	}

	return true
}

// recalculate forces a trust recomputation. A failure leaves the stale score in place.
func (m *Manager) recalculate(ctx context.Context, userID uint64) *types.TrustScore {
	score, err := m.trust.Recalculate(ctx, userID)
	if err != nil {
		m.logger.Error("Failed to recalculate trust after punishment", zap.Uint64("userID", userID), zap.Error(err))
		return nil
	}

	return score
}

func autoNotice(reason string, active, threshold int, decision Decision) string {
	var b strings.Builder

	b.WriteString("Your message was removed by the moderation system.\n")
	b.WriteString("**Reason:** " + reason + "\n")
	b.WriteString("**Warnings:** " + strconv.Itoa(active) + "/" + strconv.Itoa(threshold) + "\n")

	switch decision.Action {
	case enum.ActionBan:
		b.WriteString("You have reached the warning limit and have been banned.")
	case enum.ActionTimeout:
		b.WriteString("You have been timed out for " + formatDuration(decision.Timeout) + ".")
	case enum.ActionWarningOnly:
		b.WriteString("Further violations will lead to a timeout or a ban.")
	}

	return b.String()
}
