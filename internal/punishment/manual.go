package punishment

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"go.uber.org/zap"
)

// ManualAction is a moderator command against a user.
type ManualAction struct {
	UserID    uint64
	Moderator string // Moderator ID
	Reason    string
	Severity  enum.Severity // Used by Warn only, zero is low
	ChannelID uint64        // Where the command was issued
}

// Warn records a warning with the moderator's severity and no platform restriction.
func (m *Manager) Warn(ctx context.Context, action ManualAction) (*Outcome, error) {
	return m.manual(ctx, action, enum.CaseTypeWarning, action.Severity, Decision{Action: enum.ActionWarningOnly})
}

// Timeout records a medium warning and times the user out for duration.
func (m *Manager) Timeout(ctx context.Context, action ManualAction, duration time.Duration) (*Outcome, error) {
	if duration <= 0 {
		return nil, ErrNoDuration
	}

	return m.manual(ctx, action, enum.CaseTypeTimeout, enum.SeverityMedium,
		Decision{Action: enum.ActionTimeout, Timeout: duration})
}

// Ban records a critical warning and bans the user.
func (m *Manager) Ban(ctx context.Context, action ManualAction) (*Outcome, error) {
	return m.manual(ctx, action, enum.CaseTypeBan, enum.SeverityCritical, Decision{Action: enum.ActionBan})
}

// Kick records a case without a warning and removes the user from the server.
func (m *Manager) Kick(ctx context.Context, action ManualAction) (*Outcome, error) {
	now := m.now()

	p := &types.Punishment{Case: m.manualCase(action, enum.CaseTypeKick, Decision{Action: enum.ActionWarningOnly}, now)}

	p, active, err := m.ledger.Record(ctx, action.UserID, now, func(int) *types.Punishment { return p })
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Case: p.Case, ActiveWarnings: active, Enforced: true}

	outcome.Notified = m.notify(ctx, action.UserID, "You have been kicked from the server.\n**Reason:** "+action.Reason)

	if err := m.platform.Kick(ctx, action.UserID, action.Reason); err != nil {
		m.logger.Error("Failed to kick user", zap.Uint64("userID", action.UserID), zap.Error(err))
		outcome.Enforced = false
	}

	outcome.Trust = m.recalculate(ctx, action.UserID)

	m.logger.Info("Kicked user",
		zap.Uint64("userID", action.UserID),
		zap.String("moderator", action.Moderator),
		zap.Int64("caseID", p.Case.ID))

	return outcome, nil
}

// ResetWarnings expires every active warning of a user without deleting them.
func (m *Manager) ResetWarnings(ctx context.Context, userID uint64, moderator string) (int64, error) {
	expired, err := m.warnings.ExpireAll(ctx, userID, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to reset warnings: %w", err)
	}

	m.recalculate(ctx, userID)

	m.logger.Info("Reset warnings",
		zap.Uint64("userID", userID),
		zap.String("moderator", moderator),
		zap.Int64("expired", expired))

	return expired, nil
}

// Case returns a case by ID.
func (m *Manager) Case(ctx context.Context, caseID int64) (*types.Case, error) {
	return m.cases.GetCase(ctx, caseID)
}

// Cases returns the most recent cases of a user.
func (m *Manager) Cases(ctx context.Context, userID uint64, limit int) ([]*types.Case, error) {
	return m.cases.ListByUser(ctx, userID, limit)
}

// Warnings returns the warnings of a user, newest first.
func (m *Manager) Warnings(ctx context.Context, userID uint64, activeOnly bool) ([]*types.Warning, error) {
	return m.warnings.ListByUser(ctx, userID, activeOnly, m.now())
}

// Stats counts warnings by category issued since the given time.
func (m *Manager) Stats(ctx context.Context, since time.Time) ([]types.CategoryCount, error) {
	return m.warnings.CountByCategorySince(ctx, since)
}

func (m *Manager) manual(
	ctx context.Context, action ManualAction, caseType enum.CaseType, severity enum.Severity, decision Decision,
) (*Outcome, error) {
	now := m.now()
	seconds := int(decision.Timeout / time.Second)

	p := &types.Punishment{
		Case: m.manualCase(action, caseType, decision, now),
		Warning: &types.Warning{
			UserID:          action.UserID,
			Reason:          action.Reason,
			IssuedBy:        action.Moderator,
			Category:        enum.CategoryManual,
			Severity:        severity,
			Action:          decision.Action,
			TimeoutDuration: seconds,
			ChannelID:       action.ChannelID,
			IssuedAt:        now,
		},
	}

	p, active, err := m.ledger.Record(ctx, action.UserID, now, func(int) *types.Punishment { return p })
	if err != nil {
		return nil, err
	}

	threshold := m.settings.Current().Punishment.BanThreshold

	outcome := &Outcome{
		Case:           p.Case,
		Warning:        p.Warning,
		Decision:       decision,
		ActiveWarnings: active,
	}
	outcome.Notified = m.notify(ctx, action.UserID, manualNotice(action.Reason, active, threshold, decision))
	outcome.Enforced = m.enforce(ctx, action.UserID, decision, action.Reason)
	outcome.Trust = m.recalculate(ctx, action.UserID)

	m.logger.Info("Applied manual punishment",
		zap.Uint64("userID", action.UserID),
		zap.String("moderator", action.Moderator),
		zap.String("type", caseType.String()),
		zap.Int64("caseID", p.Case.ID),
		zap.Bool("enforced", outcome.Enforced))

	return outcome, nil
}

func (m *Manager) manualCase(action ManualAction, caseType enum.CaseType, decision Decision, now time.Time) *types.Case {
	return &types.Case{
		Type:      caseType,
		UserID:    action.UserID,
		Reason:    action.Reason,
		CreatedBy: action.Moderator,
		Action:    decision.Action,
		Status:    enum.CaseStatusOpen,
		Evidence: types.CaseEvidence{
			Category: enum.CategoryManual,
			Duration: int(decision.Timeout / time.Second),
		},
		ChannelID: action.ChannelID,
		CreatedAt: now,
	}
}

func manualNotice(reason string, active, threshold int, decision Decision) string {
	switch decision.Action {
	case enum.ActionBan:
		return "You have been banned by a moderator.\n**Reason:** " + reason
	case enum.ActionTimeout:
		return fmt.Sprintf("You have been timed out for %s by a moderator.\n**Reason:** %s",
			formatDuration(decision.Timeout), reason)
	default:
		return fmt.Sprintf("You received a warning from a moderator.\n**Reason:** %s\n**Warnings:** %d/%d",
			reason, active, threshold)
	}
}
