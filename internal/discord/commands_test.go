package discord_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/detector"
	sentineldiscord "github.com/robalyx/sentinel/internal/discord"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// options is an in-memory Options.
type options map[string]any

func (o options) String(name string) (string, bool) { v, ok := o[name].(string); return v, ok }
func (o options) Int(name string) (int, bool)       { v, ok := o[name].(int); return v, ok }
func (o options) Bool(name string) (bool, bool)     { v, ok := o[name].(bool); return v, ok }
func (o options) User(name string) (uint64, bool)   { v, ok := o[name].(uint64); return v, ok }

// core fakes every collaborator of the commands.
type core struct {
	actions   []punishment.ManualAction
	durations []time.Duration
	batches   [][]uint64
	users     []*types.User
	settings  map[string]string
	reports   []detector.ReportResult
	tiers     []string
}

func newCore() *core {
	return &core{settings: map[string]string{"detector.max_mentions": "5"}}
}

func (c *core) outcome(action punishment.ManualAction, caseType enum.CaseType) *punishment.Outcome {
	c.actions = append(c.actions, action)
	return &punishment.Outcome{
		Case:           &types.Case{ID: int64(len(c.actions)), Type: caseType, UserID: action.UserID},
		Warning:        &types.Warning{},
		ActiveWarnings: len(c.actions),
		Enforced:       true,
		Notified:       true,
		Trust:          &types.TrustScore{Overall: 42, Tier: "probation"},
	}
}

func (c *core) Warn(_ context.Context, a punishment.ManualAction) (*punishment.Outcome, error) {
	return c.outcome(a, enum.CaseTypeWarning), nil
}

func (c *core) Timeout(_ context.Context, a punishment.ManualAction, d time.Duration) (*punishment.Outcome, error) {
	if d <= 0 {
		return nil, punishment.ErrNoDuration
	}
	c.durations = append(c.durations, d)
	return c.outcome(a, enum.CaseTypeTimeout), nil
}

func (c *core) Ban(_ context.Context, a punishment.ManualAction) (*punishment.Outcome, error) {
	return c.outcome(a, enum.CaseTypeBan), nil
}

func (c *core) Kick(_ context.Context, a punishment.ManualAction) (*punishment.Outcome, error) {
	out := c.outcome(a, enum.CaseTypeKick)
	out.Warning = nil
	out.Notified = false
	out.Trust = nil
	return out, nil
}

func (c *core) ResetWarnings(context.Context, uint64, string) (int64, error) { return 3, nil }

func (c *core) Case(_ context.Context, id int64) (*types.Case, error) {
	if id != 1 {
		return nil, types.ErrCaseNotFound
	}
	return &types.Case{ID: 1, Type: enum.CaseTypeBan, UserID: 7, CreatedBy: "system", Reason: "Scam"}, nil
}

func (c *core) Cases(context.Context, uint64, int) ([]*types.Case, error) { return nil, nil }

func (c *core) Warnings(context.Context, uint64, bool) ([]*types.Warning, error) {
	past := time.Now().Add(-time.Hour)
	return []*types.Warning{
		{ID: 2, Category: enum.CategoryScam, Severity: enum.SeverityCritical, Action: enum.ActionBan, Reason: "Scam"},
		{ID: 1, Category: enum.CategoryDuplicate, Severity: enum.SeverityLow, Action: enum.ActionTimeout, ExpiresAt: &past},
	}, nil
}

func (c *core) Stats(context.Context, time.Time) ([]types.CategoryCount, error) {
	return []types.CategoryCount{{Category: enum.CategoryScam, Count: 4}}, nil
}

func (c *core) Get(_ context.Context, userID uint64) (*types.TrustScore, error) {
	return &types.TrustScore{UserID: userID, Overall: 61.5, Tier: "trusted"}, nil
}

func (c *core) Recalculate(_ context.Context, userID uint64) (*types.TrustScore, error) {
	return &types.TrustScore{UserID: userID, Overall: 12, Tier: "new"}, nil
}

func (c *core) RecalculateAll(_ context.Context, ids []uint64, _ int) (int, error) {
	c.batches = append(c.batches, ids)
	return len(ids), nil
}

func (c *core) Leaderboard(context.Context, int) ([]*types.TrustScore, error) {
	return []*types.TrustScore{{UserID: 1, Overall: 90, Tier: "veteran"}}, nil
}

func (c *core) ListAfter(_ context.Context, afterID uint64, limit int) ([]*types.User, error) {
	var page []*types.User
	for _, u := range c.users {
		if u.ID > afterID && len(page) < limit {
			page = append(page, u)
		}
	}
	return page, nil
}

func (c *core) Report(context.Context, uint64, uint64, string) ([]detector.ReportResult, error) {
	return c.reports, nil
}

func (c *core) Blacklist(context.Context, string, string) error { return nil }
func (c *core) Whitelist(context.Context, string) error         { return nil }

func (c *core) Set(_ context.Context, key, raw, _ string) error {
	if _, ok := c.settings[key]; !ok {
		return fmt.Errorf("%w: %s", settings.ErrUnknownSetting, key)
	}
	c.settings[key] = raw
	return nil
}

func (c *core) setting(key string) (string, error) { return c.settings[key], nil }

func (c *core) List() []settings.Entry {
	return []settings.Entry{{Key: "detector.max_mentions", Value: c.settings["detector.max_mentions"]}}
}

func (c *core) Unlocked(context.Context, uint64) ([]string, error) {
	return []string{"first_message", "century"}, nil
}

// reputation is split out because its Recalculate and Leaderboard collide with trust.
type reputation struct{ c *core }

func (r reputation) Recalculate(_ context.Context, userID uint64) (*types.ReputationScore, error) {
	return &types.ReputationScore{UserID: userID, Overall: 55, Tier: "gold"}, nil
}

func (r reputation) Leaderboard(context.Context, int) ([]*types.ReputationScore, error) {
	return []*types.ReputationScore{{UserID: 2, Overall: 80, Tier: "platinum"}}, nil
}

func (r reputation) ByTier(_ context.Context, tier string, _ int) ([]*types.ReputationScore, error) {
	r.c.tiers = append(r.c.tiers, tier)
	return nil, nil
}

// settingsView adapts core to SettingsManager.
type settingsView struct{ c *core }

func (s settingsView) Set(ctx context.Context, key, raw, actor string) error { return s.c.Set(ctx, key, raw, actor) }
func (s settingsView) Get(key string) (string, error)                        { return s.c.setting(key) }
func (s settingsView) List() []settings.Entry                                { return s.c.List() }

func newCommands(c *core) *sentineldiscord.Commands {
	return sentineldiscord.NewCommands(sentineldiscord.CommandDeps{
		Moderation:   c,
		Trust:        c,
		Reputation:   reputation{c},
		Images:       c,
		Settings:     settingsView{c},
		Achievements: c,
		Users:        c,
	}, []string{"Moderator"}, time.Second, zap.NewNop())
}

var (
	moderator = sentineldiscord.Actor{UserID: 500, ChannelID: 600, Moderator: true}
	member    = sentineldiscord.Actor{UserID: 501, ChannelID: 600}
)

func TestRunRequiresModerator(t *testing.T) {
	t.Parallel()

	cmds := newCommands(newCore())

	_, err := cmds.Run(t.Context(), sentineldiscord.CommandBan, "", options{"user": uint64(7), "reason": "x"}, member)
	require.ErrorIs(t, err, sentineldiscord.ErrNotModerator)

	out, err := cmds.Run(t.Context(), sentineldiscord.CommandTrust, "", options{}, member)
	require.NoError(t, err)
	assert.Contains(t, out, "<@501>: 61.5 (trusted)")
}

func TestRunManualActions(t *testing.T) {
	t.Parallel()

	c := newCore()
	cmds := newCommands(c)
	ctx := t.Context()

	out, err := cmds.Run(ctx, sentineldiscord.CommandWarn, "",
		options{"user": uint64(7), "reason": "Be nice", "severity": "high"}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "Case #1: warning for <@7>. Active warnings: 1. Trust is now 42.0 (probation).", out)

	_, err = cmds.Run(ctx, sentineldiscord.CommandTimeout, "",
		options{"user": uint64(7), "reason": "Cool down", "minutes": 30}, moderator)
	require.NoError(t, err)

	out, err = cmds.Run(ctx, sentineldiscord.CommandKick, "", options{"user": uint64(7), "reason": "Bye"}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "Case #3: kick for <@7>. The user could not be notified.", out)

	require.Len(t, c.actions, 3)
	assert.Equal(t, enum.SeverityHigh, c.actions[0].Severity)
	assert.Equal(t, "500", c.actions[0].Moderator)
	assert.Equal(t, uint64(600), c.actions[0].ChannelID)
	assert.Equal(t, []time.Duration{30 * time.Minute}, c.durations)

	_, err = cmds.Run(ctx, sentineldiscord.CommandWarn, "",
		options{"user": uint64(7), "reason": "x", "severity": "extreme"}, moderator)
	require.ErrorIs(t, err, enum.ErrInvalidSeverity)

	_, err = cmds.Run(ctx, sentineldiscord.CommandBan, "", options{"user": uint64(7)}, moderator)
	require.ErrorIs(t, err, sentineldiscord.ErrMissingOption)

	_, err = cmds.Run(ctx, sentineldiscord.CommandTimeout, "",
		options{"user": uint64(7), "reason": "x", "minutes": 0}, moderator)
	require.ErrorIs(t, err, punishment.ErrNoDuration)
}

func TestRunRecalcTrustAll(t *testing.T) {
	t.Parallel()

	c := newCore()
	for id := uint64(1); id <= 3; id++ {
		c.users = append(c.users, &types.User{ID: id})
	}
	cmds := newCommands(c)

	out, err := cmds.Run(t.Context(), sentineldiscord.CommandRecalcTrust, "", options{}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "Recalculated trust for 3 users.", out)
	assert.Equal(t, [][]uint64{{1, 2, 3}}, c.batches)

	out, err = cmds.Run(t.Context(), sentineldiscord.CommandRecalcTrust, "", options{"user": uint64(9)}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "Trust for <@9> is now **12.0** (new).", out)
}

func TestRunReportImage(t *testing.T) {
	t.Parallel()

	c := newCore()
	c.reports = []detector.ReportResult{
		{PHash: "aaaa", Reports: 1, Threshold: 3, Added: true},
		{PHash: "bbbb", Reports: 3, Threshold: 3, Added: true, AutoFlagged: true},
		{PHash: "cccc", Reports: 2, Threshold: 3},
	}
	cmds := newCommands(c)

	out, err := cmds.Run(t.Context(), sentineldiscord.CommandReportImage, "", options{"message_id": " 123 "}, member)
	require.NoError(t, err)
	assert.Equal(t, "`aaaa` reported (1/3).\n"+
		"`bbbb` reached 3 reports and is now flagged.\n"+
		"`cccc` was already reported by you (2/3).", out)

	_, err = cmds.Run(t.Context(), sentineldiscord.CommandReportImage, "", options{"message_id": "abc"}, member)
	require.Error(t, err)
}

func TestRunLookups(t *testing.T) {
	t.Parallel()

	c := newCore()
	cmds := newCommands(c)
	ctx := t.Context()

	out, err := cmds.Run(ctx, sentineldiscord.CommandCase, "", options{"id": 1}, moderator)
	require.NoError(t, err)
	assert.Contains(t, out, "**Case #1** ban <@7> by system")

	_, err = cmds.Run(ctx, sentineldiscord.CommandCase, "", options{"id": 2}, moderator)
	require.ErrorIs(t, err, types.ErrCaseNotFound)

	out, err = cmds.Run(ctx, sentineldiscord.CommandCases, "", options{"user": uint64(7)}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "<@7> has no cases.", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandWarnings, "", options{"user": uint64(7)}, moderator)
	require.NoError(t, err)
	assert.Contains(t, out, "#2 scam critical (ban, active)")
	assert.Contains(t, out, "#1 duplicate low (timeout, expired)")

	out, err = cmds.Run(ctx, sentineldiscord.CommandStats, "", options{}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "**Warnings in the last 7 days**\nscam: 4", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandAchievements, "", options{}, member)
	require.NoError(t, err)
	assert.Equal(t, "<@501> unlocked: first_message, century", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandReputation, "", options{"user": uint64(8)}, member)
	require.NoError(t, err)
	assert.Contains(t, out, "Reputation for <@8>: 55.0 (gold)")
}

func TestRunLeaderboard(t *testing.T) {
	t.Parallel()

	c := newCore()
	cmds := newCommands(c)
	ctx := t.Context()

	out, err := cmds.Run(ctx, sentineldiscord.CommandLeaderboard, "", options{"board": "trust"}, member)
	require.NoError(t, err)
	assert.Equal(t, "**Top trust**\n1. <@1> 90.0 (veteran)", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandLeaderboard, "", options{"board": "reputation"}, member)
	require.NoError(t, err)
	assert.Equal(t, "**Top reputation**\n1. <@2> 80.0 (platinum)", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandLeaderboard, "",
		options{"board": "reputation", "tier": "gold"}, member)
	require.NoError(t, err)
	assert.Equal(t, "No scores yet.", out)
	assert.Equal(t, []string{"gold"}, c.tiers)
}

func TestRunSettings(t *testing.T) {
	t.Parallel()

	c := newCore()
	cmds := newCommands(c)
	ctx := t.Context()

	out, err := cmds.Run(ctx, sentineldiscord.CommandSettings, "set",
		options{"key": "detector.max_mentions", "value": "8"}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "`detector.max_mentions` = `8`", out)

	out, err = cmds.Run(ctx, sentineldiscord.CommandSettings, "list", options{}, moderator)
	require.NoError(t, err)
	assert.Equal(t, "`detector.max_mentions` = `8`", out)

	_, err = cmds.Run(ctx, sentineldiscord.CommandSettings, "set",
		options{"key": "bogus", "value": "1"}, moderator)
	require.ErrorIs(t, err, settings.ErrUnknownSetting)

	_, err = cmds.Run(ctx, sentineldiscord.CommandSettings, "drop", options{}, moderator)
	require.ErrorIs(t, err, sentineldiscord.ErrUnknownCommand)
}

func TestDefinitions(t *testing.T) {
	t.Parallel()

	defs := sentineldiscord.Definitions()
	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		names[def.CommandName()] = true
	}

	for _, name := range []string{
		sentineldiscord.CommandRecalcTrust, sentineldiscord.CommandReportImage,
		sentineldiscord.CommandBlacklistImage, sentineldiscord.CommandWhitelistImage,
		sentineldiscord.CommandResetWarnings, sentineldiscord.CommandBan, sentineldiscord.CommandKick,
		sentineldiscord.CommandTimeout, sentineldiscord.CommandWarn, sentineldiscord.CommandSettings,
	} {
		assert.True(t, names[name], name)
	}
}
