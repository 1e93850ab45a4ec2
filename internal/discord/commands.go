package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/detector"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
)

const (
	leaderboardSize = 10
	casesPageSize   = 10
	recalcBatchSize = 500
	recalcWorkers   = 8
	defaultStatDays = 7
)

var (
	// ErrNotModerator is returned when a member runs a moderator command without permission.
	ErrNotModerator = errors.New("this command is for moderators")
	// ErrUnknownCommand is returned for commands that are not registered here.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMissingOption is returned when a required option is absent.
	ErrMissingOption = errors.New("missing option")
)

// Moderation runs manual moderator actions and ledger lookups.
type Moderation interface {
	Warn(ctx context.Context, action punishment.ManualAction) (*punishment.Outcome, error)
	Timeout(ctx context.Context, action punishment.ManualAction, duration time.Duration) (*punishment.Outcome, error)
	Ban(ctx context.Context, action punishment.ManualAction) (*punishment.Outcome, error)
	Kick(ctx context.Context, action punishment.ManualAction) (*punishment.Outcome, error)
	ResetWarnings(ctx context.Context, userID uint64, moderator string) (int64, error)
	Case(ctx context.Context, caseID int64) (*types.Case, error)
	Cases(ctx context.Context, userID uint64, limit int) ([]*types.Case, error)
	Warnings(ctx context.Context, userID uint64, activeOnly bool) ([]*types.Warning, error)
	Stats(ctx context.Context, since time.Time) ([]types.CategoryCount, error)
}

// TrustScores reads and recomputes trust.
type TrustScores interface {
	Get(ctx context.Context, userID uint64) (*types.TrustScore, error)
	Recalculate(ctx context.Context, userID uint64) (*types.TrustScore, error)
	RecalculateAll(ctx context.Context, userIDs []uint64, concurrency int) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]*types.TrustScore, error)
}

// ReputationScores recomputes and ranks reputation.
type ReputationScores interface {
	Recalculate(ctx context.Context, userID uint64) (*types.ReputationScore, error)
	Leaderboard(ctx context.Context, limit int) ([]*types.ReputationScore, error)
	ByTier(ctx context.Context, tier string, limit int) ([]*types.ReputationScore, error)
}

// ImageModeration handles reports and image lists.
type ImageModeration interface {
	Report(ctx context.Context, messageID, reporterID uint64, reason string) ([]detector.ReportResult, error)
	Blacklist(ctx context.Context, phash, category string) error
	Whitelist(ctx context.Context, phash string) error
}

// SettingsManager reads and overrides moderation settings.
type SettingsManager interface {
	Set(ctx context.Context, key, raw, actor string) error
	Get(key string) (string, error)
	List() []settings.Entry
}

// Achievements lists unlocked achievements.
type Achievements interface {
	Unlocked(ctx context.Context, userID uint64) ([]string, error)
}

// UserLister pages through known users.
type UserLister interface {
	ListAfter(ctx context.Context, afterID uint64, limit int) ([]*types.User, error)
}

// Options reads command options. Users are returned as IDs.
type Options interface {
	String(name string) (string, bool)
	Int(name string) (int, bool)
	Bool(name string) (bool, bool)
	User(name string) (uint64, bool)
}

// Actor is the member running a command.
type Actor struct {
	UserID    uint64
	ChannelID uint64
	Moderator bool
}

// CommandDeps groups the collaborators of the command handlers.
type CommandDeps struct {
	Moderation   Moderation
	Trust        TrustScores
	Reputation   ReputationScores
	Images       ImageModeration
	Settings     SettingsManager
	Achievements Achievements
	Users        UserLister
}

// Commands dispatches slash commands.
type Commands struct {
	deps           CommandDeps
	moderatorRoles []string
	timeout        time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// NewCommands creates the command dispatcher. Members holding any of the moderator
// roles may run moderator commands in addition to those with the moderate members permission.
func NewCommands(deps CommandDeps, moderatorRoles []string, timeout time.Duration, logger *zap.Logger) *Commands {
	return &Commands{
		deps:           deps,
		moderatorRoles: moderatorRoles,
		timeout:        timeout,
		now:            time.Now,
		logger:         logger.Named("discord_commands"),
	}
}

// OnApplicationCommandInteraction defers the response and runs the command in a goroutine.
func (c *Commands) OnApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		if err := event.DeferCreateMessage(true); err != nil {
			c.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		data := event.SlashCommandInteractionData()
		name := data.CommandName()
		sub := ""
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic in application command handler", zap.Any("panic", r))
				c.respond(event, "Internal error. Please report this to an administrator.", true)
			}
			c.logger.Debug("Application command handled",
				zap.String("command", name),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx := context.Background()
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		actor := Actor{
			UserID:    uint64(event.User().ID),
			ChannelID: uint64(event.Channel().ID()),
			Moderator: c.isModerator(event),
		}

		content, err := c.Run(ctx, name, sub, slashOptions{data}, actor)
		if err != nil {
			c.logger.Warn("Command failed",
				zap.String("command", name),
				zap.Uint64("userID", actor.UserID),
				zap.Error(err))
			c.respond(event, userMessage(err), true)
			return
		}

		c.respond(event, content, false)
	}()
}

// isModerator checks the member's permissions and role names.
func (c *Commands) isModerator(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	if member == nil {
		return false
	}

	if member.Permissions.Has(discord.PermissionModerateMembers) {
		return true
	}

	guildID := event.GuildID()
	if guildID == nil {
		return false
	}

	for _, name := range RoleNames(event.Client().Caches(), *guildID, member.RoleIDs) {
		if slices.ContainsFunc(c.moderatorRoles, func(role string) bool { return strings.EqualFold(role, name) }) {
			return true
		}
	}

	return false
}

func (c *Commands) respond(event *events.ApplicationCommandInteractionCreate, content string, failed bool) {
	color := 0x2ecc71
	if failed {
		color = 0xe74c3c
	}

	embed := discord.NewEmbedBuilder().
		SetDescription(content).
		SetColor(color).
		Build()

	_, err := event.Client().Rest().UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build())
	if err != nil {
		c.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// Run executes a command and returns the response text.
func (c *Commands) Run(ctx context.Context, name, sub string, opts Options, actor Actor) (string, error) {
	if moderatorCommands[name] && !actor.Moderator {
		return "", ErrNotModerator
	}

	switch name {
	case CommandRecalcTrust:
		return c.recalcTrust(ctx, opts)
	case CommandTrust:
		return c.showTrust(ctx, opts, actor)
	case CommandReputation:
		return c.showReputation(ctx, opts, actor)
	case CommandLeaderboard:
		return c.leaderboard(ctx, opts)
	case CommandAchievements:
		return c.achievements(ctx, opts, actor)
	case CommandReportImage:
		return c.reportImage(ctx, opts, actor)
	case CommandBlacklistImage:
		hash, err := requireString(opts, "hash")
		if err != nil {
			return "", err
		}
		category, _ := opts.String("category")
		if err := c.deps.Images.Blacklist(ctx, hash, category); err != nil {
			return "", err
		}
		return fmt.Sprintf("Image `%s` is now blacklisted.", strings.ToLower(strings.TrimSpace(hash))), nil
	case CommandWhitelistImage:
		hash, err := requireString(opts, "hash")
		if err != nil {
			return "", err
		}
		if err := c.deps.Images.Whitelist(ctx, hash); err != nil {
			return "", err
		}
		return fmt.Sprintf("Image `%s` is now whitelisted.", strings.ToLower(strings.TrimSpace(hash))), nil
	case CommandResetWarnings:
		userID, err := requireUser(opts)
		if err != nil {
			return "", err
		}
		count, err := c.deps.Moderation.ResetWarnings(ctx, userID, strconv.FormatUint(actor.UserID, 10))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Reset %d active warning(s) for <@%d>.", count, userID), nil
	case CommandWarn, CommandTimeout, CommandBan, CommandKick:
		return c.manualAction(ctx, name, opts, actor)
	case CommandCase:
		return c.showCase(ctx, opts)
	case CommandCases:
		return c.listCases(ctx, opts)
	case CommandWarnings:
		return c.listWarnings(ctx, opts)
	case CommandStats:
		return c.stats(ctx, opts)
	case CommandSettings:
		return c.settingsCommand(ctx, sub, opts, actor)
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func (c *Commands) recalcTrust(ctx context.Context, opts Options) (string, error) {
	if userID, ok := opts.User("user"); ok {
		score, err := c.deps.Trust.Recalculate(ctx, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Trust for <@%d> is now **%.1f** (%s).", userID, score.Overall, score.Tier), nil
	}

	var (
		afterID uint64
		total   int
	)
	for {
		users, err := c.deps.Users.ListAfter(ctx, afterID, recalcBatchSize)
		if err != nil {
			return "", err
		}
		if len(users) == 0 {
			break
		}

		ids := make([]uint64, len(users))
		for i, user := range users {
			ids[i] = user.ID
		}

		count, err := c.deps.Trust.RecalculateAll(ctx, ids, recalcWorkers)
		total += count
		if err != nil {
			return "", fmt.Errorf("recalculated %d users before failing: %w", total, err)
		}

		afterID = ids[len(ids)-1]
	}

	return fmt.Sprintf("Recalculated trust for %d users.", total), nil
}

func (c *Commands) showTrust(ctx context.Context, opts Options, actor Actor) (string, error) {
	userID := targetUser(opts, actor)

	score, err := c.deps.Trust.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	comp := score.Components
	return fmt.Sprintf("**Trust for <@%d>: %.1f (%s)**\n"+
		"Account age: %.1f\nServer age: %.1f\nMessages: %.1f\nQuality: %.1f\n"+
		"Consistency: %.1f\nReputation: %.1f\nWarnings: %.1f",
		userID, score.Overall, score.Tier,
		comp.AccountAge, comp.ServerAge, comp.MessageCount, comp.MessageQuality,
		comp.Consistency, comp.Reputation, comp.WarningPenalty), nil
}

func (c *Commands) showReputation(ctx context.Context, opts Options, actor Actor) (string, error) {
	userID := targetUser(opts, actor)

	score, err := c.deps.Reputation.Recalculate(ctx, userID)
	if err != nil {
		return "", err
	}

	comp := score.Components
	return fmt.Sprintf("**Reputation for <@%d>: %.1f (%s)**\n"+
		"Expertise: %.1f\nCollaboration: %.1f\nConsistency: %.1f\nLeadership: %.1f",
		userID, score.Overall, score.Tier,
		comp.Expertise, comp.Collaboration, comp.Consistency, comp.Leadership), nil
}

func (c *Commands) leaderboard(ctx context.Context, opts Options) (string, error) {
	board, err := requireString(opts, "board")
	if err != nil {
		return "", err
	}

	var lines []string
	switch board {
	case "trust":
		scores, err := c.deps.Trust.Leaderboard(ctx, leaderboardSize)
		if err != nil {
			return "", err
		}
		for i, s := range scores {
			lines = append(lines, fmt.Sprintf("%d. <@%d> %.1f (%s)", i+1, s.UserID, s.Overall, s.Tier))
		}
	case "reputation":
		var scores []*types.ReputationScore
		if tier, ok := opts.String("tier"); ok && tier != "" {
			scores, err = c.deps.Reputation.ByTier(ctx, tier, leaderboardSize)
		} else {
			scores, err = c.deps.Reputation.Leaderboard(ctx, leaderboardSize)
		}
		if err != nil {
			return "", err
		}
		for i, s := range scores {
			lines = append(lines, fmt.Sprintf("%d. <@%d> %.1f (%s)", i+1, s.UserID, s.Overall, s.Tier))
		}
	default:
		return "", fmt.Errorf("unknown leaderboard %q", board)
	}

	if len(lines) == 0 {
		return "No scores yet.", nil
	}

	return "**Top " + board + "**\n" + strings.Join(lines, "\n"), nil
}

func (c *Commands) achievements(ctx context.Context, opts Options, actor Actor) (string, error) {
	userID := targetUser(opts, actor)

	ids, err := c.deps.Achievements.Unlocked(ctx, userID)
	if err != nil {
		return "", err
	}

	if len(ids) == 0 {
		return fmt.Sprintf("<@%d> has no achievements yet.", userID), nil
	}

	return fmt.Sprintf("<@%d> unlocked: %s", userID, strings.Join(ids, ", ")), nil
}

func (c *Commands) reportImage(ctx context.Context, opts Options, actor Actor) (string, error) {
	raw, err := requireString(opts, "message_id")
	if err != nil {
		return "", err
	}

	messageID, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid message ID %q", raw)
	}

	reason, _ := opts.String("reason")

	results, err := c.deps.Images.Report(ctx, messageID, actor.UserID, reason)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.AutoFlagged:
			lines = append(lines, fmt.Sprintf("`%s` reached %d reports and is now flagged.", r.PHash, r.Reports))
		case !r.Added:
			lines = append(lines, fmt.Sprintf("`%s` was already reported by you (%d/%d).", r.PHash, r.Reports, r.Threshold))
		default:
			lines = append(lines, fmt.Sprintf("`%s` reported (%d/%d).", r.PHash, r.Reports, r.Threshold))
		}
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Commands) manualAction(ctx context.Context, name string, opts Options, actor Actor) (string, error) {
	userID, err := requireUser(opts)
	if err != nil {
		return "", err
	}

	reason, err := requireString(opts, "reason")
	if err != nil {
		return "", err
	}

	action := punishment.ManualAction{
		UserID:    userID,
		Moderator: strconv.FormatUint(actor.UserID, 10),
		Reason:    reason,
		ChannelID: actor.ChannelID,
	}

	var outcome *punishment.Outcome
	switch name {
	case CommandWarn:
		if raw, ok := opts.String("severity"); ok && raw != "" {
			severity, err := enum.SeverityString(raw)
			if err != nil {
				return "", fmt.Errorf("%w: %q", enum.ErrInvalidSeverity, raw)
			}
			action.Severity = severity
		}
		outcome, err = c.deps.Moderation.Warn(ctx, action)
	case CommandTimeout:
		minutes, ok := opts.Int("minutes")
		if !ok {
			return "", fmt.Errorf("%w: minutes", ErrMissingOption)
		}
		outcome, err = c.deps.Moderation.Timeout(ctx, action, time.Duration(minutes)*time.Minute)
	case CommandBan:
		outcome, err = c.deps.Moderation.Ban(ctx, action)
	case CommandKick:
		outcome, err = c.deps.Moderation.Kick(ctx, action)
	}
	if err != nil {
		return "", err
	}

	return describeOutcome(outcome), nil
}

func (c *Commands) showCase(ctx context.Context, opts Options) (string, error) {
	id, ok := opts.Int("id")
	if !ok {
		return "", fmt.Errorf("%w: id", ErrMissingOption)
	}

	cs, err := c.deps.Moderation.Case(ctx, int64(id))
	if err != nil {
		return "", err
	}

	return formatCase(cs), nil
}

func (c *Commands) listCases(ctx context.Context, opts Options) (string, error) {
	userID, err := requireUser(opts)
	if err != nil {
		return "", err
	}

	cases, err := c.deps.Moderation.Cases(ctx, userID, casesPageSize)
	if err != nil {
		return "", err
	}

	if len(cases) == 0 {
		return fmt.Sprintf("<@%d> has no cases.", userID), nil
	}

	lines := make([]string, len(cases))
	for i, cs := range cases {
		lines[i] = formatCase(cs)
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Commands) listWarnings(ctx context.Context, opts Options) (string, error) {
	userID, err := requireUser(opts)
	if err != nil {
		return "", err
	}

	activeOnly, _ := opts.Bool("active")

	warnings, err := c.deps.Moderation.Warnings(ctx, userID, activeOnly)
	if err != nil {
		return "", err
	}

	if len(warnings) == 0 {
		return fmt.Sprintf("<@%d> has no warnings.", userID), nil
	}

	now := c.now()
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		state := "active"
		if w.ExpiresAt != nil && !w.ExpiresAt.After(now) {
			state = "expired"
		}
		lines[i] = fmt.Sprintf("#%d %s %s (%s, %s) %s <t:%d:R>",
			w.ID, w.Category, w.Severity, w.Action, state, w.Reason, w.IssuedAt.Unix())
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Commands) stats(ctx context.Context, opts Options) (string, error) {
	days, ok := opts.Int("days")
	if !ok || days <= 0 {
		days = defaultStatDays
	}

	counts, err := c.deps.Moderation.Stats(ctx, c.now().AddDate(0, 0, -days))
	if err != nil {
		return "", err
	}

	if len(counts) == 0 {
		return fmt.Sprintf("No warnings in the last %d days.", days), nil
	}

	lines := make([]string, 0, len(counts)+1)
	lines = append(lines, fmt.Sprintf("**Warnings in the last %d days**", days))
	for _, cc := range counts {
		lines = append(lines, fmt.Sprintf("%s: %d", cc.Category, cc.Count))
	}

	return strings.Join(lines, "\n"), nil
}

func (c *Commands) settingsCommand(ctx context.Context, sub string, opts Options, actor Actor) (string, error) {
	switch sub {
	case "set":
		key, err := requireString(opts, "key")
		if err != nil {
			return "", err
		}
		value, err := requireString(opts, "value")
		if err != nil {
			return "", err
		}
		if err := c.deps.Settings.Set(ctx, key, value, strconv.FormatUint(actor.UserID, 10)); err != nil {
			return "", err
		}
		current, _ := c.deps.Settings.Get(key)
		return fmt.Sprintf("`%s` = `%s`", key, current), nil
	case "get":
		key, err := requireString(opts, "key")
		if err != nil {
			return "", err
		}
		value, err := c.deps.Settings.Get(key)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("`%s` = `%s`", key, value), nil
	case "list":
		entries := c.deps.Settings.List()
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = fmt.Sprintf("`%s` = `%s`", e.Key, e.Value)
		}
		return strings.Join(lines, "\n"), nil
	}

	return "", fmt.Errorf("%w: settings %s", ErrUnknownCommand, sub)
}

func describeOutcome(outcome *punishment.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case #%d: %s for <@%d>.", outcome.Case.ID, outcome.Case.Type, outcome.Case.UserID)

	if outcome.Warning != nil {
		fmt.Fprintf(&b, " Active warnings: %d.", outcome.ActiveWarnings)
	}
	if !outcome.Enforced {
		b.WriteString(" The platform action failed.")
	}
	if !outcome.Notified {
		b.WriteString(" The user could not be notified.")
	}
	if outcome.Trust != nil {
		fmt.Fprintf(&b, " Trust is now %.1f (%s).", outcome.Trust.Overall, outcome.Trust.Tier)
	}

	return b.String()
}

func formatCase(cs *types.Case) string {
	return fmt.Sprintf("**Case #%d** %s <@%d> by %s (%s, %s) %s <t:%d:R>",
		cs.ID, cs.Type, cs.UserID, cs.CreatedBy, cs.Action, cs.Status, cs.Reason, cs.CreatedAt.Unix())
}

// userMessage turns an error into text for the member.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotModerator):
		return "You need moderator permissions for this command."
	case errors.Is(err, types.ErrCaseNotFound):
		return "That case does not exist."
	case errors.Is(err, types.ErrUserNotFound):
		return "That user has not been seen yet."
	case errors.Is(err, detector.ErrNoImages):
		return "That message has no fingerprinted images."
	case errors.Is(err, detector.ErrInvalidHash):
		return "Hashes are 16 hexadecimal digits."
	case errors.Is(err, punishment.ErrNoDuration):
		return "Timeouts need a positive duration."
	case errors.Is(err, enum.ErrInvalidSeverity), errors.Is(err, settings.ErrUnknownSetting),
		errors.Is(err, settings.ErrInvalidValue), errors.Is(err, ErrMissingOption):
		return err.Error()
	}
	return "Something went wrong. Please try again later."
}

func targetUser(opts Options, actor Actor) uint64 {
	if userID, ok := opts.User("user"); ok {
		return userID
	}
	return actor.UserID
}

func requireUser(opts Options) (uint64, error) {
	userID, ok := opts.User("user")
	if !ok {
		return 0, fmt.Errorf("%w: user", ErrMissingOption)
	}
	return userID, nil
}

func requireString(opts Options, name string) (string, error) {
	value, ok := opts.String(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingOption, name)
	}
	return value, nil
}

// slashOptions adapts slash command data to Options.
type slashOptions struct {
	data discord.SlashCommandInteractionData
}

func (o slashOptions) String(name string) (string, bool) { return o.data.OptString(name) }
func (o slashOptions) Int(name string) (int, bool)       { return o.data.OptInt(name) }
func (o slashOptions) Bool(name string) (bool, bool)     { return o.data.OptBool(name) }

func (o slashOptions) User(name string) (uint64, bool) {
	id, ok := o.data.OptSnowflake(name)
	return uint64(id), ok
}
