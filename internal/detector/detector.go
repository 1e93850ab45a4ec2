// Package detector classifies message and image events as abusive or clean.
package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"go.uber.org/zap"
)

// EventStore is the windowed view of the message event log.
// Every count excludes deleted events and includes events created at since.
type EventStore interface {
	Record(ctx context.Context, event *types.MessageEvent) error
	CountSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	CountByHashSince(ctx context.Context, userID uint64, hash string, since time.Time) (int, error)
	CountChannelsByHashSince(
		ctx context.Context, userID uint64, hash string, since time.Time, excludeChannel uint64,
	) (int, error)
}

// TrustProvider returns the current trust score of a user, recomputing it when stale.
type TrustProvider interface {
	Get(ctx context.Context, userID uint64) (*types.TrustScore, error)
}

// Verdict is the outcome of classifying one event.
type Verdict struct {
	Abusive  bool
	Category enum.Category
	Reason   string
	Trusted  bool // Whether relaxed thresholds applied
}

// compiledPatterns caches the scam expressions of one configuration snapshot.
type compiledPatterns struct {
	source   *config.Moderation
	patterns []*regexp.Regexp
}

// Detector runs the ordered abuse checks.
type Detector struct {
	events       EventStore
	trust        TrustProvider
	fingerprints FingerprintStore
	fetcher      Fetcher
	settings     settings.Source
	compiled     atomic.Pointer[compiledPatterns]
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a Detector.
func New(
	events EventStore,
	trust TrustProvider,
	fingerprints FingerprintStore,
	fetcher Fetcher,
	source settings.Source,
	logger *zap.Logger,
) *Detector {
	return &Detector{
		events:       events,
		trust:        trust,
		fingerprints: fingerprints,
		fetcher:      fetcher,
		settings:     source,
		logger:       logger.Named("detector"),
		now:          time.Now,
	}
}

// Classify records the message and then runs the text checks in order, stopping at the first match.
// The event is stored before any windowed check runs, so it counts toward its own windows.
func (d *Detector) Classify(ctx context.Context, msg *types.Message) (Verdict, error) {
	cfg := d.settings.Current()

	at := msg.CreatedAt
	if at.IsZero() {
		at = d.now()
	}

	hash := utils.ContentHash(msg.Content)

	err := d.events.Record(ctx, &types.MessageEvent{
		ID:              msg.ID,
		UserID:          msg.Author.UserID,
		ChannelID:       msg.ChannelID,
		Content:         msg.Content,
		ContentHash:     hash,
		AttachmentCount: len(msg.Attachments),
		MentionCount:    msg.Mentions,
		CreatedAt:       at,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to record message event: %w", err)
	}

	trusted, err := d.isTrusted(ctx, msg, &cfg.Detector)
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := d.runChecks(ctx, msg, hash, at, trusted, cfg)
	if err != nil {
		return Verdict{}, err
	}

	verdict.Trusted = trusted

	if verdict.Abusive {
		d.logger.Info("Message classified as abusive",
			zap.Uint64("userID", msg.Author.UserID),
			zap.Uint64("messageID", msg.ID),
			zap.String("category", verdict.Category.String()),
			zap.String("reason", verdict.Reason),
			zap.Bool("trusted", trusted))
	}

	return verdict, nil
}

func (d *Detector) runChecks(
	ctx context.Context, msg *types.Message, hash string, at time.Time, trusted bool, cfg *config.Moderation,
) (Verdict, error) {
	det := &cfg.Detector

	if pattern, ok := d.matchScam(msg.Content, cfg); ok {
		return abusive(enum.CategoryScam, "Scam pattern detected: "+pattern), nil
	}

	if reason, ok := checkLinks(msg.Content, trusted, det); ok {
		return abusive(enum.CategoryLinkSpam, reason), nil
	}

	if msg.Mentions > det.MaxMentions {
		return abusive(enum.CategoryMentionSpam, fmt.Sprintf("Excessive mentions (%d)", msg.Mentions)), nil
	}

	if !trusted {
		if reason, ok := checkContent(msg.Content, det); ok {
			return abusive(enum.CategoryContentSpam, reason), nil
		}
	}

	userID := msg.Author.UserID

	rapidWindow := time.Duration(det.RapidWindow) * time.Second
	recent, err := d.events.CountSince(ctx, userID, at.Add(-rapidWindow))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count recent messages: %w", err)
	}

	if recent >= threshold(det.RapidThreshold, det.RapidTrustedBonus, trusted) {
		return abusive(enum.CategoryRapidMessaging,
			fmt.Sprintf("Rapid messaging (%d messages in %ds)", recent, det.RapidWindow)), nil
	}

	duplicateWindow := time.Duration(det.DuplicateWindow) * time.Second
	duplicates, err := d.events.CountByHashSince(ctx, userID, hash, at.Add(-duplicateWindow))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count duplicate messages: %w", err)
	}

	// The count includes this event; earlier copies are compared with the threshold
	if duplicates-1 >= threshold(det.DuplicateThreshold, det.DuplicateTrustedBonus, trusted) {
		return abusive(enum.CategoryDuplicate,
			fmt.Sprintf("Duplicate messages (%d identical messages)", duplicates)), nil
	}

	crossWindow := time.Duration(det.CrossChannelWindow) * time.Second
	channels, err := d.events.CountChannelsByHashSince(ctx, userID, hash, at.Add(-crossWindow), msg.ChannelID)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to count cross-channel messages: %w", err)
	}

	if channels >= threshold(det.CrossChannelThreshold, det.CrossChannelTrustedBonus, trusted) {
		return abusive(enum.CategoryCrossChannel,
			fmt.Sprintf("Cross-channel spam (%d channels)", channels+1)), nil
	}

	return Verdict{}, nil
}

// isTrusted reports whether relaxed thresholds apply to the author.
func (d *Detector) isTrusted(ctx context.Context, msg *types.Message, det *config.Detector) (bool, error) {
	for _, role := range msg.RoleNames {
		for _, trustedRole := range det.TrustedRoles {
			if strings.EqualFold(role, trustedRole) {
				return true, nil
			}
		}
	}

	score, err := d.trust.Get(ctx, msg.Author.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to get trust score: %w", err)
	}

	return score.Overall >= det.TrustBypassScore, nil
}

// matchScam returns the first scam pattern matching content.
func (d *Detector) matchScam(content string, cfg *config.Moderation) (string, bool) {
	compiled := d.compiled.Load()
	if compiled == nil || compiled.source != cfg {
		compiled = &compiledPatterns{source: cfg}
		for _, pattern := range cfg.Detector.ScamPatterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				d.logger.Error("Skipping invalid scam pattern", zap.String("pattern", pattern), zap.Error(err))
				continue
			}
			compiled.patterns = append(compiled.patterns, re)
		}
		d.compiled.Store(compiled)
	}

	for _, re := range compiled.patterns {
		if re.MatchString(content) {
			return strings.TrimPrefix(re.String(), "(?i)"), true
		}
	}

	return "", false
}

// threshold returns the trigger count for a windowed check. It never tightens for trusted users.
func threshold(base, bonus int, trusted bool) int {
	if trusted && bonus > 0 {
		return base + bonus
	}

	return base
}

func abusive(category enum.Category, reason string) Verdict {
	return Verdict{Abusive: true, Category: category, Reason: reason}
}
