package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/imagehash"
	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
)

var (
	// ErrNoImages is returned when a reported message has no fingerprinted image.
	ErrNoImages = errors.New("no known image on message")
	// ErrInvalidHash is returned for malformed perceptual hashes.
	ErrInvalidHash = errors.New("invalid perceptual hash")
)

// ReportStore is the moderation side of the fingerprint table.
type ReportStore interface {
	ListByMessage(ctx context.Context, messageID uint64) ([]*types.ImageFingerprint, error)
	AddReport(ctx context.Context, report *types.ImageReport) (int, bool, error)
	Flag(ctx context.Context, fingerprintID int64, category string) error
	Blacklist(ctx context.Context, fp *types.ImageFingerprint) error
	Whitelist(ctx context.Context, phash string) error
}

// ReportResult is the state of one image after a community report.
type ReportResult struct {
	FingerprintID int64
	PHash         string
	Reports       int
	Threshold     int
	Added         bool // False when the reporter had already reported this image
	AutoFlagged   bool // True when this report crossed the threshold
}

// Images handles community reports and moderator image lists.
type Images struct {
	store    ReportStore
	settings settings.Source
	logger   *zap.Logger
}

// NewImages creates an Images handler.
func NewImages(store ReportStore, source settings.Source, logger *zap.Logger) *Images {
	return &Images{
		store:    store,
		settings: source,
		logger:   logger.Named("image_reports"),
	}
}

// Report records a community report against every image first seen on a message.
// Images reaching the report threshold are flagged as community reported spam.
func (i *Images) Report(ctx context.Context, messageID, reporterID uint64, reason string) ([]ReportResult, error) {
	fps, err := i.store.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if len(fps) == 0 {
		return nil, ErrNoImages
	}

	limit := i.settings.Current().Images.ReportThreshold
	results := make([]ReportResult, 0, len(fps))

	for _, fp := range fps {
		count, added, err := i.store.AddReport(ctx, &types.ImageReport{
			FingerprintID: fp.ID,
			ReporterID:    reporterID,
			Reason:        reason,
			CreatedAt:     time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to report image: %w", err)
		}

		result := ReportResult{
			FingerprintID: fp.ID,
			PHash:         fp.PHash,
			Reports:       count,
			Threshold:     limit,
			Added:         added,
		}

		if count >= limit && !fp.IsSpam {
			if err := i.store.Flag(ctx, fp.ID, enum.CategoryCommunityReported.String()); err != nil {
				return nil, fmt.Errorf("failed to flag reported image: %w", err)
			}

			result.AutoFlagged = true

			i.logger.Info("Image flagged by community reports",
				zap.Int64("fingerprintID", fp.ID),
				zap.Int("reports", count))
		}

		results = append(results, result)
	}

	return results, nil
}

// Blacklist marks an image as spam so future posts are abusive. Category defaults to manual.
func (i *Images) Blacklist(ctx context.Context, phash, category string) error {
	phash = strings.ToLower(strings.TrimSpace(phash))
	if !imagehash.Valid(phash) {
		return fmt.Errorf("%w: %q", ErrInvalidHash, phash)
	}

	if category == "" {
		category = enum.CategoryManual.String()
	}

	now := time.Now()

	return i.store.Blacklist(ctx, &types.ImageFingerprint{
		PHash:        phash,
		SpamCategory: category,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Whitelist clears the spam state and reports of an image.
func (i *Images) Whitelist(ctx context.Context, phash string) error {
	phash = strings.ToLower(strings.TrimSpace(phash))
	if !imagehash.Valid(phash) {
		return fmt.Errorf("%w: %q", ErrInvalidHash, phash)
	}

	return i.store.Whitelist(ctx, phash)
}
