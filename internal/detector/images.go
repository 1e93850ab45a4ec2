package detector

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/fetcher"
	"github.com/robalyx/sentinel/internal/imagehash"
	"go.uber.org/zap"
)

// FingerprintStore is the image fingerprint table.
type FingerprintStore interface {
	// FindMatch returns types.ErrFingerprintNotFound when no fingerprint is within maxDistance bits.
	FindMatch(ctx context.Context, phash string, maxDistance int) (*types.ImageFingerprint, error)
	// Insert reports false when the perceptual hash already exists.
	Insert(ctx context.Context, fp *types.ImageFingerprint) (bool, error)
	IncrementPosted(ctx context.Context, phash string) error
}

// Fetcher downloads attachment data.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageVerdict is the outcome of classifying one image.
type ImageVerdict struct {
	Verdict
	Fingerprint *types.ImageFingerprint // Nil when the image could not be fingerprinted
}

// ClassifyImage fingerprints an image and compares it with known images.
// Oversized payloads are abusive; undecodable payloads are allowed.
func (d *Detector) ClassifyImage(
	ctx context.Context, data []byte, att types.Attachment, msg *types.Message,
) (ImageVerdict, error) {
	cfg := d.settings.Current().Images

	if maxBytes := cfg.MaxImageBytes(); int64(len(data)) > maxBytes {
		return ImageVerdict{Verdict: abusive(enum.CategoryImageSpam,
			fmt.Sprintf("Image too large (%.1fMB)", float64(len(data))/(1024*1024)))}, nil
	}

	img, err := imagehash.Decode(data)
	if err != nil {
		d.logger.Debug("Could not process image, allowing",
			zap.String("filename", att.Filename),
			zap.Error(err))
		return ImageVerdict{}, nil
	}

	hashes, err := imagehash.Compute(img)
	if err != nil {
		d.logger.Debug("Could not fingerprint image, allowing",
			zap.String("filename", att.Filename),
			zap.Error(err))
		return ImageVerdict{}, nil
	}

	existing, err := d.fingerprints.FindMatch(ctx, hashes.PHash, cfg.HammingDistance)
	if err == nil && !withinDistance(existing.PHash, hashes.PHash, cfg.HammingDistance) {
		existing, err = nil, types.ErrFingerprintNotFound
	}

	switch {
	case err == nil:
		if existing.IsSpam {
			category, err := enum.CategoryString(existing.SpamCategory)
			if err != nil || category == enum.CategoryNone {
				category = enum.CategorySpam
			}

			return ImageVerdict{
				Verdict:     abusive(category, fmt.Sprintf("Known spam image (category: %s)", category)),
				Fingerprint: existing,
			}, nil
		}

		if err := d.fingerprints.IncrementPosted(ctx, existing.PHash); err != nil {
			return ImageVerdict{}, fmt.Errorf("failed to count image repost: %w", err)
		}

		existing.TimesPosted++

		return ImageVerdict{Fingerprint: existing}, nil
	case !errors.Is(err, types.ErrFingerprintNotFound):
		return ImageVerdict{}, fmt.Errorf("failed to look up image fingerprint: %w", err)
	}

	now := d.now()
	fp := &types.ImageFingerprint{
		DHash:              hashes.DHash,
		PHash:              hashes.PHash,
		AHash:              hashes.AHash,
		Filename:           att.Filename,
		OriginalURL:        att.URL,
		FirstSeenUserID:    msg.Author.UserID,
		FirstSeenChannelID: msg.ChannelID,
		FirstSeenMessageID: msg.ID,
		TimesPosted:        1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	inserted, err := d.fingerprints.Insert(ctx, fp)
	if err != nil {
		return ImageVerdict{}, fmt.Errorf("failed to store image fingerprint: %w", err)
	}

	// Another event stored the same hash first
	if !inserted {
		if err := d.fingerprints.IncrementPosted(ctx, fp.PHash); err != nil {
			return ImageVerdict{}, fmt.Errorf("failed to count image repost: %w", err)
		}
	}

	return ImageVerdict{Fingerprint: fp}, nil
}

// withinDistance reports whether a stored match is close enough to count as the same image.
func withinDistance(stored, computed string, maxDistance int) bool {
	distance, err := imagehash.Distance(stored, computed)
	return err == nil && distance <= maxDistance
}

// Check classifies the text of a message and, if it is clean, each image attachment.
// The message is abusive if any image is. Download failures allow the image.
func (d *Detector) Check(ctx context.Context, msg *types.Message) (Verdict, error) {
	verdict, err := d.Classify(ctx, msg)
	if err != nil || verdict.Abusive {
		return verdict, err
	}

	cfg := d.settings.Current().Images

	for _, att := range msg.Attachments {
		if !allowedFormat(att.Filename, cfg.AllowedFormats) {
			continue
		}

		if att.Size > cfg.MaxImageBytes() {
			mb := float64(att.Size) / (1024 * 1024)
			return abusive(enum.CategoryImageSpam, fmt.Sprintf("Image too large (%.1fMB)", mb)), nil
		}

		data, err := d.fetcher.Fetch(ctx, att.URL)
		if err != nil {
			if errors.Is(err, fetcher.ErrTooLarge) {
				return abusive(enum.CategoryImageSpam, "Image too large"), nil
			}

			d.logger.Warn("Failed to download attachment, allowing",
				zap.Uint64("messageID", msg.ID),
				zap.String("filename", att.Filename),
				zap.Error(err))

			continue
		}

		result, err := d.ClassifyImage(ctx, data, att, msg)
		if err != nil {
			return Verdict{}, err
		}

		if result.Abusive {
			d.logger.Info("Image classified as abusive",
				zap.Uint64("userID", msg.Author.UserID),
				zap.Uint64("messageID", msg.ID),
				zap.String("filename", att.Filename),
				zap.String("reason", result.Reason))

			result.Verdict.Trusted = verdict.Trusted

			return result.Verdict, nil
		}
	}

	return verdict, nil
}

// allowedFormat reports whether the file extension is fingerprinted.
func allowedFormat(filename string, formats []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return false
	}

	for _, format := range formats {
		if strings.EqualFold(format, ext) {
			return true
		}
	}

	return false
}
