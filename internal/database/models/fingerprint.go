package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// hammingExpr is the bit distance between the stored perceptual hash and a bound hex hash.
const hammingExpr = "length(replace((('x' || p_hash)::bit(64) # ('x' || ?)::bit(64))::text, '0', ''))"

// FingerprintModel handles database operations for image fingerprints and reports.
type FingerprintModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFingerprint creates a FingerprintModel.
func NewFingerprint(db *bun.DB, logger *zap.Logger) *FingerprintModel {
	return &FingerprintModel{
		db:     db,
		logger: logger.Named("db_fingerprint"),
	}
}

// FindMatch returns the fingerprint whose perceptual hash is within maxDistance bits of phash.
// An exact match always wins. Returns types.ErrFingerprintNotFound when nothing is close enough.
func (r *FingerprintModel) FindMatch(
	ctx context.Context, phash string, maxDistance int,
) (*types.ImageFingerprint, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ImageFingerprint, error) {
		fp := new(types.ImageFingerprint)

		err := r.db.NewSelect().Model(fp).
			Where("p_hash = ?", phash).
			Scan(ctx)
		if err == nil {
			return fp, nil
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to find fingerprint: %w (phash=%s)", err, phash)
		}

		if maxDistance <= 0 {
			return nil, types.ErrFingerprintNotFound
		}

		err = r.db.NewSelect().Model(fp).
			Where(hammingExpr+" <= ?", phash, maxDistance).
			OrderExpr(hammingExpr+" ASC", phash).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrFingerprintNotFound
			}

			return nil, fmt.Errorf("failed to find similar fingerprint: %w (phash=%s)", err, phash)
		}

		return fp, nil
	})
}

// Insert stores a newly seen fingerprint. It reports false when the perceptual hash already exists.
func (r *FingerprintModel) Insert(ctx context.Context, fp *types.ImageFingerprint) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := r.db.NewInsert().Model(fp).
			On("CONFLICT (p_hash) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to insert fingerprint: %w (phash=%s)", err, fp.PHash)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// IncrementPosted counts a repost of a known image.
func (r *FingerprintModel) IncrementPosted(ctx context.Context, phash string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model((*types.ImageFingerprint)(nil)).
			Set("times_posted = times_posted + 1").
			Set("updated_at = ?", time.Now()).
			Where("p_hash = ?", phash).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment times posted: %w (phash=%s)", err, phash)
		}

		return nil
	})
}

// ListByMessage returns the fingerprints first seen on a message.
func (r *FingerprintModel) ListByMessage(ctx context.Context, messageID uint64) ([]*types.ImageFingerprint, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ImageFingerprint, error) {
		var fps []*types.ImageFingerprint

		err := r.db.NewSelect().Model(&fps).
			Where("first_seen_message_id = ?", messageID).
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list fingerprints: %w (messageID=%d)", err, messageID)
		}

		return fps, nil
	})
}

// AddReport records a community report and returns the new report count.
// A repeated report by the same reporter is ignored and leaves the count unchanged.
func (r *FingerprintModel) AddReport(ctx context.Context, report *types.ImageReport) (int, bool, error) {
	var (
		count int
		added bool
	)

	err := dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewInsert().Model(report).
			On("CONFLICT (fingerprint_id, reporter_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert report: %w (fingerprintID=%d)", err, report.FingerprintID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		added = affected > 0

		query := tx.NewUpdate().Model((*types.ImageFingerprint)(nil)).
			Set("updated_at = ?", report.CreatedAt)
		if added {
			query = query.Set("report_count = report_count + 1")
		}

		err = query.
			Where("id = ?", report.FingerprintID).
			Returning("report_count").
			Scan(ctx, &count)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrFingerprintNotFound
			}

			return fmt.Errorf("failed to update report count: %w (fingerprintID=%d)", err, report.FingerprintID)
		}

		return nil
	})

	return count, added, err
}

// Flag marks a fingerprint as spam with the given category.
func (r *FingerprintModel) Flag(ctx context.Context, fingerprintID int64, category string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().Model((*types.ImageFingerprint)(nil)).
			Set("is_spam = true").
			Set("spam_category = ?", category).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", fingerprintID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to flag fingerprint: %w (fingerprintID=%d)", err, fingerprintID)
		}

		return nil
	})
}

// Blacklist marks an image as spam, creating the fingerprint if it was never seen.
func (r *FingerprintModel) Blacklist(ctx context.Context, fp *types.ImageFingerprint) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		fp.IsSpam = true

		_, err := r.db.NewInsert().Model(fp).
			On("CONFLICT (p_hash) DO UPDATE").
			Set("is_spam = true").
			Set("spam_category = EXCLUDED.spam_category").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to blacklist fingerprint: %w (phash=%s)", err, fp.PHash)
		}

		return nil
	})
}

// Whitelist clears the spam state and reports of an image.
func (r *FingerprintModel) Whitelist(ctx context.Context, phash string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewUpdate().Model((*types.ImageFingerprint)(nil)).
			Set("is_spam = false").
			Set("spam_category = ''").
			Set("report_count = 0").
			Set("updated_at = ?", time.Now()).
			Where("p_hash = ?", phash).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to whitelist fingerprint: %w (phash=%s)", err, phash)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrFingerprintNotFound
		}

		return nil
	})
}

// ListAfter returns one page of fingerprints ordered by ID.
func (r *FingerprintModel) ListAfter(ctx context.Context, afterID int64, limit int) ([]*types.ImageFingerprint, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ImageFingerprint, error) {
		var fps []*types.ImageFingerprint

		err := r.db.NewSelect().Model(&fps).
			Where("id > ?", afterID).
			Order("id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list fingerprints: %w", err)
		}

		return fps, nil
	})
}
