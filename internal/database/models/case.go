package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CaseModel handles moderation case records.
type CaseModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCase creates a CaseModel.
func NewCase(db *bun.DB, logger *zap.Logger) *CaseModel {
	return &CaseModel{
		db:     db,
		logger: logger.Named("db_case"),
	}
}

// Insert adds a case using the given connection or transaction and fills its ID.
func (r *CaseModel) Insert(ctx context.Context, idb bun.IDB, c *types.Case) error {
	_, err := idb.NewInsert().Model(c).Returning("id").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w (userID=%d)", err, c.UserID)
	}

	return nil
}

// GetCase retrieves a case by ID.
func (r *CaseModel) GetCase(ctx context.Context, caseID int64) (*types.Case, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Case, error) {
		c := new(types.Case)

		err := r.db.NewSelect().Model(c).
			Where("id = ?", caseID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrCaseNotFound
			}

			return nil, fmt.Errorf("failed to get case: %w (caseID=%d)", err, caseID)
		}

		return c, nil
	})
}

// ListByUser returns the newest cases of a user.
func (r *CaseModel) ListByUser(ctx context.Context, userID uint64, limit int) ([]*types.Case, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Case, error) {
		var cases []*types.Case

		err := r.db.NewSelect().Model(&cases).
			Where("user_id = ?", userID).
			Order("created_at DESC", "id DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list cases: %w (userID=%d)", err, userID)
		}

		return cases, nil
	})
}

// UpdateStatus changes the status of a case, the only mutable field.
func (r *CaseModel) UpdateStatus(ctx context.Context, caseID int64, status enum.CaseStatus) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewUpdate().Model((*types.Case)(nil)).
			Set("status = ?", status).
			Where("id = ?", caseID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update case status: %w (caseID=%d)", err, caseID)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrCaseNotFound
		}

		return nil
	})
}

// ListAfter returns one page of cases ordered by ID.
func (r *CaseModel) ListAfter(ctx context.Context, afterID int64, limit int) ([]*types.Case, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Case, error) {
		var cases []*types.Case

		err := r.db.NewSelect().Model(&cases).
			Where("id > ?", afterID).
			Order("id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list cases: %w", err)
		}

		return cases, nil
	})
}
