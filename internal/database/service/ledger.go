package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// LedgerService writes cases and warnings together.
type LedgerService struct {
	db      *bun.DB
	warning *models.WarningModel
	cases   *models.CaseModel
	logger  *zap.Logger
}

// NewLedger creates a new ledger service.
func NewLedger(db *bun.DB, warning *models.WarningModel, cases *models.CaseModel, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		db:      db,
		warning: warning,
		cases:   cases,
		logger:  logger.Named("ledger_service"),
	}
}

// Record stores a punishment atomically. build receives the user's active warning count
// before the new entry and may be called again when the transaction is retried.
// Record returns the stored punishment and the active warning count afterwards.
// The warning, when present, is linked to the new case.
func (s *LedgerService) Record(
	ctx context.Context, userID uint64, now time.Time, build func(prior int) *types.Punishment,
) (*types.Punishment, int, error) {
	var (
		p      *types.Punishment
		active int
	)

	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		// Concurrent records for one user wait here so each sees the previous count
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", int64(userID)); err != nil {
			return fmt.Errorf("failed to lock user ledger: %w", err)
		}

		prior, err := s.warning.CountActive(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		p = build(prior)

		if err := s.cases.Insert(ctx, tx, p.Case); err != nil {
			return err
		}

		if p.Warning != nil {
			p.Warning.CaseID = p.Case.ID
			if err := s.warning.Insert(ctx, tx, p.Warning); err != nil {
				return err
			}
		}

		active, err = s.warning.CountActive(ctx, tx, userID, now)

		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to record punishment: %w", err)
	}

	s.logger.Debug("Recorded punishment",
		zap.Int64("caseID", p.Case.ID),
		zap.Uint64("userID", userID),
		zap.Int("activeWarnings", active))

	return p, active, nil
}
