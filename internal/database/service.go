package database

import (
	"github.com/robalyx/sentinel/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	ledger *service.LedgerService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		ledger: service.NewLedger(db, repository.Warning(), repository.Case(), logger),
	}
}

// Ledger returns the punishment ledger service.
func (s *Service) Ledger() *service.LedgerService {
	return s.ledger
}
