package export

import (
	"context"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
)

// repositorySource reads the snapshot tables from the database models.
type repositorySource struct {
	repo *database.Repository
}

// FromRepository returns a Source backed by the database.
func FromRepository(repo *database.Repository) Source {
	return repositorySource{repo: repo}
}

func (s repositorySource) Users(ctx context.Context, afterID uint64, limit int) ([]*types.User, error) {
	return s.repo.User().ListAfter(ctx, afterID, limit)
}

func (s repositorySource) Warnings(ctx context.Context, afterID int64, limit int) ([]*types.Warning, error) {
	return s.repo.Warning().ListAfter(ctx, afterID, limit)
}

func (s repositorySource) Cases(ctx context.Context, afterID int64, limit int) ([]*types.Case, error) {
	return s.repo.Case().ListAfter(ctx, afterID, limit)
}

func (s repositorySource) Fingerprints(
	ctx context.Context, afterID int64, limit int,
) ([]*types.ImageFingerprint, error) {
	return s.repo.Fingerprint().ListAfter(ctx, afterID, limit)
}

func (s repositorySource) Trust(ctx context.Context, afterID uint64, limit int) ([]*types.TrustScore, error) {
	return s.repo.Score().ListTrustAfter(ctx, afterID, limit)
}

func (s repositorySource) Reputation(
	ctx context.Context, afterID uint64, limit int,
) ([]*types.ReputationScore, error) {
	return s.repo.Score().ListReputationAfter(ctx, afterID, limit)
}
