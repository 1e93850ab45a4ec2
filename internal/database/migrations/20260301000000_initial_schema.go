package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
)

// schemaModels lists tables in creation order.
var schemaModels = []any{
	(*types.User)(nil),
	(*types.MessageEvent)(nil),
	(*types.ChannelActivity)(nil),
	(*types.ImageFingerprint)(nil),
	(*types.ImageReport)(nil),
	(*types.Case)(nil),
	(*types.Warning)(nil),
	(*types.TrustScore)(nil),
	(*types.ReputationScore)(nil),
	(*types.UserAchievement)(nil),
	(*types.Setting)(nil),
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range schemaModels {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for i := len(schemaModels) - 1; i >= 0; i-- {
			_, err := db.NewDropTable().
				Model(schemaModels[i]).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", schemaModels[i], err)
			}
		}

		return nil
	})
}
