package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SettingModel handles persisted admin overrides.
type SettingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSetting creates a SettingModel.
func NewSetting(db *bun.DB, logger *zap.Logger) *SettingModel {
	return &SettingModel{
		db:     db,
		logger: logger.Named("db_setting"),
	}
}

// GetSetting retrieves one override.
func (r *SettingModel) GetSetting(ctx context.Context, key string) (*types.Setting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Setting, error) {
		setting := new(types.Setting)

		err := r.db.NewSelect().Model(setting).
			Where("key = ?", key).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrSettingNotFound
			}

			return nil, fmt.Errorf("failed to get setting: %w (key=%s)", err, key)
		}

		return setting, nil
	})
}

// ListSettings returns every override ordered by key.
func (r *SettingModel) ListSettings(ctx context.Context) ([]*types.Setting, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Setting, error) {
		var settings []*types.Setting

		err := r.db.NewSelect().Model(&settings).
			Order("key ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list settings: %w", err)
		}

		return settings, nil
	})
}

// SaveSetting creates or replaces an override.
func (r *SettingModel) SaveSetting(ctx context.Context, setting *types.Setting) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(setting).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_by = EXCLUDED.updated_by").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save setting: %w (key=%s)", err, setting.Key)
		}

		return nil
	})
}
