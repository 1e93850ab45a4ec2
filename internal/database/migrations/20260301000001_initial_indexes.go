package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Windowed detector queries
			CREATE INDEX IF NOT EXISTS idx_message_events_user_time
			ON message_events (user_id, created_at DESC)
			WHERE deleted = false;

			CREATE INDEX IF NOT EXISTS idx_message_events_user_hash_time
			ON message_events (user_id, content_hash, created_at DESC)
			WHERE deleted = false;

			-- Retention cleanup
			CREATE INDEX IF NOT EXISTS idx_message_events_created
			ON message_events (created_at);

			-- Community reports resolve fingerprints by message
			CREATE INDEX IF NOT EXISTS idx_image_fingerprints_message
			ON image_fingerprints (first_seen_message_id);

			-- Warning ledger
			CREATE INDEX IF NOT EXISTS idx_warnings_user_issued
			ON warnings (user_id, issued_at DESC);

			CREATE INDEX IF NOT EXISTS idx_warnings_issued_category
			ON warnings (issued_at, category);

			-- Case lookup
			CREATE INDEX IF NOT EXISTS idx_cases_user_created
			ON cases (user_id, created_at DESC);

			-- Leaderboards
			CREATE INDEX IF NOT EXISTS idx_trust_scores_overall
			ON trust_scores (overall DESC);

			CREATE INDEX IF NOT EXISTS idx_reputation_scores_tier_overall
			ON reputation_scores (tier, overall DESC);

			-- Stale trust refresh
			CREATE INDEX IF NOT EXISTS idx_users_last_seen
			ON users (last_seen)
			WHERE is_banned = false;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_message_events_user_time;
			DROP INDEX IF EXISTS idx_message_events_user_hash_time;
			DROP INDEX IF EXISTS idx_message_events_created;
			DROP INDEX IF EXISTS idx_image_fingerprints_message;
			DROP INDEX IF EXISTS idx_warnings_user_issued;
			DROP INDEX IF EXISTS idx_warnings_issued_category;
			DROP INDEX IF EXISTS idx_cases_user_created;
			DROP INDEX IF EXISTS idx_trust_scores_overall;
			DROP INDEX IF EXISTS idx_reputation_scores_tier_overall;
			DROP INDEX IF EXISTS idx_users_last_seen;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
