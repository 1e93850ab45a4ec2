// Package raid detects bursts of member joins.
package raid

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/sentinel/internal/settings"
	"go.uber.org/zap"
)

const (
	joinsKeyPrefix = "raid:joins:"
	alertKeyPrefix = "raid:alert:"
)

// Alert describes a detected join burst.
type Alert struct {
	GuildID uint64
	Joins   int
	Window  time.Duration
	At      time.Time
}

// Tracker keeps a capped rolling window of join timestamps per guild in Redis.
type Tracker struct {
	client   rueidis.Client
	settings settings.Source
	logger   *zap.Logger
}

// NewTracker creates a Tracker.
func NewTracker(client rueidis.Client, source settings.Source, logger *zap.Logger) *Tracker {
	return &Tracker{
		client:   client,
		settings: source,
		logger:   logger.Named("raid"),
	}
}

// RecordJoin stores a join and returns an alert when the trailing window holds
// at least the configured number of joins. Only one alert is raised per window;
// later joins inside the cooldown return nil. No punitive action is taken.
func (t *Tracker) RecordJoin(ctx context.Context, guildID, userID uint64, at time.Time) (*Alert, error) {
	cfg := t.settings.Current().Raid
	window := time.Duration(cfg.Window) * time.Second
	key := joinsKeyPrefix + strconv.FormatUint(guildID, 10)
	member := strconv.FormatUint(userID, 10) + ":" + strconv.FormatInt(at.UnixNano(), 10)
	since := at.Add(-window).UnixMilli()

	results := t.client.DoMulti(ctx,
		t.client.B().Zadd().Key(key).ScoreMember().ScoreMember(float64(at.UnixMilli()), member).Build(),
		t.client.B().Zremrangebyrank().Key(key).Start(0).Stop(int64(-(cfg.Capacity + 1))).Build(),
		t.client.B().Zcount().Key(key).Min(strconv.FormatInt(since, 10)).Max("+inf").Build(),
		t.client.B().Expire().Key(key).Seconds(int64(cfg.Window)*2).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("failed to record join: %w", err)
		}
	}

	joins, err := results[2].ToInt64()
	if err != nil {
		return nil, fmt.Errorf("failed to count joins: %w", err)
	}

	if joins < int64(cfg.Threshold) {
		return nil, nil
	}

	err = t.client.Do(ctx, t.client.B().Set().
		Key(alertKeyPrefix+strconv.FormatUint(guildID, 10)).
		Value(strconv.FormatInt(at.Unix(), 10)).
		Nx().
		Px(window).
		Build()).Error()
	if rueidis.IsRedisNil(err) {
		t.logger.Debug("Raid alert suppressed by cooldown",
			zap.Uint64("guildID", guildID),
			zap.Int64("joins", joins))
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to set raid alert cooldown: %w", err)
	}

	t.logger.Warn("Possible raid detected",
		zap.Uint64("guildID", guildID),
		zap.Int64("joins", joins),
		zap.Duration("window", window))

	return &Alert{
		GuildID: guildID,
		Joins:   int(joins),
		Window:  window,
		At:      at,
	}, nil
}

// Size returns how many join timestamps are retained for a guild.
func (t *Tracker) Size(ctx context.Context, guildID uint64) (int64, error) {
	count, err := t.client.Do(ctx,
		t.client.B().Zcard().Key(joinsKeyPrefix+strconv.FormatUint(guildID, 10)).Build(),
	).ToInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to get join window size: %w", err)
	}

	return count, nil
}
