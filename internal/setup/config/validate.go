package config

import (
	"fmt"
	"math"
	"regexp"
)

// Validate checks the whole configuration. Bot specific values are checked by ValidateBot.
func (c *Config) Validate() error {
	if c.Common.PostgreSQL.Host == "" {
		return fmt.Errorf("%w: postgresql.host is required", ErrConfigInvalid)
	}

	if err := c.Common.Moderation.Validate(); err != nil {
		return err
	}

	if c.Worker.Retention.MessageDays <= 0 {
		return fmt.Errorf("%w: retention.message_days must be positive", ErrConfigInvalid)
	}

	return nil
}

// ValidateBot checks the values the bot service cannot start without.
func (c *Config) ValidateBot() error {
	if c.Bot.Discord.Token == "" {
		return fmt.Errorf("%w: discord.token is required", ErrConfigInvalid)
	}

	if c.Bot.Discord.GuildID == 0 {
		return fmt.Errorf("%w: discord.guild_id is required", ErrConfigInvalid)
	}

	if c.Bot.Pipeline.Shards <= 0 || c.Bot.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("%w: pipeline shards and queue_size must be positive", ErrConfigInvalid)
	}

	return nil
}

// Validate checks moderation parameters so the core never runs with undefined thresholds.
func (m *Moderation) Validate() error {
	for _, pattern := range m.Detector.ScamPatterns {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return fmt.Errorf("%w: scam pattern %q: %w", ErrConfigInvalid, pattern, err)
		}
	}

	positives := map[string]int{
		"detector.max_mentions":            m.Detector.MaxMentions,
		"detector.min_caps_length":         m.Detector.MinCapsLength,
		"detector.repeated_char_threshold": m.Detector.RepeatedCharThreshold,
		"detector.rapid_window":            m.Detector.RapidWindow,
		"detector.rapid_threshold":         m.Detector.RapidThreshold,
		"detector.duplicate_window":        m.Detector.DuplicateWindow,
		"detector.duplicate_threshold":     m.Detector.DuplicateThreshold,
		"detector.cross_channel_window":    m.Detector.CrossChannelWindow,
		"detector.cross_channel_threshold": m.Detector.CrossChannelThreshold,
		"images.max_size_mb":               m.Images.MaxSizeMB,
		"images.report_threshold":          m.Images.ReportThreshold,
		"images.download_timeout":          m.Images.DownloadTimeout,
		"trust.cache_hours":                m.Trust.CacheHours,
		"raid.window":                      m.Raid.Window,
		"raid.threshold":                   m.Raid.Threshold,
		"raid.capacity":                    m.Raid.Capacity,
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrConfigInvalid, name)
		}
	}

	if m.Detector.RapidTrustedBonus < 0 || m.Detector.DuplicateTrustedBonus < 0 || m.Detector.CrossChannelTrustedBonus < 0 {
		return fmt.Errorf("%w: trusted bonuses cannot be negative", ErrConfigInvalid)
	}

	if m.Detector.MaxCapsRatio <= 0 || m.Detector.MaxCapsRatio > 1 {
		return fmt.Errorf("%w: detector.max_caps_ratio must be in (0, 1]", ErrConfigInvalid)
	}

	if m.Images.HammingDistance < 0 || m.Images.HammingDistance > 64 {
		return fmt.Errorf("%w: images.hamming_distance must be in [0, 64]", ErrConfigInvalid)
	}

	if m.Raid.Capacity < m.Raid.Threshold {
		return fmt.Errorf("%w: raid.capacity must hold at least raid.threshold joins", ErrConfigInvalid)
	}

	if m.Trust.MinQualityRatio <= 0 {
		return fmt.Errorf("%w: trust.min_quality_ratio must be positive", ErrConfigInvalid)
	}

	if m.Trust.WarningDecaySpan <= 0 || m.Trust.WarningDecayDays < 0 {
		return fmt.Errorf("%w: trust warning decay must be positive", ErrConfigInvalid)
	}

	if m.Punishment.BanThreshold < 2 {
		return fmt.Errorf("%w: punishment.ban_threshold must be at least 2", ErrConfigInvalid)
	}

	for _, step := range m.Punishment.Timeouts {
		if step.Warning <= 0 || step.Seconds < 0 {
			return fmt.Errorf("%w: punishment timeout for warning %d is invalid", ErrConfigInvalid, step.Warning)
		}
	}

	if err := m.Trust.Tiers.validate("trust.tiers"); err != nil {
		return err
	}

	if err := m.Reputation.Tiers.validate("reputation.tiers"); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(m.Achievements))
	for _, achievement := range m.Achievements {
		if achievement.ID == "" || achievement.Rule == "" {
			return fmt.Errorf("%w: achievements need an id and a rule", ErrConfigInvalid)
		}

		if _, ok := seen[achievement.ID]; ok {
			return fmt.Errorf("%w: duplicate achievement %q", ErrConfigInvalid, achievement.ID)
		}

		seen[achievement.ID] = struct{}{}
	}

	return nil
}

// validate checks that the bands are contiguous across [0, 100].
func (t Tiers) validate(name string) error {
	if len(t) == 0 {
		return fmt.Errorf("%w: %s cannot be empty", ErrConfigInvalid, name)
	}

	const epsilon = 1e-9

	if math.Abs(t[0].Min) > epsilon || math.Abs(t[len(t)-1].Max-100) > epsilon {
		return fmt.Errorf("%w: %s must span 0 to 100", ErrConfigInvalid, name)
	}

	for i, tier := range t {
		if tier.Name == "" || tier.Max <= tier.Min {
			return fmt.Errorf("%w: %s band %d is invalid", ErrConfigInvalid, name, i)
		}

		if i > 0 && math.Abs(t[i-1].Max-tier.Min) > epsilon {
			return fmt.Errorf("%w: %s bands %d and %d are not contiguous", ErrConfigInvalid, name, i-1, i)
		}
	}

	return nil
}
