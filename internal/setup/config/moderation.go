package config

import (
	"time"
)

// Moderation contains every tunable of the detection, scoring and punishment core.
type Moderation struct {
	Detector     Detector      `koanf:"detector"`
	Images       Images        `koanf:"images"`
	Trust        Trust         `koanf:"trust"`
	Reputation   Reputation    `koanf:"reputation"`
	Punishment   Punishment    `koanf:"punishment"`
	Raid         Raid          `koanf:"raid"`
	Achievements []Achievement `koanf:"achievements"`
}

// Detector configures the ordered text checks.
type Detector struct {
	// Case-insensitive scam regular expressions.
	ScamPatterns []string `koanf:"scam_patterns"`
	// Allow non-trusted users to post links at all.
	AllowLinks bool `koanf:"allow_links"`
	// Block invites that are not whitelisted.
	BlockAllInvites bool `koanf:"block_all_invites"`
	// Domains and invite paths that are always allowed.
	LinkWhitelist []string `koanf:"link_whitelist"`
	// Maximum mentions per message.
	MaxMentions int `koanf:"max_mentions"`
	// Uppercase ratio at which a message counts as excessive caps.
	MaxCapsRatio float64 `koanf:"max_caps_ratio"`
	// Minimum message length for the caps check.
	MinCapsLength int `koanf:"min_caps_length"`
	// Consecutive repeats of one character that count as spam.
	RepeatedCharThreshold int `koanf:"repeated_char_threshold"`
	// Rapid messaging window in seconds.
	RapidWindow int `koanf:"rapid_window"`
	// Messages inside the rapid window that trigger.
	RapidThreshold int `koanf:"rapid_threshold"`
	// Added to the rapid threshold for trusted users.
	RapidTrustedBonus int `koanf:"rapid_trusted_bonus"`
	// Duplicate window in seconds.
	DuplicateWindow int `koanf:"duplicate_window"`
	// Identical messages inside the duplicate window that trigger.
	DuplicateThreshold int `koanf:"duplicate_threshold"`
	// Added to the duplicate threshold for trusted users.
	DuplicateTrustedBonus int `koanf:"duplicate_trusted_bonus"`
	// Cross-channel window in seconds.
	CrossChannelWindow int `koanf:"cross_channel_window"`
	// Other channels with identical content that trigger.
	CrossChannelThreshold int `koanf:"cross_channel_threshold"`
	// Added to the cross-channel threshold for trusted users.
	CrossChannelTrustedBonus int `koanf:"cross_channel_trusted_bonus"`
	// Trust score at which a user is treated as trusted.
	TrustBypassScore float64 `koanf:"trust_bypass_score"`
	// Role names that make a member trusted regardless of score.
	TrustedRoles []string `koanf:"trusted_roles"`
}

// Images configures image fingerprinting.
type Images struct {
	// Maximum attachment size in megabytes.
	MaxSizeMB int `koanf:"max_size_mb"`
	// File extensions that are fingerprinted.
	AllowedFormats []string `koanf:"allowed_formats"`
	// Community reports that flag an image automatically.
	ReportThreshold int `koanf:"report_threshold"`
	// Maximum perceptual hash bit distance for a match. Zero means exact match only.
	HammingDistance int `koanf:"hamming_distance"`
	// Download timeout in milliseconds.
	DownloadTimeout int `koanf:"download_timeout"`
	// Downloads per second across all users.
	DownloadRate float64 `koanf:"download_rate"`
	// Download burst size.
	DownloadBurst int `koanf:"download_burst"`
}

// Trust configures the trust scorer.
type Trust struct {
	Weights TrustWeights `koanf:"weights"`
	Tiers   Tiers        `koanf:"tiers"`
	// Reactions per message treated as good quality.
	MinQualityRatio float64 `koanf:"min_quality_ratio"`
	// Hours a computed score stays fresh.
	CacheHours int `koanf:"cache_hours"`
	// Penalty applied per warning before severity and decay.
	WarningPenalty float64 `koanf:"warning_penalty"`
	// Days before a warning starts to decay.
	WarningDecayDays int `koanf:"warning_decay_days"`
	// Days over which a warning decays down to the floor.
	WarningDecaySpan int `koanf:"warning_decay_span"`
	// Minimum fraction of the penalty a decayed warning keeps.
	WarningDecayFloor float64 `koanf:"warning_decay_floor"`
	// Lowest total warning penalty.
	PenaltyFloor float64 `koanf:"penalty_floor"`
}

// TrustWeights are the trust component weights.
type TrustWeights struct {
	AccountAge     float64 `koanf:"account_age"`
	ServerAge      float64 `koanf:"server_age"`
	MessageCount   float64 `koanf:"message_count"`
	MessageQuality float64 `koanf:"message_quality"`
	Consistency    float64 `koanf:"consistency"`
	Warnings       float64 `koanf:"warnings"`
	Reputation     float64 `koanf:"reputation"`
}

// Reputation configures the reputation scorer.
type Reputation struct {
	Weights ReputationWeights `koanf:"weights"`
	Tiers   Tiers             `koanf:"tiers"`
}

// ReputationWeights are the reputation component weights.
type ReputationWeights struct {
	Expertise     float64 `koanf:"expertise"`
	Collaboration float64 `koanf:"collaboration"`
	Consistency   float64 `koanf:"consistency"`
	Leadership    float64 `koanf:"leadership"`
}

// Punishment configures the escalation table.
type Punishment struct {
	// Active warnings at which the user is banned.
	BanThreshold int `koanf:"ban_threshold"`
	// Timeout per warning ordinal.
	Timeouts []TimeoutStep `koanf:"timeouts"`
	// Actor recorded on automatic cases.
	SystemActor string `koanf:"system_actor"`
}

// TimeoutStep maps a warning ordinal to a timeout duration.
type TimeoutStep struct {
	Warning int `koanf:"warning"`
	Seconds int `koanf:"seconds"`
}

// Raid configures join-burst detection.
type Raid struct {
	// Window in seconds.
	Window int `koanf:"window"`
	// Joins inside the window that raise an alert.
	Threshold int `koanf:"threshold"`
	// Join timestamps retained.
	Capacity int `koanf:"capacity"`
}

// Achievement is a configured achievement rule.
type Achievement struct {
	ID          string `koanf:"id"`
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	// Rule kind, e.g. "message_count_at_least".
	Rule string `koanf:"rule"`
	// Threshold the rule compares against.
	Threshold int64 `koanf:"threshold"`
}

// Tier is a named score band. Min is inclusive, Max is exclusive except for the top band.
type Tier struct {
	Name string  `koanf:"name"`
	Min  float64 `koanf:"min"`
	Max  float64 `koanf:"max"`
}

// Tiers is an ordered list of non-overlapping bands.
type Tiers []Tier

// Resolve returns the name of the band containing score.
func (t Tiers) Resolve(score float64) string {
	if len(t) == 0 {
		return ""
	}

	for i, tier := range t {
		last := i == len(t)-1
		if score >= tier.Min && (score < tier.Max || (last && score <= tier.Max)) {
			return tier.Name
		}
	}

	if score < t[0].Min {
		return t[0].Name
	}

	return t[len(t)-1].Name
}

// TimeoutFor returns the configured timeout for a warning ordinal.
func (p *Punishment) TimeoutFor(ordinal int) (time.Duration, bool) {
	for _, step := range p.Timeouts {
		if step.Warning == ordinal && step.Seconds > 0 {
			return time.Duration(step.Seconds) * time.Second, true
		}
	}

	return 0, false
}

// MaxImageBytes returns the image size ceiling in bytes.
func (i *Images) MaxImageBytes() int64 {
	return int64(i.MaxSizeMB) * 1024 * 1024
}

// Clone returns a deep copy so overrides never mutate a published snapshot.
func (m *Moderation) Clone() *Moderation {
	c := *m
	c.Detector.ScamPatterns = append([]string(nil), m.Detector.ScamPatterns...)
	c.Detector.LinkWhitelist = append([]string(nil), m.Detector.LinkWhitelist...)
	c.Detector.TrustedRoles = append([]string(nil), m.Detector.TrustedRoles...)
	c.Images.AllowedFormats = append([]string(nil), m.Images.AllowedFormats...)
	c.Trust.Tiers = append(Tiers(nil), m.Trust.Tiers...)
	c.Reputation.Tiers = append(Tiers(nil), m.Reputation.Tiers...)
	c.Punishment.Timeouts = append([]TimeoutStep(nil), m.Punishment.Timeouts...)
	c.Achievements = append([]Achievement(nil), m.Achievements...)

	return &c
}
