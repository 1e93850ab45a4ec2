package config

// Default returns the configuration used for every value a config file leaves out.
// List fields stay nil here and are filled by applyListDefaults after unmarshaling,
// since decoding a shorter list over a longer one would keep the tail.
func Default() Config {
	return Config{
		Common: CommonConfig{
			Debug: Debug{
				LogLevel:      "info",
				MaxLogsToKeep: 10,
				MaxLogLines:   100000,
			},
			Telemetry: Telemetry{
				ServiceName: "sentinel",
			},
			PostgreSQL: PostgreSQL{
				Port:         5432,
				MaxOpenConns: 20,
				MaxIdleConns: 10,
				MaxLifetime:  30,
				MaxIdleTime:  5,
			},
			Redis: Redis{
				Port: 6379,
			},
			Moderation: DefaultModeration(),
		},
		Bot: BotConfig{
			RequestTimeout: 5000,
			Discord: Discord{
				DMInterval: 1000,
				DMJitter:   250,
			},
			Pipeline: Pipeline{
				Shards:       16,
				QueueSize:    256,
				EventTimeout: 30000,
			},
		},
		Worker: WorkerConfig{
			Retention: Retention{
				MessageDays:     30,
				CleanupInterval: 60,
			},
			TrustRefresh: TrustRefresh{
				Interval:    1440,
				BatchSize:   500,
				Concurrency: 8,
			},
			Export: Export{
				Path: "sentinel_export.db",
			},
		},
	}
}

// DefaultModeration returns the scalar moderation defaults.
func DefaultModeration() Moderation {
	return Moderation{
		Detector: Detector{
			AllowLinks:               true,
			BlockAllInvites:          true,
			MaxMentions:              5,
			MaxCapsRatio:             0.7,
			MinCapsLength:            20,
			RepeatedCharThreshold:    10,
			RapidWindow:              10,
			RapidThreshold:           5,
			RapidTrustedBonus:        2,
			DuplicateWindow:          60,
			DuplicateThreshold:       3,
			DuplicateTrustedBonus:    1,
			CrossChannelWindow:       300,
			CrossChannelThreshold:    3,
			CrossChannelTrustedBonus: 1,
			TrustBypassScore:         60,
		},
		Images: Images{
			MaxSizeMB:       10,
			ReportThreshold: 3,
			HammingDistance: 0,
			DownloadTimeout: 10000,
			DownloadRate:    20,
			DownloadBurst:   10,
		},
		Trust: Trust{
			Weights: TrustWeights{
				AccountAge:     0.20,
				ServerAge:      0.15,
				MessageCount:   0.15,
				MessageQuality: 0.20,
				Consistency:    0.10,
				Warnings:       -0.30,
				Reputation:     0.20,
			},
			MinQualityRatio:   0.1,
			CacheHours:        24,
			WarningPenalty:    -15,
			WarningDecayDays:  30,
			WarningDecaySpan:  60,
			WarningDecayFloor: 0.2,
			PenaltyFloor:      -50,
		},
		Reputation: Reputation{
			Weights: ReputationWeights{
				Expertise:     0.25,
				Collaboration: 0.25,
				Consistency:   0.25,
				Leadership:    0.25,
			},
		},
		Punishment: Punishment{
			BanThreshold: 5,
			SystemActor:  "system",
		},
		Raid: Raid{
			Window:    60,
			Threshold: 5,
			Capacity:  50,
		},
	}
}

// WithListDefaults returns DefaultModeration with every list field populated.
func WithListDefaults() *Moderation {
	m := DefaultModeration()
	m.applyListDefaults()

	return &m
}

// applyListDefaults fills list fields that a config file did not set.
func (m *Moderation) applyListDefaults() {
	if m.Detector.ScamPatterns == nil {
		m.Detector.ScamPatterns = []string{
			`free\s+nitro`,
			`discord\.gift`,
			`click\s+here\s+for`,
			`dm\s+me\s+for\s+money`,
			`investment\s+opportunity`,
			`double\s+your\s+(money|crypto)`,
			`@everyone.*http`,
		}
	}

	if m.Detector.LinkWhitelist == nil {
		m.Detector.LinkWhitelist = []string{
			"discord.gg/your-server",
			"youtube.com",
			"github.com",
			"linkedin.com",
		}
	}

	if m.Detector.TrustedRoles == nil {
		m.Detector.TrustedRoles = []string{"Admin", "Moderator", "Verified", "Trusted", "VIP"}
	}

	if m.Images.AllowedFormats == nil {
		m.Images.AllowedFormats = []string{"png", "jpg", "jpeg", "gif", "webp"}
	}

	if m.Trust.Tiers == nil {
		m.Trust.Tiers = Tiers{
			{Name: "new", Min: 0, Max: 20},
			{Name: "probation", Min: 20, Max: 40},
			{Name: "member", Min: 40, Max: 60},
			{Name: "trusted", Min: 60, Max: 80},
			{Name: "vetted", Min: 80, Max: 100},
		}
	}

	if m.Reputation.Tiers == nil {
		m.Reputation.Tiers = Tiers{
			{Name: "bronze", Min: 0, Max: 25},
			{Name: "silver", Min: 25, Max: 50},
			{Name: "gold", Min: 50, Max: 75},
			{Name: "platinum", Min: 75, Max: 100},
		}
	}

	if m.Punishment.Timeouts == nil {
		m.Punishment.Timeouts = []TimeoutStep{
			{Warning: 1, Seconds: 300},
			{Warning: 2, Seconds: 1800},
			{Warning: 3, Seconds: 10800},
			{Warning: 4, Seconds: 86400},
		}
	}

	if m.Achievements == nil {
		m.Achievements = []Achievement{
			{ID: "first_message", Name: "First Words", Description: "Send your first message", Rule: "message_count_at_least", Threshold: 1},
			{ID: "century", Name: "Century", Description: "Send 100 messages", Rule: "message_count_at_least", Threshold: 100},
			{ID: "helpful", Name: "Helpful", Description: "Receive 100 reactions", Rule: "reactions_received_at_least", Threshold: 100},
			{ID: "consistent", Name: "Consistent", Description: "Keep a 30 day activity streak", Rule: "streak_at_least", Threshold: 30},
			{ID: "voice_active", Name: "Voice Regular", Description: "Spend 600 minutes in voice", Rule: "voice_minutes_at_least", Threshold: 600},
		}
	}
}
