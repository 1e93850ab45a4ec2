package discord

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/json"
	"github.com/robalyx/sentinel/internal/settings"
)

// Command names.
const (
	CommandRecalcTrust    = "recalc-trust"
	CommandTrust          = "trust"
	CommandReputation     = "reputation"
	CommandLeaderboard    = "leaderboard"
	CommandAchievements   = "achievements"
	CommandReportImage    = "report-image"
	CommandBlacklistImage = "blacklist-image"
	CommandWhitelistImage = "whitelist-image"
	CommandResetWarnings  = "reset-warnings"
	CommandWarn           = "warn"
	CommandTimeout        = "timeout"
	CommandBan            = "ban"
	CommandKick           = "kick"
	CommandCase           = "case"
	CommandCases          = "cases"
	CommandWarnings       = "warnings"
	CommandStats          = "stats"
	CommandSettings       = "settings"
)

// moderatorCommands require the moderate members permission or a moderator role.
var moderatorCommands = map[string]bool{
	CommandRecalcTrust:    true,
	CommandBlacklistImage: true,
	CommandWhitelistImage: true,
	CommandResetWarnings:  true,
	CommandWarn:           true,
	CommandTimeout:        true,
	CommandBan:            true,
	CommandKick:           true,
	CommandCase:           true,
	CommandCases:          true,
	CommandWarnings:       true,
	CommandStats:          true,
	CommandSettings:       true,
}

func userOption(description string, required bool) discord.ApplicationCommandOptionUser {
	return discord.ApplicationCommandOptionUser{Name: "user", Description: description, Required: required}
}

func reasonOption() discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{Name: "reason", Description: "Reason shown to the user", Required: true}
}

// Definitions returns the slash commands to register.
func Definitions() []discord.ApplicationCommandCreate {
	moderator := json.NewNullablePtr(discord.PermissionModerateMembers)
	admin := json.NewNullablePtr(discord.PermissionManageGuild)

	keyChoices := make([]discord.ApplicationCommandOptionChoiceString, 0, len(settings.Keys()))
	for _, key := range settings.Keys() {
		keyChoices = append(keyChoices, discord.ApplicationCommandOptionChoiceString{Name: key, Value: key})
	}

	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:                     CommandRecalcTrust,
			Description:              "Recalculate trust for a user, or everyone when no user is given",
			DefaultMemberPermissions: moderator,
			Options:                  []discord.ApplicationCommandOption{userOption("User to recalculate", false)},
		},
		discord.SlashCommandCreate{
			Name:        CommandTrust,
			Description: "Show a trust score",
			Options:     []discord.ApplicationCommandOption{userOption("User to show, defaults to you", false)},
		},
		discord.SlashCommandCreate{
			Name:        CommandReputation,
			Description: "Recalculate and show a reputation score",
			Options:     []discord.ApplicationCommandOption{userOption("User to show, defaults to you", false)},
		},
		discord.SlashCommandCreate{
			Name:        CommandLeaderboard,
			Description: "Show the top users",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "board",
					Description: "Which score to rank by",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "trust", Value: "trust"},
						{Name: "reputation", Value: "reputation"},
					},
				},
				discord.ApplicationCommandOptionString{
					Name:        "tier",
					Description: "Reputation tier filter",
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "bronze", Value: "bronze"},
						{Name: "silver", Value: "silver"},
						{Name: "gold", Value: "gold"},
						{Name: "platinum", Value: "platinum"},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandAchievements,
			Description: "List unlocked achievements",
			Options:     []discord.ApplicationCommandOption{userOption("User to show, defaults to you", false)},
		},
		discord.SlashCommandCreate{
			Name:        CommandReportImage,
			Description: "Report the images of a message as spam",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "message_id", Description: "Message with the images", Required: true},
				discord.ApplicationCommandOptionString{Name: "reason", Description: "Why the images are spam"},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandBlacklistImage,
			Description:              "Mark an image hash as spam",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "hash", Description: "Perceptual hash (16 hex digits)", Required: true},
				discord.ApplicationCommandOptionString{Name: "category", Description: "Spam category, defaults to manual"},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandWhitelistImage,
			Description:              "Clear the spam flag of an image hash",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "hash", Description: "Perceptual hash (16 hex digits)", Required: true},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandResetWarnings,
			Description:              "Expire every active warning of a user",
			DefaultMemberPermissions: moderator,
			Options:                  []discord.ApplicationCommandOption{userOption("User to reset", true)},
		},
		discord.SlashCommandCreate{
			Name:                     CommandWarn,
			Description:              "Warn a user",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				userOption("User to warn", true),
				reasonOption(),
				discord.ApplicationCommandOptionString{
					Name:        "severity",
					Description: "Warning severity, defaults to low",
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "low", Value: "low"},
						{Name: "medium", Value: "medium"},
						{Name: "high", Value: "high"},
						{Name: "critical", Value: "critical"},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandTimeout,
			Description:              "Time out a user",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				userOption("User to time out", true),
				discord.ApplicationCommandOptionInt{Name: "minutes", Description: "Timeout length in minutes", Required: true},
				reasonOption(),
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandBan,
			Description:              "Ban a user",
			DefaultMemberPermissions: moderator,
			Options:                  []discord.ApplicationCommandOption{userOption("User to ban", true), reasonOption()},
		},
		discord.SlashCommandCreate{
			Name:                     CommandKick,
			Description:              "Kick a user",
			DefaultMemberPermissions: moderator,
			Options:                  []discord.ApplicationCommandOption{userOption("User to kick", true), reasonOption()},
		},
		discord.SlashCommandCreate{
			Name:                     CommandCase,
			Description:              "Show a moderation case",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{Name: "id", Description: "Case number", Required: true},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandCases,
			Description:              "List the cases of a user",
			DefaultMemberPermissions: moderator,
			Options:                  []discord.ApplicationCommandOption{userOption("User to list", true)},
		},
		discord.SlashCommandCreate{
			Name:                     CommandWarnings,
			Description:              "List the warnings of a user",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				userOption("User to list", true),
				discord.ApplicationCommandOptionBool{Name: "active", Description: "Only active warnings"},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandStats,
			Description:              "Warnings by category",
			DefaultMemberPermissions: moderator,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{Name: "days", Description: "Look back this many days, defaults to 7"},
			},
		},
		discord.SlashCommandCreate{
			Name:                     CommandSettings,
			Description:              "View or change moderation settings",
			DefaultMemberPermissions: admin,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionSubCommand{
					Name:        "set",
					Description: "Override a setting",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionString{Name: "key", Description: "Setting key", Required: true, Choices: keyChoices},
						discord.ApplicationCommandOptionString{Name: "value", Description: "New value", Required: true},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        "get",
					Description: "Show a setting",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionString{Name: "key", Description: "Setting key", Required: true, Choices: keyChoices},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        "list",
					Description: "Show every overridable setting",
				},
			},
		},
	}
}
