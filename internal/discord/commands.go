package discord

import (
	"amuletbot/internal/models"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandGive        = "give"
	CommandPing        = "ping"
	CommandUser        = "user"
	CommandHolder      = "holder"
	CommandLeaderboard = "leaderboard"
	CommandBackup      = "backup"

	optionTarget   = "target"
	optionCategory = "category"
)

var adminPermissions int64 = discordgo.PermissionAdministrator

// Commands returns the slash commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandGive,
			Description: "Give someone the amulet",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionTarget,
					Description: "Who deserves the amulet?",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandPing,
			Description: "Replies with Pong!",
		},
		{
			Name:        CommandUser,
			Description: "Provides information about the user.",
		},
		{
			Name:        CommandHolder,
			Description: "Shows who holds the amulet",
		},
		{
			Name:        CommandLeaderboard,
			Description: "Shows the amulet leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionCategory,
					Description: "Which ranking to show",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Time held", Value: models.CategoryAmuletTime},
						{Name: "Times held", Value: models.CategoryAmuletCount},
						{Name: "Games played", Value: models.CategoryGamesPlayed},
					},
				},
			},
		},
		{
			Name:                     CommandBackup,
			Description:              "Writes a backup of the bot's data",
			DefaultMemberPermissions: &adminPermissions,
		},
	}
}

// RegisterCommands replaces the application's commands, scoped to guildID when set.
func RegisterCommands(session *discordgo.Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return session.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
}
