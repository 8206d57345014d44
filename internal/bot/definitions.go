package bot

import "github.com/bwmarrin/discordgo"

var textChannels = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}

// Definitions are the guild slash commands registered on ready.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "gamesetup",
			Description: "Configure channels for new/updated/fixed game alerts (Owner Only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "feature",
					Description: "Feature to configure",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "New Games", Value: "new"},
						{Name: "Updated Games", Value: "update"},
						{Name: "Fixed Games", Value: "fixed"},
					},
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel that receives the alerts",
					Required:     true,
					ChannelTypes: textChannels,
				},
			},
		},
		{
			Name:        "testgamealerts",
			Description: "Send a test game alert embed (Owner Only)",
		},
		{
			Name:        "gamelist",
			Description: "List all games (80 per embed, multi-page)",
		},
		{
			Name:        "newgame",
			Description: "Show newly added games (does not modify automatic seen sets)",
		},
		{
			Name:        "updategame",
			Description: "Show updated games (manual, does not affect alerts)",
		},
		{
			Name:        "fixegame",
			Description: "Show current fixed games (does not modify automatic seen sets)",
		},
		{
			Name:        "gamesearch",
			Description: "Search games by title or App ID",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game",
					Description: "The game name or App ID to search for",
					Required:    true,
				},
			},
		},
		{
			Name:        "setting",
			Description: "Configure the status channel (Owner Only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel for the status board",
					Required:     true,
					ChannelTypes: textChannels,
				},
			},
		},
		{
			Name:        "manifest",
			Description: "Get a Steam manifest file",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "appid",
					Description: "Enter the Steam App ID",
					Required:    true,
				},
			},
		},
	}
}
