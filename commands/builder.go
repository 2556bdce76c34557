package commands

import (
	"modkeeper/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns the slash commands registered for each guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Warn,
		defs.Punish,
		defs.RevokeCase,
		defs.Cases,
		defs.SystemInfo,
	}
}
