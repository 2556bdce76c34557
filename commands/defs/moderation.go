package defs

import "github.com/bwmarrin/discordgo"

var Warn = &discordgo.ApplicationCommand{
	Name:        "warn",
	Description: "Warn a user and record the case",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to warn",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the warning",
			Required:    true,
		},
	},
}

var Punish = &discordgo.ApplicationCommand{
	Name:        "punish",
	Description: "Apply a moderation action and record the case",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to punish",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "action",
			Description: "Action to take",
			Required:    true,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Mute", Value: "mute"},
				{Name: "Kick", Value: "kick"},
				{Name: "Ban", Value: "ban"},
				{Name: "Temporary mute", Value: "tempmute"},
				{Name: "Temporary ban", Value: "tempban"},
				{Name: "Temporary role", Value: "temprole"},
				{Name: "Unban", Value: "unban"},
				{Name: "Unmute", Value: "unmute"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the action",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Duration for temporary actions, e.g. 30m, 2h, 7d",
			Required:    false,
		},
		{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: "Role for temprole actions",
			Required:    false,
		},
	},
}

var RevokeCase = &discordgo.ApplicationCommand{
	Name:        "revoke-case",
	Description: "Revoke a recorded case and cancel its punishment",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "case",
			Description: "Case number to revoke",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the revocation",
			Required:    true,
		},
	},
}

var Cases = &discordgo.ApplicationCommand{
	Name:        "cases",
	Description: "List recorded moderation cases",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Only show cases for this user",
			Required:    false,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "action",
			Description: "Only show cases of this action type",
			Required:    false,
		},
	},
}

var SystemInfo = &discordgo.ApplicationCommand{
	Name:        "system-info",
	Description: "Show bot and host status",
}
