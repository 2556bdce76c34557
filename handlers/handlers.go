package handlers

import (
	"log"

	"modkeeper/bot"
	"modkeeper/utils"

	"github.com/bwmarrin/discordgo"
)

// CommandKind is the typed discriminator for incoming commands. Dispatch
// goes through it instead of matching on name strings at every call site;
// names are resolved to kinds exactly once, at registration.
type CommandKind int

const (
	CmdWarn CommandKind = iota
	CmdPunish
	CmdRevokeCase
	CmdCases
	CmdSystemInfo
)

type handlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot)

var commandKinds = map[string]CommandKind{
	"warn":        CmdWarn,
	"punish":      CmdPunish,
	"revoke-case": CmdRevokeCase,
	"cases":       CmdCases,
	"system-info": CmdSystemInfo,
}

// Register installs the interaction dispatcher on the bot's session.
func Register(b *bot.Bot) {
	registry := map[CommandKind]handlerFunc{
		CmdWarn:       HandleWarnCommand,
		CmdPunish:     HandlePunishCommand,
		CmdRevokeCase: HandleRevokeCommand,
		CmdCases:      HandleCasesCommand,
		CmdSystemInfo: HandleSystemInfoCommand,
	}

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		name := i.ApplicationCommandData().Name
		kind, ok := commandKinds[name]
		if !ok {
			log.Printf("Unhandled command %q in guild %s", name, i.GuildID)
			return
		}
		handler, ok := registry[kind]
		if !ok {
			log.Printf("No handler registered for command %q", name)
			return
		}
		handler(s, i, b)
	})
}

// requireModerator checks the invoker against the guild's admin roles and
// answers with an ephemeral refusal when they fall short.
func requireModerator(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) bool {
	gc, ok := b.Config.Moderation.Guilds[i.GuildID]
	if !ok {
		utils.SendErrorResponse(s, i, "This server is not configured for moderation.")
		return false
	}
	if i.Member == nil {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return false
	}
	if utils.CheckPermission(i.Member.Roles, gc.AdminRoleIDs) != utils.AdminPermission {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return false
	}
	return true
}

// optionMap flattens interaction options by name.
func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
