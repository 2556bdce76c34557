package handlers

import (
	"fmt"
	"log"
	"strings"

	"modkeeper/bot"
	"modkeeper/model"
	"modkeeper/utils"

	"github.com/bwmarrin/discordgo"
)

const casesPageSize = 10

// HandleCasesCommand lists recent cases, optionally filtered by user and
// action type.
func HandleCasesCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireModerator(s, i, b) {
		return
	}

	opts := optionMap(i)
	var userID string
	if opt, ok := opts["user"]; ok {
		userID = opt.UserValue(s).ID
	}
	var action model.ActionType
	if opt, ok := opts["action"]; ok {
		action = model.ActionType(opt.StringValue())
		if !action.IsValid() {
			utils.SendErrorResponse(s, i, fmt.Sprintf("Unknown action type %q.", action))
			return
		}
	}

	records, err := b.Engine.Ledger.ListCases(i.GuildID, userID, action, casesPageSize)
	if err != nil {
		log.Printf("Error listing cases for guild %s: %v", i.GuildID, err)
		utils.SendErrorResponse(s, i, "Failed to list cases.")
		return
	}
	if len(records) == 0 {
		utils.SendErrorResponse(s, i, "No cases match.")
		return
	}

	var sb strings.Builder
	for _, c := range records {
		line := fmt.Sprintf("**#%d** %s <@%s> — %s", c.CaseNumber, c.ActionType, c.UserID, c.Reason)
		if c.Status != model.CaseActive {
			line += fmt.Sprintf(" *(%s)*", c.Status)
		}
		if c.ExpiresAt > 0 && c.Status == model.CaseActive {
			line += fmt.Sprintf(" — expires <t:%d:R>", c.ExpiresAt)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	utils.SendEmbedResponse(s, i, &discordgo.MessageEmbed{
		Title:       "Moderation cases",
		Description: sb.String(),
		Color:       3447003,
	})
}
