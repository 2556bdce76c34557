package handlers

import (
	"context"
	"fmt"
	"log"

	"modkeeper/bot"
	"modkeeper/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleWarnCommand records a warning and reports any escalation it
// triggered.
func HandleWarnCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireModerator(s, i, b) {
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	reason := opts["reason"].StringValue()

	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	c, decision, err := b.Engine.Warn(context.Background(), i.GuildID, targetUser.ID, i.Member.User.ID, reason)
	if err != nil {
		log.Printf("Error recording warning for user %s in guild %s: %v", targetUser.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to record the warning.")
		return
	}

	utils.SendPrivateEmbedMessage(s, targetUser.ID, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("You were warned (case #%d)", c.CaseNumber),
		Description: reason,
		Color:       15105570,
	})

	msg := fmt.Sprintf("⚠️ Warned <@%s> (case #%d): %s", targetUser.ID, c.CaseNumber, reason)
	if !decision.None() {
		msg += fmt.Sprintf("\nEscalated to **%s**", decision.ActionType)
		if decision.DurationSeconds > 0 {
			msg += fmt.Sprintf(" for %d seconds", decision.DurationSeconds)
		}
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}
