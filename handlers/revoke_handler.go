package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"modkeeper/bot"
	"modkeeper/moderation"
	"modkeeper/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleRevokeCommand reverses a recorded case.
func HandleRevokeCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireModerator(s, i, b) {
		return
	}

	opts := optionMap(i)
	caseNumber := opts["case"].IntValue()
	reason := opts["reason"].StringValue()

	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	c, err := b.Engine.Revoke(context.Background(), i.GuildID, caseNumber, i.Member.User.ID, reason)
	if err != nil {
		if errors.Is(err, moderation.ErrNotFound) {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Case #%d does not exist.", caseNumber))
			return
		}
		log.Printf("Error revoking case %d in guild %s: %v", caseNumber, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to revoke the case.")
		return
	}

	utils.SendFollowUp(s, i.Interaction,
		fmt.Sprintf("↩️ Case #%d revoked (recorded as case #%d): %s", caseNumber, c.CaseNumber, reason))
}
