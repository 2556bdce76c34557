package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"modkeeper/bot"
	"modkeeper/model"
	"modkeeper/moderation"
	"modkeeper/utils"

	"github.com/bwmarrin/discordgo"
)

// HandlePunishCommand applies a manual moderation action through the engine.
func HandlePunishCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireModerator(s, i, b) {
		return
	}

	opts := optionMap(i)
	targetUser := opts["user"].UserValue(s)
	action := model.ActionType(opts["action"].StringValue())
	reason := opts["reason"].StringValue()

	if !b.PunishCooldowns.CheckAndSet(i.GuildID + ":" + targetUser.ID) {
		utils.SendErrorResponse(s, i, "This user was punished moments ago; wait before punishing again.")
		return
	}

	req := moderation.ActionRequest{
		GuildID:     i.GuildID,
		UserID:      targetUser.ID,
		ModeratorID: i.Member.User.ID,
		ActionType:  action,
		Reason:      reason,
	}

	if opt, ok := opts["duration"]; ok {
		d, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			b.PunishCooldowns.Clear(i.GuildID + ":" + targetUser.ID)
			utils.SendErrorResponse(s, i, fmt.Sprintf("Invalid duration: %v", err))
			return
		}
		req.DurationSeconds = int64(d.Seconds())
	}
	if opt, ok := opts["role"]; ok {
		req.RoleID = opt.RoleValue(s, i.GuildID).ID
	}

	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	c, err := b.Engine.Apply(context.Background(), req)
	if err != nil {
		b.PunishCooldowns.Clear(i.GuildID + ":" + targetUser.ID)
		utils.SendFollowUpError(s, i.Interaction, describeActionError(err))
		if !moderation.IsValidation(err) {
			log.Printf("Error applying %s to user %s in guild %s: %v", action, targetUser.ID, i.GuildID, err)
		}
		return
	}

	msg := fmt.Sprintf("✅ Applied **%s** to <@%s> (case #%d): %s", action, targetUser.ID, c.CaseNumber, reason)
	if c.ExpiresAt > 0 {
		msg += fmt.Sprintf("\nExpires <t:%d:R>", c.ExpiresAt)
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}

// describeActionError maps engine errors to moderator-facing text.
// Validation and permission failures surface immediately; anything else is
// generic because the detail belongs in the log.
func describeActionError(err error) string {
	var ve *moderation.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, moderation.ErrNotFound):
		return "Target not found; they may have already left the server."
	case errors.Is(err, moderation.ErrPermission):
		return "The bot lacks the authority for that action. Check the role hierarchy."
	default:
		return "Failed to apply the action."
	}
}
