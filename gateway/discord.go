package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"modkeeper/model"
	"modkeeper/moderation"

	"github.com/bwmarrin/discordgo"
)

// Discord enforces punishments through the Discord REST API. Mutes use the
// guild's configured mute role when one exists and fall back to member
// timeouts otherwise, so apply and release stay symmetric per guild.
type Discord struct {
	session  *discordgo.Session
	muteRole func(guildID string) string
}

// NewDiscord creates a gateway. muteRole returns the guild's mute role id,
// empty when the guild uses timeouts instead.
func NewDiscord(session *discordgo.Session, muteRole func(guildID string) string) *Discord {
	if muteRole == nil {
		muteRole = func(string) string { return "" }
	}
	return &Discord{session: session, muteRole: muteRole}
}

// Apply imposes an action on the guild. Warnings and revocations are ledger
// facts with no platform-side enforcement of their own.
func (d *Discord) Apply(ctx context.Context, guildID, userID string, action model.ActionType, durationSeconds int64, roleID, reason string) (moderation.ApplyOutcome, error) {
	var err error
	switch action {
	case model.ActionWarn, model.ActionRevoke:
		return moderation.ApplySuccess, nil
	case model.ActionMute:
		if role := d.muteRole(guildID); role != "" {
			err = d.session.GuildMemberRoleAdd(guildID, userID, role, discordgo.WithContext(ctx))
		} else {
			return moderation.ApplyForbidden, fmt.Errorf("guild %s has no mute role configured for a permanent mute", guildID)
		}
	case model.ActionTempMute:
		if role := d.muteRole(guildID); role != "" {
			err = d.session.GuildMemberRoleAdd(guildID, userID, role, discordgo.WithContext(ctx))
		} else {
			until := time.Now().Add(time.Duration(durationSeconds) * time.Second)
			err = d.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx))
		}
	case model.ActionKick:
		err = d.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
	case model.ActionBan, model.ActionTempBan:
		err = d.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
	case model.ActionTempRole:
		err = d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	default:
		return moderation.ApplyForbidden, fmt.Errorf("action %s has no platform enforcement", action)
	}

	if err == nil {
		return moderation.ApplySuccess, nil
	}
	if isAbsent(err) {
		return moderation.ApplyNotFound, err
	}
	if isForbidden(err) {
		return moderation.ApplyForbidden, err
	}
	// Apply has no transient arm; the engine does not auto-retry case
	// creation, so an ambiguous failure surfaces as forbidden for the
	// moderator to re-issue.
	return moderation.ApplyForbidden, err
}

// Release reverses a punishment. A target that is already gone (left the
// guild, ban already lifted, role already removed) is terminal success for
// the caller; a timeout or rate limit is transient and retried next tick.
func (d *Discord) Release(ctx context.Context, guildID, userID string, kind model.PunishmentKind, roleID string) (moderation.ReleaseOutcome, error) {
	var err error
	switch kind {
	case model.PunishMute:
		if role := d.muteRole(guildID); role != "" {
			err = d.session.GuildMemberRoleRemove(guildID, userID, role, discordgo.WithContext(ctx))
		} else {
			err = d.session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx))
		}
	case model.PunishBan:
		err = d.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	case model.PunishRole:
		err = d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
	default:
		return moderation.ReleaseForbidden, fmt.Errorf("unknown punishment kind %q", kind)
	}

	if err == nil {
		return moderation.ReleaseSuccess, nil
	}
	if isAbsent(err) {
		return moderation.ReleaseAlreadyAbsent, nil
	}
	if isForbidden(err) {
		return moderation.ReleaseForbidden, err
	}
	return moderation.ReleaseTransient, err
}

// isAbsent matches the REST errors meaning the target no longer exists.
func isAbsent(err error) bool {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return false
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownBan, discordgo.ErrCodeUnknownRole:
			return true
		}
	}
	return rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}

// isForbidden matches permission refusals, including hierarchy violations.
func isForbidden(err error) bool {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) {
		return false
	}
	if rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return rerr.Response != nil && rerr.Response.StatusCode == http.StatusForbidden
}
