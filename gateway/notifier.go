package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"modkeeper/model"
	"modkeeper/moderation"

	"github.com/bwmarrin/discordgo"
)

// Notifier delivers audit events as embeds to the guild's log channel, with
// an optional webhook fallback. Best-effort only: a failure here never rolls
// back the case or punishment that produced the event.
type Notifier struct {
	session    *discordgo.Session
	channelFor func(guildID string) string
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a notifier. channelFor resolves the guild's log
// channel id, empty when the guild has none; webhookURL may be empty.
func NewNotifier(session *discordgo.Session, channelFor func(guildID string) string, webhookURL string) *Notifier {
	if channelFor == nil {
		channelFor = func(string) string { return "" }
	}
	return &Notifier{
		session:    session,
		channelFor: channelFor,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func eventColor(action model.ActionType) int {
	switch action {
	case model.ActionWarn:
		return 15105570 // Orange
	case model.ActionBan, model.ActionTempBan, model.ActionKick:
		return 15158332 // Red
	case model.ActionUnban, model.ActionUnmute, model.ActionRevoke:
		return 3066993 // Green
	default:
		return 3447003 // Blue
	}
}

// Notify sends one audit embed.
func (n *Notifier) Notify(ctx context.Context, event moderation.AuditEvent) error {
	embed := buildEmbed(event)

	channelID := n.channelFor(event.GuildID)
	if channelID != "" {
		if _, err := n.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err == nil {
			return nil
		} else if n.webhookURL == "" {
			return fmt.Errorf("failed to send audit embed to channel %s: %w", channelID, err)
		}
	}

	if n.webhookURL != "" {
		return n.sendWebhook(ctx, embed)
	}
	return nil
}

func buildEmbed(event moderation.AuditEvent) *discordgo.MessageEmbed {
	title := fmt.Sprintf("Case #%d — %s", event.CaseNumber, event.ActionType)
	if event.Rescheduled {
		title += " (rescheduled)"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: fmt.Sprintf("<@%s>", event.UserID), Inline: true},
		{Name: "Moderator", Value: event.ModeratorID, Inline: true},
		{Name: "Reason", Value: event.Reason},
	}
	if event.ExpiresAt > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Expires",
			Value:  fmt.Sprintf("<t:%d:R>", event.ExpiresAt),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     eventColor(event.ActionType),
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (n *Notifier) sendWebhook(ctx context.Context, embed *discordgo.MessageEmbed) error {
	payload := struct {
		Embeds []*discordgo.MessageEmbed `json:"embeds"`
	}{Embeds: []*discordgo.MessageEmbed{embed}}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to send audit webhook, status: %s, body: %s", resp.Status, string(respBody))
	}
	return nil
}
