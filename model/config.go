package model

import "time"

// GuildConfig carries the per-guild moderation settings read from the
// moderation config file.
type GuildConfig struct {
	Name            string           `mapstructure:"name"`
	GuildID         string           `mapstructure:"guild_id"`
	AdminRoleIDs    []string         `mapstructure:"admin_role_ids"`
	MuteRoleID      string           `mapstructure:"mute_role_id"`
	LogChannelID    string           `mapstructure:"log_channel_id"`
	EscalationRules []EscalationRule `mapstructure:"escalation_rules"`
}

// ReconcilerConfig holds the sweep interval for each punishment kind.
type ReconcilerConfig struct {
	MuteInterval time.Duration `mapstructure:"mute_interval"`
	BanInterval  time.Duration `mapstructure:"ban_interval"`
	RoleInterval time.Duration `mapstructure:"role_interval"`
}

// ModerationConfig is the engine-wide configuration: validation bounds,
// the warning window, sweep intervals, and per-guild tables.
type ModerationConfig struct {
	// MaxDurationSeconds bounds temp punishment durations; schedule calls
	// beyond it are rejected.
	MaxDurationSeconds int64 `mapstructure:"max_duration_seconds"`
	// WarningWindowDays bounds the active-warning count. 0 means unbounded;
	// no default window is assumed.
	WarningWindowDays int                    `mapstructure:"warning_window_days"`
	Reconciler        ReconcilerConfig       `mapstructure:"reconciler"`
	Guilds            map[string]GuildConfig `mapstructure:"guilds"`
}

// Config stores the application configuration.
type Config struct {
	BotToken      string
	AppID         string
	LogChannelID  string
	LogWebhookURL string
	DatabasePath  string
	Moderation    ModerationConfig
}

// GuildRules returns the escalation rule table for a guild, nil when the
// guild has no table configured.
func (c *Config) GuildRules(guildID string) []EscalationRule {
	gc, ok := c.Moderation.Guilds[guildID]
	if !ok {
		return nil
	}
	return gc.EscalationRules
}
