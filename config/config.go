package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"modkeeper/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads process configuration from environment variables and the
// moderation config file (data/moderation.yaml by default).
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("APP_ID environment variable not set")
	}

	logChannelID := os.Getenv("LOG_CHANNEL_ID")
	if logChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, global audit logging will be disabled")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/moderation.db"
	}

	cfg := &model.Config{
		BotToken:      token,
		AppID:         appID,
		LogChannelID:  logChannelID,
		LogWebhookURL: os.Getenv("LOG_WEBHOOK_URL"),
		DatabasePath:  dbPath,
	}

	moderationPath := os.Getenv("MODERATION_CONFIG")
	if moderationPath == "" {
		moderationPath = "data/moderation.yaml"
	}

	mc, err := loadModeration(moderationPath)
	if err != nil {
		return nil, err
	}
	cfg.Moderation = *mc

	return cfg, nil
}

// loadModeration reads the engine config through viper. A missing file
// leaves everything at defaults; warning_window_days in particular stays 0
// (unbounded) unless the file sets it.
func loadModeration(path string) (*model.ModerationConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("max_duration_seconds", int64(365*24*3600))
	v.SetDefault("warning_window_days", 0)
	v.SetDefault("reconciler.mute_interval", time.Minute)
	v.SetDefault("reconciler.ban_interval", time.Minute)
	v.SetDefault("reconciler.role_interval", 30*time.Second)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: moderation config not found at %s, using defaults.", path)
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: moderation config not found at %s, using defaults.", path)
		} else {
			return nil, fmt.Errorf("failed to read moderation config %s: %w", path, err)
		}
	}

	var mc model.ModerationConfig
	if err := v.Unmarshal(&mc); err != nil {
		return nil, fmt.Errorf("failed to parse moderation config %s: %w", path, err)
	}

	if err := validate(&mc); err != nil {
		return nil, err
	}
	return &mc, nil
}

func validate(mc *model.ModerationConfig) error {
	if mc.Reconciler.MuteInterval <= 0 || mc.Reconciler.BanInterval <= 0 || mc.Reconciler.RoleInterval <= 0 {
		return fmt.Errorf("reconciler intervals must be positive")
	}
	for guildID, gc := range mc.Guilds {
		prev := -1
		for i, rule := range gc.EscalationRules {
			if rule.ThresholdCount <= prev {
				return fmt.Errorf("guild %s: escalation rule %d threshold %d is not strictly increasing", guildID, i, rule.ThresholdCount)
			}
			prev = rule.ThresholdCount
			if !rule.ActionType.IsValid() {
				return fmt.Errorf("guild %s: escalation rule %d has unknown action %q", guildID, i, rule.ActionType)
			}
			if rule.ActionType.IsTemporal() && rule.DurationSeconds <= 0 {
				return fmt.Errorf("guild %s: escalation rule %d needs a positive duration for %s", guildID, i, rule.ActionType)
			}
		}
	}
	return nil
}
