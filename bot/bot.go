package bot

import (
	"log"
	"time"

	"modkeeper/commands"
	"modkeeper/gateway"
	"modkeeper/model"
	"modkeeper/moderation"
	"modkeeper/utils"
	cases_db "modkeeper/utils/database/cases"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

// Bot wires the session, the moderation engine and its background loops.
type Bot struct {
	Session            *discordgo.Session
	Config             *model.Config
	DB                 *sqlx.DB
	Engine             *moderation.Engine
	Reconciler         *moderation.Reconciler
	PunishCooldowns    *utils.CooldownCache
	RegisteredCommands []*discordgo.ApplicationCommand

	scheduler *Scheduler
	done      chan struct{}
}

// New creates the bot: one database for both the case ledger and the
// temporal punishments, a Discord-backed gateway and notifier, and the
// engine over them.
func New(cfg *model.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	dg.StateEnabled = false

	db, err := cases_db.Init(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := punishments_db.EnsureSchema(db); err != nil {
		return nil, err
	}

	gw := gateway.NewDiscord(dg, func(guildID string) string {
		if gc, ok := cfg.Moderation.Guilds[guildID]; ok {
			return gc.MuteRoleID
		}
		return ""
	})
	notifier := gateway.NewNotifier(dg, func(guildID string) string {
		if gc, ok := cfg.Moderation.Guilds[guildID]; ok && gc.LogChannelID != "" {
			return gc.LogChannelID
		}
		return cfg.LogChannelID
	}, cfg.LogWebhookURL)

	b := &Bot{
		Session:         dg,
		Config:          cfg,
		DB:              db,
		Engine:          moderation.New(db, gw, notifier, &cfg.Moderation),
		Reconciler:      moderation.NewReconciler(db, gw, notifier),
		PunishCooldowns: utils.NewCooldownCache(5 * time.Minute),
		done:            make(chan struct{}),
	}
	b.scheduler = NewScheduler(b)
	return b, nil
}

// Close shuts everything down in order: loops first, then the session and
// the database.
func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	close(b.done)
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}
	if err := b.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// RefreshCommands overwrites the slash commands registered for a guild.
func (b *Bot) RefreshCommands(guildID string) {
	cmds := commands.GenerateCommands()
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Config.AppID, guildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registered...)
}

// Done exposes the shutdown channel to background loops.
func (b *Bot) Done() <-chan struct{} {
	return b.done
}
