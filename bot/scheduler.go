package bot

import (
	"log"
	"sync"
	"time"

	"modkeeper/model"
)

// Scheduler manages the background loops: one reconciler sweep per
// punishment kind, each on its own interval, plus the cooldown sweep. The
// loops are independent and unsynchronized; each punishment row's
// conditional update is what keeps them from stepping on each other.
type Scheduler struct {
	bot *Bot
	wg  sync.WaitGroup
}

// NewScheduler creates a scheduler for the bot's background loops.
func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{bot: bot}
}

// Start begins all loops.
func (s *Scheduler) Start() {
	intervals := map[model.PunishmentKind]time.Duration{
		model.PunishMute: s.bot.Config.Moderation.Reconciler.MuteInterval,
		model.PunishBan:  s.bot.Config.Moderation.Reconciler.BanInterval,
		model.PunishRole: s.bot.Config.Moderation.Reconciler.RoleInterval,
	}

	for kind, interval := range intervals {
		s.wg.Add(1)
		go func(kind model.PunishmentKind, interval time.Duration) {
			defer s.wg.Done()
			log.Printf("Starting %s reconciler, interval %s", kind, interval)
			s.bot.Reconciler.Run(s.bot.Done(), kind, interval)
		}(kind, interval)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.bot.PunishCooldowns.SweepEvery(time.Hour, s.bot.Done())
	}()
}

// Stop waits for all loops to exit. The bot closes its done channel first.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.wg.Wait()
	log.Println("Scheduler stopped.")
}
