package moderation

import (
	"context"
	"log"
	"time"

	"modkeeper/model"
	cases_db "modkeeper/utils/database/cases"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/jmoiron/sqlx"
)

// Reconciler is the catch-up sweep that releases due temporal punishments
// exactly once. It is not a precise timer: any amount of overdue time,
// including multi-interval downtime, still yields one release per
// punishment. Each kind runs its own independent loop.
type Reconciler struct {
	db       *sqlx.DB
	gateway  EnforcementGateway
	notifier AuditNotifier
	now      func() time.Time
}

// NewReconciler creates a reconciler over the punishment and case stores.
func NewReconciler(db *sqlx.DB, gateway EnforcementGateway, notifier AuditNotifier) *Reconciler {
	return &Reconciler{db: db, gateway: gateway, notifier: notifier, now: time.Now}
}

// Run sweeps one kind on a fixed interval until done closes.
func (r *Reconciler) Run(done <-chan struct{}, kind model.PunishmentKind, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Sweep(context.Background(), kind); err != nil {
				log.Printf("Error sweeping %s punishments: %v", kind, err)
			}
		case <-done:
			return
		}
	}
}

// Sweep releases every due punishment of one kind. A single punishment's
// failure is logged and never aborts the rest of the sweep. Returns how many
// punishments reached their terminal state this pass.
func (r *Reconciler) Sweep(ctx context.Context, kind model.PunishmentKind) (int, error) {
	due, err := punishments_db.GetDue(r.db, kind, r.now().Unix())
	if err != nil {
		return 0, err
	}

	released := 0
	for _, p := range due {
		if r.releaseOne(ctx, p) {
			released++
		}
	}
	return released, nil
}

// releaseOne walks a single punishment from Due to its terminal state.
// Success and alreadyAbsent both count as released; forbidden and transient
// failures leave the row active for the next tick. The deactivation is
// conditional on the expiry this sweep read, so both a concurrent cancel and
// a reschedule that extends the row mid-sweep win: the stale sweep observes
// zero changed rows and backs off.
func (r *Reconciler) releaseOne(ctx context.Context, p model.TemporalPunishment) bool {
	outcome, err := r.gateway.Release(ctx, p.GuildID, p.UserID, p.Kind, p.RoleID)
	switch outcome {
	case ReleaseForbidden:
		// Stuck: the gateway lacks authority and retrying alone will not fix
		// it. Kept active and retried anyway; the log line is the signal for
		// manual intervention.
		log.Printf("Release forbidden for %s punishment of user %s in guild %s (stuck, will retry): %v",
			p.Kind, p.UserID, p.GuildID, err)
		return false
	case ReleaseTransient:
		log.Printf("Transient failure releasing %s punishment of user %s in guild %s, retrying next tick: %v",
			p.Kind, p.UserID, p.GuildID, err)
		return false
	}

	flipped, err := punishments_db.DeactivateExpiring(r.db, p.ID, p.ExpiresAt)
	if err != nil {
		log.Printf("Failed to deactivate punishment %d: %v", p.ID, err)
		return false
	}
	if !flipped {
		// A cancel or a reschedule won the race; this row either already
		// transitioned or now carries a later expiry, and must not produce
		// an expiry audit event under its old state.
		return false
	}

	if err := cases_db.UpdateStatus(r.db, p.CaseID, model.CaseExpired); err != nil {
		log.Printf("Failed to mark case %d expired: %v", p.CaseID, err)
	}

	event := AuditEvent{
		GuildID:     p.GuildID,
		UserID:      p.UserID,
		ModeratorID: model.SystemModeratorID,
		Reason:      "punishment expired",
		ExpiresAt:   p.ExpiresAt,
	}
	if c, err := cases_db.GetCaseByID(r.db, p.CaseID); err == nil {
		event.CaseNumber = c.CaseNumber
		event.ActionType = c.ActionType
		event.Reason = c.Reason
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, event); err != nil {
			log.Printf("Audit notify failed for expired punishment %d: %v", p.ID, err)
		}
	}

	log.Printf("Released expired %s punishment of user %s in guild %s (case %d)",
		p.Kind, p.UserID, p.GuildID, event.CaseNumber)
	return true
}
