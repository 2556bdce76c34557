package moderation

import (
	"context"
	"fmt"
	"log"
	"time"

	"modkeeper/model"
	cases_db "modkeeper/utils/database/cases"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/jmoiron/sqlx"
)

// Scheduler records temporal punishments and keeps the at-most-one-active
// invariant per (guild, user, kind, role). Scheduling over an existing
// active punishment replaces its expiry rather than stacking or rejecting,
// preserving the most recent moderator intent.
type Scheduler struct {
	db                 *sqlx.DB
	gateway            EnforcementGateway
	notifier           AuditNotifier
	maxDurationSeconds int64
	now                func() time.Time
}

// NewScheduler creates a scheduler. maxDurationSeconds bounds accepted
// durations; 0 disables the upper bound.
func NewScheduler(db *sqlx.DB, gateway EnforcementGateway, notifier AuditNotifier, maxDurationSeconds int64) *Scheduler {
	return &Scheduler{
		db:                 db,
		gateway:            gateway,
		notifier:           notifier,
		maxDurationSeconds: maxDurationSeconds,
		now:                time.Now,
	}
}

// ValidateDuration rejects non-positive or over-limit durations. Called
// before any persistence so a bad request records nothing.
func (s *Scheduler) ValidateDuration(durationSeconds int64) error {
	if durationSeconds <= 0 {
		return &ValidationError{Field: "duration", Message: "must be positive"}
	}
	if s.maxDurationSeconds > 0 && durationSeconds > s.maxDurationSeconds {
		return &ValidationError{Field: "duration", Message: fmt.Sprintf("exceeds maximum of %d seconds", s.maxDurationSeconds)}
	}
	return nil
}

// Schedule persists an active punishment tied to a recorded case and asks
// the gateway to apply it. An existing active punishment of the same key is
// replaced in place and the audit event marks the reschedule. When the
// gateway reports the target absent or refuses, the write is rolled back: a
// fresh row is deactivated, since nothing was applied and leaving it would
// later release a punishment that never existed; a replaced row is put back
// to its prior state, since the prior punishment is still live on the
// platform and must stay scheduled for release.
func (s *Scheduler) Schedule(ctx context.Context, c *model.Case, kind model.PunishmentKind, roleID string) (*model.TemporalPunishment, error) {
	if !kind.IsValid() {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown punishment kind %q", kind)}
	}
	if kind == model.PunishRole && roleID == "" {
		return nil, &ValidationError{Field: "role_id", Message: "required for role punishments"}
	}
	if kind != model.PunishRole && roleID != "" {
		return nil, &ValidationError{Field: "role_id", Message: fmt.Sprintf("not applicable to %s punishments", kind)}
	}
	if err := s.ValidateDuration(c.DurationSeconds); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	row, prior, err := punishments_db.Upsert(s.db, model.TemporalPunishment{
		GuildID:   c.GuildID,
		UserID:    c.UserID,
		Kind:      kind,
		RoleID:    roleID,
		CaseID:    c.ID,
		CreatedAt: now,
		ExpiresAt: now + c.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	outcome, applyErr := s.gateway.Apply(ctx, c.GuildID, c.UserID, c.ActionType, c.DurationSeconds, roleID, c.Reason)
	switch outcome {
	case ApplySuccess:
	case ApplyNotFound:
		s.rollback(row, prior)
		return nil, fmt.Errorf("apply %s to user %s in guild %s: %w", kind, c.UserID, c.GuildID, ErrNotFound)
	case ApplyForbidden:
		s.rollback(row, prior)
		if applyErr != nil {
			return nil, fmt.Errorf("apply %s to user %s in guild %s: %v: %w", kind, c.UserID, c.GuildID, applyErr, ErrPermission)
		}
		return nil, fmt.Errorf("apply %s to user %s in guild %s: %w", kind, c.UserID, c.GuildID, ErrPermission)
	}

	s.notify(ctx, AuditEvent{
		CaseNumber:  c.CaseNumber,
		GuildID:     c.GuildID,
		UserID:      c.UserID,
		ModeratorID: c.ModeratorID,
		ActionType:  c.ActionType,
		Reason:      c.Reason,
		ExpiresAt:   row.ExpiresAt,
		Rescheduled: prior != nil,
	})
	return row, nil
}

// rollback undoes the upsert of a punishment whose apply failed. Both arms
// are conditional on the row still carrying the failed write's expiry, so a
// reschedule landing after the failure keeps its own state.
func (s *Scheduler) rollback(row, prior *model.TemporalPunishment) {
	if prior != nil {
		if _, err := punishments_db.Restore(s.db, *prior, row.ExpiresAt); err != nil {
			log.Printf("Failed to restore punishment %d after failed reschedule: %v", prior.ID, err)
		}
		return
	}
	if _, err := punishments_db.DeactivateExpiring(s.db, row.ID, row.ExpiresAt); err != nil {
		log.Printf("Failed to roll back punishment %d after failed apply: %v", row.ID, err)
	}
}

// Cancel deactivates a punishment before its expiry and asks the gateway to
// release it. The conditional update makes a second cancel, a cancel racing
// the reconciler, or a cancel racing a reschedule observe zero changed rows
// and return false without error; only one writer ever performs the
// transition.
func (s *Scheduler) Cancel(ctx context.Context, guildID, userID string, kind model.PunishmentKind, roleID string) (bool, error) {
	row, err := punishments_db.GetActive(s.db, guildID, userID, kind, roleID)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}

	flipped, err := punishments_db.DeactivateExpiring(s.db, row.ID, row.ExpiresAt)
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, nil
	}

	if outcome, relErr := s.gateway.Release(ctx, guildID, userID, kind, roleID); !outcome.Terminal() {
		// The punishment is cancelled regardless; the moderator reversing it
		// manually is expected to finish the platform-side cleanup.
		log.Printf("Release after cancel did not complete for user %s in guild %s (%s): %v", userID, guildID, kind, relErr)
	}

	if err := cases_db.UpdateStatus(s.db, row.CaseID, model.CaseRevoked); err != nil {
		log.Printf("Failed to mark case %d revoked after cancel: %v", row.CaseID, err)
	}
	return true, nil
}

func (s *Scheduler) notify(ctx context.Context, event AuditEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("Audit notify failed for case %d in guild %s: %v", event.CaseNumber, event.GuildID, err)
	}
}
