package moderation

import (
	"context"
	"fmt"
	"log"

	"modkeeper/model"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/jmoiron/sqlx"
)

// Engine ties the ledger, warning policy and punishment scheduler together:
// a triggering action records a case, may feed the warning count, and a
// non-none escalation decision schedules a temporal punishment.
type Engine struct {
	Ledger    *CaseLedger
	Warnings  *WarningTracker
	Scheduler *Scheduler

	gateway  EnforcementGateway
	notifier AuditNotifier
	cfg      *model.ModerationConfig
}

// New wires an engine over one initialized database.
func New(db *sqlx.DB, gateway EnforcementGateway, notifier AuditNotifier, cfg *model.ModerationConfig) *Engine {
	return &Engine{
		Ledger:    NewCaseLedger(db),
		Warnings:  NewWarningTracker(db, cfg.WarningWindowDays),
		Scheduler: NewScheduler(db, gateway, notifier, cfg.MaxDurationSeconds),
		gateway:   gateway,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// ActionRequest describes one moderation action to apply.
type ActionRequest struct {
	GuildID         string
	UserID          string
	ModeratorID     string
	ActionType      model.ActionType
	Reason          string
	DurationSeconds int64
	RoleID          string
}

// Warn records a warning, recounts the user's active warnings, and applies
// the escalation table. A triggered escalation is recorded as its own case
// under the system moderator. Returns the warn case and the decision taken.
func (e *Engine) Warn(ctx context.Context, guildID, userID, moderatorID, reason string) (*model.Case, Decision, error) {
	c, err := e.Ledger.RecordCase(guildID, userID, moderatorID, model.ActionWarn, reason, 0)
	if err != nil {
		return nil, Decision{}, err
	}

	if outcome, applyErr := e.gateway.Apply(ctx, guildID, userID, model.ActionWarn, 0, "", reason); outcome != ApplySuccess {
		// A warning is a ledger fact first; failing to deliver it to the
		// user does not unrecord it.
		log.Printf("Warn delivery for user %s in guild %s did not complete: %v", userID, guildID, applyErr)
	}
	e.notify(ctx, c, false)

	count, err := e.Warnings.CountActive(guildID, userID)
	if err != nil {
		return c, Decision{}, err
	}

	decision := Evaluate(e.rulesFor(guildID), count)
	if decision.None() {
		return c, decision, nil
	}

	if _, err := e.Apply(ctx, ActionRequest{
		GuildID:         guildID,
		UserID:          userID,
		ModeratorID:     model.SystemModeratorID,
		ActionType:      decision.ActionType,
		Reason:          fmt.Sprintf("automatic escalation at %d warnings: %s", count, reason),
		DurationSeconds: decision.DurationSeconds,
	}); err != nil {
		return c, decision, fmt.Errorf("escalation after warning: %w", err)
	}
	return c, decision, nil
}

// Apply performs one moderation action: validates, records the case, then
// enforces it. Temporal actions go through the scheduler; immediate actions
// call the gateway directly; unban/unmute cancel any live temporal
// punishment before releasing the platform state.
func (e *Engine) Apply(ctx context.Context, req ActionRequest) (*model.Case, error) {
	if !req.ActionType.IsValid() {
		return nil, &ValidationError{Field: "action_type", Message: fmt.Sprintf("unknown action type %q", req.ActionType)}
	}

	// Reject before anything hits the ledger.
	if req.ActionType.IsTemporal() {
		if err := e.Scheduler.ValidateDuration(req.DurationSeconds); err != nil {
			return nil, err
		}
	}

	c, err := e.Ledger.RecordCase(req.GuildID, req.UserID, req.ModeratorID, req.ActionType, req.Reason, req.DurationSeconds)
	if err != nil {
		return nil, err
	}

	if kind, ok := model.KindForAction(req.ActionType); ok {
		if _, err := e.Scheduler.Schedule(ctx, c, kind, req.RoleID); err != nil {
			return c, err
		}
		return c, nil
	}

	switch req.ActionType {
	case model.ActionUnban:
		return c, e.releaseExisting(ctx, c, model.PunishBan)
	case model.ActionUnmute:
		return c, e.releaseExisting(ctx, c, model.PunishMute)
	default:
		outcome, applyErr := e.gateway.Apply(ctx, req.GuildID, req.UserID, req.ActionType, 0, req.RoleID, req.Reason)
		switch outcome {
		case ApplyNotFound:
			return c, fmt.Errorf("apply %s to user %s in guild %s: %w", req.ActionType, req.UserID, req.GuildID, ErrNotFound)
		case ApplyForbidden:
			if applyErr != nil {
				return c, fmt.Errorf("apply %s to user %s in guild %s: %v: %w", req.ActionType, req.UserID, req.GuildID, applyErr, ErrPermission)
			}
			return c, fmt.Errorf("apply %s to user %s in guild %s: %w", req.ActionType, req.UserID, req.GuildID, ErrPermission)
		}
		e.notify(ctx, c, false)
		return c, nil
	}
}

// Revoke reverses a previously recorded case: its temporal punishment, if
// still live, is cancelled, the original case is marked revoked, and the
// reversal is recorded as its own case.
func (e *Engine) Revoke(ctx context.Context, guildID string, caseNumber int64, moderatorID, reason string) (*model.Case, error) {
	target, err := e.Ledger.GetCase(guildID, caseNumber)
	if err != nil {
		return nil, err
	}

	if kind, ok := model.KindForAction(target.ActionType); ok {
		// The live row carries the key, including the role id for temprole
		// cases; a row that already expired or was replaced needs no cancel.
		row, err := punishments_db.GetActiveByCaseID(e.Scheduler.db, target.ID)
		if err != nil {
			return nil, err
		}
		if row != nil {
			if _, err := e.Scheduler.Cancel(ctx, guildID, target.UserID, kind, row.RoleID); err != nil {
				return nil, err
			}
		}
	}

	if err := e.Ledger.MarkStatus(target.ID, model.CaseRevoked); err != nil {
		return nil, err
	}

	c, err := e.Ledger.RecordCase(guildID, target.UserID, moderatorID, model.ActionRevoke,
		fmt.Sprintf("revoked case #%d: %s", caseNumber, reason), 0)
	if err != nil {
		return nil, err
	}
	e.notify(ctx, c, false)
	return c, nil
}

// releaseExisting cancels any live temporal punishment of the kind and then
// releases the platform state directly, covering permanent punishments that
// never had a scheduler row.
func (e *Engine) releaseExisting(ctx context.Context, c *model.Case, kind model.PunishmentKind) error {
	cancelled, err := e.Scheduler.Cancel(ctx, c.GuildID, c.UserID, kind, "")
	if err != nil {
		return err
	}
	if !cancelled {
		if outcome, relErr := e.gateway.Release(ctx, c.GuildID, c.UserID, kind, ""); !outcome.Terminal() {
			if outcome == ReleaseForbidden {
				return fmt.Errorf("release %s for user %s in guild %s: %w", kind, c.UserID, c.GuildID, ErrPermission)
			}
			return fmt.Errorf("release %s for user %s in guild %s: %w", kind, c.UserID, c.GuildID, relErr)
		}
	}
	e.notify(ctx, c, false)
	return nil
}

func (e *Engine) rulesFor(guildID string) []model.EscalationRule {
	gc, ok := e.cfg.Guilds[guildID]
	if !ok {
		return nil
	}
	return gc.EscalationRules
}

func (e *Engine) notify(ctx context.Context, c *model.Case, rescheduled bool) {
	if e.notifier == nil {
		return
	}
	event := AuditEvent{
		CaseNumber:  c.CaseNumber,
		GuildID:     c.GuildID,
		UserID:      c.UserID,
		ModeratorID: c.ModeratorID,
		ActionType:  c.ActionType,
		Reason:      c.Reason,
		ExpiresAt:   c.ExpiresAt,
		Rescheduled: rescheduled,
	}
	if err := e.notifier.Notify(ctx, event); err != nil {
		log.Printf("Audit notify failed for case %d in guild %s: %v", c.CaseNumber, c.GuildID, err)
	}
}
