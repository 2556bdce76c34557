package moderation

import (
	"context"

	"modkeeper/model"
)

// ApplyOutcome classifies the result of imposing an action on the platform.
type ApplyOutcome int

const (
	ApplySuccess ApplyOutcome = iota
	ApplyNotFound
	ApplyForbidden
)

// ReleaseOutcome classifies the result of reversing a punishment. Success and
// AlreadyAbsent are both terminal: the target being gone (left the guild,
// role already removed, ban already lifted) counts as released. Every "is the
// target still there" judgement lives behind this outcome so callers never
// re-derive it.
type ReleaseOutcome int

const (
	ReleaseSuccess ReleaseOutcome = iota
	ReleaseAlreadyAbsent
	ReleaseForbidden
	ReleaseTransient
)

// Terminal reports whether the outcome ends the punishment's lifecycle.
func (o ReleaseOutcome) Terminal() bool {
	return o == ReleaseSuccess || o == ReleaseAlreadyAbsent
}

// EnforcementGateway is the boundary to the actual enforcement mechanism on
// the target guild. A timeout on the underlying call must map to
// ReleaseTransient, never to ReleaseAlreadyAbsent. The error, when non-nil,
// carries detail for logging; the outcome is authoritative.
type EnforcementGateway interface {
	Apply(ctx context.Context, guildID, userID string, action model.ActionType, durationSeconds int64, roleID, reason string) (ApplyOutcome, error)
	Release(ctx context.Context, guildID, userID string, kind model.PunishmentKind, roleID string) (ReleaseOutcome, error)
}

// AuditEvent describes a case mutation for logs and DMs.
type AuditEvent struct {
	CaseNumber  int64
	GuildID     string
	UserID      string
	ModeratorID string
	ActionType  model.ActionType
	Reason      string
	ExpiresAt   int64 // unix seconds, 0 when no expiry
	Rescheduled bool  // true when a schedule call replaced an existing punishment
}

// AuditNotifier is a best-effort event sink. A delivery failure never rolls
// back the mutation that produced the event; callers log and move on.
type AuditNotifier interface {
	Notify(ctx context.Context, event AuditEvent) error
}
