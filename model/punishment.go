package model

// PunishmentKind is the enforcement mechanism behind a temporal punishment.
type PunishmentKind string

const (
	PunishMute PunishmentKind = "mute"
	PunishBan  PunishmentKind = "ban"
	PunishRole PunishmentKind = "role"
)

// IsValid reports whether k is one of the known punishment kinds.
func (k PunishmentKind) IsValid() bool {
	return k == PunishMute || k == PunishBan || k == PunishRole
}

// KindForAction maps a temporal action type to the punishment kind that
// enforces it.
func KindForAction(t ActionType) (PunishmentKind, bool) {
	switch t {
	case ActionTempMute:
		return PunishMute, true
	case ActionTempBan:
		return PunishBan, true
	case ActionTempRole:
		return PunishRole, true
	}
	return "", false
}

// TemporalPunishment represents a row in the 'temporal_punishments' table:
// an enforcement action the bot must reverse once ExpiresAt passes.
// While Active is true at most one row exists per
// (guild_id, user_id, kind, role_id).
type TemporalPunishment struct {
	ID        int64          `db:"id"` // Primary Key, Auto-increment
	GuildID   string         `db:"guild_id"`
	UserID    string         `db:"user_id"`
	Kind      PunishmentKind `db:"kind"`
	RoleID    string         `db:"role_id"` // empty unless Kind is role
	CaseID    int64          `db:"case_id"` // the case that created or last replaced this row
	CreatedAt int64          `db:"created_at"`
	ExpiresAt int64          `db:"expires_at"`
	Active    bool           `db:"active"`
}
