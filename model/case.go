package model

// ActionType identifies what a moderation case did to its target.
type ActionType string

const (
	ActionWarn     ActionType = "warn"
	ActionMute     ActionType = "mute"
	ActionKick     ActionType = "kick"
	ActionBan      ActionType = "ban"
	ActionTempMute ActionType = "tempmute"
	ActionTempBan  ActionType = "tempban"
	ActionTempRole ActionType = "temprole"
	ActionUnban    ActionType = "unban"
	ActionUnmute   ActionType = "unmute"
	ActionRevoke   ActionType = "revoke"
)

// IsValid reports whether t is one of the known action types.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionWarn, ActionMute, ActionKick, ActionBan,
		ActionTempMute, ActionTempBan, ActionTempRole,
		ActionUnban, ActionUnmute, ActionRevoke:
		return true
	}
	return false
}

// IsTemporal reports whether the action carries an expiry the bot itself
// must enforce.
func (t ActionType) IsTemporal() bool {
	return t == ActionTempMute || t == ActionTempBan || t == ActionTempRole
}

// CaseStatus is the lifecycle state of a recorded case.
type CaseStatus string

const (
	CaseActive  CaseStatus = "active"
	CaseExpired CaseStatus = "expired"
	CaseRevoked CaseStatus = "revoked"
)

// SystemModeratorID is recorded as the moderator on cases the bot creates
// on its own, e.g. automatic escalations.
const SystemModeratorID = "system"

// Case represents a single moderation action in the 'cases' table.
// CaseNumber is unique and strictly increasing within a guild.
type Case struct {
	ID              int64      `db:"id"` // Primary Key, Auto-increment
	GuildID         string     `db:"guild_id"`
	CaseNumber      int64      `db:"case_number"`
	UserID          string     `db:"user_id"`
	ModeratorID     string     `db:"moderator_id"`
	ActionType      ActionType `db:"action_type"`
	Reason          string     `db:"reason"`
	DurationSeconds int64      `db:"duration_seconds"` // 0 for permanent actions
	CreatedAt       int64      `db:"created_at"`       // unix seconds
	ExpiresAt       int64      `db:"expires_at"`       // unix seconds, 0 when no expiry
	Status          CaseStatus `db:"status"`
}
