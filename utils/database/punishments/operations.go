package punishments

import (
	"fmt"

	"modkeeper/model"

	"github.com/jmoiron/sqlx"
)

// Upsert records an active punishment. When an active row already exists for
// the same (guild, user, kind, role) its expiry, creation time and case link
// are overwritten in place; the row stays active and keeps its id. The
// conflict target is the partial unique index on active rows, so two
// concurrent calls still collapse onto one row, with the later write winning.
// Returns the resulting row and the replaced row's prior state, nil when the
// punishment is new. Callers that need to undo a replace feed the prior
// state back through Restore.
func Upsert(db *sqlx.DB, p model.TemporalPunishment) (*model.TemporalPunishment, *model.TemporalPunishment, error) {
	// Probe first so the caller can tell replace apart from create and can
	// roll a failed replace back to what the row held.
	existing, err := GetActive(db, p.GuildID, p.UserID, p.Kind, p.RoleID)
	if err != nil {
		return nil, nil, err
	}

	query := `INSERT INTO temporal_punishments (guild_id, user_id, kind, role_id, case_id, created_at, expires_at, active)
	          VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	          ON CONFLICT (guild_id, user_id, kind, role_id) WHERE active = 1
	          DO UPDATE SET expires_at = excluded.expires_at,
	                        created_at = excluded.created_at,
	                        case_id = excluded.case_id`
	_, err = db.Exec(query, p.GuildID, p.UserID, string(p.Kind), p.RoleID, p.CaseID, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert punishment for user %s in guild %s: %w", p.UserID, p.GuildID, err)
	}

	row, err := GetActive(db, p.GuildID, p.UserID, p.Kind, p.RoleID)
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, fmt.Errorf("punishment for user %s in guild %s vanished after upsert", p.UserID, p.GuildID)
	}
	return row, existing, nil
}

// GetActive retrieves the active punishment for a key, nil when none exists.
func GetActive(db *sqlx.DB, guildID, userID string, kind model.PunishmentKind, roleID string) (*model.TemporalPunishment, error) {
	var rows []model.TemporalPunishment
	query := `SELECT * FROM temporal_punishments
	          WHERE guild_id = ? AND user_id = ? AND kind = ? AND role_id = ? AND active = 1`
	err := db.Select(&rows, query, guildID, userID, string(kind), roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active punishment for user %s in guild %s: %w", userID, guildID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetActiveByCaseID retrieves the active punishment created or last
// replaced by a case, nil when none survives.
func GetActiveByCaseID(db *sqlx.DB, caseID int64) (*model.TemporalPunishment, error) {
	var rows []model.TemporalPunishment
	err := db.Select(&rows, "SELECT * FROM temporal_punishments WHERE case_id = ? AND active = 1", caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active punishment for case %d: %w", caseID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetDue retrieves all active punishments of a kind whose expiry has passed.
func GetDue(db *sqlx.DB, kind model.PunishmentKind, now int64) ([]model.TemporalPunishment, error) {
	var records []model.TemporalPunishment
	query := `SELECT * FROM temporal_punishments WHERE kind = ? AND active = 1 AND expires_at <= ?`
	err := db.Select(&records, query, string(kind), now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due %s punishments: %w", kind, err)
	}
	return records, nil
}

// Deactivate flips a punishment inactive by key. The WHERE active = 1 guard
// makes the call idempotent and race-safe: of any competing writers exactly
// one observes a changed row, the rest observe zero and no error.
// Returns whether this call performed the flip.
func Deactivate(db *sqlx.DB, guildID, userID string, kind model.PunishmentKind, roleID string) (bool, error) {
	query := `UPDATE temporal_punishments SET active = 0
	          WHERE guild_id = ? AND user_id = ? AND kind = ? AND role_id = ? AND active = 1`
	result, err := db.Exec(query, guildID, userID, string(kind), roleID)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate punishment for user %s in guild %s: %w", userID, guildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for user %s in guild %s: %w", userID, guildID, err)
	}
	return rowsAffected > 0, nil
}

// DeactivateExpiring is Deactivate keyed by primary key and the expiry the
// caller read the row with. The id alone does not distinguish a row from its
// replacement, since Upsert rewrites the row in place; a reschedule landing
// in between changes expires_at, so the stale writer observes zero changed
// rows and the replacement punishment survives.
func DeactivateExpiring(db *sqlx.DB, id, expiresAt int64) (bool, error) {
	result, err := db.Exec(
		"UPDATE temporal_punishments SET active = 0 WHERE id = ? AND active = 1 AND expires_at = ?",
		id, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate punishment %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for punishment %d: %w", id, err)
	}
	return rowsAffected > 0, nil
}

// Restore puts a replaced row back to its prior expiry, creation time and
// case link after a failed reschedule. Conditional on the row still holding
// the failed write's expiry: a newer reschedule landing in the meantime
// keeps its own state.
func Restore(db *sqlx.DB, prior model.TemporalPunishment, failedExpiresAt int64) (bool, error) {
	query := `UPDATE temporal_punishments SET expires_at = ?, created_at = ?, case_id = ?
	          WHERE id = ? AND active = 1 AND expires_at = ?`
	result, err := db.Exec(query, prior.ExpiresAt, prior.CreatedAt, prior.CaseID, prior.ID, failedExpiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to restore punishment %d: %w", prior.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for punishment %d: %w", prior.ID, err)
	}
	return rowsAffected > 0, nil
}

// GetByID retrieves a punishment row regardless of its active flag.
func GetByID(db *sqlx.DB, id int64) (*model.TemporalPunishment, error) {
	var p model.TemporalPunishment
	err := db.Get(&p, "SELECT * FROM temporal_punishments WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get punishment by id %d: %w", id, err)
	}
	return &p, nil
}

// CountActive returns the number of active punishments in a guild.
func CountActive(db *sqlx.DB, guildID string) (int, error) {
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM temporal_punishments WHERE guild_id = ? AND active = 1", guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active punishments for guild %s: %w", guildID, err)
	}
	return count, nil
}
