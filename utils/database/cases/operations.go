package cases

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modkeeper/model"

	"github.com/jmoiron/sqlx"
)

// InsertCase inserts a new case, assigning the next case number for the
// guild inside the insert statement itself. The statement is atomic, so two
// concurrent inserts for the same guild can never share a number: sqlite
// serializes the writers and each INSERT..SELECT sees the previous one's row.
// Returns the populated record.
func InsertCase(db *sqlx.DB, c model.Case) (*model.Case, error) {
	query := `INSERT INTO cases (guild_id, case_number, user_id, moderator_id, action_type, reason, duration_seconds, created_at, expires_at, status)
	          SELECT ?, COALESCE(MAX(case_number), 0) + 1, ?, ?, ?, ?, ?, ?, ?, ?
	          FROM cases WHERE guild_id = ?`

	result, err := db.Exec(query,
		c.GuildID, c.UserID, c.ModeratorID, string(c.ActionType), c.Reason,
		c.DurationSeconds, c.CreatedAt, c.ExpiresAt, string(c.Status), c.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert case for guild %s: %w", c.GuildID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return GetCaseByID(db, id)
}

// GetCaseByID retrieves a single case by its primary key.
func GetCaseByID(db *sqlx.DB, id int64) (*model.Case, error) {
	var c model.Case
	err := db.Get(&c, "SELECT * FROM cases WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case by id %d: %w", id, err)
	}
	return &c, nil
}

// GetCaseByNumber retrieves a case by its guild-scoped case number.
// Returns sql.ErrNoRows wrapped when no such case exists.
func GetCaseByNumber(db *sqlx.DB, guildID string, caseNumber int64) (*model.Case, error) {
	var c model.Case
	err := db.Get(&c, "SELECT * FROM cases WHERE guild_id = ? AND case_number = ?", guildID, caseNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get case %d for guild %s: %w", caseNumber, guildID, err)
	}
	return &c, nil
}

// ListFilter narrows ListCases; zero values mean "no filter".
type ListFilter struct {
	UserID     string
	ActionType model.ActionType
	Limit      int
}

// ListCases retrieves cases for a guild, most recent first.
func ListCases(db *sqlx.DB, guildID string, filter ListFilter) ([]model.Case, error) {
	query := "SELECT * FROM cases WHERE guild_id = ?"
	args := []interface{}{guildID}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.ActionType != "" {
		query += " AND action_type = ?"
		args = append(args, string(filter.ActionType))
	}
	query += " ORDER BY case_number DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var records []model.Case
	if err := db.Select(&records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cases for guild %s: %w", guildID, err)
	}
	return records, nil
}

// CountActiveWarnings counts active warn cases for a user, optionally
// bounded to those recorded at or after since (pass nil for unbounded).
func CountActiveWarnings(db *sqlx.DB, guildID, userID string, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM cases WHERE guild_id = ? AND user_id = ? AND action_type = ? AND status = ?`
	args := []interface{}{guildID, userID, string(model.ActionWarn), string(model.CaseActive)}

	if since != nil {
		query += " AND created_at >= ?"
		args = append(args, since.Unix())
	}

	var count int
	if err := db.Get(&count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count warnings for user %s in guild %s: %w", userID, guildID, err)
	}
	return count, nil
}

// UpdateStatus sets a case's status. Idempotent: updating a case that
// already carries the status affects one row and changes nothing; only a
// missing case is an error.
func UpdateStatus(db *sqlx.DB, id int64, status model.CaseStatus) error {
	result, err := db.Exec("UPDATE cases SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status for case ID %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for case ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no case found with ID %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// CountOpen returns the number of active cases in a guild.
func CountOpen(db *sqlx.DB, guildID string) (int, error) {
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM cases WHERE guild_id = ? AND status = ?", guildID, string(model.CaseActive))
	if err != nil {
		return 0, fmt.Errorf("failed to count open cases for guild %s: %w", guildID, err)
	}
	return count, nil
}

// IsNotFound reports whether err is a missing-row lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
