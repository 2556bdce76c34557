package moderation

import (
	"fmt"
	"time"

	"modkeeper/model"
	cases_db "modkeeper/utils/database/cases"

	"github.com/jmoiron/sqlx"
)

// CaseLedger is the append-mostly record of moderation actions. Case numbers
// are assigned by the store inside a single atomic insert, so they stay
// strictly increasing per guild under concurrent recording. Rows are never
// deleted here; only their status changes.
type CaseLedger struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCaseLedger creates a ledger over an initialized case database.
func NewCaseLedger(db *sqlx.DB) *CaseLedger {
	return &CaseLedger{db: db, now: time.Now}
}

// RecordCase assigns the next case number for the guild and persists the
// case. On failure nothing is visible and the caller decides whether to
// re-issue; an ambiguous failure is never retried here to avoid duplicate
// cases.
func (l *CaseLedger) RecordCase(guildID, userID, moderatorID string, action model.ActionType, reason string, durationSeconds int64) (*model.Case, error) {
	if !action.IsValid() {
		return nil, &ValidationError{Field: "action_type", Message: fmt.Sprintf("unknown action type %q", action)}
	}

	now := l.now().Unix()
	c := model.Case{
		GuildID:         guildID,
		UserID:          userID,
		ModeratorID:     moderatorID,
		ActionType:      action,
		Reason:          reason,
		DurationSeconds: durationSeconds,
		CreatedAt:       now,
		Status:          model.CaseActive,
	}
	if action.IsTemporal() && durationSeconds > 0 {
		c.ExpiresAt = now + durationSeconds
	}

	return cases_db.InsertCase(l.db, c)
}

// GetCase retrieves a case by guild-scoped number. Returns ErrNotFound when
// no such case exists.
func (l *CaseLedger) GetCase(guildID string, caseNumber int64) (*model.Case, error) {
	c, err := cases_db.GetCaseByNumber(l.db, guildID, caseNumber)
	if err != nil {
		if cases_db.IsNotFound(err) {
			return nil, fmt.Errorf("case %d in guild %s: %w", caseNumber, guildID, ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// ListCases retrieves cases for a guild, most recently numbered first,
// optionally filtered by user and action type.
func (l *CaseLedger) ListCases(guildID, userID string, action model.ActionType, limit int) ([]model.Case, error) {
	return cases_db.ListCases(l.db, guildID, cases_db.ListFilter{
		UserID:     userID,
		ActionType: action,
		Limit:      limit,
	})
}

// MarkStatus sets a case's status. Re-applying the current status is a
// no-op, not an error.
func (l *CaseLedger) MarkStatus(caseID int64, status model.CaseStatus) error {
	err := cases_db.UpdateStatus(l.db, caseID, status)
	if err != nil && cases_db.IsNotFound(err) {
		return fmt.Errorf("case id %d: %w", caseID, ErrNotFound)
	}
	return err
}
