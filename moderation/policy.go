package moderation

import (
	"sort"
	"time"

	"modkeeper/model"
	cases_db "modkeeper/utils/database/cases"

	"github.com/jmoiron/sqlx"
)

// Decision is the outcome of evaluating a warning count against a rule
// table. The zero value means no escalation.
type Decision struct {
	ActionType      model.ActionType
	DurationSeconds int64
}

// None reports whether the decision is "take no action".
func (d Decision) None() bool {
	return d.ActionType == ""
}

// Evaluate looks the count up in the rule table. The rule with the highest
// satisfied threshold wins; thresholds are not cumulative. Pure: no side
// effects, same input always yields the same decision.
func Evaluate(rules []model.EscalationRule, count int) Decision {
	sorted := make([]model.EscalationRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ThresholdCount < sorted[j].ThresholdCount
	})

	var decision Decision
	for _, rule := range sorted {
		if count >= rule.ThresholdCount {
			decision = Decision{
				ActionType:      rule.ActionType,
				DurationSeconds: rule.DurationSeconds,
			}
		}
	}
	return decision
}

// WarningTracker derives active warning counts from the case ledger.
type WarningTracker struct {
	db         *sqlx.DB
	windowDays int
	now        func() time.Time
}

// NewWarningTracker creates a tracker. windowDays bounds the count to
// warnings recorded within the window; 0 counts all active warnings.
func NewWarningTracker(db *sqlx.DB, windowDays int) *WarningTracker {
	return &WarningTracker{db: db, windowDays: windowDays, now: time.Now}
}

// CountActive returns the number of active warn cases for a user.
func (t *WarningTracker) CountActive(guildID, userID string) (int, error) {
	var since *time.Time
	if t.windowDays > 0 {
		cutoff := t.now().AddDate(0, 0, -t.windowDays)
		since = &cutoff
	}
	return cases_db.CountActiveWarnings(t.db, guildID, userID, since)
}
