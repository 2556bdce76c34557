package moderation

import (
	"context"
	"sync"
	"testing"

	"modkeeper/model"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *CaseLedger, *fakeGateway, *fakeNotifier) {
	t.Helper()
	db := newTestDB(t)
	gw := &fakeGateway{}
	notifier := &fakeNotifier{}
	return NewScheduler(db, gw, notifier, 30*24*3600), NewCaseLedger(db), gw, notifier
}

func mustRecord(t *testing.T, ledger *CaseLedger, action model.ActionType, duration int64) *model.Case {
	t.Helper()
	c, err := ledger.RecordCase("g1", "u1", "m1", action, "spam", duration)
	require.NoError(t, err)
	return c
}

func TestScheduleRejectsBadDurations(t *testing.T) {
	s, ledger, gw, _ := newTestScheduler(t)

	for _, duration := range []int64{0, -5, 31 * 24 * 3600} {
		c := mustRecord(t, ledger, model.ActionTempMute, duration)
		_, err := s.Schedule(context.Background(), c, model.PunishMute, "")
		assert.True(t, IsValidation(err), "duration %d should be rejected", duration)
	}

	assert.Empty(t, gw.applies(), "nothing reaches the gateway on validation failure")
	row, err := punishments_db.GetActive(s.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	assert.Nil(t, row, "nothing persisted on validation failure")
}

func TestScheduleRejectsRoleMismatch(t *testing.T) {
	s, ledger, _, _ := newTestScheduler(t)

	c := mustRecord(t, ledger, model.ActionTempRole, 3600)
	_, err := s.Schedule(context.Background(), c, model.PunishRole, "")
	assert.True(t, IsValidation(err), "role punishments need a role id")

	c = mustRecord(t, ledger, model.ActionTempMute, 3600)
	_, err = s.Schedule(context.Background(), c, model.PunishMute, "r1")
	assert.True(t, IsValidation(err), "non-role punishments must not carry a role id")
}

func TestSchedulePersistsAndApplies(t *testing.T) {
	s, ledger, gw, notifier := newTestScheduler(t)

	c := mustRecord(t, ledger, model.ActionTempBan, 86400)
	row, err := s.Schedule(context.Background(), c, model.PunishBan, "")
	require.NoError(t, err)

	assert.True(t, row.Active)
	assert.Equal(t, row.CreatedAt+86400, row.ExpiresAt)
	assert.Equal(t, c.ID, row.CaseID)

	require.Len(t, gw.applies(), 1)
	assert.Equal(t, model.ActionTempBan, gw.applies()[0].Action)

	events := notifier.byAction(model.ActionTempBan)
	require.Len(t, events, 1)
	assert.False(t, events[0].Rescheduled)
}

func TestScheduleReplacesExistingPunishment(t *testing.T) {
	s, ledger, _, notifier := newTestScheduler(t)

	first := mustRecord(t, ledger, model.ActionTempMute, 600)
	firstRow, err := s.Schedule(context.Background(), first, model.PunishMute, "")
	require.NoError(t, err)

	second := mustRecord(t, ledger, model.ActionTempMute, 7200)
	secondRow, err := s.Schedule(context.Background(), second, model.PunishMute, "")
	require.NoError(t, err)

	// One row, keeping its identity, carrying the later duration.
	assert.Equal(t, firstRow.ID, secondRow.ID)
	assert.Equal(t, secondRow.CreatedAt+7200, secondRow.ExpiresAt)
	assert.Equal(t, second.ID, secondRow.CaseID)

	var count int
	require.NoError(t, s.db.Get(&count,
		"SELECT COUNT(*) FROM temporal_punishments WHERE guild_id = 'g1' AND user_id = 'u1' AND active = 1"))
	assert.Equal(t, 1, count, "replace, never stack")

	events := notifier.byAction(model.ActionTempMute)
	require.Len(t, events, 2)
	assert.True(t, events[1].Rescheduled)
}

func TestScheduleConcurrentCallsCollapseToOneRow(t *testing.T) {
	s, ledger, _, _ := newTestScheduler(t)

	first := mustRecord(t, ledger, model.ActionTempMute, 600)
	second := mustRecord(t, ledger, model.ActionTempMute, 7200)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, c := range []*model.Case{first, second} {
		wg.Add(1)
		go func(c *model.Case) {
			defer wg.Done()
			_, err := s.Schedule(context.Background(), c, model.PunishMute, "")
			errs <- err
		}(c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var count int
	require.NoError(t, s.db.Get(&count,
		"SELECT COUNT(*) FROM temporal_punishments WHERE guild_id = 'g1' AND user_id = 'u1' AND active = 1"))
	assert.Equal(t, 1, count, "concurrent schedules collapse onto one row")

	row, err := punishments_db.GetActive(s.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	require.NotNil(t, row)
	switch row.CaseID {
	case first.ID:
		assert.Equal(t, row.CreatedAt+600, row.ExpiresAt)
	case second.ID:
		assert.Equal(t, row.CreatedAt+7200, row.ExpiresAt)
	default:
		t.Fatalf("active punishment linked to unexpected case %d", row.CaseID)
	}
}

func TestScheduleRollsBackWhenTargetMissing(t *testing.T) {
	s, ledger, gw, _ := newTestScheduler(t)
	gw.applyOutcome = ApplyNotFound

	c := mustRecord(t, ledger, model.ActionTempMute, 3600)
	_, err := s.Schedule(context.Background(), c, model.PunishMute, "")
	assert.ErrorIs(t, err, ErrNotFound)

	row, err := punishments_db.GetActive(s.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	assert.Nil(t, row, "no active row survives a failed apply")
}

func TestScheduleRollsBackWhenForbidden(t *testing.T) {
	s, ledger, gw, _ := newTestScheduler(t)
	gw.applyOutcome = ApplyForbidden

	c := mustRecord(t, ledger, model.ActionTempMute, 3600)
	_, err := s.Schedule(context.Background(), c, model.PunishMute, "")
	assert.ErrorIs(t, err, ErrPermission)

	row, err := punishments_db.GetActive(s.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestFailedRescheduleKeepsPriorPunishment(t *testing.T) {
	s, ledger, gw, notifier := newTestScheduler(t)

	first := mustRecord(t, ledger, model.ActionTempMute, 600)
	firstRow, err := s.Schedule(context.Background(), first, model.PunishMute, "")
	require.NoError(t, err)

	gw.applyOutcome = ApplyForbidden
	second := mustRecord(t, ledger, model.ActionTempMute, 7200)
	_, err = s.Schedule(context.Background(), second, model.PunishMute, "")
	assert.ErrorIs(t, err, ErrPermission)

	// The first punishment is still live on the platform; the failed
	// reschedule must leave it scheduled for release under its own terms.
	row, err := punishments_db.GetActive(s.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	require.NotNil(t, row, "prior punishment survives the failed reschedule")
	assert.Equal(t, firstRow.ExpiresAt, row.ExpiresAt)
	assert.Equal(t, first.ID, row.CaseID)

	events := notifier.byAction(model.ActionTempMute)
	require.Len(t, events, 1, "no audit event for the reschedule that never happened")
	assert.False(t, events[0].Rescheduled)
}

func TestCancelReleasesAndRevokesCase(t *testing.T) {
	s, ledger, gw, _ := newTestScheduler(t)

	c := mustRecord(t, ledger, model.ActionTempBan, 86400)
	_, err := s.Schedule(context.Background(), c, model.PunishBan, "")
	require.NoError(t, err)

	cancelled, err := s.Cancel(context.Background(), "g1", "u1", model.PunishBan, "")
	require.NoError(t, err)
	assert.True(t, cancelled)

	require.Len(t, gw.releases(), 1)
	assert.Equal(t, model.PunishBan, gw.releases()[0].Kind)

	got, err := ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseRevoked, got.Status)
}

func TestCancelIdempotent(t *testing.T) {
	s, ledger, gw, _ := newTestScheduler(t)

	c := mustRecord(t, ledger, model.ActionTempBan, 86400)
	_, err := s.Schedule(context.Background(), c, model.PunishBan, "")
	require.NoError(t, err)

	cancelled, err := s.Cancel(context.Background(), "g1", "u1", model.PunishBan, "")
	require.NoError(t, err)
	assert.True(t, cancelled)

	cancelled, err = s.Cancel(context.Background(), "g1", "u1", model.PunishBan, "")
	require.NoError(t, err, "second cancel is not an error")
	assert.False(t, cancelled, "second cancel observes zero changed rows")

	assert.Len(t, gw.releases(), 1, "only the winning cancel releases")
}

func TestCancelWithoutActivePunishment(t *testing.T) {
	s, _, gw, _ := newTestScheduler(t)

	cancelled, err := s.Cancel(context.Background(), "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Empty(t, gw.releases())
}
