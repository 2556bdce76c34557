package moderation

import (
	"context"
	"testing"
	"time"

	"modkeeper/model"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFixture struct {
	reconciler *Reconciler
	scheduler  *Scheduler
	ledger     *CaseLedger
	gw         *fakeGateway
	notifier   *fakeNotifier
	clock      *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	db := newTestDB(t)
	gw := &fakeGateway{}
	notifier := &fakeNotifier{}
	clock := &fakeClock{current: time.Now()}

	scheduler := NewScheduler(db, gw, notifier, 0)
	scheduler.now = clock.now
	ledger := NewCaseLedger(db)
	ledger.now = clock.now
	reconciler := NewReconciler(db, gw, notifier)
	reconciler.now = clock.now

	return &reconcilerFixture{
		reconciler: reconciler,
		scheduler:  scheduler,
		ledger:     ledger,
		gw:         gw,
		notifier:   notifier,
		clock:      clock,
	}
}

func (f *reconcilerFixture) schedule(t *testing.T, userID string, action model.ActionType, kind model.PunishmentKind, duration int64) (*model.Case, *model.TemporalPunishment) {
	t.Helper()
	c, err := f.ledger.RecordCase("g1", userID, "m1", action, "spam", duration)
	require.NoError(t, err)
	row, err := f.scheduler.Schedule(context.Background(), c, kind, "")
	require.NoError(t, err)
	return c, row
}

func TestSweepReleasesDuePunishment(t *testing.T) {
	f := newReconcilerFixture(t)
	c, row := f.schedule(t, "u1", model.ActionTempBan, model.PunishBan, 86400)

	// Not due yet: nothing happens.
	released, err := f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Empty(t, f.gw.releases())

	f.clock.advance(86401 * time.Second)
	released, err = f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	require.Len(t, f.gw.releases(), 1)
	got, err := punishments_db.GetByID(f.reconciler.db, row.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	expired, err := f.ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseExpired, expired.Status)

	assert.Len(t, f.notifier.byAction(model.ActionTempBan), 2, "one schedule event, one expiry event")
}

func TestSweepIsExactlyOnceAcrossTicks(t *testing.T) {
	f := newReconcilerFixture(t)
	f.schedule(t, "u1", model.ActionTempMute, model.PunishMute, 600)

	// Simulated downtime far past the expiry: still one release, then none.
	f.clock.advance(48 * time.Hour)
	released, err := f.reconciler.Sweep(context.Background(), model.PunishMute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	for n := 0; n < 3; n++ {
		released, err = f.reconciler.Sweep(context.Background(), model.PunishMute)
		require.NoError(t, err)
		assert.Zero(t, released)
	}
	assert.Len(t, f.gw.releases(), 1)
}

func TestSweepTransientFailureRetriesNextTick(t *testing.T) {
	f := newReconcilerFixture(t)
	c, row := f.schedule(t, "u1", model.ActionTempBan, model.PunishBan, 600)
	f.gw.releaseScript = []ReleaseOutcome{ReleaseTransient}

	f.clock.advance(time.Hour)

	// Tick 1: transient failure, still active, case untouched.
	released, err := f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Zero(t, released)
	got, err := punishments_db.GetByID(f.reconciler.db, row.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	stillActive, err := f.ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseActive, stillActive.Status)

	// Tick 2: success. Exactly one expiry event in total.
	released, err = f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Len(t, f.gw.releases(), 2)

	expiryEvents := 0
	for _, e := range f.notifier.byAction(model.ActionTempBan) {
		if e.ModeratorID == model.SystemModeratorID {
			expiryEvents++
		}
	}
	assert.Equal(t, 1, expiryEvents)
}

func TestSweepForbiddenStaysActive(t *testing.T) {
	f := newReconcilerFixture(t)
	_, row := f.schedule(t, "u1", model.ActionTempMute, model.PunishMute, 600)
	f.gw.releaseScript = []ReleaseOutcome{ReleaseForbidden, ReleaseForbidden}

	f.clock.advance(time.Hour)
	for n := 0; n < 2; n++ {
		released, err := f.reconciler.Sweep(context.Background(), model.PunishMute)
		require.NoError(t, err)
		assert.Zero(t, released, "a forbidden release keeps the punishment active")
	}

	got, err := punishments_db.GetByID(f.reconciler.db, row.ID)
	require.NoError(t, err)
	assert.True(t, got.Active, "stuck punishments stay visible for manual intervention")
}

func TestSweepAlreadyAbsentIsTerminal(t *testing.T) {
	f := newReconcilerFixture(t)
	c, row := f.schedule(t, "u1", model.ActionTempBan, model.PunishBan, 600)
	f.gw.releaseScript = []ReleaseOutcome{ReleaseAlreadyAbsent}

	f.clock.advance(time.Hour)
	released, err := f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Equal(t, 1, released, "a target that is already gone counts as released")

	got, err := punishments_db.GetByID(f.reconciler.db, row.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	expired, err := f.ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseExpired, expired.Status)
}

func TestSweepFailureIsolation(t *testing.T) {
	f := newReconcilerFixture(t)
	_, failing := f.schedule(t, "u1", model.ActionTempMute, model.PunishMute, 600)
	_, healthy := f.schedule(t, "u2", model.ActionTempMute, model.PunishMute, 600)

	// One row fails; the rest of the sweep proceeds.
	f.gw.releaseScript = []ReleaseOutcome{ReleaseTransient, ReleaseSuccess}

	f.clock.advance(time.Hour)
	released, err := f.reconciler.Sweep(context.Background(), model.PunishMute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	gotFailing, err := punishments_db.GetByID(f.reconciler.db, failing.ID)
	require.NoError(t, err)
	gotHealthy, err := punishments_db.GetByID(f.reconciler.db, healthy.ID)
	require.NoError(t, err)
	assert.NotEqual(t, gotFailing.Active, gotHealthy.Active, "exactly one of the two released this tick")
}

// extendDuringRelease upserts a later expiry while the sweep's release call
// is in flight, the way a moderator's reschedule lands between the sweep
// reading the row and deactivating it.
type extendDuringRelease struct {
	fakeGateway
	db     *sqlx.DB
	extend model.TemporalPunishment
}

func (g *extendDuringRelease) Release(ctx context.Context, guildID, userID string, kind model.PunishmentKind, roleID string) (ReleaseOutcome, error) {
	if _, _, err := punishments_db.Upsert(g.db, g.extend); err != nil {
		return ReleaseTransient, err
	}
	return g.fakeGateway.Release(ctx, guildID, userID, kind, roleID)
}

func TestRescheduleDuringSweepSurvives(t *testing.T) {
	f := newReconcilerFixture(t)
	c, row := f.schedule(t, "u1", model.ActionTempMute, model.PunishMute, 600)

	f.clock.advance(time.Hour)
	extendedExpiry := f.clock.now().Unix() + 3600
	f.reconciler.gateway = &extendDuringRelease{
		db: f.reconciler.db,
		extend: model.TemporalPunishment{
			GuildID:   "g1",
			UserID:    "u1",
			Kind:      model.PunishMute,
			CaseID:    c.ID,
			CreatedAt: f.clock.now().Unix(),
			ExpiresAt: extendedExpiry,
		},
	}

	released, err := f.reconciler.Sweep(context.Background(), model.PunishMute)
	require.NoError(t, err)
	assert.Zero(t, released, "the sweep backs off from the rewritten row")

	got, err := punishments_db.GetActive(f.reconciler.db, "g1", "u1", model.PunishMute, "")
	require.NoError(t, err)
	require.NotNil(t, got, "the reschedule that landed mid-sweep survives")
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, extendedExpiry, got.ExpiresAt)

	stillActive, err := f.ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseActive, stillActive.Status)

	// The extension runs its course and is released exactly once.
	f.reconciler.gateway = f.gw
	f.clock.advance(2 * time.Hour)
	released, err = f.reconciler.Sweep(context.Background(), model.PunishMute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Len(t, f.gw.releases(), 1)
}

func TestCancelBeforeExpiryPreventsExpiredEvent(t *testing.T) {
	f := newReconcilerFixture(t)
	c, row := f.schedule(t, "u1", model.ActionTempBan, model.PunishBan, 600)

	cancelled, err := f.scheduler.Cancel(context.Background(), "g1", "u1", model.PunishBan, "")
	require.NoError(t, err)
	require.True(t, cancelled)

	f.clock.advance(time.Hour)
	released, err := f.reconciler.Sweep(context.Background(), model.PunishBan)
	require.NoError(t, err)
	assert.Zero(t, released, "a cancelled punishment is never swept")

	got, err := punishments_db.GetByID(f.reconciler.db, row.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	revoked, err := f.ledger.GetCase("g1", c.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, model.CaseRevoked, revoked.Status, "cancelled, not expired")
}

func TestSweepOnlyTouchesItsKind(t *testing.T) {
	f := newReconcilerFixture(t)
	_, muteRow := f.schedule(t, "u1", model.ActionTempMute, model.PunishMute, 600)
	_, banRow := f.schedule(t, "u1", model.ActionTempBan, model.PunishBan, 600)

	f.clock.advance(time.Hour)
	released, err := f.reconciler.Sweep(context.Background(), model.PunishMute)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	gotMute, err := punishments_db.GetByID(f.reconciler.db, muteRow.ID)
	require.NoError(t, err)
	gotBan, err := punishments_db.GetByID(f.reconciler.db, banRow.ID)
	require.NoError(t, err)
	assert.False(t, gotMute.Active)
	assert.True(t, gotBan.Active, "the ban sweep runs independently")
}
