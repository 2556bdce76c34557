package moderation

import (
	"context"
	"sync"
	"testing"

	"modkeeper/model"
	cases_db "modkeeper/utils/database/cases"
	punishments_db "modkeeper/utils/database/punishments"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// newTestDB opens an in-memory database with both schemas. Capped to one
// connection so every goroutine sees the same memory database.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, cases_db.EnsureSchema(db))
	require.NoError(t, punishments_db.EnsureSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

type gatewayCall struct {
	GuildID string
	UserID  string
	Action  model.ActionType
	Kind    model.PunishmentKind
	RoleID  string
}

// fakeGateway records calls and plays back scripted outcomes. Release
// outcomes are consumed in order; once the script runs out every call
// succeeds.
type fakeGateway struct {
	mu            sync.Mutex
	applyOutcome  ApplyOutcome
	applyErr      error
	releaseScript []ReleaseOutcome
	applyCalls    []gatewayCall
	releaseCalls  []gatewayCall
}

func (g *fakeGateway) Apply(_ context.Context, guildID, userID string, action model.ActionType, _ int64, roleID, _ string) (ApplyOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applyCalls = append(g.applyCalls, gatewayCall{GuildID: guildID, UserID: userID, Action: action, RoleID: roleID})
	return g.applyOutcome, g.applyErr
}

func (g *fakeGateway) Release(_ context.Context, guildID, userID string, kind model.PunishmentKind, roleID string) (ReleaseOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseCalls = append(g.releaseCalls, gatewayCall{GuildID: guildID, UserID: userID, Kind: kind, RoleID: roleID})
	if len(g.releaseScript) > 0 {
		outcome := g.releaseScript[0]
		g.releaseScript = g.releaseScript[1:]
		return outcome, nil
	}
	return ReleaseSuccess, nil
}

func (g *fakeGateway) releases() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.releaseCalls...)
}

func (g *fakeGateway) applies() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.applyCalls...)
}

// fakeNotifier collects audit events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, event AuditEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *fakeNotifier) byAction(action model.ActionType) []AuditEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []AuditEvent
	for _, e := range n.events {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}
