package support

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownActionIgnored(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	e.HandleButton(ctx, staffPress(testOwnerID, "frobnicate_42", 0, 0))
	e.HandleButton(ctx, staffPress(testOwnerID, "close_garbage", 0, 0))
	e.HandleButton(ctx, staffPress(testOwnerID, "take_notanumber", 0, 0))

	assert.Empty(t, gw.sent)
	assert.Empty(t, store.Users())
}

func TestOwnerPanelRejectedForOthers(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)
	e.HandleOwnerPanel(ctx, staffMsg(7, 0, "/admin"))
	e.HandleButton(ctx, staffPress(7, "adm_broadcast", 0, 0))

	assert.Empty(t, gw.sent)
	_, pending := e.sessions.Get(7)
	assert.False(t, pending)
}

func TestOwnerPanelOffersActions(t *testing.T) {
	e, gw, _ := newTestEngine(t)
	ctx := context.Background()

	e.HandleOwnerPanel(ctx, staffMsg(testOwnerID, 0, "/admin"))

	last, ok := gw.lastTo(testStaffChat)
	require.True(t, ok)
	require.NotEmpty(t, last.Buttons)

	var actions []string
	for _, row := range last.Buttons {
		for _, b := range row {
			actions = append(actions, b.Data)
		}
	}
	assert.Contains(t, actions, "adm_users")
	assert.Contains(t, actions, "adm_broadcast")
	assert.Contains(t, actions, "adm_agent_add")
}

func TestAgentPanelOnlyInStaffGroup(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)

	private := userMsg(7, "/agent")
	e.HandleAgentPanel(ctx, private)
	assert.Empty(t, gw.sent)

	e.HandleAgentPanel(ctx, staffMsg(7, 0, "/agent"))
	last, ok := gw.lastTo(testStaffChat)
	require.True(t, ok)
	require.NotEmpty(t, last.Buttons)
}

func TestAgentStatsButton(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)
	store.IncrementReplies(7)
	store.IncrementReplies(7)

	e.HandleButton(ctx, staffPress(7, "agent_stats", 0, 0))
	last, _ := gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "replies: 2")
}

func TestOwnerStatsAndLists(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)
	e.HandleDirectMessage(ctx, userMsg(42, "Hello"))
	e.Ban(ctx, 43, "spam", 7)
	store.RegisterUser(43, "banned_guy")

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_stats", 0, 0))
	last, _ := gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "Open tickets: 1")
	assert.Contains(t, last.Text, "Banned: 1")

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_users", 0, 0))
	last, _ = gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "@banned_guy")
	assert.Contains(t, last.Text, "BANNED")

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_agents", 0, 0))
	last, _ = gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "#1")
}

func TestUnbanButtonRepaintsControl(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)
	e.HandleDirectMessage(ctx, userMsg(42, "Hello"))
	rec, _ := store.Record("ticket", 42)

	e.Ban(ctx, 42, "spam", 7)
	e.HandleButton(ctx, staffPress(7, "unban_42", rec.ThreadID, rec.ControlMessageID))

	assert.False(t, store.IsBanned(42))
	buttons, ok := gw.edits[rec.ControlMessageID]
	require.True(t, ok)
	var actions []string
	for _, row := range buttons {
		for _, b := range row {
			actions = append(actions, b.Data)
		}
	}
	assert.Contains(t, actions, "ban_42")
}
