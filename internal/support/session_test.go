package support

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonNumericReplyRepromptsWithoutClearing(t *testing.T) {
	e, gw, _ := newTestEngine(t)
	ctx := context.Background()

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_ban", 0, 0))
	prompt, pending := e.sessions.Get(testOwnerID)
	require.True(t, pending)
	assert.Equal(t, PromptBanTarget, prompt.Kind)

	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "not-a-number"))

	prompt, pending = e.sessions.Get(testOwnerID)
	require.True(t, pending)
	assert.Equal(t, PromptBanTarget, prompt.Kind)

	last, _ := gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "numeric")
}

func TestBanByIDFlow(t *testing.T) {
	e, _, store := newTestEngine(t)
	ctx := context.Background()

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_ban", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "42"))

	prompt, pending := e.sessions.Get(testOwnerID)
	require.True(t, pending)
	assert.Equal(t, PromptBanReason, prompt.Kind)
	assert.Equal(t, int64(42), prompt.TargetID)

	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "repeated spam"))

	_, pending = e.sessions.Get(testOwnerID)
	assert.False(t, pending)
	assert.True(t, store.IsBanned(42))
}

func TestNewPromptOverwritesPrevious(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_dm", 0, 0))
	e.HandleButton(ctx, staffPress(testOwnerID, "adm_ban", 0, 0))

	prompt, pending := e.sessions.Get(testOwnerID)
	require.True(t, pending)
	assert.Equal(t, PromptBanTarget, prompt.Kind)
}

func TestAddAndRemoveAgentKeepNumbersStable(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_agent_add", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "7"))
	e.HandleButton(ctx, staffPress(testOwnerID, "adm_agent_add", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "8"))

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_agent_remove", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "7"))

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_agent_add", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "9"))

	latest, ok := store.Agent(9)
	require.True(t, ok)
	assert.Equal(t, 3, latest.Num) // removal never frees a number

	assert.Equal(t, 3, gw.auditCount("Agent added"))
	assert.Equal(t, 1, gw.auditCount("Agent removed"))
}

func TestDirectMessageFlow(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.RegisterUser(42, "target")

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_dm", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "42"))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "Hello from the owner"))

	last, ok := gw.lastTo(42)
	require.True(t, ok)
	assert.Equal(t, "Hello from the owner", last.Text)
	assert.Equal(t, 1, gw.auditCount("Direct message sent"))
}

func TestViewUserPrompt(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.RegisterUser(42, "curious")
	store.IncrementTicketCount(42)

	e.HandleButton(ctx, staffPress(testOwnerID, "adm_view", 0, 0))
	e.HandleStaffMessage(ctx, staffMsg(testOwnerID, 0, "42"))

	last, _ := gw.lastTo(testStaffChat)
	assert.Contains(t, last.Text, "@curious")
	assert.Contains(t, last.Text, "tickets: 1")
}

func TestPromptConsumptionWinsOverMirroring(t *testing.T) {
	e, gw, store := newTestEngine(t)
	ctx := context.Background()

	store.AddAgent(7)
	e.HandleDirectMessage(ctx, userMsg(42, "Hello"))
	rec, _ := store.Record("ticket", 42)

	// With a pending prompt, a message inside the sub-thread answers
	// the prompt instead of being mirrored.
	e.HandleButton(ctx, staffPress(7, "ban_42", rec.ThreadID, rec.ControlMessageID))
	e.HandleStaffMessage(ctx, staffMsg(7, rec.ThreadID, "flooding"))

	assert.Len(t, gw.copies, 1)
	assert.True(t, store.IsBanned(42))
}
