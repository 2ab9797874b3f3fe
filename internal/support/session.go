package support

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// PromptKind tags what follow-up input an actor's single session slot
// is waiting for.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptAddAgent
	PromptRemoveAgent
	PromptBanTarget
	PromptBanReason
	PromptUnbanID
	PromptViewUser
	PromptBroadcast
	PromptDirectTarget
	PromptDirectBody
	PromptComplaintMode
)

// Prompt is the single pending slot for one actor. TargetID carries the
// subject collected by an earlier step (ban target, DM recipient).
// ControlMessageID points at the control message to repaint after a ban
// started from a record's buttons.
type Prompt struct {
	Kind             PromptKind
	TargetID         int64
	ControlMessageID int
	ThreadID         int
}

// Sessions is the in-memory per-actor slot table. Setting a new prompt
// overwrites any unconsumed one; nothing here survives a restart.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]Prompt
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]Prompt)}
}

func (s *Sessions) Set(actorID int64, p Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[actorID] = p
}

func (s *Sessions) Get(actorID int64) (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[actorID]
	return p, ok && p.Kind != PromptNone
}

func (s *Sessions) Clear(actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, actorID)
}

// handlePromptReply consumes a plain-text message answering the actor's
// pending prompt. Numeric-id prompts reject non-numeric input and
// re-prompt without clearing the slot.
func (e *Engine) handlePromptReply(ctx context.Context, msg Message, prompt Prompt) {
	reply := func(text string) {
		_, err := e.gw.SendMessage(ctx, msg.ChatID, msg.ThreadID, text)
		e.deliver("prompt_reply", err, zap.Int64("actor_id", msg.UserID))
	}

	needID := func() (int64, bool) {
		id, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
		if err != nil {
			reply("Please enter a numeric user ID.")
			return 0, false
		}
		return id, true
	}

	switch prompt.Kind {
	case PromptAddAgent:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Clear(msg.UserID)
		agent, err := e.store.AddAgent(id)
		if err != nil {
			e.logger.Error("Failed to add agent", zap.Error(err), zap.Int64("agent_id", id))
			reply("Failed to add agent.")
			return
		}
		reply(fmt.Sprintf("✅ Agent #%d added.", agent.Num))
		e.audit.Emit(ctx, "agent_added", agent.Num, id)

	case PromptRemoveAgent:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Clear(msg.UserID)
		agent, exists := e.store.Agent(id)
		if !exists {
			reply("No agent with that ID.")
			return
		}
		if err := e.store.RemoveAgent(id); err != nil {
			e.logger.Error("Failed to remove agent", zap.Error(err), zap.Int64("agent_id", id))
			reply("Failed to remove agent.")
			return
		}
		reply(fmt.Sprintf("✅ Agent #%d removed.", agent.Num))
		e.audit.Emit(ctx, "agent_removed", agent.Num, id)

	case PromptBanTarget:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Set(msg.UserID, Prompt{Kind: PromptBanReason, TargetID: id})
		reply("📝 Enter the ban reason:")

	case PromptBanReason:
		e.sessions.Clear(msg.UserID)
		e.Ban(ctx, prompt.TargetID, msg.Text, msg.UserID)
		if prompt.ControlMessageID != 0 {
			e.repaintControl(ctx, prompt.TargetID, prompt.ControlMessageID)
		}
		_, agent := e.roleOf(msg.UserID)
		if agent.Num > 0 {
			reply(fmt.Sprintf("🔒 User banned by agent #%d.", agent.Num))
		} else {
			reply("🔒 User banned.")
		}

	case PromptUnbanID:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Clear(msg.UserID)
		e.Unban(ctx, id, msg.UserID)
		reply("🔓 User unbanned.")

	case PromptViewUser:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Clear(msg.UserID)
		reply(e.describeUser(id))

	case PromptBroadcast:
		e.sessions.Clear(msg.UserID)
		entry := e.Broadcast(ctx, msg.Text, msg.UserID)
		reply(fmt.Sprintf("📣 Broadcast sent: %d total, %d delivered, %d failed.",
			entry.Total, entry.Success, entry.Failed))

	case PromptDirectTarget:
		id, ok := needID()
		if !ok {
			return
		}
		e.sessions.Set(msg.UserID, Prompt{Kind: PromptDirectBody, TargetID: id})
		reply("✉️ Enter the message text:")

	case PromptDirectBody:
		e.sessions.Clear(msg.UserID)
		if e.notifyUser(ctx, prompt.TargetID, msg.Text) {
			reply("✅ Message delivered.")
			e.audit.Emit(ctx, "direct_message_sent", prompt.TargetID)
		} else {
			reply("⚠️ Could not deliver the message.")
		}
	}
}

func (e *Engine) describeUser(id int64) string {
	user, ok := e.store.User(id)
	if !ok {
		return "Unknown user."
	}
	text := fmt.Sprintf("👤 %d | @%s | tickets: %d", user.ID, user.Username, user.TicketCount)
	if e.store.IsBanned(id) {
		reason, _ := e.store.BanReason(id)
		text += fmt.Sprintf("\n🔒 BANNED: %s (agent #%d)", reason.Reason, reason.AgentNum)
	}
	return text
}

// repaintControl refreshes a record's control message after a ban state
// change, keeping the button set in step with store state.
func (e *Engine) repaintControl(ctx context.Context, userID int64, messageID int) {
	kind := models.KindTicket
	rec, ok := e.store.Record(kind, userID)
	if !ok || rec.ControlMessageID != messageID {
		kind = models.KindComplaint
		rec, ok = e.store.Record(kind, userID)
		if !ok || rec.ControlMessageID != messageID {
			return
		}
	}
	err := e.gw.EditButtons(ctx, e.staffChatID, messageID, e.controlButtons(kind, userID, !rec.Open()))
	e.deliver("repaint_control", err, zap.Int64("user_id", userID))
}
