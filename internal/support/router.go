package support

import (
	"context"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

const banNotice = "🔒 You are banned from support."

// HandleStart registers the user and greets them. First contact
// creates the metadata entry; later contacts refresh the username.
func (e *Engine) HandleStart(ctx context.Context, msg Message) {
	if err := e.store.RegisterUser(msg.UserID, msg.Username); err != nil {
		e.logger.Error("Failed to register user", zap.Error(err), zap.Int64("user_id", msg.UserID))
	}
	_, err := e.gw.SendMessage(ctx, msg.ChatID, 0, "👋 Hello! Describe your problem and an agent will get back to you.")
	e.deliver("greeting", err, zap.Int64("user_id", msg.UserID))
}

// HandleDirectMessage routes a private-chat message: ban screen first,
// then staff prompt consumption, then the ticket/complaint namespaces.
func (e *Engine) HandleDirectMessage(ctx context.Context, msg Message) {
	if e.store.IsBanned(msg.UserID) {
		_, err := e.gw.SendMessage(ctx, msg.ChatID, 0, banNotice)
		e.deliver("ban_notice", err, zap.Int64("user_id", msg.UserID))
		return
	}

	if err := e.store.RegisterUser(msg.UserID, msg.Username); err != nil {
		e.logger.Error("Failed to refresh user", zap.Error(err), zap.Int64("user_id", msg.UserID))
	}

	// A pending staff prompt is consumed before any routing. Complaint
	// mode is not a staff prompt; it only picks the namespace below.
	prompt, pending := e.sessions.Get(msg.UserID)
	if pending && prompt.Kind != PromptComplaintMode && e.isStaff(msg.UserID) {
		e.handlePromptReply(ctx, msg, prompt)
		return
	}

	kind := models.KindTicket
	if pending && prompt.Kind == PromptComplaintMode {
		kind = models.KindComplaint
	}

	unlock := e.locks.lock(msg.UserID)
	defer unlock()

	rec, err := e.ensureOpenRecord(ctx, kind, msg)
	if err != nil {
		e.logger.Error("Failed to ensure open record",
			zap.Error(err), zap.Int64("user_id", msg.UserID), zap.String("kind", string(kind)))
		return
	}

	err = e.gw.CopyMessage(ctx, e.staffChatID, rec.ThreadID, msg.ChatID, msg.MessageID)
	e.deliver("mirror_to_thread", err, zap.Int64("user_id", msg.UserID), zap.Int("thread_id", rec.ThreadID))
}

// HandleStaffMessage routes a staff-group message: a pending prompt for
// the sender always wins over mirroring; otherwise messages inside a
// sub-thread of an open record are mirrored to the record's owner.
// Messages in the group root are never mirrored.
func (e *Engine) HandleStaffMessage(ctx context.Context, msg Message) {
	prompt, pending := e.sessions.Get(msg.UserID)
	if pending && prompt.Kind != PromptComplaintMode && e.isStaff(msg.UserID) {
		e.handlePromptReply(ctx, msg, prompt)
		return
	}

	if msg.ThreadID == 0 {
		return
	}

	kind, rec, ok := e.store.RecordByThread(msg.ThreadID)
	if !ok || !rec.Open() {
		return
	}

	role, agent := e.roleOf(msg.UserID)
	if role == RoleUser {
		return
	}

	err := e.gw.CopyMessage(ctx, rec.UserID, 0, e.staffChatID, msg.MessageID)
	if !e.deliver("mirror_to_user", err, zap.Int64("user_id", rec.UserID), zap.String("kind", string(kind))) {
		return
	}
	if role == RoleAgent {
		if err := e.store.IncrementReplies(agent.ID); err != nil {
			e.logger.Error("Failed to count reply", zap.Error(err), zap.Int64("agent_id", agent.ID))
		}
	}
}
