package support

import (
	"context"
	"fmt"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// ensureOpenRecord returns the user's open record of the given kind,
// creating one when none exists or the previous one is closed. A fresh
// record gets its own staff sub-thread and control message; the old
// closed record is overwritten in the index (its history lives only in
// audit events).
func (e *Engine) ensureOpenRecord(ctx context.Context, kind models.RecordKind, msg Message) (models.Record, error) {
	rec, ok := e.store.Record(kind, msg.UserID)
	if ok && rec.Open() {
		return rec, nil
	}

	title := fmt.Sprintf("%d | %s", msg.UserID, msg.FirstName)
	threadID, err := e.gw.CreateThread(ctx, e.staffChatID, title)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to create sub-thread: %w", err)
	}

	header := fmt.Sprintf("🆕 New ticket\nID: %d\nUser: @%s", msg.UserID, msg.Username)
	if kind == models.KindComplaint {
		header = fmt.Sprintf("⚠️ New complaint\nID: %d\nUser: @%s", msg.UserID, msg.Username)
	}
	ctrlID, err := e.gw.SendButtons(ctx, e.staffChatID, threadID, header, e.controlButtons(kind, msg.UserID, false))
	e.deliver("control_message", err, zap.Int64("user_id", msg.UserID))

	rec = models.Record{
		UserID:           msg.UserID,
		ThreadID:         threadID,
		Status:           models.StatusOpen,
		ControlMessageID: ctrlID,
	}
	if err := e.store.PutRecord(kind, rec); err != nil {
		return models.Record{}, err
	}

	if kind == models.KindTicket {
		if err := e.store.IncrementTicketCount(msg.UserID); err != nil {
			e.logger.Error("Failed to increment ticket count",
				zap.Error(err), zap.Int64("user_id", msg.UserID))
		}
		confirm := "✅ Your ticket has been created. An agent will reply here."
		_, err = e.gw.SendButtons(ctx, msg.UserID, 0, confirm, [][]Button{
			{{Label: "✅ Close ticket", Data: "user_close_self"}},
			{{Label: "⚠️ File a complaint", Data: "create_complaint"}},
		})
		e.audit.Emit(ctx, "ticket_created", msg.UserID)
	} else {
		confirm := "✅ Your complaint has been filed. Only the owner can review it."
		_, err = e.gw.SendButtons(ctx, msg.UserID, 0, confirm, [][]Button{
			{{Label: "✅ Close complaint", Data: "user_close_complaint"}},
		})
		e.audit.Emit(ctx, "complaint_created", msg.UserID)
	}
	e.deliver("create_confirmation", err, zap.Int64("user_id", msg.UserID))

	return rec, nil
}

// assign inserts the record into the active assignment table. Tickets
// accept any staff actor; complaints are owner-only. Already-assigned
// records reject a second take.
func (e *Engine) assign(ctx context.Context, kind models.RecordKind, targetID int64, press ButtonPress) {
	unlock := e.locks.lock(targetID)
	defer unlock()

	role, agent := e.roleOf(press.ActorID)
	if role == RoleUser {
		return
	}
	if kind == models.KindComplaint && role != RoleOwner {
		return
	}
	rec, ok := e.store.Record(kind, targetID)
	if !ok || !rec.Open() {
		return
	}
	if _, taken := e.store.Assignment(targetID); taken {
		return
	}

	if err := e.store.SetAssignment(targetID, agent.Num); err != nil {
		e.logger.Error("Failed to record assignment", zap.Error(err), zap.Int64("user_id", targetID))
		return
	}

	err := e.gw.EditButtons(ctx, e.staffChatID, rec.ControlMessageID, e.controlButtons(kind, targetID, false))
	e.deliver("drop_take_button", err, zap.Int64("user_id", targetID))

	who := "The owner"
	if role == RoleAgent {
		who = fmt.Sprintf("Agent #%d", agent.Num)
	}
	if kind == models.KindTicket {
		e.notifyThread(ctx, rec.ThreadID, fmt.Sprintf("👨‍💻 %s took the ticket.", who))
		e.notifyUser(ctx, targetID, "👨‍💻 An agent is now handling your ticket.")
		e.audit.Emit(ctx, "ticket_taken", targetID, agent.Num)
	} else {
		e.notifyThread(ctx, rec.ThreadID, fmt.Sprintf("👨‍💻 %s took the complaint.", who))
		e.notifyUser(ctx, targetID, "👨‍💻 The owner is reviewing your complaint.")
		e.audit.Emit(ctx, "complaint_taken", targetID, agent.Num)
	}
}

// closeRecord moves an open record to its terminal state: clears the
// assignment, closes the sub-thread, repaints the control message to
// the closed layout and notifies the counterpart. Closing a closed
// record is a no-op, with no duplicate thread close or audit event.
func (e *Engine) closeRecord(ctx context.Context, kind models.RecordKind, targetID int64, byUser bool) {
	unlock := e.locks.lock(targetID)
	defer unlock()

	rec, ok := e.store.Record(kind, targetID)
	if !ok || !rec.Open() {
		return
	}

	rec.Status = models.StatusClosed
	if err := e.store.PutRecord(kind, rec); err != nil {
		e.logger.Error("Failed to close record", zap.Error(err), zap.Int64("user_id", targetID))
		return
	}
	if err := e.store.ClearAssignment(targetID); err != nil {
		e.logger.Error("Failed to clear assignment", zap.Error(err), zap.Int64("user_id", targetID))
	}

	noun := "ticket"
	if kind == models.KindComplaint {
		noun = "complaint"
		// Complaint-mode routing ends with the complaint.
		if p, pending := e.sessions.Get(targetID); pending && p.Kind == PromptComplaintMode {
			e.sessions.Clear(targetID)
		}
	}

	// The thread notice has to land before the topic is closed.
	if byUser {
		e.notifyThread(ctx, rec.ThreadID, fmt.Sprintf("⚪️ The user closed the %s.", noun))
	}

	err := e.gw.CloseThread(ctx, e.staffChatID, rec.ThreadID)
	e.deliver("close_thread", err, zap.Int("thread_id", rec.ThreadID))

	if rec.ControlMessageID != 0 {
		err = e.gw.EditButtons(ctx, e.staffChatID, rec.ControlMessageID, e.controlButtons(kind, targetID, true))
		e.deliver("closed_layout", err, zap.Int64("user_id", targetID))
	}

	if byUser {
		e.audit.Emit(ctx, string(kind)+"_closed_by_user", targetID)
	} else {
		e.notifyUser(ctx, targetID, fmt.Sprintf("🔴 Your %s has been closed.", noun))
		e.audit.Emit(ctx, string(kind)+"_closed", targetID)
	}
}
