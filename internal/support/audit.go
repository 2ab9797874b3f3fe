package support

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// auditTemplates maps event kinds to their fixed line format. Unknown
// kinds are dropped without error.
var auditTemplates = map[string]string{
	"ticket_created":           "🆕 Ticket created: user %d",
	"complaint_created":        "⚠️ Complaint created: user %d",
	"ticket_taken":             "👨‍💻 Ticket taken: user %d, agent #%d",
	"complaint_taken":          "👨‍💻 Complaint taken: user %d, agent #%d",
	"ticket_closed":            "🔴 Ticket closed: user %d",
	"ticket_closed_by_user":    "⚪️ Ticket closed by user: %d",
	"complaint_closed":         "🔴 Complaint closed: user %d",
	"complaint_closed_by_user": "⚪️ Complaint closed by user: %d",
	"user_banned":              "🔒 User banned: %d, agent #%d, reason: %s",
	"user_unbanned":            "🔓 User unbanned: %d, agent #%d",
	"agent_added":              "🎧 Agent added: #%d (%d)",
	"agent_removed":            "🗑 Agent removed: #%d (%d)",
	"broadcast_sent":           "📣 Broadcast sent: total %d, ok %d, failed %d",
	"direct_message_sent":      "✉️ Direct message sent: user %d",
}

// Auditor renders lifecycle events and forwards them to the dedicated
// logging sub-thread. Stateless; delivery is best-effort and never
// blocks or fails the triggering operation.
type Auditor struct {
	gw       Gateway
	chatID   int64
	threadID int
	logger   *zap.Logger
}

func NewAuditor(gw Gateway, chatID int64, threadID int, logger *zap.Logger) *Auditor {
	return &Auditor{gw: gw, chatID: chatID, threadID: threadID, logger: logger}
}

func (a *Auditor) Emit(ctx context.Context, kind string, args ...any) {
	tmpl, ok := auditTemplates[kind]
	if !ok {
		return
	}
	text := fmt.Sprintf(tmpl, args...)
	if _, err := a.gw.SendMessage(ctx, a.chatID, a.threadID, text); err != nil {
		a.logger.Warn("Audit delivery failed", zap.Error(err), zap.String("kind", kind))
	}
}
