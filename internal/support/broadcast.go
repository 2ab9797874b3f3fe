package support

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// broadcastPreviewLen bounds the body copy kept in the broadcast log.
const broadcastPreviewLen = 80

// Broadcast sends the body to every known user, sequentially and
// best-effort: each delivery failure is counted, never retried or
// escalated. The run is logged in the bounded broadcast log and is
// neither idempotent nor resumable.
func (e *Engine) Broadcast(ctx context.Context, body string, initiator int64) models.BroadcastLogEntry {
	users := e.store.Users()

	entry := models.BroadcastLogEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Sender:    initiator,
		Total:     len(users),
		Message:   truncate(body, broadcastPreviewLen),
	}

	for _, u := range users {
		if e.notifyUser(ctx, u.ID, body) {
			entry.Success++
		} else {
			entry.Failed++
		}
	}

	if err := e.store.AppendBroadcastLog(entry); err != nil {
		e.logger.Error("Failed to append broadcast log", zap.Error(err), zap.String("broadcast_id", entry.ID))
	}
	e.audit.Emit(ctx, "broadcast_sent", entry.Total, entry.Success, entry.Failed)
	return entry
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
