package support

import (
	"context"
	"fmt"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// Ban adds the target to the ban set, records the reason and the acting
// agent's number, and bumps that agent's ban counter (owner bans carry
// number 0 and bump nothing). Banning never touches ticket or
// complaint status.
func (e *Engine) Ban(ctx context.Context, targetID int64, reason string, actorID int64) {
	role, agent := e.roleOf(actorID)
	if role == RoleUser {
		return
	}

	unlock := e.locks.lock(targetID)
	defer unlock()

	if err := e.store.Ban(targetID, models.BanReason{Reason: reason, AgentNum: agent.Num}); err != nil {
		e.logger.Error("Failed to ban user", zap.Error(err), zap.Int64("user_id", targetID))
		return
	}
	if role == RoleAgent {
		if err := e.store.IncrementBans(agent.ID); err != nil {
			e.logger.Error("Failed to count ban", zap.Error(err), zap.Int64("agent_id", agent.ID))
		}
	}

	e.notifyUser(ctx, targetID, fmt.Sprintf("🔒 You have been banned. Reason: %s", reason))
	e.audit.Emit(ctx, "user_banned", targetID, agent.Num, reason)
}

// Unban removes the target from the ban set and drops the reason
// record.
func (e *Engine) Unban(ctx context.Context, targetID int64, actorID int64) {
	role, agent := e.roleOf(actorID)
	if role == RoleUser {
		return
	}

	unlock := e.locks.lock(targetID)
	defer unlock()

	if !e.store.IsBanned(targetID) {
		return
	}
	if err := e.store.Unban(targetID); err != nil {
		e.logger.Error("Failed to unban user", zap.Error(err), zap.Int64("user_id", targetID))
		return
	}

	e.notifyUser(ctx, targetID, "🔓 You have been unbanned.")
	e.audit.Emit(ctx, "user_unbanned", targetID, agent.Num)
}

// IsBanned reports whether the user is currently banned.
func (e *Engine) IsBanned(userID int64) bool {
	return e.store.IsBanned(userID)
}
