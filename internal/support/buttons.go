package support

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// controlButtons builds a record's control-message layout from current
// store state. Closed records keep only the ban toggle.
func (e *Engine) controlButtons(kind models.RecordKind, userID int64, closed bool) [][]Button {
	var rows [][]Button
	if !closed {
		if _, taken := e.store.Assignment(userID); !taken {
			takeData := fmt.Sprintf("take_%d", userID)
			if kind == models.KindComplaint {
				takeData = fmt.Sprintf("take_complaint_%d", userID)
			}
			rows = append(rows, []Button{{Label: "👨‍💻 Take", Data: takeData}})
		}
		flag := 0
		if kind == models.KindComplaint {
			flag = 1
		}
		rows = append(rows, []Button{{Label: "✅ Close", Data: fmt.Sprintf("close_%d_%d", userID, flag)}})
	}
	if e.store.IsBanned(userID) {
		rows = append(rows, []Button{{Label: "🔓 Unban", Data: fmt.Sprintf("unban_%d", userID)}})
	} else {
		rows = append(rows, []Button{{Label: "🔒 Ban", Data: fmt.Sprintf("ban_%d", userID)}})
	}
	return rows
}

func ownerPanelButtons() [][]Button {
	return [][]Button{
		{{Label: "👥 All users", Data: "adm_users"}},
		{{Label: "🛠 Add agent", Data: "adm_agent_add"}, {Label: "🗑 Remove agent", Data: "adm_agent_remove"}},
		{{Label: "🎧 Agents", Data: "adm_agents"}, {Label: "📊 Stats", Data: "adm_stats"}},
		{{Label: "📣 Broadcast", Data: "adm_broadcast"}, {Label: "🗒 Broadcast log", Data: "adm_blogs"}},
		{{Label: "✉️ Direct message", Data: "adm_dm"}, {Label: "🔎 View user", Data: "adm_view"}},
		{{Label: "🔒 Ban by ID", Data: "adm_ban"}, {Label: "🔓 Unban by ID", Data: "adm_unban"}},
	}
}

func agentPanelButtons() [][]Button {
	return [][]Button{
		{{Label: "📊 My stats", Data: "agent_stats"}, {Label: "🔎 View user", Data: "agent_view"}},
		{{Label: "🔒 Ban by ID", Data: "agent_ban"}, {Label: "🔓 Unban by ID", Data: "agent_unban"}},
	}
}

// HandleOwnerPanel answers the owner's admin command. Anyone else is
// ignored.
func (e *Engine) HandleOwnerPanel(ctx context.Context, msg Message) {
	if msg.UserID != e.ownerID {
		return
	}
	_, err := e.gw.SendButtons(ctx, msg.ChatID, msg.ThreadID, "🛠 Admin panel", ownerPanelButtons())
	e.deliver("owner_panel", err, zap.Int64("actor_id", msg.UserID))
}

// HandleAgentPanel answers the agent command, valid only inside the
// staff group.
func (e *Engine) HandleAgentPanel(ctx context.Context, msg Message) {
	if msg.ChatID != e.staffChatID || !e.isStaff(msg.UserID) {
		return
	}
	_, err := e.gw.SendButtons(ctx, msg.ChatID, msg.ThreadID, "🎧 Agent panel", agentPanelButtons())
	e.deliver("agent_panel", err, zap.Int64("actor_id", msg.UserID))
}

// HandleButton dispatches one inline-button press. Unknown payloads and
// unauthorized presses are dropped without any mutation.
func (e *Engine) HandleButton(ctx context.Context, p ButtonPress) {
	switch {
	case p.Data == "user_close_self":
		e.closeRecord(ctx, models.KindTicket, p.ActorID, true)
		_, err := e.gw.SendMessage(ctx, p.ChatID, 0, "🔴 You closed the ticket.")
		e.deliver("self_close_notice", err, zap.Int64("user_id", p.ActorID))

	case p.Data == "user_close_complaint":
		e.closeRecord(ctx, models.KindComplaint, p.ActorID, true)
		_, err := e.gw.SendMessage(ctx, p.ChatID, 0, "🔴 You closed the complaint.")
		e.deliver("self_close_notice", err, zap.Int64("user_id", p.ActorID))

	case p.Data == "create_complaint":
		e.sessions.Set(p.ActorID, Prompt{Kind: PromptComplaintMode})
		_, err := e.gw.SendMessage(ctx, p.ChatID, 0, "⚠️ Describe your complaint. It will go directly to the owner.")
		e.deliver("complaint_mode_notice", err, zap.Int64("user_id", p.ActorID))

	case strings.HasPrefix(p.Data, "adm_"):
		e.handleOwnerAction(ctx, p)

	case strings.HasPrefix(p.Data, "agent_"):
		e.handleAgentAction(ctx, p)

	case strings.HasPrefix(p.Data, "take_complaint_"):
		if uid, ok := parseID(p.Data, "take_complaint_"); ok {
			e.assign(ctx, models.KindComplaint, uid, p)
		}

	case strings.HasPrefix(p.Data, "take_"):
		if uid, ok := parseID(p.Data, "take_"); ok {
			e.assign(ctx, models.KindTicket, uid, p)
		}

	case strings.HasPrefix(p.Data, "close_"):
		uid, kind, ok := parseClose(p.Data)
		if !ok {
			return
		}
		role, _ := e.roleOf(p.ActorID)
		if role == RoleUser {
			return
		}
		if kind == models.KindComplaint && role != RoleOwner {
			return
		}
		e.closeRecord(ctx, kind, uid, false)

	case strings.HasPrefix(p.Data, "ban_"):
		uid, ok := parseID(p.Data, "ban_")
		if !ok || !e.isStaff(p.ActorID) {
			return
		}
		e.sessions.Set(p.ActorID, Prompt{
			Kind:             PromptBanReason,
			TargetID:         uid,
			ControlMessageID: p.MessageID,
		})
		e.notifyThread(ctx, p.ThreadID, "📝 Enter the ban reason:")

	case strings.HasPrefix(p.Data, "unban_"):
		uid, ok := parseID(p.Data, "unban_")
		if !ok || !e.isStaff(p.ActorID) {
			return
		}
		e.Unban(ctx, uid, p.ActorID)
		e.repaintControl(ctx, uid, p.MessageID)
	}
}

func parseID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil
}

// parseClose decodes close_<uid>_<0|1>; the flag marks a complaint.
func parseClose(data string) (int64, models.RecordKind, bool) {
	parts := strings.Split(strings.TrimPrefix(data, "close_"), "_")
	if len(parts) != 2 {
		return 0, "", false
	}
	uid, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	switch parts[1] {
	case "0":
		return uid, models.KindTicket, true
	case "1":
		return uid, models.KindComplaint, true
	}
	return 0, "", false
}

func (e *Engine) handleOwnerAction(ctx context.Context, p ButtonPress) {
	if p.ActorID != e.ownerID {
		return
	}
	reply := func(text string) {
		_, err := e.gw.SendMessage(ctx, p.ChatID, p.ThreadID, text)
		e.deliver("owner_action_reply", err, zap.String("action", p.Data))
	}
	promptFor := func(kind PromptKind, text string) {
		e.sessions.Set(p.ActorID, Prompt{Kind: kind})
		reply(text)
	}

	switch p.Data {
	case "adm_users":
		reply(e.usersList())
	case "adm_agent_add":
		promptFor(PromptAddAgent, "Enter the new agent's user ID:")
	case "adm_agent_remove":
		promptFor(PromptRemoveAgent, "Enter the agent's user ID to remove:")
	case "adm_agents":
		reply(e.agentsList())
	case "adm_stats":
		reply(e.statsText())
	case "adm_broadcast":
		promptFor(PromptBroadcast, "Enter the broadcast text:")
	case "adm_blogs":
		reply(e.broadcastLogsText())
	case "adm_dm":
		promptFor(PromptDirectTarget, "Enter the recipient's user ID:")
	case "adm_view":
		promptFor(PromptViewUser, "Enter the user ID to view:")
	case "adm_ban":
		promptFor(PromptBanTarget, "Enter the user ID to ban:")
	case "adm_unban":
		promptFor(PromptUnbanID, "Enter the user ID to unban:")
	}
}

func (e *Engine) handleAgentAction(ctx context.Context, p ButtonPress) {
	role, agent := e.roleOf(p.ActorID)
	if role == RoleUser || p.ChatID != e.staffChatID {
		return
	}
	reply := func(text string) {
		_, err := e.gw.SendMessage(ctx, p.ChatID, p.ThreadID, text)
		e.deliver("agent_action_reply", err, zap.String("action", p.Data))
	}
	promptFor := func(kind PromptKind, text string) {
		e.sessions.Set(p.ActorID, Prompt{Kind: kind})
		reply(text)
	}

	switch p.Data {
	case "agent_stats":
		if role == RoleOwner {
			reply("You are the owner.")
			return
		}
		reply(fmt.Sprintf("🎧 Agent #%d — replies: %d, bans: %d", agent.Num, agent.Replies, agent.Bans))
	case "agent_view":
		promptFor(PromptViewUser, "Enter the user ID to view:")
	case "agent_ban":
		promptFor(PromptBanTarget, "Enter the user ID to ban:")
	case "agent_unban":
		promptFor(PromptUnbanID, "Enter the user ID to unban:")
	}
}

func (e *Engine) usersList() string {
	users := e.store.Users()
	if len(users) == 0 {
		return "No users yet."
	}
	var b strings.Builder
	b.WriteString("👥 Users:\n")
	for _, u := range users {
		fmt.Fprintf(&b, "• %d | @%s | tickets: %d", u.ID, u.Username, u.TicketCount)
		if e.store.IsBanned(u.ID) {
			b.WriteString(" 🔒 BANNED")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Engine) agentsList() string {
	agents := e.store.Agents()
	if len(agents) == 0 {
		return "No agents yet."
	}
	var b strings.Builder
	b.WriteString("🎧 Agents:\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "• #%d | %d | replies: %d, bans: %d\n", a.Num, a.ID, a.Replies, a.Bans)
	}
	return b.String()
}

func (e *Engine) statsText() string {
	return fmt.Sprintf("📊 Stats\nUsers: %d\nAgents: %d\nOpen tickets: %d\nOpen complaints: %d\nBanned: %d",
		len(e.store.Users()),
		len(e.store.Agents()),
		e.store.OpenCount(models.KindTicket),
		e.store.OpenCount(models.KindComplaint),
		e.store.BannedCount())
}

func (e *Engine) broadcastLogsText() string {
	logs := e.store.RecentBroadcastLogs(10)
	if len(logs) == 0 {
		return "No broadcasts yet."
	}
	var b strings.Builder
	b.WriteString("🗒 Recent broadcasts:\n")
	for _, entry := range logs {
		fmt.Fprintf(&b, "• %s | total %d, ok %d, failed %d | %s\n",
			entry.Timestamp.Format("2006-01-02 15:04"), entry.Total, entry.Success, entry.Failed, entry.Message)
	}
	return b.String()
}
