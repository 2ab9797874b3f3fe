package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/support-bot/internal/storage"
	"github.com/xaenox/support-bot/internal/support"
	"go.uber.org/zap"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	engine      *support.Engine
	logger      *zap.Logger
	staffChatID int64
}

func New(token string, cfg support.Config, store *storage.Store, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	gw := NewGateway(api, logger)
	engine := support.New(store, gw, cfg, logger)

	return &Bot{
		api:         api,
		engine:      engine,
		logger:      logger,
		staffChatID: cfg.StaffChatID,
	}, nil
}

// Raw update types: the library's typed Update predates forum topics
// and drops message_thread_id, so updates are decoded here.

type update struct {
	UpdateID      int       `json:"update_id"`
	Message       *message  `json:"message"`
	CallbackQuery *callback `json:"callback_query"`
}

type message struct {
	MessageID int    `json:"message_id"`
	ThreadID  int    `json:"message_thread_id"`
	From      *user  `json:"from"`
	Chat      chat   `json:"chat"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
}

type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type callback struct {
	ID      string   `json:"id"`
	From    user     `json:"from"`
	Message *message `json:"message"`
	Data    string   `json:"data"`
}

// Start long-polls for updates and dispatches each one on its own
// goroutine. Handler failures never stop the loop.
func (b *Bot) Start() error {
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	offset := 0
	for {
		updates, err := b.getUpdates(offset)
		if err != nil {
			b.logger.Error("Failed to fetch updates", zap.Error(err))
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			go b.handleUpdate(u)
		}
	}
}

func (b *Bot) getUpdates(offset int) ([]update, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", 60)

	resp, err := b.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}
	var updates []update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

func (b *Bot) handleUpdate(u update) {
	ctx := context.Background()

	if u.CallbackQuery != nil {
		q := u.CallbackQuery
		b.answerCallback(q.ID)
		if q.Message == nil {
			return
		}
		b.engine.HandleButton(ctx, support.ButtonPress{
			ActorID:   q.From.ID,
			ChatID:    q.Message.Chat.ID,
			ThreadID:  q.Message.ThreadID,
			MessageID: q.Message.MessageID,
			Data:      q.Data,
		})
		return
	}

	m := u.Message
	if m == nil || m.From == nil {
		return
	}

	content := m.Text
	if m.Caption != "" {
		content = m.Caption
	}
	msg := support.Message{
		UserID:    m.From.ID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		ChatID:    m.Chat.ID,
		ThreadID:  m.ThreadID,
		MessageID: m.MessageID,
		Text:      content,
	}

	if cmd := command(m.Text); cmd != "" {
		switch cmd {
		case "start":
			if m.Chat.Type == "private" {
				b.engine.HandleStart(ctx, msg)
			}
		case "admin":
			b.engine.HandleOwnerPanel(ctx, msg)
		case "agent":
			b.engine.HandleAgentPanel(ctx, msg)
		}
		return
	}

	switch {
	case m.Chat.ID == b.staffChatID:
		b.engine.HandleStaffMessage(ctx, msg)
	case m.Chat.Type == "private":
		b.engine.HandleDirectMessage(ctx, msg)
	}
}

func (b *Bot) answerCallback(id string) {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("callback_query_id", id)
	if _, err := b.api.MakeRequest("answerCallbackQuery", params); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

// command extracts the command name from "/name[@bot] args", or ""
// when the text is not a command.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd
}
