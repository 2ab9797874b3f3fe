package bot

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/support-bot/internal/support"
	"go.uber.org/zap"
)

// Gateway drives the Telegram Bot API for the engine. Forum-topic
// endpoints and message_thread_id postdate the typed helpers in the
// library, so calls go through MakeRequest with explicit params.
type Gateway struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewGateway(api *tgbotapi.BotAPI, logger *zap.Logger) *Gateway {
	return &Gateway{api: api, logger: logger}
}

func (g *Gateway) SendMessage(ctx context.Context, chatID int64, threadID int, text string) (int, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_thread_id", threadID)
	params.AddNonEmpty("text", text)

	resp, err := g.api.MakeRequest("sendMessage", params)
	if err != nil {
		return 0, fmt.Errorf("sendMessage failed: %w", err)
	}
	return sentMessageID(resp)
}

func (g *Gateway) SendButtons(ctx context.Context, chatID int64, threadID int, text string, buttons [][]support.Button) (int, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_thread_id", threadID)
	params.AddNonEmpty("text", text)
	if err := params.AddInterface("reply_markup", inlineMarkup(buttons)); err != nil {
		return 0, fmt.Errorf("failed to encode reply markup: %w", err)
	}

	resp, err := g.api.MakeRequest("sendMessage", params)
	if err != nil {
		return 0, fmt.Errorf("sendMessage failed: %w", err)
	}
	return sentMessageID(resp)
}

func (g *Gateway) EditButtons(ctx context.Context, chatID int64, messageID int, buttons [][]support.Button) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	if err := params.AddInterface("reply_markup", inlineMarkup(buttons)); err != nil {
		return fmt.Errorf("failed to encode reply markup: %w", err)
	}

	if _, err := g.api.MakeRequest("editMessageReplyMarkup", params); err != nil {
		return fmt.Errorf("editMessageReplyMarkup failed: %w", err)
	}
	return nil
}

func (g *Gateway) CopyMessage(ctx context.Context, toChatID int64, toThreadID int, fromChatID int64, messageID int) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", toChatID)
	params.AddNonZero("message_thread_id", toThreadID)
	params.AddNonZero64("from_chat_id", fromChatID)
	params.AddNonZero("message_id", messageID)

	if _, err := g.api.MakeRequest("copyMessage", params); err != nil {
		return fmt.Errorf("copyMessage failed: %w", err)
	}
	return nil
}

func (g *Gateway) CreateThread(ctx context.Context, chatID int64, title string) (int, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("name", title)

	resp, err := g.api.MakeRequest("createForumTopic", params)
	if err != nil {
		return 0, fmt.Errorf("createForumTopic failed: %w", err)
	}
	var topic struct {
		MessageThreadID int `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, fmt.Errorf("failed to decode forum topic: %w", err)
	}
	return topic.MessageThreadID, nil
}

func (g *Gateway) CloseThread(ctx context.Context, chatID int64, threadID int) error {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_thread_id", threadID)

	if _, err := g.api.MakeRequest("closeForumTopic", params); err != nil {
		return fmt.Errorf("closeForumTopic failed: %w", err)
	}
	return nil
}

func sentMessageID(resp *tgbotapi.APIResponse) (int, error) {
	var m struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &m); err != nil {
		return 0, fmt.Errorf("failed to decode sent message: %w", err)
	}
	return m.MessageID, nil
}

func inlineMarkup(buttons [][]support.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
