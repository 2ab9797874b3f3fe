package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	testStaffChat = int64(-100500)
	testOwnerID   = int64(1)
	testLogThread = 9
)

type sentMsg struct {
	ChatID    int64
	ThreadID  int
	MessageID int
	Text      string
	Buttons   [][]Button
}

type copyCall struct {
	ToChatID   int64
	ToThreadID int
	FromChatID int64
	MessageID  int
}

// fakeGateway records every outbound call and can be told to fail
// deliveries to specific chats.
type fakeGateway struct {
	mu         sync.Mutex
	nextMsgID  int
	nextThread int
	sent       []sentMsg
	edits      map[int][][]Button
	copies     []copyCall
	closed     []int
	threads    []string
	failChat   map[int64]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextThread: 100,
		edits:      make(map[int][][]Button),
		failChat:   make(map[int64]bool),
	}
}

func (g *fakeGateway) SendMessage(ctx context.Context, chatID int64, threadID int, text string) (int, error) {
	return g.record(chatID, threadID, text, nil)
}

func (g *fakeGateway) SendButtons(ctx context.Context, chatID int64, threadID int, text string, buttons [][]Button) (int, error) {
	return g.record(chatID, threadID, text, buttons)
}

func (g *fakeGateway) record(chatID int64, threadID int, text string, buttons [][]Button) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChat[chatID] {
		return 0, errors.New("delivery failed")
	}
	g.nextMsgID++
	g.sent = append(g.sent, sentMsg{ChatID: chatID, ThreadID: threadID, MessageID: g.nextMsgID, Text: text, Buttons: buttons})
	return g.nextMsgID, nil
}

func (g *fakeGateway) EditButtons(ctx context.Context, chatID int64, messageID int, buttons [][]Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChat[chatID] {
		return errors.New("delivery failed")
	}
	g.edits[messageID] = buttons
	return nil
}

func (g *fakeGateway) CopyMessage(ctx context.Context, toChatID int64, toThreadID int, fromChatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChat[toChatID] {
		return errors.New("delivery failed")
	}
	g.copies = append(g.copies, copyCall{ToChatID: toChatID, ToThreadID: toThreadID, FromChatID: fromChatID, MessageID: messageID})
	return nil
}

func (g *fakeGateway) CreateThread(ctx context.Context, chatID int64, title string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChat[chatID] {
		return 0, errors.New("delivery failed")
	}
	g.nextThread++
	g.threads = append(g.threads, title)
	return g.nextThread, nil
}

func (g *fakeGateway) CloseThread(ctx context.Context, chatID int64, threadID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = append(g.closed, threadID)
	return nil
}

func (g *fakeGateway) messagesTo(chatID int64, threadID int) []sentMsg {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMsg
	for _, m := range g.sent {
		if m.ChatID == chatID && m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) lastTo(chatID int64) (sentMsg, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].ChatID == chatID {
			return g.sent[i], true
		}
	}
	return sentMsg{}, false
}

func (g *fakeGateway) closeCount(threadID int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, id := range g.closed {
		if id == threadID {
			n++
		}
	}
	return n
}

// auditCount counts audit lines containing the substring.
func (g *fakeGateway) auditCount(substr string) int {
	n := 0
	for _, m := range g.messagesTo(testStaffChat, testLogThread) {
		if strings.Contains(m.Text, substr) {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T) (*Engine, *fakeGateway, *storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	gw := newFakeGateway()
	e := New(store, gw, Config{
		StaffChatID: testStaffChat,
		OwnerID:     testOwnerID,
		LogThreadID: testLogThread,
	}, zap.NewNop())
	return e, gw, store
}

func userMsg(uid int64, text string) Message {
	return Message{
		UserID:    uid,
		Username:  fmt.Sprintf("user%d", uid),
		FirstName: "User",
		ChatID:    uid,
		MessageID: 1,
		Text:      text,
	}
}

func staffMsg(uid int64, threadID int, text string) Message {
	return Message{
		UserID:    uid,
		Username:  fmt.Sprintf("staff%d", uid),
		FirstName: "Staff",
		ChatID:    testStaffChat,
		ThreadID:  threadID,
		MessageID: 2,
		Text:      text,
	}
}

func staffPress(uid int64, data string, threadID, messageID int) ButtonPress {
	return ButtonPress{ActorID: uid, ChatID: testStaffChat, ThreadID: threadID, MessageID: messageID, Data: data}
}

func userPress(uid int64, data string) ButtonPress {
	return ButtonPress{ActorID: uid, ChatID: uid, Data: data}
}
