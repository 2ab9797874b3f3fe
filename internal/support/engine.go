package support

import (
	"context"
	"sync"

	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"go.uber.org/zap"
)

// Button is one inline action offered to an actor. The transport layer
// renders it; the engine only decides labels and payloads.
type Button struct {
	Label string
	Data  string
}

// Gateway is the messaging-platform surface the engine drives. All
// methods are best-effort from the engine's point of view: failures are
// logged and counted, never propagated to the triggering actor.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, threadID int, text string) (int, error)
	SendButtons(ctx context.Context, chatID int64, threadID int, text string, buttons [][]Button) (int, error)
	EditButtons(ctx context.Context, chatID int64, messageID int, buttons [][]Button) error
	CopyMessage(ctx context.Context, toChatID int64, toThreadID int, fromChatID int64, messageID int) error
	CreateThread(ctx context.Context, chatID int64, title string) (int, error)
	CloseThread(ctx context.Context, chatID int64, threadID int) error
}

// Config is the immutable identity of one deployment.
type Config struct {
	StaffChatID int64
	OwnerID     int64
	LogThreadID int
}

// Engine is the conversation routing and ticket/complaint state
// machine. One instance per process; the store is injected, never
// global.
type Engine struct {
	store    *storage.Store
	gw       Gateway
	sessions *Sessions
	audit    *Auditor
	logger   *zap.Logger

	staffChatID int64
	ownerID     int64

	locks keyedLocks
}

func New(store *storage.Store, gw Gateway, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		store:       store,
		gw:          gw,
		sessions:    NewSessions(),
		audit:       NewAuditor(gw, cfg.StaffChatID, cfg.LogThreadID, logger),
		logger:      logger,
		staffChatID: cfg.StaffChatID,
		ownerID:     cfg.OwnerID,
		locks:       keyedLocks{locks: make(map[int64]*sync.Mutex)},
	}
}

// Message is an inbound text message, already stripped of transport
// detail.
type Message struct {
	UserID    int64
	Username  string
	FirstName string
	ChatID    int64
	ThreadID  int
	MessageID int
	Text      string
}

// ButtonPress is an inbound callback from an inline button.
type ButtonPress struct {
	ActorID   int64
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

type Role int

const (
	RoleUser Role = iota
	RoleAgent
	RoleOwner
)

// roleOf classifies an actor. The agent value is meaningful only for
// RoleAgent.
func (e *Engine) roleOf(id int64) (Role, models.Agent) {
	if id == e.ownerID {
		return RoleOwner, models.Agent{}
	}
	if agent, ok := e.store.Agent(id); ok {
		return RoleAgent, agent
	}
	return RoleUser, models.Agent{}
}

func (e *Engine) isStaff(id int64) bool {
	role, _ := e.roleOf(id)
	return role != RoleUser
}

// deliver records the outcome of an outbound call. Returns true on
// success so callers can count deliveries without branching on err.
func (e *Engine) deliver(op string, err error, fields ...zap.Field) bool {
	if err != nil {
		fields = append(fields, zap.String("op", op), zap.Error(err))
		e.logger.Warn("Delivery failed", fields...)
		return false
	}
	return true
}

// notifyUser sends a plain text message to a user's private chat,
// best-effort.
func (e *Engine) notifyUser(ctx context.Context, userID int64, text string) bool {
	_, err := e.gw.SendMessage(ctx, userID, 0, text)
	return e.deliver("notify_user", err, zap.Int64("user_id", userID))
}

// notifyThread posts into a staff sub-thread, best-effort.
func (e *Engine) notifyThread(ctx context.Context, threadID int, text string) bool {
	_, err := e.gw.SendMessage(ctx, e.staffChatID, threadID, text)
	return e.deliver("notify_thread", err, zap.Int("thread_id", threadID))
}

// keyedLocks serializes mutations per subject user id, so concurrent
// take/close/ban actions on the same records cannot interleave.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedLocks) lock(id int64) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
