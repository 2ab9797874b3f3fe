package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

// broadcastLogCap bounds the broadcast log ring; oldest entries are
// evicted first.
const broadcastLogCap = 50

// Persister writes the serialized snapshot document somewhere durable.
// Load returns (nil, nil) when no document exists yet.
type Persister interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Close() error
}

// Store holds the full state snapshot in memory and persists the whole
// document synchronously on every mutation. A mutation is never
// observable to a subsequent read without having been durably written.
type Store struct {
	mu        sync.RWMutex
	snap      *models.Snapshot
	threads   map[int]ThreadRef
	persister Persister
	logger    *zap.Logger
}

// ThreadRef resolves a staff sub-thread back to its record.
type ThreadRef struct {
	Kind   models.RecordKind
	UserID int64
}

// New loads the snapshot from the persister (an empty document when
// none exists) and rebuilds the thread index from open records.
func New(p Persister, logger *zap.Logger) (*Store, error) {
	s := &Store{
		snap:      models.NewSnapshot(),
		threads:   make(map[int]ThreadRef),
		persister: p,
		logger:    logger,
	}
	if p != nil {
		data, err := p.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if data != nil {
			if err := json.Unmarshal(data, s.snap); err != nil {
				return nil, fmt.Errorf("failed to decode snapshot: %w", err)
			}
			s.snap.EnsureDefaults()
		}
	}
	s.rebuildThreadIndex()
	return s, nil
}

// NewMemory returns a store with no durable backend, for tests.
func NewMemory() *Store {
	s, _ := New(nil, zap.NewNop())
	return s
}

func (s *Store) rebuildThreadIndex() {
	s.threads = make(map[int]ThreadRef)
	for _, kind := range []models.RecordKind{models.KindTicket, models.KindComplaint} {
		for _, rec := range s.snap.Records(kind) {
			if rec.Open() {
				s.threads[rec.ThreadID] = ThreadRef{Kind: kind, UserID: rec.UserID}
			}
		}
	}
}

// persist is called under s.mu by every mutating method.
func (s *Store) persist() error {
	if s.persister == nil {
		return nil
	}
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.persister.Save(data); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// User methods

func (s *Store) User(id int64) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.snap.UserMetadata[key(id)]
	return u, ok
}

// RegisterUser creates the user on first contact and refreshes the
// username on every later contact. The ticket counter is never reset.
func (s *Store) RegisterUser(id int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.snap.UserMetadata[key(id)]
	if !ok {
		u = models.User{ID: id}
	}
	u.Username = username
	s.snap.UserMetadata[key(id)] = u
	return s.persist()
}

func (s *Store) IncrementTicketCount(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.snap.UserMetadata[key(id)]
	if !ok {
		u = models.User{ID: id}
	}
	u.TicketCount++
	s.snap.UserMetadata[key(id)] = u
	return s.persist()
}

// Users returns all known users ordered by id.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.snap.UserMetadata))
	for _, u := range s.snap.UserMetadata {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// Agent methods

func (s *Store) Agent(id int64) (models.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.snap.Agents[key(id)]
	return a, ok
}

// AddAgent registers a new agent with the next number from the
// persisted counter. Numbers are never reused, even after removals.
// Adding an existing agent returns the current entry unchanged.
func (s *Store) AddAgent(id int64) (models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.snap.Agents[key(id)]; ok {
		return a, nil
	}
	a := models.Agent{ID: id, Num: s.snap.NextAgentNumber}
	s.snap.NextAgentNumber++
	s.snap.Agents[key(id)] = a
	return a, s.persist()
}

func (s *Store) RemoveAgent(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snap.Agents[key(id)]; !ok {
		return nil
	}
	delete(s.snap.Agents, key(id))
	return s.persist()
}

// Agents returns all agents ordered by number.
func (s *Store) Agents() []models.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agents := make([]models.Agent, 0, len(s.snap.Agents))
	for _, a := range s.snap.Agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Num < agents[j].Num })
	return agents
}

func (s *Store) IncrementReplies(agentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.snap.Agents[key(agentID)]
	if !ok {
		return nil
	}
	a.Replies++
	s.snap.Agents[key(agentID)] = a
	return s.persist()
}

func (s *Store) IncrementBans(agentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.snap.Agents[key(agentID)]
	if !ok {
		return nil
	}
	a.Bans++
	s.snap.Agents[key(agentID)] = a
	return s.persist()
}

// Record methods

func (s *Store) Record(kind models.RecordKind, userID int64) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.snap.Records(kind)[key(userID)]
	return rec, ok
}

// PutRecord writes a ticket or complaint and keeps the thread index in
// step: open records are resolvable by thread id, closed ones are not.
func (s *Store) PutRecord(kind models.RecordKind, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.snap.Records(kind)[key(rec.UserID)]; ok {
		delete(s.threads, old.ThreadID)
	}
	s.snap.Records(kind)[key(rec.UserID)] = rec
	if rec.Open() {
		s.threads[rec.ThreadID] = ThreadRef{Kind: kind, UserID: rec.UserID}
	}
	return s.persist()
}

// RecordByThread resolves a staff sub-thread to its open record.
func (s *Store) RecordByThread(threadID int) (models.RecordKind, models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.threads[threadID]
	if !ok {
		return "", models.Record{}, false
	}
	rec, ok := s.snap.Records(ref.Kind)[key(ref.UserID)]
	return ref.Kind, rec, ok
}

// OpenCount reports how many records of kind are currently open.
func (s *Store) OpenCount(kind models.RecordKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.snap.Records(kind) {
		if rec.Open() {
			n++
		}
	}
	return n
}

// Assignment methods

func (s *Store) Assignment(userID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	num, ok := s.snap.ActiveChats[key(userID)]
	return num, ok
}

func (s *Store) SetAssignment(userID int64, agentNum int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ActiveChats[key(userID)] = agentNum
	return s.persist()
}

func (s *Store) ClearAssignment(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snap.ActiveChats[key(userID)]; !ok {
		return nil
	}
	delete(s.snap.ActiveChats, key(userID))
	return s.persist()
}

// Ban methods

func (s *Store) IsBanned(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.snap.Banned {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Store) Ban(userID int64, reason models.BanReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.snap.Banned {
		if id == userID {
			s.snap.BanReasons[key(userID)] = reason
			return s.persist()
		}
	}
	s.snap.Banned = append(s.snap.Banned, userID)
	s.snap.BanReasons[key(userID)] = reason
	return s.persist()
}

func (s *Store) Unban(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.snap.Banned[:0]
	for _, id := range s.snap.Banned {
		if id != userID {
			kept = append(kept, id)
		}
	}
	s.snap.Banned = kept
	delete(s.snap.BanReasons, key(userID))
	return s.persist()
}

func (s *Store) BanReason(userID int64) (models.BanReason, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.snap.BanReasons[key(userID)]
	return r, ok
}

func (s *Store) BannedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Banned)
}

// Broadcast log methods

func (s *Store) AppendBroadcastLog(entry models.BroadcastLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.BroadcastLogs = append(s.snap.BroadcastLogs, entry)
	if excess := len(s.snap.BroadcastLogs) - broadcastLogCap; excess > 0 {
		s.snap.BroadcastLogs = append([]models.BroadcastLogEntry{}, s.snap.BroadcastLogs[excess:]...)
	}
	return s.persist()
}

// RecentBroadcastLogs returns up to n entries, most recent first.
func (s *Store) RecentBroadcastLogs(n int) []models.BroadcastLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := s.snap.BroadcastLogs
	if n > len(logs) {
		n = len(logs)
	}
	out := make([]models.BroadcastLogEntry, 0, n)
	for i := len(logs) - 1; i >= len(logs)-n; i-- {
		out = append(out, logs[i])
	}
	return out
}

func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}
