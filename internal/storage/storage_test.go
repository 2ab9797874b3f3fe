package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/support-bot/internal/models"
)

func TestBroadcastLogBounded(t *testing.T) {
	s := NewMemory()

	for i := 0; i < 60; i++ {
		err := s.AppendBroadcastLog(models.BroadcastLogEntry{
			ID:        fmt.Sprintf("run-%d", i),
			Timestamp: time.Now(),
			Total:     i,
		})
		require.NoError(t, err)
	}

	logs := s.RecentBroadcastLogs(100)
	require.Len(t, logs, 50)

	// Most recent first; the oldest ten are gone.
	assert.Equal(t, "run-59", logs[0].ID)
	assert.Equal(t, "run-10", logs[49].ID)
}

func TestRecentBroadcastLogsLimit(t *testing.T) {
	s := NewMemory()
	for i := 0; i < 5; i++ {
		s.AppendBroadcastLog(models.BroadcastLogEntry{ID: fmt.Sprintf("run-%d", i)})
	}

	logs := s.RecentBroadcastLogs(3)
	require.Len(t, logs, 3)
	assert.Equal(t, "run-4", logs[0].ID)
	assert.Equal(t, "run-2", logs[2].ID)
}

func TestAgentNumbersMonotonic(t *testing.T) {
	s := NewMemory()

	a1, err := s.AddAgent(7)
	require.NoError(t, err)
	a2, err := s.AddAgent(8)
	require.NoError(t, err)
	assert.Equal(t, 1, a1.Num)
	assert.Equal(t, 2, a2.Num)

	require.NoError(t, s.RemoveAgent(7))
	a3, err := s.AddAgent(9)
	require.NoError(t, err)
	assert.Equal(t, 3, a3.Num)

	// Re-adding an existing agent keeps its entry.
	again, err := s.AddAgent(8)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Num)
}

func TestThreadIndexFollowsRecordState(t *testing.T) {
	s := NewMemory()

	rec := models.Record{UserID: 42, ThreadID: 7, Status: models.StatusOpen}
	require.NoError(t, s.PutRecord(models.KindTicket, rec))

	kind, found, ok := s.RecordByThread(7)
	require.True(t, ok)
	assert.Equal(t, models.KindTicket, kind)
	assert.Equal(t, int64(42), found.UserID)

	rec.Status = models.StatusClosed
	require.NoError(t, s.PutRecord(models.KindTicket, rec))
	_, _, ok = s.RecordByThread(7)
	assert.False(t, ok)
}

func TestThreadIndexSeparatesNamespaces(t *testing.T) {
	s := NewMemory()

	s.PutRecord(models.KindTicket, models.Record{UserID: 42, ThreadID: 7, Status: models.StatusOpen})
	s.PutRecord(models.KindComplaint, models.Record{UserID: 42, ThreadID: 8, Status: models.StatusOpen})

	kind, _, ok := s.RecordByThread(8)
	require.True(t, ok)
	assert.Equal(t, models.KindComplaint, kind)
}

func TestRegisterUserRefreshesUsernameOnly(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.RegisterUser(42, "first"))
	require.NoError(t, s.IncrementTicketCount(42))
	require.NoError(t, s.RegisterUser(42, "second"))

	u, ok := s.User(42)
	require.True(t, ok)
	assert.Equal(t, "second", u.Username)
	assert.Equal(t, 1, u.TicketCount)
}

func TestBanRoundTrip(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.Ban(42, models.BanReason{Reason: "spam", AgentNum: 3}))
	assert.True(t, s.IsBanned(42))

	// Banning again only refreshes the reason.
	require.NoError(t, s.Ban(42, models.BanReason{Reason: "more spam", AgentNum: 3}))
	assert.Equal(t, 1, s.BannedCount())

	require.NoError(t, s.Unban(42))
	assert.False(t, s.IsBanned(42))
	_, ok := s.BanReason(42)
	assert.False(t, ok)
}

func TestAssignmentLifecycle(t *testing.T) {
	s := NewMemory()

	_, ok := s.Assignment(42)
	assert.False(t, ok)

	require.NoError(t, s.SetAssignment(42, 3))
	num, ok := s.Assignment(42)
	require.True(t, ok)
	assert.Equal(t, 3, num)

	require.NoError(t, s.ClearAssignment(42))
	_, ok = s.Assignment(42)
	assert.False(t, ok)
}

func TestOpenCount(t *testing.T) {
	s := NewMemory()

	s.PutRecord(models.KindTicket, models.Record{UserID: 1, ThreadID: 10, Status: models.StatusOpen})
	s.PutRecord(models.KindTicket, models.Record{UserID: 2, ThreadID: 11, Status: models.StatusClosed})
	s.PutRecord(models.KindComplaint, models.Record{UserID: 3, ThreadID: 12, Status: models.StatusOpen})

	assert.Equal(t, 1, s.OpenCount(models.KindTicket))
	assert.Equal(t, 1, s.OpenCount(models.KindComplaint))
}
