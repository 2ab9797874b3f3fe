package models

import "time"

// RecordKind distinguishes the two independent record namespaces.
type RecordKind string

const (
	KindTicket    RecordKind = "ticket"
	KindComplaint RecordKind = "complaint"
)

type RecordStatus string

const (
	StatusOpen   RecordStatus = "open"
	StatusClosed RecordStatus = "closed"
)

// User is a user_metadata entry. Created on first contact, username
// refreshed on every contact, never deleted.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username,omitempty"`
	TicketCount int    `json:"ticket_count"`
}

// Agent is a staff member with a stable display number.
type Agent struct {
	ID      int64 `json:"id"`
	Num     int   `json:"num"`
	Replies int   `json:"replies"`
	Bans    int   `json:"bans"`
}

// Record is a Ticket or Complaint, keyed by its owner's user id.
type Record struct {
	UserID           int64        `json:"user_id"`
	ThreadID         int          `json:"thread_id"`
	Status           RecordStatus `json:"status"`
	ControlMessageID int          `json:"admin_msg_id"`
}

func (r Record) Open() bool {
	return r.Status == StatusOpen
}

// BanReason records why and by whom a user was banned. AgentNum is 0
// when the owner issued the ban.
type BanReason struct {
	Reason   string `json:"reason"`
	AgentNum int    `json:"agent_num"`
}

// BroadcastLogEntry summarizes one broadcast run. Message holds a
// truncated copy of the body.
type BroadcastLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Sender    int64     `json:"sender"`
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	Message   string    `json:"message"`
}
