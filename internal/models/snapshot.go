package models

// SnapshotVersion is the current document format version.
const SnapshotVersion = 1

// Snapshot is the full persisted state document. All maps are keyed by
// the decimal string form of the user id.
type Snapshot struct {
	Version         int                  `json:"version"`
	Tickets         map[string]Record    `json:"tickets"`
	Complaints      map[string]Record    `json:"complaints"`
	ActiveChats     map[string]int       `json:"active_chats"`
	Banned          []int64              `json:"banned"`
	BanReasons      map[string]BanReason `json:"ban_reasons"`
	Agents          map[string]Agent     `json:"agents"`
	UserMetadata    map[string]User      `json:"user_metadata"`
	BroadcastLogs   []BroadcastLogEntry  `json:"broadcast_logs"`
	NextAgentNumber int                  `json:"next_agent_number"`
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.EnsureDefaults()
	return s
}

// EnsureDefaults initializes any keys missing from a loaded document,
// so documents written by older versions (or by hand) load cleanly.
func (s *Snapshot) EnsureDefaults() {
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	if s.Tickets == nil {
		s.Tickets = make(map[string]Record)
	}
	if s.Complaints == nil {
		s.Complaints = make(map[string]Record)
	}
	if s.ActiveChats == nil {
		s.ActiveChats = make(map[string]int)
	}
	if s.Banned == nil {
		s.Banned = []int64{}
	}
	if s.BanReasons == nil {
		s.BanReasons = make(map[string]BanReason)
	}
	if s.Agents == nil {
		s.Agents = make(map[string]Agent)
	}
	if s.UserMetadata == nil {
		s.UserMetadata = make(map[string]User)
	}
	if s.BroadcastLogs == nil {
		s.BroadcastLogs = []BroadcastLogEntry{}
	}
	if s.NextAgentNumber < 1 {
		s.NextAgentNumber = 1
	}
}

// Records returns the namespace map for kind.
func (s *Snapshot) Records(kind RecordKind) map[string]Record {
	if kind == KindComplaint {
		return s.Complaints
	}
	return s.Tickets
}
