// Package session implements KILD's data model (spec.md §3) and the
// persistence layer (C1, spec.md §4.1): atomic read/write of session
// records and sidecars under ~/.kild/sessions/.
package session

import "time"

// Status is the session lifecycle state (spec.md §3).
type Status string

const (
	StatusCreated   Status = "Created"
	StatusActive    Status = "Active"
	StatusIdle      Status = "Idle"
	StatusStopped   Status = "Stopped"
	StatusCompleted Status = "Completed"
	StatusError     Status = "Error"
)

// RuntimeMode selects whether a session's agents run inside the daemon
// or as a foreground terminal process.
type RuntimeMode string

const (
	RuntimeDaemon     RuntimeMode = "Daemon"
	RuntimeForeground RuntimeMode = "Foreground"
)

// AgentProcess records a single launch of an agent within a session.
// Sessions accumulate these across Open calls; the slice is append-only.
type AgentProcess struct {
	SpawnID int    `json:"spawn_id"`
	Agent   string `json:"agent"`
	Command string `json:"command"`

	// Foreground launch fields.
	ProcessID         int       `json:"process_id,omitempty"`
	ProcessName       string    `json:"process_name,omitempty"`
	ProcessStartTime  time.Time `json:"process_start_time,omitempty"`
	TerminalType      string    `json:"terminal_type,omitempty"`
	TerminalWindowID  string    `json:"terminal_window_id,omitempty"`

	// Daemon launch field.
	DaemonSessionID string `json:"daemon_session_id,omitempty"`

	OpenedAt time.Time `json:"opened_at"`
}

// IsDaemon reports whether this launch was daemon-hosted.
func (a AgentProcess) IsDaemon() bool { return a.DaemonSessionID != "" }

// Session is one agent working in one worktree (spec.md §3, entity "kild").
//
// Unknown JSON fields found on disk are preserved in Extra and re-emitted
// on save, satisfying the on-disk-layout contract that unknown fields
// round-trip (spec.md §6.1).
type Session struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`

	WorktreePath string      `json:"worktree_path"`
	Agent        string      `json:"agent"`
	Status       Status      `json:"status"`
	RuntimeMode  RuntimeMode `json:"runtime_mode"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PortRangeStart int `json:"port_range_start"`
	PortRangeEnd   int `json:"port_range_end"`
	PortCount      int `json:"port_count"`

	Agents []AgentProcess `json:"agents"`

	// Extra carries forward any JSON object keys this version of KILD
	// doesn't recognize, so save(load(S)) never silently drops data
	// written by a newer or older binary.
	Extra map[string]any `json:"-"`
}

// ID format: "{project_id}/{branch}" (spec.md §3).
func SessionID(projectID, branch string) string {
	return projectID + "/" + branch
}

// LatestAgent returns the last entry of Agents, or nil if none have launched yet.
func (s *Session) LatestAgent() *AgentProcess {
	if len(s.Agents) == 0 {
		return nil
	}
	return &s.Agents[len(s.Agents)-1]
}

// AppendAgent appends a new launch record. Agents is append-only (invariant 4).
func (s *Session) AppendAgent(ap AgentProcess) {
	ap.SpawnID = len(s.Agents)
	s.Agents = append(s.Agents, ap)
}

// PortRange returns the inclusive [start, end] port block reserved for this session.
func (s *Session) PortRange() (start, end int) {
	return s.PortRangeStart, s.PortRangeEnd
}

// Overlaps reports whether this session's port range intersects another's.
func (s *Session) Overlaps(other *Session) bool {
	return s.PortRangeStart <= other.PortRangeEnd && other.PortRangeStart <= s.PortRangeEnd
}

// AgentStatusState is the hook-reported working state in the agent_status sidecar.
type AgentStatusState string

const (
	AgentWorking AgentStatusState = "Working"
	AgentWaiting AgentStatusState = "Waiting"
	AgentIdle    AgentStatusState = "Idle"
	AgentError   AgentStatusState = "Error"
)

// AgentStatus is the agent_status sidecar (spec.md §3).
type AgentStatus struct {
	State     AgentStatusState `json:"state"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PRInfo is the pr_info sidecar (spec.md §3).
type PRInfo struct {
	Number   int        `json:"number"`
	URL      string      `json:"url"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
	HeadSHA  string      `json:"head_sha"`
}
