// Package protocol defines the JSON wire types exchanged between KILD
// clients (CLI, GUI) and the daemon over the IPC transport described
// in spec.md §6.3. Messages are tagged unions encoded as a "type"
// discriminator field plus a payload, one JSON object per line
// (newline-delimited framing, see Marshal and framing.go).
package protocol

import "encoding/json"

// ClientMessageType enumerates the Client -> Daemon message kinds.
type ClientMessageType string

const (
	MsgPing         ClientMessageType = "Ping"
	MsgOpenPty      ClientMessageType = "OpenPty"
	MsgAttach       ClientMessageType = "Attach"
	MsgDetach       ClientMessageType = "Detach"
	MsgWrite        ClientMessageType = "Write"
	MsgResize       ClientMessageType = "Resize"
	MsgClosePty     ClientMessageType = "ClosePty"
	MsgListSessions ClientMessageType = "ListSessions"
	MsgShutdown     ClientMessageType = "Shutdown"
)

// DaemonMessageType enumerates the Daemon -> Client message kinds.
type DaemonMessageType string

const (
	MsgAck        DaemonMessageType = "Ack"
	MsgError      DaemonMessageType = "Error"
	MsgPong       DaemonMessageType = "Pong"
	MsgOpenedPty  DaemonMessageType = "OpenedPty"
	MsgSessions   DaemonMessageType = "Sessions"
	MsgPtyOutput  DaemonMessageType = "PtyOutput"
	MsgPtyExit    DaemonMessageType = "PtyExit"
	MsgShutdownEv DaemonMessageType = "Shutdown"
)

// ErrorCode is the machine-readable taxonomy carried on Error frames.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrPtySpawnFailed  ErrorCode = "PTY_SPAWN_FAILED"
	ErrPtyWriteFailed  ErrorCode = "PTY_WRITE_FAILED"
	ErrBackpressure    ErrorCode = "BACKPRESSURE"
	ErrInternal        ErrorCode = "INTERNAL"
)

// ClientMessage is the envelope sent by a client. Exactly one of the
// typed payload fields is populated, selected by Type.
type ClientMessage struct {
	Type ClientMessageType `json:"type"`

	ID string `json:"id,omitempty"`

	// OpenPty
	SessionID string            `json:"session_id,omitempty"`
	Command   string            `json:"command,omitempty"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Cols      int               `json:"cols,omitempty"`

	// Attach / Write / Resize / ClosePty reference an open PTY
	DaemonSessionID string `json:"daemon_session_id,omitempty"`
	DataBase64      string `json:"data_base64,omitempty"`
	Signal          string `json:"signal,omitempty"`
}

// DaemonMessage is the envelope sent by the daemon to a client.
type DaemonMessage struct {
	Type DaemonMessageType `json:"type"`

	ID string `json:"id,omitempty"`

	// Error
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`

	// OpenedPty
	DaemonSessionID string `json:"daemon_session_id,omitempty"`

	// Sessions
	List []SessionInfo `json:"list,omitempty"`

	// PtyOutput
	DataBase64 string `json:"data_base64,omitempty"`

	// PtyExit
	Status int    `json:"status,omitempty"`
	Signal string `json:"signal,omitempty"`
}

// SessionInfo is the summary returned by ListSessions.
type SessionInfo struct {
	SessionID       string `json:"session_id"`
	DaemonSessionID string `json:"daemon_session_id"`
	Status          string `json:"status"`
	Attached        int    `json:"attached"`
}

// Marshal encodes a message as a single JSON line (newline-delimited framing).
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// NewAck builds an Ack reply for the given request id.
func NewAck(id string) DaemonMessage { return DaemonMessage{Type: MsgAck, ID: id} }

// NewError builds an Error reply for the given request id.
func NewError(id string, code ErrorCode, message string) DaemonMessage {
	return DaemonMessage{Type: MsgError, ID: id, Code: code, Message: message}
}
