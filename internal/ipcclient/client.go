package ipcclient

import (
	"github.com/google/uuid"

	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/protocol"
)

// Client issues unary requests over a Transport and tracks the next
// attach stream separately via Reader()/Writer() once a caller takes
// over for streaming (spec.md §6.2: a connection becomes a streaming
// channel after Attach).
type Client struct {
	t Transport
}

// New wraps an already-connected Transport.
func New(t Transport) *Client { return &Client{t: t} }

// Close releases the underlying connection.
func (c *Client) Close() error { return c.t.Close() }

// Request sends msg (assigning an id if empty) and returns the next
// frame read from the connection, as an error if it is an Error frame.
// The reply's id is not compared with the request's.
func (c *Client) Request(msg protocol.ClientMessage) (protocol.DaemonMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if err := c.t.Writer().Write(msg); err != nil {
		return protocol.DaemonMessage{}, kilderr.IPCConnect("writing request").Wrap(err)
	}

	var reply protocol.DaemonMessage
	if err := c.t.Reader().ReadInto(&reply); err != nil {
		return protocol.DaemonMessage{}, kilderr.IPCConnect("reading reply").Wrap(err)
	}
	if reply.Type == protocol.MsgError {
		return reply, kilderr.IPCProtocol("%s: %s", reply.Code, reply.Message)
	}
	return reply, nil
}

// Reader exposes the raw framed reader for callers that take over
// streaming after an Attach request (e.g. internal/cli's attach command).
func (c *Client) Reader() *protocol.Reader { return c.t.Reader() }

// Writer exposes the raw framed writer for Write/Resize calls issued
// mid-stream.
func (c *Client) Writer() *protocol.Writer { return c.t.Writer() }
