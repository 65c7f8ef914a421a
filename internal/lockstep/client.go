package lockstep

import (
	"bytes"
	"fmt"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
)

// Client follows a host. state is the room confirmed by the host up to
// frame: frame ticks have run and the operations of frame are still to come.
type Client struct {
	PlayerID int

	state *room.State
	frame uint32
	cb    callbacks.Callbacks

	// local holds operations this client sent that the host has not echoed
	// back yet, oldest first.
	local        []localPending
	extrapolated *room.State
}

type localPending struct {
	op   protocol.Operation
	data []byte
}

func encodeOperation(op protocol.Operation) []byte {
	w := codec.NewWriter(64)
	protocol.WriteOperation(w, op)
	return w.Bytes()
}

func NewClient(state *room.State, frame uint32, playerID int, cb callbacks.Callbacks) *Client {
	if cb == nil {
		cb = &callbacks.DefaultCallbacks{}
	}
	return &Client{PlayerID: playerID, state: state, frame: frame, cb: cb}
}

// Join builds a client from the host's snapshot.
func Join(accepted *protocol.JoinAccepted, cb callbacks.Callbacks) (*Client, error) {
	state, err := room.Read(codec.NewReader(accepted.State))
	if err != nil {
		return nil, fmt.Errorf("failed to read room snapshot: %w", err)
	}
	return NewClient(state, accepted.Frame, accepted.PlayerID, cb), nil
}

func (c *Client) Frame() uint32 {
	return c.frame
}

// State returns the confirmed room.
func (c *Client) State() *room.State {
	return c.state
}

// Send buffers an operation this client is about to send to the host.
// Extrapolation applies it until the host confirms it.
func (c *Client) Send(op protocol.Operation) {
	c.local = append(c.local, localPending{op: op, data: encodeOperation(op)})
}

// AdvanceTo steps the confirmed room up to frame. The host only reports a
// frame once every record before it was sent.
func (c *Client) AdvanceTo(frame uint32) {
	for c.frame < frame {
		c.state.Tick(c.cb)
		c.frame++
	}
}

// Receive applies one authoritative record. Records must arrive in host
// order; a record for a frame already stepped past is an error.
func (c *Client) Receive(rec protocol.Record) error {
	if rec.Frame < c.frame {
		return fmt.Errorf("record for frame %d arrived at frame %d", rec.Frame, c.frame)
	}
	c.extrapolated = nil
	c.AdvanceTo(rec.Frame)

	if rec.SenderID == c.PlayerID {
		c.confirm(rec.Op)
	}
	// The host already accepted the operation, so a failure here means this
	// peer drifted.
	if err := c.state.Apply(rec.Op, rec.SenderID, c.cb); err != nil {
		return fmt.Errorf("failed to apply %s from %d at frame %d: %w", rec.Op.Type(), rec.SenderID, rec.Frame, err)
	}
	return nil
}

// confirm drops the pending operation the host just echoed. The host keeps
// each sender's order, so anything still pending ahead of it was refused.
func (c *Client) confirm(op protocol.Operation) {
	data := encodeOperation(op)
	for i, l := range c.local {
		if bytes.Equal(l.data, data) {
			c.local = append(c.local[:0], c.local[i+1:]...)
			return
		}
	}
}

// Extrapolate returns a copy of the confirmed room advanced by frames ticks
// with this client's unconfirmed operations applied first. The confirmed
// room is never touched.
func (c *Client) Extrapolate(frames int) *room.State {
	s := c.state.Copy()
	for _, l := range c.local {
		// Unconfirmed operations may be refused; the host decides later.
		_ = s.Apply(l.op, c.PlayerID, nil)
	}
	for i := 0; i < frames; i++ {
		s.Tick(nil)
	}
	c.extrapolated = s
	return s
}

// Extrapolated returns the last extrapolation, or nil when a record arrived
// since.
func (c *Client) Extrapolated() *room.State {
	return c.extrapolated
}
