package lockstep

import (
	"errors"
	"log/slog"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
)

// PingInterval is how many frames pass between two Ping operations.
const PingInterval = 120

type pending struct {
	op     protocol.Operation
	sender int
}

// Host owns the authoritative room. Operations are applied in arrival order
// at the frame they are picked up, then the room steps once. Every applied
// operation is handed to the sink, which relays it to clients and recorders.
type Host struct {
	state  *room.State
	frame  uint32
	queue  []pending
	cb     callbacks.Callbacks
	sink   func(protocol.Record)
	logger *slog.Logger

	pings map[int]int
}

func NewHost(state *room.State, cb callbacks.Callbacks, sink func(protocol.Record), logger *slog.Logger) *Host {
	if cb == nil {
		cb = &callbacks.DefaultCallbacks{}
	}
	if sink == nil {
		sink = func(protocol.Record) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		state:  state,
		cb:     cb,
		sink:   sink,
		logger: logger,
		pings:  make(map[int]int),
	}
}

func (h *Host) Frame() uint32 {
	return h.frame
}

// State returns the live room. Callers must not keep it across ticks.
func (h *Host) State() *room.State {
	return h.state
}

// Receive runs the permission hooks on an operation from a remote player and
// queues it when they accept.
func (h *Host) Receive(op protocol.Operation, senderID int) callbacks.Decision {
	d := h.cb.OnOperationReceived(op, senderID, h.frame)
	if d.Verdict == callbacks.VerdictAccept {
		h.queue = append(h.queue, pending{op: op, sender: senderID})
	}
	return d
}

// Submit queues an operation sent by the host itself.
func (h *Host) Submit(op protocol.Operation) {
	h.queue = append(h.queue, pending{op: op, sender: player.HostID})
}

// ReportPing records a measured round trip for a player, in milliseconds.
func (h *Host) ReportPing(playerID, ping int) {
	h.pings[playerID] = ping
}

// Forget drops per-player bookkeeping of a player that left.
func (h *Host) Forget(playerID int) {
	delete(h.pings, playerID)
}

// Tick applies the queued operations at the current frame and steps the room.
func (h *Host) Tick() {
	if h.frame%PingInterval == 0 && h.state.Players.Len() > 0 {
		h.Submit(h.pingOperation())
	}

	queue := h.queue
	h.queue = nil
	for _, p := range queue {
		h.apply(p)
	}
	h.state.Tick(h.cb)
	h.frame++
}

func (h *Host) apply(p pending) {
	err := h.state.Apply(p.op, p.sender, h.cb)
	switch {
	case err == nil:
		h.sink(protocol.Record{Frame: h.frame, SenderID: p.sender, Op: p.op})
	case errors.Is(err, room.ErrUnauthorized):
		h.logger.Debug("dropped unauthorized operation", "op", p.op.Type(), "sender", p.sender)
	default:
		h.logger.Info("rejected operation", "op", p.op.Type(), "sender", p.sender, "error", err)
	}
}

func (h *Host) pingOperation() *protocol.Ping {
	players := h.state.Players.All()
	pings := make([]int, len(players))
	for i, p := range players {
		if p.ID == player.HostID {
			continue
		}
		pings[i] = h.cb.ModifyPlayerPing(p.ID, h.pings[p.ID])
	}
	return &protocol.Ping{Pings: pings}
}

// Snapshot encodes the room as it stands between two ticks, for a joining
// client. Operations still queued for the current frame are not in it.
func (h *Host) Snapshot() (uint32, []byte) {
	w := codec.NewWriter(4096)
	h.state.Write(w)
	return h.frame, w.Bytes()
}
