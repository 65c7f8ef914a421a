package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/protocol"
)

// Join performs the client side of the handshake on an open connection and
// returns the host's snapshot. onState, when set, sees every state the join
// passes through; the last one is Active or ConnectionFailed.
//
// A cancelled ctx fails the join with errcode.Cancelled, a refused join with
// the code the host gave.
func Join(ctx context.Context, conn ClientConn, req protocol.JoinRequest, onState func(ConnectionState)) (*protocol.JoinAccepted, error) {
	report := func(s ConnectionState) {
		if onState != nil {
			onState(s)
		}
	}
	fail := func(err error) (*protocol.JoinAccepted, error) {
		report(ConnectionFailed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", errcode.New(errcode.Cancelled), err)
		}
		return nil, err
	}

	report(ConnectingToPeer)
	if req.Version == 0 {
		req.Version = protocol.Version
	}
	if err := conn.Send(protocol.EncodeMessage(&protocol.Message{Kind: protocol.MessageJoinRequest, Join: &req})); err != nil {
		return fail(fmt.Errorf("failed to send join request: %w", err))
	}

	report(AwaitingState)
	for {
		data, err := conn.Recv(ctx)
		if err != nil {
			return fail(err)
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			return fail(fmt.Errorf("failed to read join reply: %w", err))
		}
		switch msg.Kind {
		case protocol.MessageJoinAccepted:
			report(Active)
			return msg.Accepted, nil
		case protocol.MessageJoinRejected:
			return fail(errcode.New(msg.Rejected.Code))
		case protocol.MessageDisconnect:
			return fail(errcode.New(msg.Disconnect))
		}
	}
}
