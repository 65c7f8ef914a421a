package network

import (
	"context"

	"github.com/siohaza/haxgo/internal/errcode"
)

// Conn is one remote peer on either transport. Send never blocks the room
// loop; Close sends the code to the peer when the transport can.
type Conn interface {
	Address() string
	Send(data []byte) error
	Close(code errcode.Code)
}

// ClientConn is the joining side of a connection. Recv blocks until a
// message arrives, the connection drops or ctx is done.
type ClientConn interface {
	Address() string
	Send(data []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

type EventType int

const (
	EventTypeNone EventType = iota
	EventTypeConnect
	EventTypeDisconnect
	EventTypeReceive
)

type Event struct {
	Type EventType
	Conn Conn
	Data []byte
}

// ConnectionState is the progress of a client joining a room.
type ConnectionState uint8

const (
	ConnectingToMaster ConnectionState = 0
	ConnectingToPeer   ConnectionState = 1
	AwaitingState      ConnectionState = 2
	Active             ConnectionState = 3
	ConnectionFailed   ConnectionState = 4
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectingToMaster:
		return "connecting_to_master"
	case ConnectingToPeer:
		return "connecting_to_peer"
	case AwaitingState:
		return "awaiting_state"
	case Active:
		return "active"
	case ConnectionFailed:
		return "connection_failed"
	}
	return "unknown"
}

// closeCodeBase offsets error codes into the websocket private close range.
const closeCodeBase = 4000
