package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/codecat/go-enet"

	"github.com/siohaza/haxgo/internal/errcode"
)

const enetChannels = 1

var initOnce sync.Once
var initErr error

func initialize() error {
	initOnce.Do(func() {
		initErr = enet.Initialize()
	})
	return initErr
}

type enetConn struct {
	peer    enet.Peer
	address string
}

func (c *enetConn) Address() string { return c.address }

func (c *enetConn) Send(data []byte) error {
	if err := c.peer.SendBytes(data, 0, enet.PacketFlagReliable); err != nil {
		return fmt.Errorf("failed to send packet: %w", err)
	}
	return nil
}

func (c *enetConn) Close(code errcode.Code) {
	c.peer.DisconnectLater(uint32(code))
}

// ENetServer is the UDP transport of the host. It is polled from the room
// loop and never touched from another goroutine.
type ENetServer struct {
	host     enet.Host
	port     uint16
	maxPeers int
	logger   *slog.Logger
	conns    map[enet.Peer]*enetConn
}

func NewENetServer(port int, maxPeers int, logger *slog.Logger) *ENetServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ENetServer{
		port:     uint16(port),
		maxPeers: maxPeers,
		logger:   logger,
		conns:    make(map[enet.Peer]*enetConn),
	}
}

func (s *ENetServer) Start() error {
	if err := initialize(); err != nil {
		return fmt.Errorf("failed to initialize ENet: %w", err)
	}
	address := enet.NewListenAddress(s.port)

	var err error
	s.host, err = enet.NewHost(address, uint64(s.maxPeers), enetChannels, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to create ENet host: %w", err)
	}

	if err := s.host.CompressWithRangeCoder(); err != nil {
		return fmt.Errorf("failed to setup range coder compression: %w", err)
	}

	s.logger.Info("enet transport started", "port", s.port, "max_peers", s.maxPeers)
	return nil
}

func (s *ENetServer) Stop() {
	if s.host != nil {
		for _, c := range s.conns {
			c.peer.DisconnectNow(uint32(errcode.RoomClosed))
		}
		s.host.Destroy()
		s.host = nil
		s.logger.Info("enet transport stopped")
	}
}

// Poll returns the next transport event, waiting at most timeout.
func (s *ENetServer) Poll(timeout time.Duration) (Event, error) {
	if s.host == nil {
		return Event{}, fmt.Errorf("enet transport not started")
	}

	ev := s.host.Service(uint32(timeout.Milliseconds()))
	if ev == nil || ev.GetType() == enet.EventNone {
		return Event{Type: EventTypeNone}, nil
	}

	peer := ev.GetPeer()
	switch ev.GetType() {
	case enet.EventConnect:
		c := &enetConn{peer: peer, address: peer.GetAddress().String()}
		s.conns[peer] = c
		s.logger.Debug("peer connected", "peer", c.address)
		return Event{Type: EventTypeConnect, Conn: c}, nil

	case enet.EventDisconnect:
		c, ok := s.conns[peer]
		if !ok {
			return Event{Type: EventTypeNone}, nil
		}
		delete(s.conns, peer)
		s.logger.Debug("peer disconnected", "peer", c.address)
		return Event{Type: EventTypeDisconnect, Conn: c}, nil

	case enet.EventReceive:
		c, ok := s.conns[peer]
		packet := ev.GetPacket()
		if packet == nil {
			return Event{Type: EventTypeNone}, nil
		}
		data := append([]byte(nil), packet.GetData()...)
		packet.Destroy()
		if !ok {
			return Event{Type: EventTypeNone}, nil
		}
		return Event{Type: EventTypeReceive, Conn: c, Data: data}, nil
	}
	return Event{Type: EventTypeNone}, nil
}

func (s *ENetServer) PeerCount() int {
	return len(s.conns)
}

// enetClient owns a client-side ENet host. Every ENet call happens on the
// service goroutine; other goroutines talk to it through channels.
type enetClient struct {
	out    chan []byte
	in     chan []byte
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
	addr   string
	err    error
}

// DialENet connects to an ENet host. Cancelling ctx before the connection
// is established tears it down and returns ctx's error.
func DialENet(ctx context.Context, address string) (ClientConn, error) {
	if err := initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize ENet: %w", err)
	}
	hostname, portText, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portText, err)
	}

	host, err := enet.NewHost(nil, 1, enetChannels, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create ENet host: %w", err)
	}
	if err := host.CompressWithRangeCoder(); err != nil {
		host.Destroy()
		return nil, fmt.Errorf("failed to setup range coder compression: %w", err)
	}
	peer, err := host.Connect(enet.NewAddress(hostname, uint16(port)), enetChannels, 0)
	if err != nil {
		host.Destroy()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			peer.DisconnectNow(uint32(errcode.Cancelled))
			host.Destroy()
			return nil, err
		}
		ev := host.Service(10)
		if ev == nil {
			continue
		}
		switch ev.GetType() {
		case enet.EventConnect:
			c := &enetClient{
				out:    make(chan []byte, 64),
				in:     make(chan []byte, 256),
				closed: make(chan struct{}),
				done:   make(chan struct{}),
				addr:   address,
			}
			go c.service(host, peer)
			return c, nil
		case enet.EventDisconnect:
			host.Destroy()
			return nil, errcode.New(errcode.ConnectionClosed)
		}
	}
}

func (c *enetClient) service(host enet.Host, peer enet.Peer) {
	defer close(c.done)
	defer close(c.in)
	defer host.Destroy()
	for {
		select {
		case <-c.closed:
			peer.DisconnectNow(0)
			return
		case data := <-c.out:
			if err := peer.SendBytes(data, 0, enet.PacketFlagReliable); err != nil {
				c.err = err
				return
			}
			continue
		default:
		}

		ev := host.Service(5)
		if ev == nil {
			continue
		}
		switch ev.GetType() {
		case enet.EventReceive:
			packet := ev.GetPacket()
			if packet == nil {
				continue
			}
			data := append([]byte(nil), packet.GetData()...)
			packet.Destroy()
			select {
			case c.in <- data:
			case <-c.closed:
				peer.DisconnectNow(0)
				return
			}
		case enet.EventDisconnect:
			c.err = disconnectError(ev.GetData())
			return
		}
	}
}

func disconnectError(data uint32) error {
	code := errcode.Code(data)
	if data == 0 || !code.Valid() {
		code = errcode.ConnectionClosed
	}
	return errcode.New(code)
}

func (c *enetClient) Address() string { return c.addr }

func (c *enetClient) Send(data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return errcode.New(errcode.ConnectionClosed)
	}
}

func (c *enetClient) Recv(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			<-c.done
			if c.err != nil {
				return nil, c.err
			}
			return nil, errcode.New(errcode.ConnectionClosed)
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *enetClient) Close() error {
	c.once.Do(func() { close(c.closed) })
	<-c.done
	return nil
}
