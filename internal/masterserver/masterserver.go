package masterserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/network"
	"github.com/siohaza/haxgo/internal/ping"
)

// Update kinds sent to the list server. A major update carries the whole
// room description, a player update only the player count.
const (
	UpdateMajor   uint8 = 1
	UpdatePlayers uint8 = 2
)

const defaultRetry = 10 * time.Second

type DialFunc func(ctx context.Context, address string) (network.ClientConn, error)

// Client keeps a public room listed on a master server over ENet. It
// reconnects on its own; Update can be called from the room loop at any
// time.
type Client struct {
	address string
	port    int
	info    atomic.Pointer[ping.RoomInfo]
	notify  chan struct{}
	dial    DialFunc
	retry   time.Duration
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a client announcing a room reachable on port.
func New(address string, port int, info ping.RoomInfo, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		address: address,
		port:    port,
		notify:  make(chan struct{}, 1),
		dial:    network.DialENet,
		retry:   defaultRetry,
		logger:  logger,
	}
	c.info.Store(&info)
	return c
}

func (c *Client) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
	c.logger.Info("master server enabled", "address", c.address)
}

func (c *Client) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.logger.Info("master server disabled")
}

// Update replaces the announced info and wakes the sender.
func (c *Client) Update(info ping.RoomInfo) {
	c.info.Store(&info)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	for {
		conn, err := c.dial(ctx, c.address)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("failed to connect to master server", "address", c.address, "error", err)
		} else {
			c.logger.Info("connected to master server", "address", c.address)
			err = c.serve(ctx, conn)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("disconnected from master server", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retry):
		}
	}
}

// serve announces the room until the connection drops or ctx is done.
func (c *Client) serve(ctx context.Context, conn network.ClientConn) error {
	lost := make(chan error, 1)
	go func() {
		for {
			if _, err := conn.Recv(ctx); err != nil {
				lost <- err
				return
			}
		}
	}()

	sent := *c.info.Load()
	if err := conn.Send(EncodeMajor(sent, c.port)); err != nil {
		return fmt.Errorf("failed to send major update: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-lost:
			return err
		case <-c.notify:
		}

		info := *c.info.Load()
		switch {
		case info == sent:
			continue
		case onlyPlayersChanged(sent, info):
			if err := conn.Send(EncodePlayers(info.PlayersCurrent)); err != nil {
				return fmt.Errorf("failed to send player count update: %w", err)
			}
		default:
			if err := conn.Send(EncodeMajor(info, c.port)); err != nil {
				return fmt.Errorf("failed to send major update: %w", err)
			}
		}
		sent = info
	}
}

func onlyPlayersChanged(a, b ping.RoomInfo) bool {
	a.PlayersCurrent = b.PlayersCurrent
	return a == b
}

func EncodeMajor(info ping.RoomInfo, port int) []byte {
	w := codec.NewWriter(64)
	w.WriteUint8(UpdateMajor)
	w.WriteUint16(uint16(info.Version))
	w.WriteUint16(uint16(port))
	w.WriteUint8(uint8(info.PlayersMax))
	w.WriteUint8(uint8(info.PlayersCurrent))
	w.WriteBool(info.Password)
	w.WriteString(info.Name)
	w.WriteString(info.Stadium)
	w.WriteString(info.Flag)
	return w.Bytes()
}

func EncodePlayers(current int) []byte {
	w := codec.NewWriter(2)
	w.WriteUint8(UpdatePlayers)
	w.WriteUint8(uint8(current))
	return w.Bytes()
}

// Announcement is an update as the list server reads it. Only
// PlayersCurrent is set for a player update.
type Announcement struct {
	Kind uint8
	Port int
	Info ping.RoomInfo
}

func Decode(data []byte) (*Announcement, error) {
	r := codec.NewReader(data)
	kind, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	a := &Announcement{Kind: kind}

	switch kind {
	case UpdatePlayers:
		current, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		a.Info.PlayersCurrent = int(current)
		return a, nil
	case UpdateMajor:
	default:
		return nil, errcode.New(errcode.MasterConnectionError)
	}

	version, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	port, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	maxPlayers, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	current, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	password, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	a.Port = int(port)
	a.Info.Version = int(version)
	a.Info.PlayersMax = int(maxPlayers)
	a.Info.PlayersCurrent = int(current)
	a.Info.Password = password
	if a.Info.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if a.Info.Stadium, err = r.ReadString(); err != nil {
		return nil, err
	}
	if a.Info.Flag, err = r.ReadString(); err != nil {
		return nil, err
	}
	return a, nil
}
