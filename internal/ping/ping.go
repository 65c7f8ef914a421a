package ping

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
)

// RoomInfo is what a LAN browser learns about a room.
type RoomInfo struct {
	Name           string `json:"name"`
	PlayersCurrent int    `json:"players_current"`
	PlayersMax     int    `json:"players_max"`
	Stadium        string `json:"stadium"`
	Password       bool   `json:"password"`
	Flag           string `json:"flag,omitempty"`
	Version        int    `json:"version"`
}

// Handler answers HELLO with HI and HELLOLAN with the room info as JSON.
type Handler struct {
	conn          *net.UDPConn
	info          atomic.Pointer[RoomInfo]
	logger        *slog.Logger
	stopChan      chan struct{}
	done          chan struct{}
	listenAddress string
}

func NewHandler(address string, info RoomInfo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:        logger,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		listenAddress: address,
	}
	h.info.Store(&info)
	return h
}

func (h *Handler) Start() error {
	addr, err := net.ResolveUDPAddr("udp", h.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	h.conn = conn
	h.logger.Info("ping handler started", "address", conn.LocalAddr().String())

	go h.handlePackets()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (h *Handler) Addr() net.Addr {
	if h.conn == nil {
		return nil
	}
	return h.conn.LocalAddr()
}

func (h *Handler) Stop() {
	close(h.stopChan)
	if h.conn != nil {
		h.conn.Close()
		<-h.done
	}
	h.logger.Info("ping handler stopped")
}

// Update replaces the advertised info. Safe to call from the room loop
// while packets are served.
func (h *Handler) Update(info RoomInfo) {
	h.info.Store(&info)
}

func (h *Handler) handlePackets() {
	defer close(h.done)
	buffer := make([]byte, 1024)

	for {
		n, addr, err := h.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-h.stopChan:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.logger.Error("failed to read UDP packet", "error", err)
			continue
		}
		if n > 0 {
			h.handlePacket(buffer[:n], addr)
		}
	}
}

func (h *Handler) handlePacket(data []byte, addr *net.UDPAddr) {
	switch string(data) {
	case "HELLO":
		h.reply([]byte("HI"), addr)
	case "HELLOLAN":
		jsonData, err := json.Marshal(h.info.Load())
		if err != nil {
			h.logger.Error("failed to marshal room info", "error", err)
			return
		}
		h.reply(jsonData, addr)
	}
}

func (h *Handler) reply(data []byte, addr *net.UDPAddr) {
	if _, err := h.conn.WriteToUDP(data, addr); err != nil {
		h.logger.Error("failed to send ping response", "error", err, "addr", addr)
		return
	}
	h.logger.Debug("sent ping response", "addr", addr, "size", len(data))
}
