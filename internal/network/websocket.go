package network

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/siohaza/haxgo/internal/errcode"
)

const (
	wsReadLimit    = 1 << 16
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 25 * time.Second
	wsSendBuffer   = 256
)

// WSServer accepts browser clients. Its events are drained by Poll from the
// room loop, the same way the ENet transport is.
type WSServer struct {
	upgrader websocket.Upgrader
	events   chan Event
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*wsConn]struct{}

	stopOnce sync.Once
	done     chan struct{}
}

// NewWSServer builds the handler. An empty origins list accepts any origin.
func NewWSServer(origins []string, logger *slog.Logger) *WSServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WSServer{
		events: make(chan Event, 1024),
		logger: logger,
		conns:  make(map[*wsConn]struct{}),
		done:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range origins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
	return s
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(w, "room closed", http.StatusServiceUnavailable)
		return
	default:
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &wsConn{
		ws:      ws,
		address: r.RemoteAddr,
		send:    make(chan []byte, wsSendBuffer),
		closing: make(chan struct{}),
	}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	if !s.emit(Event{Type: EventTypeConnect, Conn: c}) {
		c.Close(errcode.RoomClosed)
	}
	go c.writePump()
	c.readPump(s.emit)

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.emit(Event{Type: EventTypeDisconnect, Conn: c})
}

// emit hands an event to the room loop. It gives up once Stop has been
// called, since nothing polls after that.
func (s *WSServer) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Poll returns the next event, waiting at most timeout.
func (s *WSServer) Poll(timeout time.Duration) (Event, error) {
	if timeout <= 0 {
		select {
		case ev := <-s.events:
			return ev, nil
		default:
			return Event{Type: EventTypeNone}, nil
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-s.events:
		return ev, nil
	case <-timer.C:
		return Event{Type: EventTypeNone}, nil
	}
}

func (s *WSServer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close(errcode.RoomClosed)
	}
}

type wsConn struct {
	ws      *websocket.Conn
	address string
	send    chan []byte

	once    sync.Once
	closing chan struct{}
	code    errcode.Code
}

func (c *wsConn) Address() string { return c.address }

func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.closing:
		return errcode.New(errcode.ConnectionClosed)
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.Close(errcode.ConnectionClosed)
		return fmt.Errorf("send buffer full for %s", c.address)
	}
}

func (c *wsConn) Close(code errcode.Code) {
	c.once.Do(func() {
		c.code = code
		close(c.closing)
	})
}

func (c *wsConn) readPump(emit func(Event) bool) {
	defer c.Close(errcode.ConnectionClosed)
	c.ws.SetReadLimit(wsReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if !emit(Event{Type: EventTypeReceive, Conn: c, Data: data}) {
			return
		}
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.Close(errcode.ConnectionClosed)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(errcode.ConnectionClosed)
				return
			}
		case <-c.closing:
			// Flush what the room already queued, then say why.
			for {
				select {
				case data := <-c.send:
					_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
					if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			msg := websocket.FormatCloseMessage(closeCodeBase+int(c.code), c.code.String())
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
			return
		}
	}
}

type wsClient struct {
	ws      *websocket.Conn
	address string
	wmu     sync.Mutex
}

// DialWS connects to a room's websocket endpoint.
func DialWS(ctx context.Context, url string) (ClientConn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	ws.SetReadLimit(wsReadLimit)
	return &wsClient{ws: ws, address: url}, nil
}

func (c *wsClient) Address() string { return c.address }

func (c *wsClient) Send(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsClient) Recv(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, closeError(err)
		}
		if kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsClient) Close() error {
	c.wmu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	c.wmu.Unlock()
	return c.ws.Close()
}

// closeError turns a close frame carrying an error code back into that code.
func closeError(err error) error {
	if ce, ok := err.(*websocket.CloseError); ok {
		code := errcode.Code(ce.Code - closeCodeBase)
		if ce.Code >= closeCodeBase && code.Valid() {
			return errcode.New(code)
		}
	}
	return fmt.Errorf("%w: %w", errcode.New(errcode.ConnectionClosed), err)
}
