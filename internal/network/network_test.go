package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/protocol"
)

// answer plays the host side of the handshake until done is closed.
func answer(srv *WSServer, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		ev, _ := srv.Poll(20 * time.Millisecond)
		if ev.Type != EventTypeReceive {
			continue
		}
		msg, err := protocol.DecodeMessage(ev.Data)
		if err != nil || msg.Kind != protocol.MessageJoinRequest {
			ev.Conn.Close(errcode.Failed)
			continue
		}
		if msg.Join.Password == nil || *msg.Join.Password != "secret" {
			_ = ev.Conn.Send(protocol.EncodeMessage(&protocol.Message{
				Kind:     protocol.MessageJoinRejected,
				Rejected: &protocol.JoinRejected{Code: errcode.WrongPassword},
			}))
			ev.Conn.Close(errcode.WrongPassword)
			continue
		}
		_ = ev.Conn.Send(protocol.EncodeMessage(&protocol.Message{
			Kind:     protocol.MessageJoinAccepted,
			Accepted: &protocol.JoinAccepted{PlayerID: 4, Frame: 77, State: []byte{1, 2, 3}},
		}))
	}
}

func TestWebSocketHandshake(t *testing.T) {
	srv := NewWSServer(nil, nil)
	hs := httptest.NewServer(srv)
	defer hs.Close()
	done := make(chan struct{})
	defer close(done)
	go answer(srv, done)

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialWS(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var states []ConnectionState
	password := "secret"
	accepted, err := Join(ctx, conn, protocol.JoinRequest{Name: "abc", Password: &password}, func(s ConnectionState) {
		states = append(states, s)
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if accepted.PlayerID != 4 || accepted.Frame != 77 || len(accepted.State) != 3 {
		t.Fatalf("unexpected reply %+v", accepted)
	}
	want := []ConnectionState{ConnectingToPeer, AwaitingState, Active}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
}

func TestWebSocketWrongPassword(t *testing.T) {
	srv := NewWSServer(nil, nil)
	hs := httptest.NewServer(srv)
	defer hs.Close()
	done := make(chan struct{})
	defer close(done)
	go answer(srv, done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := DialWS(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var last ConnectionState
	_, err = Join(ctx, conn, protocol.JoinRequest{Name: "abc"}, func(s ConnectionState) { last = s })
	if !errcode.Is(err, errcode.WrongPassword) {
		t.Fatalf("expected WrongPassword, got %v", err)
	}
	if last != ConnectionFailed {
		t.Fatalf("expected the join to end failed, ended %s", last)
	}
}

func TestWebSocketOriginCheck(t *testing.T) {
	srv := NewWSServer([]string{"https://example.org"}, nil)
	hs := httptest.NewServer(srv)
	defer hs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := DialWS(ctx, "ws"+strings.TrimPrefix(hs.URL, "http")); err == nil {
		t.Fatalf("expected a foreign origin to be refused")
	}
}

func TestWebSocketStopReleasesHandlers(t *testing.T) {
	srv := NewWSServer(nil, nil)
	// Nothing polls, so every event send would block.
	srv.events = make(chan Event)
	returned := make(chan struct{}, 1)
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.ServeHTTP(w, r)
		returned <- struct{}{}
	}))
	defer hs.Close()
	url := "ws" + strings.TrimPrefix(hs.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := DialWS(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.conns)
		srv.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.Stop()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler still blocked after Stop")
	}
	if _, err := conn.Recv(ctx); !errcode.Is(err, errcode.RoomClosed) {
		t.Fatalf("expected RoomClosed, got %v", err)
	}

	srv.Stop()
	if _, err := DialWS(ctx, url); err == nil {
		t.Fatalf("expected a stopped server to refuse new connections")
	}
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatalf("refused handler did not return")
	}
}

type silentConn struct{}

func (silentConn) Address() string        { return "silent" }
func (silentConn) Send(data []byte) error { return nil }
func (silentConn) Close() error           { return nil }
func (silentConn) Recv(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestJoinCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var states []ConnectionState
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Join(ctx, silentConn{}, protocol.JoinRequest{Name: "x"}, func(s ConnectionState) {
		states = append(states, s)
	})
	if !errcode.Is(err, errcode.Cancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if states[len(states)-1] != ConnectionFailed {
		t.Fatalf("expected ConnectionFailed last, got %v", states)
	}
}

func TestCloseCodeMapping(t *testing.T) {
	if !errcode.Is(closeError(&websocket.CloseError{Code: closeCodeBase + int(errcode.KickedNow)}), errcode.KickedNow) {
		t.Fatalf("kick close code not mapped")
	}
}
