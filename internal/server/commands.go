package server

import (
	"fmt"
	"time"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/validation"
)

// welcomeColor is the colour of the join messages.
const welcomeColor = 0xFFE066

// The methods below make the server the lua.RoomHost of scripts and
// commands. They run on the room loop.

func (s *Server) State() *room.State {
	return s.host.State()
}

func (s *Server) Submit(op protocol.Operation) {
	s.host.Submit(op)
}

// Kick removes a player on the next frame. The connection is closed once
// the room has let the player go.
func (s *Server) Kick(id int, reason string, ban bool) {
	reason = validation.TruncateReason(reason)
	s.host.Submit(&protocol.KickBanPlayer{PlayerID: id, Reason: &reason, Ban: ban})
}

func (s *Server) Unban(key string) bool {
	removed, err := s.bans.Remove(key)
	if err != nil {
		s.logger.Error("failed to remove ban", "key", key, "error", err)
	}
	return removed
}

func (s *Server) IsBanned(conn, auth string) bool {
	_, banned := s.bans.Check(conn, auth)
	return banned
}

func (s *Server) RoomName() string {
	return s.config.Room.Name
}

func (s *Server) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

func (s *Server) ConfigValue(key string) (string, bool) {
	return s.config.Value(key)
}

func (s *Server) ReloadScripts() error {
	if err := s.loadScripts(); err != nil {
		return fmt.Errorf("failed to reload scripts: %w", err)
	}
	s.logger.Info("reloaded lua scripts")
	return nil
}

// playerName is the display name of byID for logs and ban records.
func (s *Server) playerName(byID int) string {
	if byID == room.SystemID {
		return "system"
	}
	if p, ok := s.host.State().Player(byID); ok {
		return p.Name
	}
	return fmt.Sprintf("#%d", byID)
}

// roomHooks is the server's own callback: it ties room events to
// connections, bans, recordings and the room info.
type roomHooks struct {
	callbacks.DefaultCallbacks
	s *Server
}

func (h *roomHooks) OnPlayerJoin(p *player.Player) {
	h.s.infoDirty = true
	for _, text := range h.s.config.Room.WelcomeMessages {
		h.s.host.Submit(&protocol.SendAnnouncement{
			TargetID: p.ID,
			Text:     text,
			Color:    welcomeColor,
		})
	}
}

func (h *roomHooks) OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int) {
	s := h.s
	s.infoDirty = true

	if reason == nil {
		s.logger.Info("player left", "id", p.ID, "name", p.Name)
		return
	}

	by := s.playerName(byID)
	msg := s.localizer.Format(errcode.New(errcode.KickedNow, *reason, banned, by))
	s.logger.Info("player kicked", "id", p.ID, "name", p.Name, "banned", banned, "message", msg)

	if banned {
		if err := s.bans.Add(p.Conn, p.Auth, p.Name, *reason, by, 0); err != nil {
			s.logger.Error("failed to save ban", "name", p.Name, "error", err)
		}
	}

	if sess, ok := s.players[p.ID]; ok {
		delete(s.players, p.ID)
		s.host.Forget(p.ID)
		s.closing = append(s.closing, pendingClose{conn: sess.conn, code: errcode.KickedNow})
	}
}

func (h *roomHooks) OnPlayerChat(id int, text string) {
	h.s.logger.Info("chat", "id", id, "name", h.s.playerName(id), "text", text)
}

func (h *roomHooks) OnStadiumChange(st *stadium.Stadium, byID int) {
	h.s.infoDirty = true
	h.s.logger.Info("stadium changed", "stadium", st.Name, "by", h.s.playerName(byID))
}

func (h *roomHooks) OnGameStart(byID int) {
	h.s.recordStart = true
	h.s.logger.Info("game started", "by", h.s.playerName(byID))
}

func (h *roomHooks) OnGameStop(byID int) {
	h.s.recordStop = true
	h.s.logger.Info("game stopped", "by", h.s.playerName(byID))
}
