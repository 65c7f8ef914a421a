package server

import (
	"net"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/network"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/validation"
)

// session is one connection. id stays noPlayer until the handshake is done.
type session struct {
	conn network.Conn
	id   int
	ip   string
}

const noPlayer = -1

type pendingClose struct {
	conn network.Conn
	code errcode.Code
}

// remoteIP strips the port off a transport address.
func remoteIP(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}

func (s *Server) handleConnect(conn network.Conn) {
	s.sessions[conn] = &session{conn: conn, id: noPlayer, ip: remoteIP(conn.Address())}
	s.logger.Debug("connection opened", "address", conn.Address())
}

func (s *Server) handleDisconnect(conn network.Conn) {
	sess, ok := s.sessions[conn]
	if !ok {
		return
	}
	delete(s.sessions, conn)
	if sess.id == noPlayer {
		return
	}
	delete(s.players, sess.id)
	s.host.Forget(sess.id)
	// A kick without a reason is how a player leaving is told to the room.
	s.host.Submit(&protocol.KickBanPlayer{PlayerID: sess.id})
	s.logger.Info("player disconnected", "id", sess.id, "address", conn.Address())
}

func (s *Server) handleMessage(conn network.Conn, data []byte) {
	sess, ok := s.sessions[conn]
	if !ok {
		return
	}
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		s.logger.Info("dropping connection on bad message", "address", conn.Address(), "error", err)
		s.drop(sess, errcode.Of(err))
		return
	}

	if sess.id == noPlayer {
		if msg.Kind != protocol.MessageJoinRequest {
			s.drop(sess, errcode.Failed)
			return
		}
		s.handleJoin(sess, msg.Join)
		return
	}

	switch msg.Kind {
	case protocol.MessageOperation:
		s.handleOperation(sess, msg.Op)
	case protocol.MessageHeartbeat:
		// Clients echo heartbeats; the frame difference is the round trip.
		if frame := s.host.Frame(); msg.Heartbeat.Frame <= frame {
			s.host.ReportPing(sess.id, int(frame-msg.Heartbeat.Frame)*1000/TickRate)
		}
	default:
		s.logger.Debug("ignoring message", "id", sess.id, "kind", msg.Kind)
	}
}

func (s *Server) handleOperation(sess *session, op protocol.Operation) {
	d := s.host.Receive(op, sess.id)
	switch d.Verdict {
	case callbacks.VerdictReject:
		s.logger.Debug("operation rejected by hook", "id", sess.id, "op", op.Type())
	case callbacks.VerdictDisconnect:
		s.logger.Info("operation disconnected player", "id", sess.id, "op", op.Type(), "reason", d.Reason)
		reason := validation.TruncateReason(d.Reason)
		s.host.Submit(&protocol.KickBanPlayer{PlayerID: sess.id, Reason: &reason})
	}
}

// handleJoin runs the handshake. The player is added through a JoinRoom
// operation queued for the current frame; the snapshot sent back is the
// room right before that frame, so the client replays its own join.
func (s *Server) handleJoin(sess *session, req *protocol.JoinRequest) {
	if err := s.checkJoin(sess, req); err != nil {
		s.reject(sess, err)
		return
	}

	id, ok := s.allocateID()
	if !ok {
		s.reject(sess, errcode.New(errcode.RoomFull))
		return
	}
	flag, _ := validation.PlayerFlag(req.Flag)

	sess.id = id
	s.players[id] = sess
	s.host.Submit(&protocol.JoinRoom{
		PlayerID: id,
		Name:     req.Name,
		Flag:     flag,
		Avatar:   req.Avatar,
		Conn:     sess.ip,
		Auth:     req.Auth,
	})

	frame, state := s.host.Snapshot()
	err := sess.conn.Send(protocol.EncodeMessage(&protocol.Message{
		Kind:     protocol.MessageJoinAccepted,
		Accepted: &protocol.JoinAccepted{PlayerID: id, Frame: frame, State: state},
	}))
	if err != nil {
		s.logger.Warn("failed to send room state", "id", id, "error", err)
	}
	s.logger.Info("player joined", "id", id, "name", req.Name, "address", sess.conn.Address())
}

func (s *Server) checkJoin(sess *session, req *protocol.JoinRequest) error {
	if req.Version != protocol.Version {
		return errcode.New(errcode.IncompatibleVersion)
	}
	if pw := s.config.Room.Password; pw != "" && (req.Password == nil || *req.Password != pw) {
		return errcode.New(errcode.WrongPassword)
	}
	if ban, banned := s.bans.Check(sess.ip, req.Auth); banned {
		s.logger.Info("banned player attempted to join", "address", sess.ip, "name", ban.Name, "reason", ban.Reason)
		return errcode.New(errcode.BannedBefore)
	}
	if len(s.players) >= s.config.Room.MaxPlayers {
		return errcode.New(errcode.RoomFull)
	}
	if err := validation.PlayerName(req.Name); err != nil {
		return err
	}
	if _, err := validation.PlayerFlag(req.Flag); err != nil {
		return err
	}
	return validation.PlayerAvatar(req.Avatar)
}

func (s *Server) reject(sess *session, err error) {
	code := errcode.Of(err)
	if code == errcode.Empty {
		code = errcode.Failed
	}
	s.logger.Info("join rejected", "address", sess.conn.Address(), "reason", s.localizer.Format(err))
	_ = sess.conn.Send(protocol.EncodeMessage(&protocol.Message{
		Kind:     protocol.MessageJoinRejected,
		Rejected: &protocol.JoinRejected{Code: code},
	}))
	s.drop(sess, code)
}

// drop closes a connection that never became, or no longer is, a player.
func (s *Server) drop(sess *session, code errcode.Code) {
	if code == errcode.Empty {
		code = errcode.Failed
	}
	if sess.id != noPlayer {
		s.host.Submit(&protocol.KickBanPlayer{PlayerID: sess.id})
		delete(s.players, sess.id)
		s.host.Forget(sess.id)
	}
	delete(s.sessions, sess.conn)
	sess.conn.Close(code)
}

// allocateID picks the lowest id neither in the room nor promised to a
// player whose join is still queued.
func (s *Server) allocateID() (int, bool) {
	state := s.host.State()
	for id := player.HostID + 1; id <= player.MaxID; id++ {
		if _, taken := s.players[id]; taken {
			continue
		}
		if state.Players.Contains(id) {
			continue
		}
		return id, true
	}
	return 0, false
}

// closePending closes the connections of players the last frame removed.
func (s *Server) closePending() {
	for _, c := range s.closing {
		delete(s.sessions, c.conn)
		c.conn.Close(c.code)
	}
	s.closing = nil
}
