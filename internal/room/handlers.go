package room

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/gamestate"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/internal/validation"
)

type access uint8

const (
	accessAny access = iota
	accessOwn
	accessAdmin
	accessHost
)

// rules lists who may send each operation and whether it needs a stopped
// game. SetPlayerTeam has extra rules for non-admins in Authorize.
var rules = map[protocol.OperationType]struct {
	access  access
	stopped bool
}{
	protocol.OpSetAvatar:         {access: accessOwn},
	protocol.OpSetHeadlessAvatar: {access: accessHost},
	protocol.OpSendChat:          {access: accessOwn},
	protocol.OpSendChatIndicator: {access: accessOwn},
	protocol.OpSendAnnouncement:  {access: accessHost},
	protocol.OpSendInput:         {access: accessOwn},
	protocol.OpSetStadium:        {access: accessAdmin, stopped: true},
	protocol.OpStartGame:         {access: accessAdmin, stopped: true},
	protocol.OpStopGame:          {access: accessAdmin},
	protocol.OpPauseResumeGame:   {access: accessAdmin},
	protocol.OpSetScoreLimit:     {access: accessAdmin, stopped: true},
	protocol.OpSetTimeLimit:      {access: accessAdmin, stopped: true},
	protocol.OpAutoTeams:         {access: accessAdmin},
	protocol.OpSetTeamsLock:      {access: accessAdmin},
	protocol.OpSetPlayerTeam:     {access: accessAny},
	protocol.OpSetKickRateLimit:  {access: accessAdmin},
	protocol.OpSetTeamColors:     {access: accessAdmin},
	protocol.OpSetPlayerAdmin:    {access: accessAdmin},
	protocol.OpKickBanPlayer:     {access: accessAdmin},
	protocol.OpSetPlayerSync:     {access: accessOwn},
	protocol.OpPing:              {access: accessHost},
	protocol.OpSetDiscProperties: {access: accessHost},
	protocol.OpJoinRoom:          {access: accessHost},
	protocol.OpReorderPlayers:    {access: accessHost},
	protocol.OpCustomEvent:       {access: accessAny},
}

// Authorize reports ErrUnauthorized when byID may not send op in the
// current state.
func (s *State) Authorize(op protocol.Operation, byID int) error {
	rule, ok := rules[op.Type()]
	if !ok {
		return ErrUnauthorized
	}
	switch rule.access {
	case accessHost:
		if byID != player.HostID {
			return ErrUnauthorized
		}
	case accessAdmin:
		if !s.isAdmin(byID) {
			return ErrUnauthorized
		}
	case accessOwn:
		if !s.Players.Contains(byID) && !(byID == player.HostID && op.Type() == protocol.OpSendChat) {
			return ErrUnauthorized
		}
	}
	if rule.stopped && s.Game != nil {
		return ErrUnauthorized
	}

	if o, ok := op.(*protocol.SetPlayerTeam); ok && !s.isAdmin(byID) {
		if o.PlayerID != byID || s.TeamsLocked || s.Game != nil {
			return ErrUnauthorized
		}
	}
	return nil
}

// Apply checks and applies one operation sent by byID. A nil error means the
// state changed (or the operation was a valid no-op) and the operation may
// be relayed. cb may be nil.
func (s *State) Apply(op protocol.Operation, byID int, cb callbacks.Callbacks) error {
	if cb == nil {
		cb = &callbacks.DefaultCallbacks{}
	}
	if err := s.Authorize(op, byID); err != nil {
		return err
	}
	aux := cb.OnBeforeOperation(op, byID, nil)
	if err := s.apply(op, byID, cb); err != nil {
		return err
	}
	cb.OnAfterOperation(op, byID, aux)
	return nil
}

func (s *State) apply(op protocol.Operation, byID int, cb callbacks.Callbacks) error {
	switch o := op.(type) {
	case *protocol.SetAvatar:
		return s.setAvatar(o, byID, cb)
	case *protocol.SetHeadlessAvatar:
		return s.setHeadlessAvatar(o, cb)
	case *protocol.SendChat:
		if err := validation.Chat(o.Text); err != nil {
			return err
		}
		cb.OnPlayerChat(byID, o.Text)
	case *protocol.SendChatIndicator:
		cb.OnPlayerChatIndicatorChange(byID, o.Active)
	case *protocol.SendAnnouncement:
		if err := validation.Announcement(o.Text); err != nil {
			return err
		}
		cb.OnAnnouncement(o.TargetID, o.Text, int(o.Color), int(o.Style), int(o.Sound))
	case *protocol.SendInput:
		s.sendInput(o, byID, cb)
	case *protocol.SetStadium:
		if o.Stadium == nil {
			return errcode.New(errcode.ObjectCastError)
		}
		s.Stadium = o.Stadium
		cb.OnStadiumChange(o.Stadium, byID)
	case *protocol.StartGame:
		s.startGame(cb, byID)
	case *protocol.StopGame:
		if s.Game == nil {
			return nil
		}
		s.Game = nil
		cb.OnGameStop(byID)
	case *protocol.PauseResumeGame:
		if s.Game == nil || s.Game.Paused() == o.Paused {
			return nil
		}
		s.Game.SetPaused(o.Paused)
		cb.OnGamePauseChange(o.Paused, byID)
	case *protocol.SetScoreLimit:
		s.ScoreLimit = validation.ClampLimit(o.Limit, validation.MaxScoreLimit)
		cb.OnScoreLimitChange(s.ScoreLimit, byID)
	case *protocol.SetTimeLimit:
		s.TimeLimit = validation.ClampLimit(o.Limit, validation.MaxTimeLimit)
		cb.OnTimeLimitChange(s.TimeLimit, byID)
	case *protocol.AutoTeams:
		s.autoTeams(cb, byID)
	case *protocol.SetTeamsLock:
		s.TeamsLocked = o.Locked
		cb.OnTeamsLockChange(o.Locked, byID)
	case *protocol.SetPlayerTeam:
		return s.setPlayerTeam(o.PlayerID, o.Team, byID, cb)
	case *protocol.SetKickRateLimit:
		s.KickRate = player.KickRate{Min: max(o.Min, 0), Rate: max(o.Rate, 0), Burst: max(o.Burst, 0)}
		cb.OnKickRateLimitChange(s.KickRate, byID)
	case *protocol.SetTeamColors:
		if !o.Team.Playing() {
			return errcode.New(errcode.ChangeTeamColorsInvalidTeamIdError)
		}
		if err := o.Colors.Validate(); err != nil {
			return err
		}
		s.TeamColors[o.Team] = o.Colors.Copy()
		cb.OnTeamColorsChange(o.Team, o.Colors, byID)
	case *protocol.SetPlayerAdmin:
		p, ok := s.Players.Get(o.PlayerID)
		if !ok || p.ID == player.HostID {
			return ErrUnauthorized
		}
		p.Admin = o.Admin
		cb.OnPlayerAdminChange(p.ID, o.Admin, byID)
	case *protocol.KickBanPlayer:
		return s.kickBan(o, byID, cb)
	case *protocol.SetPlayerSync:
		p, _ := s.Players.Get(byID)
		p.Sync = o.Sync
		cb.OnPlayerSyncChange(byID, o.Sync)
	case *protocol.Ping:
		for i, p := range s.Players.All() {
			if i < len(o.Pings) {
				p.Ping = o.Pings[i]
			}
		}
		cb.OnPingData(o.Pings)
	case *protocol.SetDiscProperties:
		return s.setDiscProperties(o, cb)
	case *protocol.JoinRoom:
		return s.join(o, cb)
	case *protocol.ReorderPlayers:
		s.Players.Reorder(o.PlayerIDs, o.MoveToTop)
		cb.OnPlayersOrderChange(o.PlayerIDs, o.MoveToTop, byID)
	case *protocol.CustomEvent:
		cb.OnCustomEvent(o.EventType, o.Data, byID)
	default:
		return fmt.Errorf("no handler for %s", op.Type())
	}
	return nil
}

func (s *State) setAvatar(o *protocol.SetAvatar, byID int, cb callbacks.Callbacks) error {
	if err := validation.PlayerAvatar(o.Avatar); err != nil {
		return err
	}
	p, _ := s.Players.Get(byID)
	p.Avatar = o.Avatar
	cb.OnPlayerAvatarChange(byID, o.Avatar)
	return nil
}

func (s *State) setHeadlessAvatar(o *protocol.SetHeadlessAvatar, cb callbacks.Callbacks) error {
	p, ok := s.Players.Get(o.PlayerID)
	if !ok {
		return ErrUnauthorized
	}
	if err := validation.PlayerAvatar(o.Avatar); err != nil {
		return err
	}
	p.HeadlessAvatar = o.Avatar
	cb.OnPlayerHeadlessAvatarChange(p.ID, o.Avatar)
	return nil
}

// sendInput stores the new key state. A new kick press while a game runs
// goes through the kick rate limit: when the limit refuses it, the kick bit
// is dropped from the stored input.
func (s *State) sendInput(o *protocol.SendInput, byID int, cb callbacks.Callbacks) {
	p, _ := s.Players.Get(byID)
	in := o.Input.Sanitize()
	if s.Game != nil && in.Kick() && !p.Input.Kick() {
		if p.AllowKick(s.KickRate) {
			p.IsKicking = true
		} else {
			in &^= player.InputKick
		}
	}
	p.Input = in
	cb.OnPlayerInputChange(byID, in)
}

func (s *State) startGame(cb callbacks.Callbacks, byID int) {
	for _, p := range s.Players.All() {
		p.IsKicking = false
		p.KickRateMinTick = 0
		p.KickRateMaxTick = 0
	}
	s.Game = gamestate.New(s.Stadium, s.ScoreLimit, s.TimeLimit, s.Players)
	cb.OnGameStart(byID)
}

// autoTeams moves the first spectator to the smaller team, or the first two
// spectators to red and blue when the teams are even.
func (s *State) autoTeams(cb callbacks.Callbacks, byID int) {
	specs := s.Players.InTeam(team.Spectators)
	if len(specs) == 0 {
		return
	}
	red := len(s.Players.InTeam(team.Red))
	blue := len(s.Players.InTeam(team.Blue))

	first := team.Red
	if blue < red {
		first = team.Blue
	}
	s.moveToTeam(specs[0], first)
	id2, second := SystemID, team.Spectators
	if red == blue && len(specs) > 1 {
		id2, second = specs[1].ID, team.Blue
		s.moveToTeam(specs[1], second)
	}
	cb.OnAutoTeams(specs[0].ID, first, id2, second, byID)
}

func (s *State) moveToTeam(p *player.Player, t team.ID) {
	p.Team = t
	if s.Game != nil {
		s.Game.PlayerTeamChanged(p, s.Players)
	}
}

func (s *State) setPlayerTeam(id int, t team.ID, byID int, cb callbacks.Callbacks) error {
	p, ok := s.Players.Get(id)
	if !ok {
		return ErrUnauthorized
	}
	if !t.Valid() {
		return errcode.New(errcode.BadTeamError)
	}
	if p.Team == t {
		return nil
	}
	s.moveToTeam(p, t)
	cb.OnPlayerTeamChange(id, t, byID)
	return nil
}

func (s *State) kickBan(o *protocol.KickBanPlayer, byID int, cb callbacks.Callbacks) error {
	if o.PlayerID == player.HostID {
		return ErrUnauthorized
	}
	if err := validation.KickReason(o.Reason); err != nil {
		return err
	}
	p, ok := s.Players.Remove(o.PlayerID)
	if !ok {
		return ErrUnauthorized
	}
	if s.Game != nil {
		s.Game.PlayerLeft(p.ID)
	}
	cb.OnPlayerLeave(p, o.Reason, o.Ban && o.Reason != nil, byID)
	return nil
}

// setDiscProperties edits a disc of the running game. Values are checked
// before anything is written.
func (s *State) setDiscProperties(o *protocol.SetDiscProperties, cb callbacks.Callbacks) error {
	if s.Game == nil {
		return ErrUnauthorized
	}
	var d *physics.Disc
	if o.IsPlayer {
		d = s.Game.PlayerDisc(o.ID)
	} else if o.ID >= 0 && o.ID < len(s.Game.Physics.Discs) {
		d = &s.Game.Physics.Discs[o.ID]
	}
	if d == nil {
		return errcode.New(errcode.ObjectCastError)
	}

	for i, v := range o.Values {
		if o.Flags&(1<<i) != 0 && !validation.IsFinite(v) {
			return errcode.New(errcode.ObjectCastError, i)
		}
	}
	v := o.Values
	if o.Has(protocol.DiscRadius) && !validation.IsValidRadius(v[6]) {
		return errcode.New(errcode.ObjectCastError, "radius")
	}
	if o.Has(protocol.DiscInvMass) && !validation.IsValidInvMass(v[8]) {
		return errcode.New(errcode.ObjectCastError, "invMass")
	}
	if o.Has(protocol.DiscDamping) && !validation.IsValidDamping(v[9]) {
		return errcode.New(errcode.ObjectCastError, "damping")
	}

	fields := []*float64{&d.Pos.X, &d.Pos.Y, &d.Speed.X, &d.Speed.Y, &d.Gravity.X, &d.Gravity.Y,
		&d.Radius, &d.BCoef, &d.InvMass, &d.Damping}
	for i, dst := range fields {
		if o.Flags&(1<<i) != 0 {
			*dst = v[i]
		}
	}
	if o.Has(protocol.DiscColor) {
		d.Color = o.Color
	}
	if o.Has(protocol.DiscCMask) {
		d.CMask = o.CMask
	}
	if o.Has(protocol.DiscCGroup) {
		d.CGroup = o.CGroup
	}
	cb.OnSetDiscProperties(o)
	return nil
}

func (s *State) join(o *protocol.JoinRoom, cb callbacks.Callbacks) error {
	if s.Players.Contains(o.PlayerID) || o.PlayerID < 0 || o.PlayerID > player.MaxID {
		return ErrUnauthorized
	}
	if err := validation.PlayerName(o.Name); err != nil {
		return err
	}
	flag, err := validation.PlayerFlag(o.Flag)
	if err != nil {
		return err
	}
	if err := validation.PlayerAvatar(o.Avatar); err != nil {
		return err
	}
	p := player.New(o.PlayerID, o.Name, flag, o.Avatar, o.Conn, o.Auth)
	s.Players.Add(p)
	cb.OnPlayerJoin(p)
	return nil
}
