package callbacks

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/gamestate"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

// Callbacks is the full set of room hooks. Room hooks fire after the
// operation was applied; byID is the sending player.
type Callbacks interface {
	gamestate.Events

	OnPlayerJoin(p *player.Player)
	OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int)
	OnPlayerChat(id int, text string)
	OnAnnouncement(targetID int, text string, color, style, sound int)
	OnPlayerChatIndicatorChange(id int, active bool)
	OnPlayerInputChange(id int, input player.Input)
	OnPlayerAvatarChange(id int, avatar string)
	OnPlayerHeadlessAvatarChange(id int, avatar string)
	OnPlayerTeamChange(id int, t team.ID, byID int)
	OnPlayerAdminChange(id int, admin bool, byID int)
	OnPlayerSyncChange(id int, sync bool)
	OnAutoTeams(id1 int, team1 team.ID, id2 int, team2 team.ID, byID int)
	OnStadiumChange(st *stadium.Stadium, byID int)
	OnGameStart(byID int)
	OnGameStop(byID int)
	OnGamePauseChange(paused bool, byID int)
	OnScoreLimitChange(limit, byID int)
	OnTimeLimitChange(limit, byID int)
	OnTeamsLockChange(locked bool, byID int)
	OnKickRateLimitChange(k player.KickRate, byID int)
	OnTeamColorsChange(t team.ID, c team.Colors, byID int)
	OnPlayersOrderChange(ids []int, moveToTop bool, byID int)
	OnSetDiscProperties(op *protocol.SetDiscProperties)
	OnPingData(pings []int)
	OnCustomEvent(eventType uint32, data []byte, byID int)

	// OnBeforeOperation runs before an operation is applied and may return
	// auxiliary data for the after hook. aux is what the previous callback
	// in a chain returned.
	OnBeforeOperation(op protocol.Operation, byID int, aux any) any
	OnAfterOperation(op protocol.Operation, byID int, aux any)

	// OnOperationReceived is the host-side permission check for operations
	// coming from remote players.
	OnOperationReceived(op protocol.Operation, byID int, frame uint32) Decision
	ModifyPlayerPing(id, ping int) int
}

type Verdict uint8

const (
	VerdictAccept     Verdict = 0
	VerdictReject     Verdict = 1
	VerdictDisconnect Verdict = 2
)

// Decision is the answer of a permission hook.
type Decision struct {
	Verdict Verdict
	Reason  string
}

func Accept() Decision { return Decision{Verdict: VerdictAccept} }
func Reject() Decision { return Decision{Verdict: VerdictReject} }

func Disconnect(reason string) Decision {
	return Decision{Verdict: VerdictDisconnect, Reason: reason}
}

type DefaultCallbacks struct {
	gamestate.NopEvents
}

func (d *DefaultCallbacks) OnPlayerJoin(p *player.Player)                                   {}
func (d *DefaultCallbacks) OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int) {}
func (d *DefaultCallbacks) OnPlayerChat(id int, text string)                                {}
func (d *DefaultCallbacks) OnAnnouncement(targetID int, text string, color, style, sound int) {
}
func (d *DefaultCallbacks) OnPlayerChatIndicatorChange(id int, active bool)             {}
func (d *DefaultCallbacks) OnPlayerInputChange(id int, input player.Input)              {}
func (d *DefaultCallbacks) OnPlayerAvatarChange(id int, avatar string)                  {}
func (d *DefaultCallbacks) OnPlayerHeadlessAvatarChange(id int, avatar string)          {}
func (d *DefaultCallbacks) OnPlayerTeamChange(id int, t team.ID, byID int)              {}
func (d *DefaultCallbacks) OnPlayerAdminChange(id int, admin bool, byID int)            {}
func (d *DefaultCallbacks) OnPlayerSyncChange(id int, sync bool)                        {}
func (d *DefaultCallbacks) OnAutoTeams(id1 int, t1 team.ID, id2 int, t2 team.ID, byID int) {}
func (d *DefaultCallbacks) OnStadiumChange(st *stadium.Stadium, byID int)               {}
func (d *DefaultCallbacks) OnGameStart(byID int)                                        {}
func (d *DefaultCallbacks) OnGameStop(byID int)                                         {}
func (d *DefaultCallbacks) OnGamePauseChange(paused bool, byID int)                     {}
func (d *DefaultCallbacks) OnScoreLimitChange(limit, byID int)                          {}
func (d *DefaultCallbacks) OnTimeLimitChange(limit, byID int)                           {}
func (d *DefaultCallbacks) OnTeamsLockChange(locked bool, byID int)                     {}
func (d *DefaultCallbacks) OnKickRateLimitChange(k player.KickRate, byID int)           {}
func (d *DefaultCallbacks) OnTeamColorsChange(t team.ID, c team.Colors, byID int)       {}
func (d *DefaultCallbacks) OnPlayersOrderChange(ids []int, moveToTop bool, byID int)    {}
func (d *DefaultCallbacks) OnSetDiscProperties(op *protocol.SetDiscProperties)          {}
func (d *DefaultCallbacks) OnPingData(pings []int)                                      {}
func (d *DefaultCallbacks) OnCustomEvent(eventType uint32, data []byte, byID int)       {}
func (d *DefaultCallbacks) OnBeforeOperation(op protocol.Operation, byID int, aux any) any {
	return aux
}
func (d *DefaultCallbacks) OnAfterOperation(op protocol.Operation, byID int, aux any) {}
func (d *DefaultCallbacks) OnOperationReceived(op protocol.Operation, byID int, frame uint32) Decision {
	return Accept()
}
func (d *DefaultCallbacks) ModifyPlayerPing(id, ping int) int { return ping }

// CallbackChain runs its callbacks in registration order.
type CallbackChain struct {
	callbacks []Callbacks
}

func NewCallbackChain() *CallbackChain {
	return &CallbackChain{
		callbacks: make([]Callbacks, 0),
	}
}

func (c *CallbackChain) Register(cb Callbacks) {
	c.callbacks = append(c.callbacks, cb)
}

// Unregister removes cb. It reports whether cb was registered.
func (c *CallbackChain) Unregister(cb Callbacks) bool {
	for i, existing := range c.callbacks {
		if existing == cb {
			// A chain may be walking the old slice right now.
			rest := make([]Callbacks, 0, len(c.callbacks)-1)
			rest = append(rest, c.callbacks[:i]...)
			c.callbacks = append(rest, c.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

func (c *CallbackChain) Len() int {
	return len(c.callbacks)
}

func (c *CallbackChain) each(fn func(Callbacks)) {
	for _, cb := range c.callbacks {
		fn(cb)
	}
}

func (c *CallbackChain) OnGameTick()       { c.each(func(cb Callbacks) { cb.OnGameTick() }) }
func (c *CallbackChain) OnKickOff()        { c.each(func(cb Callbacks) { cb.OnKickOff() }) }
func (c *CallbackChain) OnTimeIsUp()       { c.each(func(cb Callbacks) { cb.OnTimeIsUp() }) }
func (c *CallbackChain) OnPositionsReset() { c.each(func(cb Callbacks) { cb.OnPositionsReset() }) }

func (c *CallbackChain) OnPlayerBallKick(id int) {
	c.each(func(cb Callbacks) { cb.OnPlayerBallKick(id) })
}

func (c *CallbackChain) OnTeamGoal(scorer team.ID) {
	c.each(func(cb Callbacks) { cb.OnTeamGoal(scorer) })
}

func (c *CallbackChain) OnGameEnd(winner team.ID) {
	c.each(func(cb Callbacks) { cb.OnGameEnd(winner) })
}

func (c *CallbackChain) OnCollisionDiscVsDisc(d1, p1, d2, p2 int) {
	c.each(func(cb Callbacks) { cb.OnCollisionDiscVsDisc(d1, p1, d2, p2) })
}

func (c *CallbackChain) OnCollisionDiscVsSegment(disc, playerID, segment int) {
	c.each(func(cb Callbacks) { cb.OnCollisionDiscVsSegment(disc, playerID, segment) })
}

func (c *CallbackChain) OnCollisionDiscVsPlane(disc, playerID, plane int) {
	c.each(func(cb Callbacks) { cb.OnCollisionDiscVsPlane(disc, playerID, plane) })
}

func (c *CallbackChain) OnPlayerJoin(p *player.Player) {
	c.each(func(cb Callbacks) { cb.OnPlayerJoin(p) })
}

func (c *CallbackChain) OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int) {
	c.each(func(cb Callbacks) { cb.OnPlayerLeave(p, reason, banned, byID) })
}

func (c *CallbackChain) OnPlayerChat(id int, text string) {
	c.each(func(cb Callbacks) { cb.OnPlayerChat(id, text) })
}

func (c *CallbackChain) OnAnnouncement(targetID int, text string, color, style, sound int) {
	c.each(func(cb Callbacks) { cb.OnAnnouncement(targetID, text, color, style, sound) })
}

func (c *CallbackChain) OnPlayerChatIndicatorChange(id int, active bool) {
	c.each(func(cb Callbacks) { cb.OnPlayerChatIndicatorChange(id, active) })
}

func (c *CallbackChain) OnPlayerInputChange(id int, input player.Input) {
	c.each(func(cb Callbacks) { cb.OnPlayerInputChange(id, input) })
}

func (c *CallbackChain) OnPlayerAvatarChange(id int, avatar string) {
	c.each(func(cb Callbacks) { cb.OnPlayerAvatarChange(id, avatar) })
}

func (c *CallbackChain) OnPlayerHeadlessAvatarChange(id int, avatar string) {
	c.each(func(cb Callbacks) { cb.OnPlayerHeadlessAvatarChange(id, avatar) })
}

func (c *CallbackChain) OnPlayerTeamChange(id int, t team.ID, byID int) {
	c.each(func(cb Callbacks) { cb.OnPlayerTeamChange(id, t, byID) })
}

func (c *CallbackChain) OnPlayerAdminChange(id int, admin bool, byID int) {
	c.each(func(cb Callbacks) { cb.OnPlayerAdminChange(id, admin, byID) })
}

func (c *CallbackChain) OnPlayerSyncChange(id int, sync bool) {
	c.each(func(cb Callbacks) { cb.OnPlayerSyncChange(id, sync) })
}

func (c *CallbackChain) OnAutoTeams(id1 int, t1 team.ID, id2 int, t2 team.ID, byID int) {
	c.each(func(cb Callbacks) { cb.OnAutoTeams(id1, t1, id2, t2, byID) })
}

func (c *CallbackChain) OnStadiumChange(st *stadium.Stadium, byID int) {
	c.each(func(cb Callbacks) { cb.OnStadiumChange(st, byID) })
}

func (c *CallbackChain) OnGameStart(byID int) {
	c.each(func(cb Callbacks) { cb.OnGameStart(byID) })
}

func (c *CallbackChain) OnGameStop(byID int) {
	c.each(func(cb Callbacks) { cb.OnGameStop(byID) })
}

func (c *CallbackChain) OnGamePauseChange(paused bool, byID int) {
	c.each(func(cb Callbacks) { cb.OnGamePauseChange(paused, byID) })
}

func (c *CallbackChain) OnScoreLimitChange(limit, byID int) {
	c.each(func(cb Callbacks) { cb.OnScoreLimitChange(limit, byID) })
}

func (c *CallbackChain) OnTimeLimitChange(limit, byID int) {
	c.each(func(cb Callbacks) { cb.OnTimeLimitChange(limit, byID) })
}

func (c *CallbackChain) OnTeamsLockChange(locked bool, byID int) {
	c.each(func(cb Callbacks) { cb.OnTeamsLockChange(locked, byID) })
}

func (c *CallbackChain) OnKickRateLimitChange(k player.KickRate, byID int) {
	c.each(func(cb Callbacks) { cb.OnKickRateLimitChange(k, byID) })
}

func (c *CallbackChain) OnTeamColorsChange(t team.ID, colors team.Colors, byID int) {
	c.each(func(cb Callbacks) { cb.OnTeamColorsChange(t, colors, byID) })
}

func (c *CallbackChain) OnPlayersOrderChange(ids []int, moveToTop bool, byID int) {
	c.each(func(cb Callbacks) { cb.OnPlayersOrderChange(ids, moveToTop, byID) })
}

func (c *CallbackChain) OnSetDiscProperties(op *protocol.SetDiscProperties) {
	c.each(func(cb Callbacks) { cb.OnSetDiscProperties(op) })
}

func (c *CallbackChain) OnPingData(pings []int) {
	c.each(func(cb Callbacks) { cb.OnPingData(pings) })
}

func (c *CallbackChain) OnCustomEvent(eventType uint32, data []byte, byID int) {
	c.each(func(cb Callbacks) { cb.OnCustomEvent(eventType, data, byID) })
}

// OnBeforeOperation threads aux through every callback, each one seeing
// what the previous returned.
func (c *CallbackChain) OnBeforeOperation(op protocol.Operation, byID int, aux any) any {
	for _, cb := range c.callbacks {
		aux = cb.OnBeforeOperation(op, byID, aux)
	}
	return aux
}

func (c *CallbackChain) OnAfterOperation(op protocol.Operation, byID int, aux any) {
	c.each(func(cb Callbacks) { cb.OnAfterOperation(op, byID, aux) })
}

// OnOperationReceived stops at the first callback that does not accept.
// A callback that panics disconnects the sender.
func (c *CallbackChain) OnOperationReceived(op protocol.Operation, byID int, frame uint32) Decision {
	for _, cb := range c.callbacks {
		d := guard(cb, op, byID, frame)
		if d.Verdict != VerdictAccept {
			return d
		}
	}
	return Accept()
}

func guard(cb Callbacks, op protocol.Operation, byID int, frame uint32) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Disconnect(fmt.Sprint(r))
		}
	}()
	return cb.OnOperationReceived(op, byID, frame)
}

// ModifyPlayerPing feeds the ping through every callback, first registered
// first.
func (c *CallbackChain) ModifyPlayerPing(id, ping int) int {
	for _, cb := range c.callbacks {
		ping = cb.ModifyPlayerPing(id, ping)
	}
	return ping
}
