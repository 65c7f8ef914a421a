package lua

import (
	"math"
	"time"

	"github.com/Shopify/go-lua"

	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

// RoomHost is what scripts may do to the room. Changes go through host
// operations so that every peer and replay sees them.
type RoomHost interface {
	State() *room.State
	Submit(op protocol.Operation)
	Kick(playerID int, reason string, ban bool)
	Unban(key string) bool
	IsBanned(conn, auth string) bool
	RoomName() string
	Uptime() time.Duration
	ConfigValue(key string) (string, bool)
	ReloadScripts() error
}

type RoomAPI struct {
	host           RoomHost
	commandManager *CommandManager
}

func NewRoomAPI(host RoomHost) *RoomAPI {
	return &RoomAPI{host: host}
}

func (api *RoomAPI) SetCommandManager(cm *CommandManager) {
	api.commandManager = cm
}

func (api *RoomAPI) RegisterFunctions(vm *VM) {
	state := vm.State()

	state.Register("get_player", api.getPlayer)
	state.Register("get_players", api.getPlayers)
	state.Register("get_player_count", api.getPlayerCount)
	state.Register("get_player_by_name", api.getPlayerByName)
	state.Register("get_score", api.getScore)
	state.Register("get_play_state", api.getPlayState)
	state.Register("get_game_time", api.getGameTime)
	state.Register("get_ball_position", api.getBallPosition)
	state.Register("get_player_position", api.getPlayerPosition)
	state.Register("get_stadium_name", api.getStadiumName)

	state.Register("set_player_team", api.setPlayerTeam)
	state.Register("set_player_admin", api.setPlayerAdmin)
	state.Register("start_game", api.startGame)
	state.Register("stop_game", api.stopGame)
	state.Register("pause_game", api.pauseGame)
	state.Register("set_score_limit", api.setScoreLimit)
	state.Register("set_time_limit", api.setTimeLimit)
	state.Register("set_teams_lock", api.setTeamsLock)
	state.Register("set_kick_rate", api.setKickRate)
	state.Register("set_stadium", api.setStadium)
	state.Register("set_disc", api.setDisc)
	state.Register("reorder_players", api.reorderPlayers)
	state.Register("auto_teams", api.autoTeams)

	state.Register("announce", api.announce)
	state.Register("send_chat", api.sendChat)
	state.Register("send_custom_event", api.sendCustomEvent)

	state.Register("kick_player", api.kickPlayer)
	state.Register("ban_player", api.banPlayer)
	state.Register("unban", api.unban)
	state.Register("is_banned", api.isBanned)

	state.Register("get_room_name", api.getRoomName)
	state.Register("get_uptime", api.getUptime)
	state.Register("get_config_value", api.getConfigValue)
	state.Register("reload_scripts", api.reloadScripts)
	state.Register("get_available_commands", api.getAvailableCommands)
	state.Register("has_permission", api.hasPermission)

	state.Register("schedule_callback", func(l *lua.State) int {
		name := lua.CheckString(l, 1)
		ticks := lua.CheckInteger(l, 2)
		repeat := l.ToBoolean(3)
		if ticks < 1 {
			lua.ArgumentError(l, 2, "interval must be at least one tick")
		}
		l.PushInteger(vm.RegisterTimer(name, uint64(ticks), repeat))
		return 1
	})
	state.Register("cancel_callback", func(l *lua.State) int {
		l.PushBoolean(vm.CancelTimer(lua.CheckInteger(l, 1)))
		return 1
	})

	state.Register("distance_2d", distance2D)
	state.Register("rgb_to_color", rgbToColor)
	state.Register("color_to_rgb", colorToRgb)
	state.Register("clamp", clamp)
	state.Register("lerp", lerp)
}

// PushPlayer pushes a read-only table describing p, or nil.
func PushPlayer(l *lua.State, p *player.Player) {
	if p == nil {
		l.PushNil()
		return
	}
	l.NewTable()
	l.PushInteger(p.ID)
	l.SetField(-2, "id")
	l.PushString(p.Name)
	l.SetField(-2, "name")
	l.PushInteger(int(p.Team))
	l.SetField(-2, "team")
	l.PushString(p.Team.String())
	l.SetField(-2, "team_name")
	l.PushBoolean(p.Admin)
	l.SetField(-2, "admin")
	l.PushString(p.Flag)
	l.SetField(-2, "flag")
	l.PushString(p.Avatar)
	l.SetField(-2, "avatar")
	l.PushString(p.Conn)
	l.SetField(-2, "conn")
	l.PushString(p.Auth)
	l.SetField(-2, "auth")
	l.PushInteger(p.Ping)
	l.SetField(-2, "ping")
	l.PushBoolean(p.Sync)
	l.SetField(-2, "sync")
	l.PushInteger(int(p.Input))
	l.SetField(-2, "input")
}

func (api *RoomAPI) getPlayer(l *lua.State) int {
	p, _ := api.host.State().Player(lua.CheckInteger(l, 1))
	PushPlayer(l, p)
	return 1
}

func (api *RoomAPI) getPlayers(l *lua.State) int {
	players := api.host.State().Players.All()
	l.CreateTable(len(players), 0)
	for i, p := range players {
		PushPlayer(l, p)
		l.RawSetInt(-2, i+1)
	}
	return 1
}

func (api *RoomAPI) getPlayerCount(l *lua.State) int {
	l.PushInteger(api.host.State().Players.Len())
	return 1
}

func (api *RoomAPI) getPlayerByName(l *lua.State) int {
	name := lua.CheckString(l, 1)
	for _, p := range api.host.State().Players.All() {
		if p.Name == name {
			PushPlayer(l, p)
			return 1
		}
	}
	l.PushNil()
	return 1
}

func (api *RoomAPI) getScore(l *lua.State) int {
	g := api.host.State().Game
	if g == nil {
		l.PushNil()
		return 1
	}
	l.PushInteger(g.RedScore)
	l.PushInteger(g.BlueScore)
	return 2
}

func (api *RoomAPI) getPlayState(l *lua.State) int {
	g := api.host.State().Game
	if g == nil {
		l.PushNil()
		return 1
	}
	l.PushString(g.State.String())
	return 1
}

func (api *RoomAPI) getGameTime(l *lua.State) int {
	g := api.host.State().Game
	if g == nil {
		l.PushNil()
		return 1
	}
	l.PushNumber(g.TimeElapsed)
	return 1
}

func pushVec(l *lua.State, v physics.Vec) int {
	l.PushNumber(v.X)
	l.PushNumber(v.Y)
	return 2
}

func (api *RoomAPI) getBallPosition(l *lua.State) int {
	g := api.host.State().Game
	if g == nil || g.Ball() == nil {
		l.PushNil()
		return 1
	}
	return pushVec(l, g.Ball().Pos)
}

func (api *RoomAPI) getPlayerPosition(l *lua.State) int {
	g := api.host.State().Game
	if g == nil {
		l.PushNil()
		return 1
	}
	d := g.PlayerDisc(lua.CheckInteger(l, 1))
	if d == nil {
		l.PushNil()
		return 1
	}
	return pushVec(l, d.Pos)
}

func (api *RoomAPI) getStadiumName(l *lua.State) int {
	l.PushString(api.host.State().Stadium.Name)
	return 1
}

func checkTeam(l *lua.State, idx int) team.ID {
	if l.IsNumber(idx) {
		n, _ := l.ToInteger(idx)
		id := team.ID(n)
		if n < 0 || !id.Valid() {
			lua.ArgumentError(l, idx, "unknown team")
		}
		return id
	}
	id, err := team.Parse(lua.CheckString(l, idx))
	if err != nil {
		lua.ArgumentError(l, idx, "unknown team")
	}
	return id
}

func (api *RoomAPI) setPlayerTeam(l *lua.State) int {
	id := lua.CheckInteger(l, 1)
	api.host.Submit(&protocol.SetPlayerTeam{PlayerID: id, Team: checkTeam(l, 2)})
	return 0
}

func (api *RoomAPI) setPlayerAdmin(l *lua.State) int {
	api.host.Submit(&protocol.SetPlayerAdmin{PlayerID: lua.CheckInteger(l, 1), Admin: l.ToBoolean(2)})
	return 0
}

func (api *RoomAPI) startGame(l *lua.State) int {
	api.host.Submit(&protocol.StartGame{})
	return 0
}

func (api *RoomAPI) stopGame(l *lua.State) int {
	api.host.Submit(&protocol.StopGame{})
	return 0
}

func (api *RoomAPI) pauseGame(l *lua.State) int {
	api.host.Submit(&protocol.PauseResumeGame{Paused: l.ToBoolean(1)})
	return 0
}

func (api *RoomAPI) setScoreLimit(l *lua.State) int {
	api.host.Submit(&protocol.SetScoreLimit{Limit: lua.CheckInteger(l, 1)})
	return 0
}

func (api *RoomAPI) setTimeLimit(l *lua.State) int {
	api.host.Submit(&protocol.SetTimeLimit{Limit: lua.CheckInteger(l, 1)})
	return 0
}

func (api *RoomAPI) setTeamsLock(l *lua.State) int {
	api.host.Submit(&protocol.SetTeamsLock{Locked: l.ToBoolean(1)})
	return 0
}

func (api *RoomAPI) setKickRate(l *lua.State) int {
	api.host.Submit(&protocol.SetKickRateLimit{
		Min:   lua.CheckInteger(l, 1),
		Rate:  lua.CheckInteger(l, 2),
		Burst: lua.CheckInteger(l, 3),
	})
	return 0
}

func (api *RoomAPI) setStadium(l *lua.State) int {
	name := lua.CheckString(l, 1)
	st, ok := stadium.DefaultByName(name)
	if !ok {
		l.PushBoolean(false)
		return 1
	}
	api.host.Submit(&protocol.SetStadium{Stadium: st})
	l.PushBoolean(true)
	return 1
}

var discFields = []struct {
	key  string
	flag uint16
}{
	{"x", protocol.DiscX},
	{"y", protocol.DiscY},
	{"xspeed", protocol.DiscXSpeed},
	{"yspeed", protocol.DiscYSpeed},
	{"xgravity", protocol.DiscXGravity},
	{"ygravity", protocol.DiscYGravity},
	{"radius", protocol.DiscRadius},
	{"bcoef", protocol.DiscBCoef},
	{"invmass", protocol.DiscInvMass},
	{"damping", protocol.DiscDamping},
}

func intField(l *lua.State, idx int, key string) (int, bool) {
	l.Field(idx, key)
	defer l.Pop(1)
	if !l.IsNumber(-1) {
		return 0, false
	}
	return l.ToInteger(-1)
}

// setDisc(id, is_player, {x=..., color=...}) changes only the given fields.
func (api *RoomAPI) setDisc(l *lua.State) int {
	op := &protocol.SetDiscProperties{ID: lua.CheckInteger(l, 1), IsPlayer: l.ToBoolean(2)}
	lua.CheckType(l, 3, lua.TypeTable)
	for _, f := range discFields {
		l.Field(3, f.key)
		if l.IsNumber(-1) {
			v, _ := l.ToNumber(-1)
			op.Set(f.flag, v)
		}
		l.Pop(1)
	}
	if v, ok := intField(l, 3, "color"); ok {
		op.Color = physics.Color(v)
		op.Flags |= protocol.DiscColor
	}
	if v, ok := intField(l, 3, "cmask"); ok {
		op.CMask = physics.CollisionFlags(v)
		op.Flags |= protocol.DiscCMask
	}
	if v, ok := intField(l, 3, "cgroup"); ok {
		op.CGroup = physics.CollisionFlags(v)
		op.Flags |= protocol.DiscCGroup
	}
	api.host.Submit(op)
	return 0
}

func (api *RoomAPI) reorderPlayers(l *lua.State) int {
	lua.CheckType(l, 1, lua.TypeTable)
	var ids []int
	for i := 1; i <= l.RawLength(1); i++ {
		l.RawGetInt(1, i)
		if v, ok := l.ToInteger(-1); ok {
			ids = append(ids, v)
		}
		l.Pop(1)
	}
	api.host.Submit(&protocol.ReorderPlayers{PlayerIDs: ids, MoveToTop: l.ToBoolean(2)})
	return 0
}

func (api *RoomAPI) autoTeams(l *lua.State) int {
	api.host.Submit(&protocol.AutoTeams{})
	return 0
}

// announce(text, [target], [color], [style], [sound])
func (api *RoomAPI) announce(l *lua.State) int {
	api.host.Submit(&protocol.SendAnnouncement{
		Text:     lua.CheckString(l, 1),
		TargetID: lua.OptInteger(l, 2, protocol.AnnouncementTargetAll),
		Color:    physics.Color(lua.OptInteger(l, 3, 0xFFFFFF)),
		Style:    uint8(lua.OptInteger(l, 4, 0)),
		Sound:    uint8(lua.OptInteger(l, 5, 1)),
	})
	return 0
}

func (api *RoomAPI) sendChat(l *lua.State) int {
	api.host.Submit(&protocol.SendChat{Text: lua.CheckString(l, 1)})
	return 0
}

func (api *RoomAPI) sendCustomEvent(l *lua.State) int {
	api.host.Submit(&protocol.CustomEvent{
		EventType: uint32(lua.CheckInteger(l, 1)),
		Data:      []byte(lua.OptString(l, 2, "")),
	})
	return 0
}

func (api *RoomAPI) kickPlayer(l *lua.State) int {
	api.host.Kick(lua.CheckInteger(l, 1), lua.OptString(l, 2, ""), false)
	return 0
}

func (api *RoomAPI) banPlayer(l *lua.State) int {
	api.host.Kick(lua.CheckInteger(l, 1), lua.OptString(l, 2, ""), true)
	return 0
}

func (api *RoomAPI) unban(l *lua.State) int {
	l.PushBoolean(api.host.Unban(lua.CheckString(l, 1)))
	return 1
}

func (api *RoomAPI) isBanned(l *lua.State) int {
	l.PushBoolean(api.host.IsBanned(lua.OptString(l, 1, ""), lua.OptString(l, 2, "")))
	return 1
}

func (api *RoomAPI) getRoomName(l *lua.State) int {
	l.PushString(api.host.RoomName())
	return 1
}

func (api *RoomAPI) getUptime(l *lua.State) int {
	l.PushNumber(api.host.Uptime().Seconds())
	return 1
}

func (api *RoomAPI) getConfigValue(l *lua.State) int {
	v, ok := api.host.ConfigValue(lua.CheckString(l, 1))
	if !ok {
		l.PushNil()
		return 1
	}
	l.PushString(v)
	return 1
}

func (api *RoomAPI) reloadScripts(l *lua.State) int {
	if err := api.host.ReloadScripts(); err != nil {
		l.PushBoolean(false)
		l.PushString(err.Error())
		return 2
	}
	l.PushBoolean(true)
	return 1
}

func (api *RoomAPI) getAvailableCommands(l *lua.State) int {
	l.NewTable()
	if api.commandManager == nil {
		return 1
	}
	p, ok := api.host.State().Player(lua.CheckInteger(l, 1))
	if !ok {
		return 1
	}
	for i, cmd := range api.commandManager.List(p) {
		l.NewTable()
		l.PushString(cmd.Name)
		l.SetField(-2, "name")
		l.PushString(cmd.Description)
		l.SetField(-2, "description")
		l.PushString(cmd.Usage)
		l.SetField(-2, "usage")
		l.RawSetInt(-2, i+1)
	}
	return 1
}

func (api *RoomAPI) hasPermission(l *lua.State) int {
	p, ok := api.host.State().Player(lua.CheckInteger(l, 1))
	l.PushBoolean(ok && hasPermission(p, parsePermission(lua.CheckString(l, 2))))
	return 1
}

func distance2D(l *lua.State) int {
	x1 := lua.CheckNumber(l, 1)
	y1 := lua.CheckNumber(l, 2)
	x2 := lua.CheckNumber(l, 3)
	y2 := lua.CheckNumber(l, 4)
	l.PushNumber(math.Hypot(x2-x1, y2-y1))
	return 1
}

func rgbToColor(l *lua.State) int {
	r := lua.CheckInteger(l, 1) & 0xFF
	g := lua.CheckInteger(l, 2) & 0xFF
	b := lua.CheckInteger(l, 3) & 0xFF
	l.PushInteger(r<<16 | g<<8 | b)
	return 1
}

func colorToRgb(l *lua.State) int {
	c := lua.CheckInteger(l, 1)
	l.PushInteger((c >> 16) & 0xFF)
	l.PushInteger((c >> 8) & 0xFF)
	l.PushInteger(c & 0xFF)
	return 3
}

func clamp(l *lua.State) int {
	v := lua.CheckNumber(l, 1)
	lo := lua.CheckNumber(l, 2)
	hi := lua.CheckNumber(l, 3)
	l.PushNumber(math.Max(lo, math.Min(hi, v)))
	return 1
}

func lerp(l *lua.State) int {
	a := lua.CheckNumber(l, 1)
	b := lua.CheckNumber(l, 2)
	t := lua.CheckNumber(l, 3)
	l.PushNumber(a + (b-a)*t)
	return 1
}
