package script

import (
	"fmt"
	"log/slog"

	golua "github.com/Shopify/go-lua"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/pkg/lua"
)

// ReplyColor is the announcement colour of command replies.
const ReplyColor = 0x9AD3FF

// Script is a room script: a Lua file whose on_* globals receive room
// callbacks, plus the chat commands. Any hook the file does not define is a
// no-op. It runs on the host only.
type Script struct {
	callbacks.DefaultCallbacks

	vm       *lua.VM
	host     lua.RoomHost
	commands *lua.CommandManager
	name     string
	logger   *slog.Logger

	hooks map[string]bool
}

var hookNames = []string{
	"on_init",
	"on_player_join",
	"on_player_leave",
	"on_player_chat",
	"on_player_team_change",
	"on_player_admin_change",
	"on_stadium_change",
	"on_game_start",
	"on_game_stop",
	"on_game_pause",
	"on_game_tick",
	"on_kick_off",
	"on_player_ball_kick",
	"on_team_goal",
	"on_game_end",
	"on_time_is_up",
	"on_positions_reset",
	"on_custom_event",
	"on_operation_received",
	"modify_player_ping",
}

// Load runs the script at path. An empty path gives a script with no hooks,
// which still serves the commands.
func Load(path string, host lua.RoomHost, commands *lua.CommandManager, logger *slog.Logger) (*Script, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api := lua.NewRoomAPI(host)
	if commands != nil {
		api.SetCommandManager(commands)
	}
	vm := lua.NewVM()
	api.RegisterFunctions(vm)

	s := &Script{
		vm:       vm,
		host:     host,
		commands: commands,
		name:     "none",
		logger:   logger,
		hooks:    make(map[string]bool),
	}
	if path == "" {
		return s, nil
	}
	if err := vm.LoadFile(path); err != nil {
		return nil, fmt.Errorf("failed to load room script: %w", err)
	}
	return s.init()
}

// LoadString is Load for source text.
func LoadString(code string, host lua.RoomHost, commands *lua.CommandManager, logger *slog.Logger) (*Script, error) {
	s, err := Load("", host, commands, logger)
	if err != nil {
		return nil, err
	}
	if err := s.vm.LoadString(code); err != nil {
		return nil, fmt.Errorf("failed to load room script: %w", err)
	}
	return s.init()
}

func (s *Script) init() (*Script, error) {
	if name, err := s.vm.GetGlobalString("name"); err == nil {
		s.name = name
	} else {
		s.name = "lua_script"
	}
	for _, hook := range hookNames {
		s.hooks[hook] = s.vm.HasFunction(hook)
	}
	if s.hooks["on_init"] {
		if err := s.vm.CallFunction("on_init"); err != nil {
			return nil, fmt.Errorf("failed to call on_init: %w", err)
		}
	}
	s.logger.Info("room script loaded", "name", s.name)
	return s, nil
}

func (s *Script) Name() string {
	return s.name
}

func (s *Script) VM() *lua.VM {
	return s.vm
}

// Tick runs due timers of the script and of the commands.
func (s *Script) Tick() {
	if err := s.vm.Tick(); err != nil {
		s.logger.Warn("script timer failed", "error", err)
	}
	if s.commands != nil {
		s.commands.Tick()
	}
}

func (s *Script) Close() {
	s.vm.Close()
}

func (s *Script) call(hook string, args ...any) {
	if !s.hooks[hook] {
		return
	}
	if err := s.vm.CallFunction(hook, args...); err != nil {
		s.logger.Error("lua script hook error", "hook", hook, "error", err)
	}
}

func (s *Script) OnPlayerJoin(p *player.Player) {
	if !s.hooks["on_player_join"] {
		return
	}
	_, err := s.vm.CallWith("on_player_join", 0, func(l *golua.State) (int, error) {
		lua.PushPlayer(l, p)
		return 1, nil
	})
	if err != nil {
		s.logger.Error("lua script hook error", "hook", "on_player_join", "error", err)
	}
}

func (s *Script) OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int) {
	if !s.hooks["on_player_leave"] {
		return
	}
	_, err := s.vm.CallWith("on_player_leave", 0, func(l *golua.State) (int, error) {
		lua.PushPlayer(l, p)
		if reason != nil {
			l.PushString(*reason)
		} else {
			l.PushNil()
		}
		l.PushBoolean(banned)
		l.PushInteger(byID)
		return 4, nil
	})
	if err != nil {
		s.logger.Error("lua script hook error", "hook", "on_player_leave", "error", err)
	}
}

func (s *Script) OnPlayerChat(id int, text string) {
	s.call("on_player_chat", id, text)
}

func (s *Script) OnPlayerTeamChange(id int, t team.ID, byID int) {
	s.call("on_player_team_change", id, int(t), byID)
}

func (s *Script) OnPlayerAdminChange(id int, admin bool, byID int) {
	s.call("on_player_admin_change", id, admin, byID)
}

func (s *Script) OnStadiumChange(st *stadium.Stadium, byID int) {
	s.call("on_stadium_change", st.Name, byID)
}

func (s *Script) OnGameStart(byID int)                    { s.call("on_game_start", byID) }
func (s *Script) OnGameStop(byID int)                     { s.call("on_game_stop", byID) }
func (s *Script) OnGamePauseChange(paused bool, byID int) { s.call("on_game_pause", paused, byID) }
func (s *Script) OnGameTick()                             { s.call("on_game_tick") }
func (s *Script) OnKickOff()                              { s.call("on_kick_off") }
func (s *Script) OnPlayerBallKick(id int)                 { s.call("on_player_ball_kick", id) }
func (s *Script) OnTeamGoal(t team.ID)                    { s.call("on_team_goal", int(t)) }
func (s *Script) OnGameEnd(winner team.ID)                { s.call("on_game_end", int(winner)) }
func (s *Script) OnTimeIsUp()                             { s.call("on_time_is_up") }
func (s *Script) OnPositionsReset()                       { s.call("on_positions_reset") }

func (s *Script) OnCustomEvent(eventType uint32, data []byte, byID int) {
	s.call("on_custom_event", eventType, string(data), byID)
}

// OnOperationReceived runs chat commands and the on_operation_received
// hook. A command message is consumed and never reaches the room. The hook
// returns false to drop the operation or a string to disconnect the sender
// with that reason. A hook that fails disconnects the sender too.
func (s *Script) OnOperationReceived(op protocol.Operation, byID int, frame uint32) callbacks.Decision {
	if chat, ok := op.(*protocol.SendChat); ok && s.commands != nil {
		if name, args, ok := lua.ParseCommand(chat.Text); ok && s.commands.Get(name) != nil {
			s.runCommand(byID, name, args)
			return callbacks.Reject()
		}
	}
	if !s.hooks["on_operation_received"] {
		return callbacks.Accept()
	}
	results, err := s.vm.CallFunctionWithReturn("on_operation_received", 1, op.Type().String(), byID, int(frame))
	if err != nil {
		s.logger.Error("lua script hook error", "hook", "on_operation_received", "error", err)
		return callbacks.Disconnect(err.Error())
	}
	switch v := results[0].(type) {
	case bool:
		if !v {
			return callbacks.Reject()
		}
	case string:
		return callbacks.Disconnect(v)
	}
	return callbacks.Accept()
}

func (s *Script) runCommand(byID int, name string, args []string) {
	p, ok := s.host.State().Player(byID)
	if !ok {
		return
	}
	reply, err := s.commands.Execute(p, name, args)
	if err != nil {
		reply = err.Error()
		s.logger.Debug("command failed", "player", p.Name, "command", name, "error", err)
	} else {
		s.logger.Info("command executed", "player", p.Name, "command", name)
	}
	if reply == "" {
		return
	}
	s.host.Submit(&protocol.SendAnnouncement{
		TargetID: byID,
		Text:     reply,
		Color:    ReplyColor,
		Sound:    1,
	})
}

func (s *Script) ModifyPlayerPing(id, ping int) int {
	if !s.hooks["modify_player_ping"] {
		return ping
	}
	results, err := s.vm.CallFunctionWithReturn("modify_player_ping", 1, id, ping)
	if err != nil {
		s.logger.Error("lua script hook error", "hook", "modify_player_ping", "error", err)
		return ping
	}
	if v, ok := results[0].(float64); ok {
		return int(v)
	}
	return ping
}
