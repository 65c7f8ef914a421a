package script

import (
	"strings"
	"testing"
	"time"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/lockstep"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/pkg/lua"
)

// roomHost drives a real lockstep host the way the server does.
type roomHost struct {
	host *lockstep.Host
}

func (h *roomHost) State() *room.State                    { return h.host.State() }
func (h *roomHost) Submit(op protocol.Operation)          { h.host.Submit(op) }
func (h *roomHost) Kick(id int, reason string, ban bool)  { h.host.Submit(&protocol.KickBanPlayer{PlayerID: id, Reason: &reason, Ban: ban}) }
func (h *roomHost) Unban(key string) bool                 { return false }
func (h *roomHost) IsBanned(conn, auth string) bool       { return false }
func (h *roomHost) RoomName() string                      { return h.host.State().Name }
func (h *roomHost) Uptime() time.Duration                 { return 0 }
func (h *roomHost) ConfigValue(key string) (string, bool) { return "", false }
func (h *roomHost) ReloadScripts() error                  { return nil }

const roomScript = `
name = "autostart"
goals = 0
joined = {}

function on_player_join(p)
  joined[#joined + 1] = p.name
  set_player_team(p.id, "red")
  if #joined == 2 then
    set_player_team(p.id, "blue")
    start_game()
  end
end

function on_team_goal(team)
  goals = goals + 1
end

function on_operation_received(kind, by, frame)
  if kind == "SetAvatar" then
    return false
  end
  if kind == "SendChatIndicator" then
    return "no typing"
  end
  return true
end

function modify_player_ping(id, ping)
  return ping + 1
end
`

func setup(t *testing.T, commands *lua.CommandManager) (*lockstep.Host, *Script) {
	t.Helper()
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	rh := &roomHost{}
	chain := &callbacks.CallbackChain{}
	rh.host = lockstep.NewHost(room.New("scripted", st), chain, nil, nil)
	s, err := LoadString(roomScript, rh, commands, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	chain.Register(s)
	return rh.host, s
}

func TestScriptDrivesRoom(t *testing.T) {
	host, s := setup(t, nil)
	if s.Name() != "autostart" {
		t.Fatalf("unexpected name %q", s.Name())
	}
	host.Submit(&protocol.JoinRoom{PlayerID: 1, Name: "one"})
	host.Submit(&protocol.JoinRoom{PlayerID: 2, Name: "two"})
	for i := 0; i < 3; i++ {
		host.Tick()
	}

	state := host.State()
	one, _ := state.Player(1)
	two, _ := state.Player(2)
	if one.Team != team.Red || two.Team != team.Blue {
		t.Fatalf("expected red and blue, got %s and %s", one.Team, two.Team)
	}
	if state.Game == nil {
		t.Fatalf("expected the script to start the game")
	}
}

func TestScriptPermissionHook(t *testing.T) {
	host, s := setup(t, nil)
	if d := s.OnOperationReceived(&protocol.SetAvatar{Avatar: "x"}, 1, host.Frame()); d.Verdict != callbacks.VerdictReject {
		t.Fatalf("expected reject, got %v", d.Verdict)
	}
	d := s.OnOperationReceived(&protocol.SendChatIndicator{Active: true}, 1, host.Frame())
	if d.Verdict != callbacks.VerdictDisconnect || d.Reason != "no typing" {
		t.Fatalf("expected disconnect, got %+v", d)
	}
	if d := s.OnOperationReceived(&protocol.SendChat{Text: "hi"}, 1, host.Frame()); d.Verdict != callbacks.VerdictAccept {
		t.Fatalf("expected accept, got %v", d.Verdict)
	}
	if got := s.ModifyPlayerPing(1, 40); got != 41 {
		t.Fatalf("expected 41, got %d", got)
	}
}

func TestChatCommandConsumed(t *testing.T) {
	commands := lua.NewCommandManager(nil)
	host, _ := setup(t, commands)
	err := commands.LoadCommandString(`
name = "lock"
permission = "admin"
function execute(p, args)
  set_teams_lock(true)
  return "teams locked"
end
`, lua.NewRoomAPI(&roomHost{host: host}))
	if err != nil {
		t.Fatalf("load command: %v", err)
	}

	host.Submit(&protocol.JoinRoom{PlayerID: 1, Name: "boss"})
	host.Submit(&protocol.SetPlayerAdmin{PlayerID: 1, Admin: true})
	host.Tick()

	if d := host.Receive(&protocol.SendChat{Text: "!lock"}, 1); d.Verdict != callbacks.VerdictReject {
		t.Fatalf("a command should not reach the room, got %v", d.Verdict)
	}
	host.Tick()
	if !host.State().TeamsLocked {
		t.Fatalf("command did not lock the teams")
	}
}

func TestFailingPermissionHookDisconnects(t *testing.T) {
	rh := &roomHost{}
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	chain := &callbacks.CallbackChain{}
	rh.host = lockstep.NewHost(room.New("scripted", st), chain, nil, nil)
	s, err := LoadString(`
function on_operation_received(kind, by, frame)
  error("boom")
end
`, rh, nil, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	chain.Register(s)

	d := rh.host.Receive(&protocol.SendChat{Text: "hi"}, 1)
	if d.Verdict != callbacks.VerdictDisconnect {
		t.Fatalf("expected disconnect, got %v", d.Verdict)
	}
	if !strings.Contains(d.Reason, "boom") {
		t.Fatalf("expected the lua error as reason, got %q", d.Reason)
	}
}
