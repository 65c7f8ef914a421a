package lua

import (
	"testing"
	"time"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

type fakeHost struct {
	state  *room.State
	ops    []protocol.Operation
	kicked map[int]bool
}

func (h *fakeHost) State() *room.State          { return h.state }
func (h *fakeHost) Submit(op protocol.Operation) { h.ops = append(h.ops, op) }
func (h *fakeHost) Kick(id int, reason string, ban bool) {
	h.kicked[id] = ban
}
func (h *fakeHost) Unban(key string) bool                 { return key == "1.1.1.1" }
func (h *fakeHost) IsBanned(conn, auth string) bool       { return conn == "1.1.1.1" }
func (h *fakeHost) RoomName() string                      { return "test room" }
func (h *fakeHost) Uptime() time.Duration                 { return time.Minute }
func (h *fakeHost) ConfigValue(key string) (string, bool) { return "", false }
func (h *fakeHost) ReloadScripts() error                  { return nil }

func newHost(t *testing.T) *fakeHost {
	t.Helper()
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	state := room.New("test room", st)
	cb := &callbacks.DefaultCallbacks{}
	for id, name := range map[int]string{1: "alice", 2: "bob"} {
		if err := state.Apply(&protocol.JoinRoom{PlayerID: id, Name: name}, player.HostID, cb); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	alice, _ := state.Player(1)
	alice.Admin = true
	return &fakeHost{state: state, kicked: make(map[int]bool)}
}

const swapCommand = `
name = "swap"
aliases = "s, sw"
permission = "admin"
description = "move a player to a team"
usage = "!swap <id> <team>"

function execute(p, args)
  set_player_team(tonumber(args[1]), args[2])
  return "moved " .. args[1] .. " by " .. p.name
end
`

func TestCommandExecution(t *testing.T) {
	host := newHost(t)
	api := NewRoomAPI(host)
	cm := NewCommandManager(nil)
	api.SetCommandManager(cm)
	if err := cm.LoadCommandString(swapCommand, api); err != nil {
		t.Fatalf("load: %v", err)
	}

	name, args, ok := ParseCommand("!SW 2 blue")
	if !ok || name != "sw" || len(args) != 2 {
		t.Fatalf("unexpected parse %q %v %v", name, args, ok)
	}

	alice, _ := host.state.Player(1)
	out, err := cm.Execute(alice, name, args)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "moved 2 by alice" {
		t.Fatalf("unexpected reply %q", out)
	}
	if len(host.ops) != 1 {
		t.Fatalf("expected one operation, got %d", len(host.ops))
	}
	op, ok := host.ops[0].(*protocol.SetPlayerTeam)
	if !ok || op.PlayerID != 2 || op.Team != team.Blue {
		t.Fatalf("unexpected operation %#v", host.ops[0])
	}

	bob, _ := host.state.Player(2)
	if _, err := cm.Execute(bob, "swap", []string{"1", "red"}); err == nil {
		t.Fatalf("non-admin ran an admin command")
	}
	if got := len(cm.List(bob)); got != 0 {
		t.Fatalf("expected no commands listed for bob, got %d", got)
	}
}

func TestCommandNeedsHandler(t *testing.T) {
	cm := NewCommandManager(nil)
	if err := cm.LoadCommandString(`name = "broken"`, nil); err == nil {
		t.Fatalf("expected a command without handler to fail")
	}
	if _, _, ok := ParseCommand("hello"); ok {
		t.Fatalf("plain chat parsed as a command")
	}
}

func TestTimersCountTicks(t *testing.T) {
	host := newHost(t)
	vm := NewVM()
	NewRoomAPI(host).RegisterFunctions(vm)
	err := vm.LoadString(`
count = 0
function bump() count = count + 1 end
once = 0
function single() once = once + 1 end
schedule_callback("bump", 3, true)
schedule_callback("single", 2, false)
`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 0; i < 7; i++ {
		if err := vm.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if n, _ := vm.GetGlobalNumber("count"); n != 2 {
		t.Fatalf("expected the repeating timer to fire twice, fired %v", n)
	}
	if n, _ := vm.GetGlobalNumber("once"); n != 1 {
		t.Fatalf("expected the single timer to fire once, fired %v", n)
	}
}

func TestSetDiscBuildsMask(t *testing.T) {
	host := newHost(t)
	vm := NewVM()
	NewRoomAPI(host).RegisterFunctions(vm)
	if err := vm.LoadString(`set_disc(0, false, {x = 5, color = 255})`); err != nil {
		t.Fatalf("load: %v", err)
	}
	op, ok := host.ops[0].(*protocol.SetDiscProperties)
	if !ok {
		t.Fatalf("unexpected operation %#v", host.ops[0])
	}
	if !op.Has(protocol.DiscX) || !op.Has(protocol.DiscColor) || op.Has(protocol.DiscY) {
		t.Fatalf("unexpected flags %b", op.Flags)
	}
	if op.Values[0] != 5 || op.Color != 255 {
		t.Fatalf("unexpected values %v %v", op.Values[0], op.Color)
	}
}

func TestSandbox(t *testing.T) {
	vm := NewVM()
	for _, code := range []string{`os.exit(1)`, `io.write("x")`, `dofile("x.lua")`} {
		if err := vm.LoadString(code); err == nil {
			t.Fatalf("expected %q to fail in the sandbox", code)
		}
	}
}

func TestKickAndBan(t *testing.T) {
	host := newHost(t)
	vm := NewVM()
	NewRoomAPI(host).RegisterFunctions(vm)
	if err := vm.LoadString(`kick_player(1, "afk") ban_player(2)`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ban, ok := host.kicked[1]; !ok || ban {
		t.Fatalf("player 1 should be kicked without a ban")
	}
	if ban := host.kicked[2]; !ban {
		t.Fatalf("player 2 should be banned")
	}
}
