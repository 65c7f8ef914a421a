package lua

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siohaza/haxgo/internal/player"
)

// CommandPrefix starts a chat command.
const CommandPrefix = "!"

type CommandPermission int

const (
	PermissionNone CommandPermission = iota
	PermissionAdmin
	PermissionHost
)

type LuaCommand struct {
	Name        string
	Aliases     []string
	Permission  CommandPermission
	Description string
	Usage       string
	Handler     string
	VM          *VM
}

// CommandManager holds the chat commands, one VM per command file.
type CommandManager struct {
	commands map[string]*LuaCommand
	aliases  map[string]string
	logger   *slog.Logger
}

func NewCommandManager(logger *slog.Logger) *CommandManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandManager{
		commands: make(map[string]*LuaCommand),
		aliases:  make(map[string]string),
		logger:   logger,
	}
}

func (cm *CommandManager) LoadCommands(commandsDir string, api *RoomAPI) error {
	files, err := os.ReadDir(commandsDir)
	if err != nil {
		return fmt.Errorf("failed to read commands directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".lua") {
			continue
		}
		if err := cm.LoadCommandFile(filepath.Join(commandsDir, file.Name()), api); err != nil {
			cm.logger.Warn("failed to load command file", "file", file.Name(), "error", err)
		}
	}

	cm.logger.Info("loaded lua commands", "count", len(cm.commands))
	return nil
}

func (cm *CommandManager) Reload(commandsDir string, api *RoomAPI) error {
	cm.commands = make(map[string]*LuaCommand)
	cm.aliases = make(map[string]string)
	return cm.LoadCommands(commandsDir, api)
}

func (cm *CommandManager) LoadCommandFile(path string, api *RoomAPI) error {
	vm := NewVM()
	if api != nil {
		api.RegisterFunctions(vm)
	}
	if err := vm.LoadFile(path); err != nil {
		return err
	}
	return cm.register(vm)
}

// LoadCommandString registers a command from source text.
func (cm *CommandManager) LoadCommandString(code string, api *RoomAPI) error {
	vm := NewVM()
	if api != nil {
		api.RegisterFunctions(vm)
	}
	if err := vm.LoadString(code); err != nil {
		return err
	}
	return cm.register(vm)
}

func (cm *CommandManager) register(vm *VM) error {
	name, err := vm.GetGlobalString("name")
	if err != nil {
		return fmt.Errorf("command missing 'name': %w", err)
	}

	cmd := &LuaCommand{
		Name:    strings.ToLower(name),
		VM:      vm,
		Handler: "execute",
	}
	if aliases, err := vm.GetGlobalString("aliases"); err == nil {
		for _, alias := range strings.Split(aliases, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				cmd.Aliases = append(cmd.Aliases, strings.ToLower(alias))
			}
		}
	}
	if desc, err := vm.GetGlobalString("description"); err == nil {
		cmd.Description = desc
	}
	if usage, err := vm.GetGlobalString("usage"); err == nil {
		cmd.Usage = usage
	}
	if perm, err := vm.GetGlobalString("permission"); err == nil {
		cmd.Permission = parsePermission(perm)
	}
	if handler, err := vm.GetGlobalString("handler"); err == nil {
		cmd.Handler = handler
	}
	if !vm.HasFunction(cmd.Handler) {
		return fmt.Errorf("command %s has no handler %s", cmd.Name, cmd.Handler)
	}

	cm.Register(cmd)
	return nil
}

func (cm *CommandManager) Register(cmd *LuaCommand) {
	cm.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		cm.aliases[alias] = cmd.Name
	}
}

func (cm *CommandManager) Get(name string) *LuaCommand {
	name = strings.ToLower(name)
	if canonical, ok := cm.aliases[name]; ok {
		return cm.commands[canonical]
	}
	return cm.commands[name]
}

// ParseCommand splits "!name a b" into its name and arguments.
func ParseCommand(text string) (string, []string, bool) {
	if !strings.HasPrefix(text, CommandPrefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, CommandPrefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Execute runs a command for p and returns the text to show back to it.
func (cm *CommandManager) Execute(p *player.Player, cmdName string, args []string) (string, error) {
	cmd := cm.Get(cmdName)
	if cmd == nil {
		return "", fmt.Errorf("unknown command: %s", cmdName)
	}
	if !hasPermission(p, cmd.Permission) {
		return "", fmt.Errorf("you don't have permission to use this command")
	}

	state := cmd.VM.State()
	top := state.Top()
	defer state.SetTop(top)

	state.Global(cmd.Handler)
	PushPlayer(state, p)
	state.CreateTable(len(args), 1)
	state.PushString(cmdName)
	state.RawSetInt(-2, 0)
	for i, arg := range args {
		state.PushString(arg)
		state.RawSetInt(-2, i+1)
	}

	if err := state.ProtectedCall(2, 1, 0); err != nil {
		return "", fmt.Errorf("command execution failed: %w", err)
	}

	result := ""
	if state.IsString(-1) {
		result, _ = state.ToString(-1)
	}
	return result, nil
}

// Tick runs the timers of every command VM, in command name order.
func (cm *CommandManager) Tick() {
	names := make([]string, 0, len(cm.commands))
	for name := range cm.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := cm.commands[name]
		if err := cmd.VM.Tick(); err != nil {
			cm.logger.Warn("command timer failed", "command", cmd.Name, "error", err)
		}
	}
}

// List returns the commands p may run, sorted by name.
func (cm *CommandManager) List(p *player.Player) []*LuaCommand {
	var commands []*LuaCommand
	for _, cmd := range cm.commands {
		if hasPermission(p, cmd.Permission) {
			commands = append(commands, cmd)
		}
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

func parsePermission(perm string) CommandPermission {
	switch strings.ToLower(perm) {
	case "admin":
		return PermissionAdmin
	case "host":
		return PermissionHost
	default:
		return PermissionNone
	}
}

func playerPermission(p *player.Player) CommandPermission {
	switch {
	case p.ID == player.HostID:
		return PermissionHost
	case p.Admin:
		return PermissionAdmin
	}
	return PermissionNone
}

func hasPermission(p *player.Player, required CommandPermission) bool {
	if required == PermissionNone {
		return true
	}
	return playerPermission(p) >= required
}
