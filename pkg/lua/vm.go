package lua

import (
	"fmt"
	"os"
	"sort"

	"github.com/Shopify/go-lua"
)

// VM is one sandboxed Lua state. It is driven from the room loop only, so
// timers count room ticks rather than wall time.
type VM struct {
	state   *lua.State
	timers  map[int]*Timer
	timerID int
	tick    uint64
}

type Timer struct {
	ID       int
	Callback string
	Interval uint64
	Repeat   bool
	NextRun  uint64
	Args     []any
}

func NewVM() *VM {
	state := lua.NewState()
	openSafeLibraries(state)
	return &VM{
		state:  state,
		timers: make(map[int]*Timer),
	}
}

func openSafeLibraries(state *lua.State) {
	lua.OpenLibraries(state)

	for _, name := range []string{"io", "os", "debug", "dofile", "loadfile", "require"} {
		state.PushNil()
		state.SetGlobal(name)
	}
}

func (vm *VM) LoadFile(path string) error {
	if err := lua.DoFile(vm.state, path); err != nil {
		return fmt.Errorf("failed to load lua file %s: %w", path, err)
	}
	return nil
}

func (vm *VM) LoadString(code string) error {
	if err := lua.DoString(vm.state, code); err != nil {
		return fmt.Errorf("failed to load lua string: %w", err)
	}
	return nil
}

func (vm *VM) Close() {
	vm.timers = make(map[int]*Timer)
}

// RegisterTimer calls the global function callback after interval ticks,
// and every interval ticks after that when repeat is set.
func (vm *VM) RegisterTimer(callback string, interval uint64, repeat bool, args ...any) int {
	if interval == 0 {
		interval = 1
	}
	vm.timerID++
	timer := &Timer{
		ID:       vm.timerID,
		Callback: callback,
		Interval: interval,
		Repeat:   repeat,
		NextRun:  vm.tick + interval,
		Args:     args,
	}
	vm.timers[timer.ID] = timer
	return timer.ID
}

func (vm *VM) CancelTimer(id int) bool {
	_, ok := vm.timers[id]
	delete(vm.timers, id)
	return ok
}

func (vm *VM) Timer(id int) (*Timer, bool) {
	t, ok := vm.timers[id]
	return t, ok
}

// Tick advances the timer clock by one and runs the timers that came due,
// in registration order.
func (vm *VM) Tick() error {
	vm.tick++
	var due []*Timer
	for _, timer := range vm.timers {
		if timer.NextRun <= vm.tick {
			due = append(due, timer)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })

	for _, timer := range due {
		if timer.Repeat {
			timer.NextRun = vm.tick + timer.Interval
		} else {
			delete(vm.timers, timer.ID)
		}
	}
	for _, timer := range due {
		if err := vm.CallFunction(timer.Callback, timer.Args...); err != nil {
			return fmt.Errorf("timer callback %s failed: %w", timer.Callback, err)
		}
	}
	return nil
}

func (vm *VM) GetGlobalString(name string) (string, error) {
	vm.state.Global(name)
	defer vm.state.Pop(1)
	if !vm.state.IsString(-1) {
		return "", fmt.Errorf("global %s is not a string", name)
	}
	value, _ := vm.state.ToString(-1)
	return value, nil
}

func (vm *VM) GetGlobalNumber(name string) (float64, error) {
	vm.state.Global(name)
	defer vm.state.Pop(1)
	if !vm.state.IsNumber(-1) {
		return 0, fmt.Errorf("global %s is not a number", name)
	}
	value, _ := vm.state.ToNumber(-1)
	return value, nil
}

func (vm *VM) push(arg any) error {
	switch v := arg.(type) {
	case nil:
		vm.state.PushNil()
	case string:
		vm.state.PushString(v)
	case int:
		vm.state.PushInteger(v)
	case uint32:
		vm.state.PushInteger(int(v))
	case float64:
		vm.state.PushNumber(v)
	case bool:
		vm.state.PushBoolean(v)
	case []int:
		vm.state.CreateTable(len(v), 0)
		for i, n := range v {
			vm.state.PushInteger(n)
			vm.state.RawSetInt(-2, i+1)
		}
	case lua.Function:
		vm.state.PushGoFunction(v)
	default:
		return fmt.Errorf("unsupported argument type: %T", arg)
	}
	return nil
}

func (vm *VM) CallFunction(name string, args ...any) error {
	_, err := vm.CallFunctionWithReturn(name, 0, args...)
	return err
}

// CallFunctionWithReturn calls a global function and converts its results
// to Go values: string, float64, bool or nil.
func (vm *VM) CallFunctionWithReturn(name string, numReturns int, args ...any) ([]any, error) {
	return vm.CallWith(name, numReturns, func(*lua.State) (int, error) {
		for _, arg := range args {
			if err := vm.push(arg); err != nil {
				return 0, err
			}
		}
		return len(args), nil
	})
}

// CallWith calls a global function whose arguments push pushes onto the
// stack, for arguments richer than CallFunction supports.
func (vm *VM) CallWith(name string, numReturns int, push func(*lua.State) (int, error)) ([]any, error) {
	top := vm.state.Top()
	defer vm.state.SetTop(top)

	vm.state.Global(name)
	if !vm.state.IsFunction(-1) {
		return nil, fmt.Errorf("global %s is not a function", name)
	}
	nargs, err := push(vm.state)
	if err != nil {
		return nil, err
	}
	if err := vm.state.ProtectedCall(nargs, numReturns, 0); err != nil {
		return nil, fmt.Errorf("[lua] function %s: %w", name, err)
	}

	results := make([]any, numReturns)
	for i := 0; i < numReturns; i++ {
		idx := top + 1 + i
		switch {
		case vm.state.IsNil(idx):
		case vm.state.IsBoolean(idx):
			results[i] = vm.state.ToBoolean(idx)
		case vm.state.IsNumber(idx):
			value, _ := vm.state.ToNumber(idx)
			results[i] = value
		case vm.state.IsString(idx):
			value, _ := vm.state.ToString(idx)
			results[i] = value
		}
	}
	return results, nil
}

func (vm *VM) HasFunction(name string) bool {
	vm.state.Global(name)
	isFunc := vm.state.IsFunction(-1)
	vm.state.Pop(1)
	return isFunc
}

func (vm *VM) RegisterFunction(name string, fn lua.Function) {
	vm.state.Register(name, fn)
}

func (vm *VM) State() *lua.State {
	return vm.state
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
