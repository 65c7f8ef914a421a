package callbacks

import (
	"testing"

	"github.com/siohaza/haxgo/internal/protocol"
)

type pinger struct {
	DefaultCallbacks
	add int
	mul int
}

func (p *pinger) ModifyPlayerPing(id, ping int) int {
	if p.mul != 0 {
		return ping * p.mul
	}
	return ping + p.add
}

func TestModifyPlayerPingOrder(t *testing.T) {
	chain := NewCallbackChain()
	chain.Register(&pinger{add: 10})
	chain.Register(&pinger{mul: 2})
	if got := chain.ModifyPlayerPing(1, 5); got != 30 {
		t.Fatalf("expected (5+10)*2 = 30, got %d", got)
	}
}

type gate struct {
	DefaultCallbacks
	decide func(op protocol.Operation) Decision
	calls  int
}

func (g *gate) OnOperationReceived(op protocol.Operation, byID int, frame uint32) Decision {
	g.calls++
	return g.decide(op)
}

func TestOperationReceivedShortCircuits(t *testing.T) {
	first := &gate{decide: func(op protocol.Operation) Decision {
		if op.Type() == protocol.OpSendChat {
			return Reject()
		}
		return Accept()
	}}
	second := &gate{decide: func(protocol.Operation) Decision { return Accept() }}

	chain := NewCallbackChain()
	chain.Register(first)
	chain.Register(second)

	if d := chain.OnOperationReceived(&protocol.SendChat{Text: "x"}, 1, 0); d.Verdict != VerdictReject {
		t.Fatalf("expected reject, got %+v", d)
	}
	if second.calls != 0 {
		t.Fatalf("second callback should not run after a reject")
	}
	if d := chain.OnOperationReceived(&protocol.StartGame{}, 1, 0); d.Verdict != VerdictAccept {
		t.Fatalf("expected accept, got %+v", d)
	}
	if second.calls != 1 {
		t.Fatalf("second callback should run after an accept")
	}
}

func TestPanickingHookDisconnects(t *testing.T) {
	chain := NewCallbackChain()
	chain.Register(&gate{decide: func(protocol.Operation) Decision { panic("boom") }})
	d := chain.OnOperationReceived(&protocol.StopGame{}, 2, 10)
	if d.Verdict != VerdictDisconnect || d.Reason != "boom" {
		t.Fatalf("expected a disconnect with the panic value, got %+v", d)
	}
}

type tagger struct {
	DefaultCallbacks
	tag   string
	after []any
}

func (tg *tagger) OnBeforeOperation(op protocol.Operation, byID int, aux any) any {
	s, _ := aux.(string)
	return s + tg.tag
}

func (tg *tagger) OnAfterOperation(op protocol.Operation, byID int, aux any) {
	tg.after = append(tg.after, aux)
}

func TestBeforeAfterThreadsAux(t *testing.T) {
	a, b := &tagger{tag: "a"}, &tagger{tag: "b"}
	chain := NewCallbackChain()
	chain.Register(a)
	chain.Register(b)

	op := &protocol.AutoTeams{}
	aux := chain.OnBeforeOperation(op, 0, nil)
	if aux != "ab" {
		t.Fatalf("expected aux ab, got %v", aux)
	}
	chain.OnAfterOperation(op, 0, aux)
	if len(a.after) != 1 || a.after[0] != "ab" || len(b.after) != 1 {
		t.Fatalf("after hooks did not see the aux data")
	}

	if !chain.Unregister(a) || chain.Unregister(a) || chain.Len() != 1 {
		t.Fatalf("unregister bookkeeping wrong")
	}
}
