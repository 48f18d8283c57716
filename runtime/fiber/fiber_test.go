package fiber

import (
	"testing"

	"github.com/chances/wrenc/runtime/value"
)

func TestCallRunsFunctionToCompletion(t *testing.T) {
	s := NewScheduler()
	f := NewFunc(func(arg value.Value) value.Value {
		return value.EncodeNum(arg.Num() + 1)
	})

	result, err := s.Call(f, value.EncodeNum(41))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Num() != 42 {
		t.Fatalf("expected 42, got %v", result.Num())
	}
	if !f.IsDone() {
		t.Fatal("expected the fibre to be done after returning")
	}
	if f.State() != Finished {
		t.Fatalf("expected Finished, got %s", f.State())
	}
}

func TestYieldSuspendsAndCallResumes(t *testing.T) {
	s := NewScheduler()
	f := NewFunc(func(arg value.Value) value.Value {
		first := s.Yield(value.EncodeNum(1))
		second := s.Yield(value.EncodeNum(first.Num() + 1))
		return value.EncodeNum(second.Num() + 1)
	})

	v1, err := s.Call(f, value.Null)
	if err != nil {
		t.Fatalf("first Call: %v", err)
	}
	if v1.Num() != 1 {
		t.Fatalf("expected first yield 1, got %v", v1.Num())
	}
	if f.State() != Suspended {
		t.Fatalf("expected Suspended after yield, got %s", f.State())
	}

	v2, err := s.Call(f, value.EncodeNum(10))
	if err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if v2.Num() != 11 {
		t.Fatalf("expected second yield 11, got %v", v2.Num())
	}

	v3, err := s.Call(f, value.EncodeNum(20))
	if err != nil {
		t.Fatalf("third Call: %v", err)
	}
	if v3.Num() != 21 {
		t.Fatalf("expected final return 21, got %v", v3.Num())
	}
	if !f.IsDone() {
		t.Fatal("expected the fibre to be done after its third resumption returns")
	}
}

func TestPingPongBetweenTwoFibres(t *testing.T) {
	s := NewScheduler()

	var pong *Fiber
	ping := NewFunc(func(arg value.Value) value.Value {
		for i := 1; i <= 3; i++ {
			got, err := s.Call(pong, value.EncodeNum(float64(i)))
			if err != nil {
				t.Errorf("Call(pong): %v", err)
			}
			if got.Num() != float64(i)+100 {
				t.Errorf("round %d: expected %v, got %v", i, float64(i)+100, got.Num())
			}
		}
		return value.EncodeNum(999)
	})
	pong = NewFunc(func(arg value.Value) value.Value {
		for {
			v := s.Yield(value.EncodeNum(arg.Num() + 100))
			arg = v
		}
	})

	result, err := s.Call(ping, value.Null)
	if err != nil {
		t.Fatalf("Call(ping): %v", err)
	}
	if result.Num() != 999 {
		t.Fatalf("expected ping to finish with 999, got %v", result.Num())
	}
	if !ping.IsDone() {
		t.Fatal("expected ping to be done")
	}
	// pong never returns on its own; it is left Suspended forever once its
	// caller stops resuming it, exactly like a Wren generator fibre that's
	// simply never called again.
	if pong.State() != Suspended {
		t.Fatalf("expected pong to remain Suspended, got %s", pong.State())
	}
}

func TestCallRejectsAlreadyRunningFibre(t *testing.T) {
	s := NewScheduler()
	blocked := make(chan struct{})
	f := NewFunc(func(arg value.Value) value.Value {
		<-blocked
		return value.Null
	})

	// Start f on its own goroutine via Yield-free recursion is awkward to
	// set up without a second scheduler thread, so instead directly drive
	// the state machine: calling into a fibre that's already Running
	// (rather than NotStarted/Suspended) must be rejected.
	f.state = Running
	if _, err := s.Call(f, value.Null); err == nil {
		t.Fatal("expected an error calling an already-Running fibre")
	}
	close(blocked)
}

func TestRootsCoversOnlyTheActiveCallChain(t *testing.T) {
	s := NewScheduler()
	f := NewFunc(func(arg value.Value) value.Value {
		return s.Yield(value.EncodeNum(7))
	})

	if _, err := s.Call(f, value.EncodeNum(3)); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// f yielded, so (matching the original's fibreCallStack.pop_back in
	// Yield) it is no longer on the scheduler's call chain: only main
	// remains. f's own pending value is reachable separately through
	// PendingRoot, not through Roots.
	roots := s.Roots()
	if len(roots) != 1 {
		t.Fatalf("expected exactly 1 root (main), got %d: %+v", len(roots), roots)
	}

	if got := f.PendingRoot(); !got.IsNum() || got.Num() != 7 {
		t.Fatalf("expected f's pending root to be 7, got %v", got)
	}
}
