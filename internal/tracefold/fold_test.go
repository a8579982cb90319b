package tracefold

import (
	"testing"

	"github.com/cwbudde/go-jsrt/internal/trace"
)

func TestFoldTracksCallStackAndConsole(t *testing.T) {
	steps := []trace.ExecutionStep{
		{Type: trace.PushStack, Name: "main", Line: 1},
		{Type: trace.ConsoleLog, ConsoleArgs: []string{"hello"}},
		{Type: trace.PushStack, Name: "helper", Line: 2},
		{Type: trace.PopStack},
		{Type: trace.PopStack},
	}
	st := Fold(steps)

	if len(st.CallStack) != 0 {
		t.Fatalf("CallStack = %v, want empty after matching pushes/pops", st.CallStack)
	}
	if len(st.Console) != 1 || st.Console[0].Text != "hello" {
		t.Fatalf("Console = %v, want one entry \"hello\"", st.Console)
	}
}

func TestFoldTracksQueues(t *testing.T) {
	steps := []trace.ExecutionStep{
		{Type: trace.ScheduleMicrotask, ID: 1, Label: "then"},
		{Type: trace.RegisterWebAPI, ID: 2, Label: "setTimeout"},
		{Type: trace.DequeueMicrotask, ID: 1, Label: "then"},
	}
	st := Fold(steps)

	if len(st.Microtasks) != 0 {
		t.Fatalf("Microtasks = %v, want empty after dequeue", st.Microtasks)
	}
	if len(st.Macrotasks) != 1 || st.Macrotasks[0].ID != 2 {
		t.Fatalf("Macrotasks = %v, want one entry with ID 2", st.Macrotasks)
	}
}

func TestFoldPrefixClampsAndReplaysPartially(t *testing.T) {
	steps := []trace.ExecutionStep{
		{Type: trace.PushStack, Name: "a"},
		{Type: trace.PushStack, Name: "b"},
		{Type: trace.PopStack},
	}

	st := FoldPrefix(steps, 2)
	if len(st.CallStack) != 2 {
		t.Fatalf("CallStack after 2 steps = %v, want [a b]", st.CallStack)
	}

	full := FoldPrefix(steps, 100) // over-long n is clamped
	if len(full.CallStack) != 1 || full.CallStack[0] != "a" {
		t.Fatalf("CallStack after all steps = %v, want [a]", full.CallStack)
	}

	empty := FoldPrefix(steps, -1) // negative n clamps to 0
	if len(empty.CallStack) != 0 {
		t.Fatalf("CallStack for n=-1 = %v, want empty", empty.CallStack)
	}
}

func TestFoldTracksCurrentPhase(t *testing.T) {
	steps := []trace.ExecutionStep{
		{Type: trace.EventLoopCheck, EventPhase: trace.PhaseMicro},
		{Type: trace.EventLoopCheck, EventPhase: trace.PhaseMacro},
	}
	st := Fold(steps)
	if st.CurrentPhase != trace.PhaseMacro {
		t.Fatalf("CurrentPhase = %v, want %v", st.CurrentPhase, trace.PhaseMacro)
	}
}
