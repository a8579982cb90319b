// Package tracefold reconstructs a prefix-addressable visual state
// snapshot from an ExecutionStep stream (spec.md §6's "the trace must be
// enough to reconstruct the call stack, the queues, and the console at
// any prefix"). Grounded on the teacher's internal/errors.StackTrace
// idiom of a pure fold over an ordered slice into a small summary struct,
// applied here to spec.md's richer five-queue state instead of a single
// call stack.
package tracefold

import "github.com/cwbudde/go-jsrt/internal/trace"

// QueueEntry is one pending item shown in a queue view.
type QueueEntry struct {
	ID    int
	Label string
}

// State is the reconstructed snapshot after replaying a prefix of steps.
// Macrotasks covers both the timer/macrotask queue and Node's check queue
// (setImmediate): the trace's SCHEDULE_MACROTASK step type covers both,
// so there is no way to tell them apart from the stream alone without
// also keying on Label, which a host UI can still do if it wants the
// distinction.
type State struct {
	CallStack    []string
	Microtasks   []QueueEntry
	Macrotasks   []QueueEntry
	Console      []trace.ConsoleEntry
	CurrentLine  int
	CurrentPhase trace.Phase
	NowMs        int64
}

// Fold replays every step in steps from a zero state.
func Fold(steps []trace.ExecutionStep) State {
	return FoldPrefix(steps, len(steps))
}

// FoldPrefix replays the first n steps (n is clamped to len(steps)),
// letting a host UI scrub the trace without re-running the program.
func FoldPrefix(steps []trace.ExecutionStep, n int) State {
	if n > len(steps) {
		n = len(steps)
	}
	if n < 0 {
		n = 0
	}
	st := State{}

	for _, step := range steps[:n] {
		st.NowMs = step.TimestampMS
		switch step.Type {
		case trace.PushStack:
			st.CallStack = append(st.CallStack, step.Name)
			if step.Line > 0 {
				st.CurrentLine = step.Line
			}
		case trace.PopStack:
			if len(st.CallStack) > 0 {
				st.CallStack = st.CallStack[:len(st.CallStack)-1]
			}
		case trace.HighlightLine:
			st.CurrentLine = step.Line
		case trace.ScheduleMicrotask:
			st.Microtasks = append(st.Microtasks, QueueEntry{ID: step.ID, Label: step.Label})
		case trace.DequeueMicrotask:
			st.Microtasks = removeEntry(st.Microtasks, step.ID)
		case trace.ScheduleMacrotask, trace.RegisterWebAPI:
			st.Macrotasks = append(st.Macrotasks, QueueEntry{ID: step.ID, Label: step.Label})
		case trace.DequeueMacrotask:
			st.Macrotasks = removeEntry(st.Macrotasks, step.ID)
		case trace.EventLoopCheck:
			st.CurrentPhase = step.EventPhase
		case trace.ConsoleLog, trace.ConsoleWarn, trace.ConsoleError:
			level := "log"
			switch step.Type {
			case trace.ConsoleWarn:
				level = "warn"
			case trace.ConsoleError:
				level = "error"
			}
			st.Console = append(st.Console, trace.ConsoleEntry{Level: level, Text: joinConsoleArgs(step.ConsoleArgs), Raw: step.ConsoleRaw})
		}
	}
	return st
}

func removeEntry(entries []QueueEntry, id int) []QueueEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func joinConsoleArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
