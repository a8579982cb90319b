// Package trace defines the ordered, replayable ExecutionStep stream that
// is the interpreter/scheduler's entire externally visible output
// (spec.md §6). Shaped after the teacher's errors.StackTrace: a typed
// slice with append-only construction helpers, applied here to a
// different element type since DWScript has no analog of a replay trace.
package trace

// StepType is the closed set of step kinds named in spec.md §6.
type StepType string

const (
	PushStack        StepType = "PUSH_STACK"
	PopStack         StepType = "POP_STACK"
	HighlightLine    StepType = "HIGHLIGHT_LINE"
	ScheduleMicrotask StepType = "SCHEDULE_MICROTASK"
	DequeueMicrotask  StepType = "DEQUEUE_MICROTASK"
	ExecuteMicrotask  StepType = "EXECUTE_MICROTASK"
	ScheduleMacrotask StepType = "SCHEDULE_MACROTASK"
	DequeueMacrotask  StepType = "DEQUEUE_MACROTASK"
	ExecuteMacrotask  StepType = "EXECUTE_MACROTASK"
	RegisterWebAPI    StepType = "REGISTER_WEB_API"
	ResolveWebAPI     StepType = "RESOLVE_WEB_API"
	EventLoopCheck    StepType = "EVENT_LOOP_CHECK"
	ConsoleLog        StepType = "CONSOLE_LOG"
	ConsoleWarn       StepType = "CONSOLE_WARN"
	ConsoleError      StepType = "CONSOLE_ERROR"
)

// Phase is the EVENT_LOOP_CHECK payload's phase enum (spec.md §6).
type Phase string

const (
	PhaseStack    Phase = "stack"
	PhaseMicro    Phase = "microtask"
	PhaseMacro    Phase = "macrotask"
	PhaseWebAPI   Phase = "webapi"
	PhaseTimers   Phase = "timers"
	PhasePending  Phase = "pending"
	PhasePoll     Phase = "poll"
	PhaseCheck    Phase = "check"
	PhaseClose    Phase = "close"
	PhaseIdle     Phase = "idle"
)

// ExecutionStep is one entry in the trace. Payload fields are a superset
// union of the "representative" payload schemas spec.md §6 lists; unused
// fields are left at their zero value for a given Type.
type ExecutionStep struct {
	Type StepType

	// identity / labeling, used by PUSH_STACK, SCHEDULE_*, DEQUEUE_*,
	// EXECUTE_*, REGISTER_WEB_API, RESOLVE_WEB_API.
	ID    int
	Name  string
	Label string

	// source position, used by PUSH_STACK and HIGHLIGHT_LINE.
	Line   int
	Column int

	// timer metadata, used by REGISTER_WEB_API.
	DelayMS int64

	// EVENT_LOOP_CHECK payload.
	EventPhase Phase

	// console payload.
	ConsoleArgs []string // stringified arguments
	ConsoleRaw  []any    // raw values, for a host UI that wants to re-render them

	TimestampMS int64
}

// Trace is the append-only stream produced by a single run.
type Trace struct {
	Steps []ExecutionStep
}

func (t *Trace) Append(step ExecutionStep) {
	t.Steps = append(t.Steps, step)
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int { return len(t.Steps) }

// ConsoleEntry is one entry of the parallel console stream returned
// alongside the trace (spec.md §6).
type ConsoleEntry struct {
	Level string // "log", "warn", "error"
	Text  string
	Raw   []any
}
