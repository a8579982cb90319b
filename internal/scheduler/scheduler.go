// Package scheduler implements the dual-mode event loop of spec.md §4.8:
// a microtask queue drained to exhaustion between every macrotask, a
// macrotask/timer queue advanced by virtual time, and (Node mode only) a
// Node-shaped Timers/Pending/Poll/Check/Close phase cycle. There is no
// teacher analog for an event loop (DWScript runs synchronously), so the
// shape here is grounded on the teacher's worker-pool idiom in
// internal/interp/runtime (a bounded queue of pending work items drained
// by an explicit loop, rather than goroutines+channels) adapted to a
// single-threaded, virtual-time model.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/cwbudde/go-jsrt/internal/trace"
)

// Mode selects which event-loop algorithm Run executes (spec.md §4.8).
type Mode int

const (
	Browser Mode = iota
	Node
)

// Default safety nets (spec.md §4.8, §9): a scheduler that never settles
// (e.g. setInterval with no cancellation) must still terminate.
const (
	DefaultIterationCap = 500
	DefaultDrainCap     = 200
)

// Task is a unit of queued work: a microtask, macrotask, or (Node) check
// callback.
type Task struct {
	ID    int
	Name  string
	Label string
	Run   func()
}

// Timer is a pending setTimeout/setInterval registration.
type Timer struct {
	ID        int
	Name      string
	FireAt    int64
	Interval  int64
	Repeating bool
	Cancelled bool
	Run       func()
}

// Scheduler owns every queue spec.md §3/§4.8 names: microtasks, macrotasks,
// the Node-only check queue, and the virtual timer set, plus the virtual
// clock that advances them.
type Scheduler struct {
	mode Mode
	tr   *trace.Trace

	microtasks []Task
	macrotasks []Task
	checkQueue []Task // Node setImmediate
	timers     []*Timer

	nowMs  int64
	nextID int

	iterationCap int
	drainCap     int

	onTrace func(trace.ExecutionStep)

	onOverflow func(message string)
}

// SetOverflowHandler installs the callback invoked when the per-drain or
// outer iteration cap is reached (spec.md §7: a cap hit "surfaces as an
// error", not a silent stop).
func (s *Scheduler) SetOverflowHandler(fn func(message string)) {
	s.onOverflow = fn
}

func (s *Scheduler) reportOverflow(message string) {
	if s.onOverflow != nil {
		s.onOverflow(message)
	}
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithIterationCap overrides DefaultIterationCap.
func WithIterationCap(n int) Option {
	return func(s *Scheduler) { s.iterationCap = n }
}

// WithDrainCap overrides DefaultDrainCap.
func WithDrainCap(n int) Option {
	return func(s *Scheduler) { s.drainCap = n }
}

// New creates a Scheduler in the given mode, appending every step it
// records to tr.
func New(mode Mode, tr *trace.Trace, opts ...Option) *Scheduler {
	s := &Scheduler{
		mode:         mode,
		tr:           tr,
		iterationCap: DefaultIterationCap,
		drainCap:     DefaultDrainCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) emit(step trace.ExecutionStep) {
	step.TimestampMS = s.nowMs
	s.tr.Append(step)
}

func (s *Scheduler) newID() int {
	s.nextID++
	return s.nextID
}

// NowMs returns the current virtual clock reading.
func (s *Scheduler) NowMs() int64 { return s.nowMs }

// Mode returns the configured loop mode.
func (s *Scheduler) Mode() Mode { return s.mode }

// ScheduleMicrotask enqueues fn at the back of the microtask queue
// (spec.md §4.8: FIFO, with process.nextTick taking a dedicated
// front-of-queue slot handled separately by ScheduleNextTick).
func (s *Scheduler) ScheduleMicrotask(label string, fn func()) int {
	id := s.newID()
	s.microtasks = append(s.microtasks, Task{ID: id, Name: "microtask", Label: label, Run: fn})
	s.emit(trace.ExecutionStep{Type: trace.ScheduleMicrotask, ID: id, Label: label})
	return id
}

// ScheduleNextTick enqueues fn ahead of every other pending microtask
// (Node's process.nextTick, spec.md §4.6).
func (s *Scheduler) ScheduleNextTick(label string, fn func()) int {
	id := s.newID()
	t := Task{ID: id, Name: "nextTick", Label: label, Run: fn}
	s.microtasks = append([]Task{t}, s.microtasks...)
	s.emit(trace.ExecutionStep{Type: trace.ScheduleMicrotask, ID: id, Label: label})
	return id
}

// ScheduleCheck enqueues fn on the Node-only check queue (setImmediate,
// spec.md §4.6, §4.8).
func (s *Scheduler) ScheduleCheck(label string, fn func()) int {
	id := s.newID()
	s.checkQueue = append(s.checkQueue, Task{ID: id, Name: "immediate", Label: label, Run: fn})
	s.emit(trace.ExecutionStep{Type: trace.ScheduleMacrotask, ID: id, Label: label})
	return id
}

// ScheduleMacrotask enqueues a zero-delay macrotask that is not backed by
// a timer registration (e.g. a resolved web-API callback queued directly).
// Timers do not pass through this queue; requestAnimationFrame
// callbacks do.
func (s *Scheduler) ScheduleMacrotask(label string, fn func()) int {
	id := s.newID()
	s.macrotasks = append(s.macrotasks, Task{ID: id, Name: "macrotask", Label: label, Run: fn})
	s.emit(trace.ExecutionStep{Type: trace.ScheduleMacrotask, ID: id, Label: label})
	return id
}

// RegisterTimer registers a setTimeout (repeating=false) or setInterval
// (repeating=true), recording a REGISTER_WEB_API step (spec.md §4.8: timers
// are modeled as a web API the real runtime hands back to the loop once
// virtual time reaches their deadline).
func (s *Scheduler) RegisterTimer(label string, delayMs int64, repeating bool, fn func()) int {
	if delayMs < 0 {
		delayMs = 0
	}
	id := s.newID()
	t := &Timer{ID: id, Name: label, FireAt: s.nowMs + delayMs, Interval: delayMs, Repeating: repeating, Run: fn}
	s.timers = append(s.timers, t)
	s.emit(trace.ExecutionStep{Type: trace.RegisterWebAPI, ID: id, Label: label, DelayMS: delayMs})
	return id
}

// CancelTimer marks a timer id cancelled (clearTimeout/clearInterval).
// Unknown ids are a silent no-op, matching real-world clearTimeout.
func (s *Scheduler) CancelTimer(id int) {
	for _, t := range s.timers {
		if t.ID == id {
			t.Cancelled = true
			return
		}
	}
}

// CancelMacrotask removes a plain queued macrotask (e.g. a cancelled
// requestAnimationFrame callback) before it runs, if still pending.
// Unknown ids are a silent no-op, matching clearTimeout/clearInterval.
func (s *Scheduler) CancelMacrotask(id int) {
	out := s.macrotasks[:0:0]
	for _, t := range s.macrotasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	s.macrotasks = out
}

// HasPendingWork reports whether anything remains that could still run:
// any non-empty queue, or a live (uncancelled) timer.
func (s *Scheduler) HasPendingWork() bool {
	if len(s.microtasks) > 0 || len(s.macrotasks) > 0 || len(s.checkQueue) > 0 {
		return true
	}
	for _, t := range s.timers {
		if !t.Cancelled {
			return true
		}
	}
	return false
}

// DrainMicrotasks runs queued microtasks to exhaustion, including any new
// ones a handler schedules along the way, up to drainCap iterations
// (spec.md §4.8's "per-drain cap" safety net against runaway
// self-rescheduling microtasks).
func (s *Scheduler) DrainMicrotasks() {
	n := 0
	for len(s.microtasks) > 0 {
		n++
		if n > s.drainCap {
			s.reportOverflow(fmt.Sprintf("microtask drain exceeded cap of %d", s.drainCap))
			return
		}
		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseMicro})
		t := s.microtasks[0]
		s.microtasks = s.microtasks[1:]
		s.emit(trace.ExecutionStep{Type: trace.DequeueMicrotask, ID: t.ID, Label: t.Label})
		s.emit(trace.ExecutionStep{Type: trace.PushStack, Name: "<microtask>"})
		t.Run()
		s.emit(trace.ExecutionStep{Type: trace.PopStack, Name: "<microtask>"})
		s.emit(trace.ExecutionStep{Type: trace.ExecuteMicrotask, ID: t.ID, Label: t.Label})
	}
}

// advanceTimers fires every non-cancelled timer whose FireAt has been
// reached, earliest first, re-registering repeating ones for their next
// interval (spec.md §4.8). Returns true if anything fired.
func (s *Scheduler) advanceTimers() bool {
	due := s.dueTimers()
	if len(due) == 0 {
		if s.jumpToNextTimer() {
			due = s.dueTimers()
		}
	}
	if len(due) == 0 {
		return false
	}
	for _, t := range due {
		s.emit(trace.ExecutionStep{Type: trace.ResolveWebAPI, ID: t.ID, Label: t.Name})
		s.emit(trace.ExecutionStep{Type: trace.DequeueMacrotask, ID: t.ID, Label: t.Name})
		s.emit(trace.ExecutionStep{Type: trace.PushStack, Name: t.Name})
		t.Run()
		s.emit(trace.ExecutionStep{Type: trace.PopStack, Name: t.Name})
		s.emit(trace.ExecutionStep{Type: trace.ExecuteMacrotask, ID: t.ID, Label: t.Name})
		s.DrainMicrotasks()
		if t.Repeating && !t.Cancelled {
			t.FireAt = s.nowMs + t.Interval
		}
	}
	s.timers = s.removeFired(due)
	return true
}

// dueTimers returns live timers whose deadline is <= nowMs, earliest
// first, breaking ties by registration order (stable by construction
// since timers is append-ordered).
func (s *Scheduler) dueTimers() []*Timer {
	var due []*Timer
	for _, t := range s.timers {
		if !t.Cancelled && t.FireAt <= s.nowMs {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].FireAt < due[j].FireAt })
	return due
}

// jumpToNextTimer advances the virtual clock to the soonest live timer's
// deadline when nothing is otherwise due (spec.md §4.8: the loop must not
// stall just because real wall-clock time hasn't "passed").
func (s *Scheduler) jumpToNextTimer() bool {
	var next int64 = -1
	for _, t := range s.timers {
		if t.Cancelled {
			continue
		}
		if next == -1 || t.FireAt < next {
			next = t.FireAt
		}
	}
	if next == -1 {
		return false
	}
	s.nowMs = next
	return true
}

func (s *Scheduler) removeFired(fired []*Timer) []*Timer {
	firedSet := make(map[int]bool, len(fired))
	for _, t := range fired {
		if !t.Repeating || t.Cancelled {
			firedSet[t.ID] = true
		}
	}
	out := s.timers[:0:0]
	for _, t := range s.timers {
		if !firedSet[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// popOneDueTimer fires at most one due timer (the earliest deadline,
// ties broken by registration order) and returns true if one fired. Used
// by the Browser loop, which interleaves exactly one macrotask per
// iteration with microtask draining (spec.md §4.8).
func (s *Scheduler) popOneDueTimer() bool {
	due := s.dueTimers()
	if len(due) == 0 {
		if !s.jumpToNextTimer() {
			return false
		}
		due = s.dueTimers()
		if len(due) == 0 {
			return false
		}
	}
	t := due[0]
	for _, cand := range due[1:] {
		if cand.FireAt < t.FireAt {
			t = cand
		}
	}
	s.fireTimer(t)
	return true
}

func (s *Scheduler) fireTimer(t *Timer) {
	s.emit(trace.ExecutionStep{Type: trace.ResolveWebAPI, ID: t.ID, Label: t.Name})
	s.emit(trace.ExecutionStep{Type: trace.DequeueMacrotask, ID: t.ID, Label: t.Name})
	s.emit(trace.ExecutionStep{Type: trace.PushStack, Name: t.Name})
	t.Run()
	s.emit(trace.ExecutionStep{Type: trace.PopStack, Name: t.Name})
	s.emit(trace.ExecutionStep{Type: trace.ExecuteMacrotask, ID: t.ID, Label: t.Name})
	if t.Repeating && !t.Cancelled {
		t.FireAt = s.nowMs + t.Interval
		return
	}
	s.removeTimer(t.ID)
}

func (s *Scheduler) removeTimer(id int) {
	out := s.timers[:0:0]
	for _, t := range s.timers {
		if t.ID != id {
			out = append(out, t)
		}
	}
	s.timers = out
}

// popOneMacrotask runs and removes the oldest plain queued macrotask, if
// any.
func (s *Scheduler) popOneMacrotask() bool {
	if len(s.macrotasks) == 0 {
		return false
	}
	t := s.macrotasks[0]
	s.macrotasks = s.macrotasks[1:]
	s.emit(trace.ExecutionStep{Type: trace.DequeueMacrotask, ID: t.ID, Label: t.Label})
	s.emit(trace.ExecutionStep{Type: trace.PushStack, Name: t.Name})
	t.Run()
	s.emit(trace.ExecutionStep{Type: trace.PopStack, Name: t.Name})
	s.emit(trace.ExecutionStep{Type: trace.ExecuteMacrotask, ID: t.ID, Label: t.Label})
	return true
}

// popOneCheck runs and removes the oldest check-queue callback (Node
// setImmediate), if any.
func (s *Scheduler) popOneCheck() bool {
	if len(s.checkQueue) == 0 {
		return false
	}
	t := s.checkQueue[0]
	s.checkQueue = s.checkQueue[1:]
	s.emit(trace.ExecutionStep{Type: trace.DequeueMacrotask, ID: t.ID, Label: t.Label})
	s.emit(trace.ExecutionStep{Type: trace.PushStack, Name: t.Name})
	t.Run()
	s.emit(trace.ExecutionStep{Type: trace.PopStack, Name: t.Name})
	s.emit(trace.ExecutionStep{Type: trace.ExecuteMacrotask, ID: t.ID, Label: t.Label})
	return true
}
