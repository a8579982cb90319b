package scheduler

import (
	"fmt"

	"github.com/cwbudde/go-jsrt/internal/trace"
)

// Run drains the loop to completion in whichever mode s was constructed
// with, honoring the iteration cap as a runaway-script safety net
// (spec.md §4.8, §9). It assumes the top-level script has already run
// synchronously and populated the initial queues.
func (s *Scheduler) Run() {
	switch s.mode {
	case Node:
		s.runNode()
	default:
		s.runBrowser()
	}
}

// runBrowser implements the Browser loop algorithm of spec.md §4.8:
// drain microtasks to exhaustion, then pop exactly one macrotask (a due
// timer, preferred, or a plain queued macrotask), repeating until nothing
// remains or the iteration cap is hit.
func (s *Scheduler) runBrowser() {
	i := 0
	for ; i < s.iterationCap; i++ {
		s.DrainMicrotasks()
		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseMacro})

		if s.popOneDueTimer() {
			continue
		}
		if s.popOneMacrotask() {
			continue
		}
		return
	}
	s.reportOverflow(fmt.Sprintf("event loop exceeded iteration cap of %d", s.iterationCap))
}

// runNode implements the Node 6-phase loop algorithm of spec.md §4.8:
// Timers, Pending callbacks, Idle/Prepare, Poll, Check, Close callbacks,
// draining microtasks after every phase (and after every individual
// timer/immediate callback within a phase, matching real Node semantics).
func (s *Scheduler) runNode() {
	i := 0
	for ; i < s.iterationCap; i++ {
		progressed := false

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseTimers})
		if s.advanceTimers() {
			progressed = true
		}
		s.DrainMicrotasks()

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhasePending})
		s.DrainMicrotasks()

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseIdle})
		s.DrainMicrotasks()

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhasePoll})
		for s.popOneMacrotask() {
			progressed = true
			s.DrainMicrotasks()
		}
		if !progressed && len(s.checkQueue) == 0 && !s.HasPendingWork() {
			return
		}
		s.DrainMicrotasks()

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseCheck})
		for s.popOneCheck() {
			progressed = true
			s.DrainMicrotasks()
		}

		s.emit(trace.ExecutionStep{Type: trace.EventLoopCheck, EventPhase: trace.PhaseClose})
		s.DrainMicrotasks()

		if !progressed && !s.HasPendingWork() {
			return
		}
	}
	s.reportOverflow(fmt.Sprintf("event loop exceeded iteration cap of %d", s.iterationCap))
}
