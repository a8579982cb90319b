package scheduler

import (
	"testing"

	"github.com/cwbudde/go-jsrt/internal/trace"
)

func TestMicrotasksDrainBeforeMacrotask(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr)

	var order []string
	s.ScheduleMicrotask("m1", func() { order = append(order, "m1") })
	s.RegisterTimer("t1", 0, false, func() { order = append(order, "t1") })
	s.ScheduleMicrotask("m2", func() { order = append(order, "m2") })

	s.Run()

	want := "m1 m2 t1"
	got := ""
	for i, o := range order {
		if i > 0 {
			got += " "
		}
		got += o
	}
	if got != want {
		t.Fatalf("execution order = %q, want %q", got, want)
	}
}

func TestTimerOrderingByDeadline(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr)

	var order []string
	s.RegisterTimer("late", 20, false, func() { order = append(order, "late") })
	s.RegisterTimer("early", 5, false, func() { order = append(order, "early") })

	s.Run()

	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("order = %v, want [early late]", order)
	}
}

func TestIntervalIsCancellable(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr, WithIterationCap(50))

	count := 0
	var id int
	id = s.RegisterTimer("tick", 10, true, func() {
		count++
		if count == 3 {
			s.CancelTimer(id)
		}
	})
	_ = id

	s.Run()

	if count != 3 {
		t.Fatalf("interval fired %d times, want exactly 3 (cancelled on the 3rd)", count)
	}
}

func TestClockJumpsToNextTimerWhenIdle(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr)

	s.RegisterTimer("far", 1000, false, func() {})
	s.Run()

	if s.NowMs() != 1000 {
		t.Fatalf("NowMs() = %d, want 1000 (clock should jump to the only pending deadline)", s.NowMs())
	}
}

func TestIterationCapStopsRunawayInterval(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr, WithIterationCap(10))

	count := 0
	s.RegisterTimer("forever", 1, true, func() { count++ })

	s.Run()

	if count == 0 {
		t.Fatal("interval should have fired at least once")
	}
	if count > 10 {
		t.Fatalf("interval fired %d times, iteration cap of 10 should have bounded it", count)
	}
}

func TestNextTickRunsAheadOfOrdinaryMicrotasks(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Node, tr)

	var order []string
	s.ScheduleMicrotask("reg", func() { order = append(order, "reg") })
	s.ScheduleNextTick("tick", func() { order = append(order, "tick") })

	s.DrainMicrotasks()

	if len(order) != 2 || order[0] != "tick" || order[1] != "reg" {
		t.Fatalf("order = %v, want [tick reg]", order)
	}
}

func TestHasPendingWork(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr)
	if s.HasPendingWork() {
		t.Fatal("fresh scheduler should have no pending work")
	}
	id := s.RegisterTimer("t", 5, false, func() {})
	if !s.HasPendingWork() {
		t.Fatal("registered timer should count as pending work")
	}
	s.CancelTimer(id)
	if s.HasPendingWork() {
		t.Fatal("cancelled timer should not count as pending work")
	}
}

// Hitting either safety cap must surface through the overflow handler
// rather than silently stopping (spec.md §7).
func TestDrainCapOverflowIsReported(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr, WithDrainCap(3))

	var reschedule func()
	reschedule = func() {
		s.ScheduleMicrotask("flood", reschedule)
	}
	reschedule()

	var message string
	s.SetOverflowHandler(func(msg string) { message = msg })

	s.DrainMicrotasks()

	if message == "" {
		t.Fatal("expected the drain cap overflow to be reported")
	}
}

func TestIterationCapOverflowIsReported(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Browser, tr, WithIterationCap(5))
	s.RegisterTimer("forever", 1, true, func() {})

	var message string
	s.SetOverflowHandler(func(msg string) { message = msg })

	s.Run()

	if message == "" {
		t.Fatal("expected the iteration cap overflow to be reported")
	}
}

func TestNodeModeDrainsCheckQueue(t *testing.T) {
	tr := &trace.Trace{}
	s := New(Node, tr)

	ran := false
	s.ScheduleCheck("immediate", func() { ran = true })
	s.Run()

	if !ran {
		t.Fatal("setImmediate-equivalent check callback never ran")
	}
}
