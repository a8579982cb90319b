package promise

import (
	"testing"

	"github.com/cwbudde/go-jsrt/internal/value"
)

// fakeHost runs "microtasks" synchronously in FIFO order when Flush is
// called, and invokes JS-level callbacks as plain Go closures — enough to
// exercise the state machine without an interpreter.
type fakeHost struct {
	queue []func()
}

func (h *fakeHost) ScheduleMicrotask(label string, fn func()) {
	h.queue = append(h.queue, fn)
}

func (h *fakeHost) Invoke(fn value.Value, args []value.Value) (value.Value, value.Value, bool) {
	gf, ok := fn.(*goFunc)
	if !ok {
		return value.TheUndefined, nil, true
	}
	return gf.call(args)
}

func (h *fakeHost) Flush() {
	for len(h.queue) > 0 {
		next := h.queue[0]
		h.queue = h.queue[1:]
		next()
	}
}

// goFunc lets tests supply a callback without going through interp.
type goFunc struct {
	call func(args []value.Value) (value.Value, value.Value, bool)
}

func (*goFunc) Type() string   { return "function" }
func (*goFunc) String() string { return "[Function (test)]" }

func fulfill(fn func(v value.Value) value.Value) *Callback {
	return &Callback{Fn: &goFunc{call: func(args []value.Value) (value.Value, value.Value, bool) {
		var arg value.Value = value.TheUndefined
		if len(args) > 0 {
			arg = args[0]
		}
		return fn(arg), nil, true
	}}}
}

func reject(fn func(v value.Value) value.Value) *Callback {
	return &Callback{Fn: &goFunc{call: func(args []value.Value) (value.Value, value.Value, bool) {
		var arg value.Value = value.TheUndefined
		if len(args) > 0 {
			arg = args[0]
		}
		return nil, fn(arg), false
	}}}
}

func TestResolveFulfillsAndFlushesHandlers(t *testing.T) {
	h := &fakeHost{}
	p := New(h)

	var got value.Value
	p.Then(fulfill(func(v value.Value) value.Value { got = v; return v }), nil)

	p.Resolve(value.Number{Value: 42})
	if got != nil {
		t.Fatal("handler must not run synchronously on resolve")
	}
	h.Flush()
	if got == nil || got.(value.Number).Value != 42 {
		t.Fatalf("handler got %v, want 42", got)
	}
	if p.State() != Fulfilled {
		t.Fatalf("State() = %v, want Fulfilled", p.State())
	}
}

func TestRejectPropagatesThroughMissingHandler(t *testing.T) {
	h := &fakeHost{}
	p := New(h)

	child := p.Then(nil, nil) // no handlers at all
	var caught value.Value
	child.Then(nil, fulfill(func(v value.Value) value.Value { caught = v; return v }))

	p.Reject(value.String{Value: "boom"})
	h.Flush()
	h.Flush() // child's own flush happens on a second microtask turn

	if caught == nil || caught.String() != "boom" {
		t.Fatalf("caught = %v, want boom", caught)
	}
}

func TestResolveWithThenableAdoptsInnerState(t *testing.T) {
	h := &fakeHost{}
	inner := New(h)
	outer := New(h)

	outer.Resolve(inner.ToValue())
	inner.Resolve(value.Number{Value: 7})
	h.Flush()
	h.Flush()

	if outer.State() != Fulfilled {
		t.Fatalf("outer.State() = %v, want Fulfilled", outer.State())
	}
	if outer.Value().(value.Number).Value != 7 {
		t.Fatalf("outer.Value() = %v, want 7", outer.Value())
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	h := &fakeHost{}
	p := New(h)
	p.Resolve(value.Number{Value: 1})
	p.Resolve(value.Number{Value: 2})
	p.Reject(value.String{Value: "ignored"})

	if p.Value().(value.Number).Value != 1 {
		t.Fatalf("Value() = %v, want 1 (first settlement wins)", p.Value())
	}
}

func TestAllFulfillsWithOrderedValues(t *testing.T) {
	h := &fakeHost{}
	a := New(h)
	b := New(h)

	all := All(h, []value.Value{a.ToValue(), b.ToValue()})

	b.Resolve(value.Number{Value: 2})
	a.Resolve(value.Number{Value: 1})
	h.Flush()
	h.Flush()

	if all.State() != Fulfilled {
		t.Fatalf("All State() = %v, want Fulfilled", all.State())
	}
	arr := all.Value().(*value.Array)
	if len(arr.Elements) != 2 || arr.Elements[0].(value.Number).Value != 1 || arr.Elements[1].(value.Number).Value != 2 {
		t.Fatalf("All value = %v, want [1, 2] in input order", arr.Elements)
	}
}

func TestAllRejectsOnFirstRejection(t *testing.T) {
	h := &fakeHost{}
	a := New(h)
	b := New(h)
	all := All(h, []value.Value{a.ToValue(), b.ToValue()})

	a.Reject(value.String{Value: "fail"})
	h.Flush()

	if all.State() != Rejected {
		t.Fatalf("All State() = %v, want Rejected", all.State())
	}
}

func TestAllWithEmptyInputsResolvesImmediately(t *testing.T) {
	h := &fakeHost{}
	all := All(h, nil)
	if all.State() != Fulfilled {
		t.Fatalf("All(nil) State() = %v, want Fulfilled", all.State())
	}
	if arr := all.Value().(*value.Array); len(arr.Elements) != 0 {
		t.Fatalf("All(nil) value = %v, want []", arr.Elements)
	}
}

func TestRaceAdoptsFirstSettled(t *testing.T) {
	h := &fakeHost{}
	a := New(h)
	b := New(h)
	race := Race(h, []value.Value{a.ToValue(), b.ToValue()})

	b.Resolve(value.Number{Value: 2})
	a.Resolve(value.Number{Value: 1})
	h.Flush()

	if race.Value().(value.Number).Value != 2 {
		t.Fatalf("Race value = %v, want 2 (first to settle)", race.Value())
	}
}

func TestFinallyForwardsOutcomeOnFulfill(t *testing.T) {
	h := &fakeHost{}
	p := New(h)
	ranFinally := false
	child := p.Finally(&goFunc{call: func(args []value.Value) (value.Value, value.Value, bool) {
		ranFinally = true
		return value.TheUndefined, nil, true
	}})

	p.Resolve(value.Number{Value: 5})
	h.Flush()

	if !ranFinally {
		t.Fatal("finally callback did not run")
	}
	if child.Value().(value.Number).Value != 5 {
		t.Fatalf("child.Value() = %v, want original 5", child.Value())
	}
}

func TestCoercePromiseWrapsNonPromise(t *testing.T) {
	h := &fakeHost{}
	p := CoercePromise(h, value.Number{Value: 9})
	if p.State() != Fulfilled {
		t.Fatalf("CoercePromise(non-promise).State() = %v, want Fulfilled", p.State())
	}
	if CoercePromise(h, p.ToValue()) != p {
		t.Fatal("CoercePromise on an existing promise must return it unchanged")
	}
}
