// Package promise implements the simulated Promise state machine of
// spec.md §4.5. The style — a struct holding an explicit state enum,
// mutation methods that never run user code synchronously, and a
// list of pending handlers flushed on settlement — is grounded on the
// teacher's runtime.ControlFlow/ExceptionValue idiom of modeling a small
// state machine as a plain struct with getter/setter methods (no channels,
// no interfaces{} walls); spec.md §4.5 itself has no teacher analog since
// DWScript has no promises.
package promise

import "github.com/cwbudde/go-jsrt/internal/value"

// State mirrors value.PromiseState to avoid every caller needing the
// value package just to compare states.
type State = value.PromiseState

const (
	Pending   = value.Pending
	Fulfilled = value.Fulfilled
	Rejected  = value.Rejected
)

// Callback is a settlement handler supplied to then/catch/finally. Fn may
// be nil (absent handler, spec.md §4.5: "propagate the outcome directly").
type Callback struct {
	Fn value.Value // a UserFunction, NativeFunction, or nil
}

type handler struct {
	onFulfilled *Callback
	onRejected  *Callback
	child       *Promise
}

// Host is the set of operations a Promise needs from its owning engine:
// scheduling a microtask and invoking a JS-level callback. Implemented by
// internal/interp.Interpreter; injected rather than imported to avoid a
// promise<->interp import cycle.
type Host interface {
	ScheduleMicrotask(label string, fn func())
	// Invoke calls a JS function value with args, returning its result or
	// a thrown value (ok == false means thrown, not an error calling it).
	Invoke(fn value.Value, args []value.Value) (result value.Value, thrown value.Value, ok bool)
}

var nextID int

// NextID returns a fresh promise id, used for trace labeling.
func NextID() int {
	nextID++
	return nextID
}

// Promise is the state-machine object behind a value.Promise handle.
type Promise struct {
	ID       int
	state    State
	value    value.Value
	handlers []handler
	host     Host
}

// New creates a fresh Pending promise bound to host.
func New(host Host) *Promise {
	return &Promise{ID: NextID(), state: Pending, host: host}
}

// Resolved creates an already-Fulfilled promise (Promise.resolve(v) for a
// non-promise v, spec.md §4.5).
func Resolved(host Host, v value.Value) *Promise {
	p := New(host)
	p.Resolve(v)
	return p
}

// RejectedWith creates an already-Rejected promise (Promise.reject(r)).
func RejectedWith(host Host, r value.Value) *Promise {
	p := New(host)
	p.Reject(r)
	return p
}

func (p *Promise) State() State { return p.state }
func (p *Promise) Value() value.Value { return p.value }

// Resolve transitions Pending -> Fulfilled(v), or adopts v's eventual
// state if v is itself a promise (spec.md §4.5). No-op if already settled.
func (p *Promise) Resolve(v value.Value) {
	if p.state != Pending {
		return
	}
	if inner, ok := asPromise(v); ok {
		if inner == p {
			p.settle(Rejected, typeErrorValue("Chaining cycle detected for promise"))
			return
		}
		inner.Then(
			&Callback{Fn: nativeAdopt(func(val value.Value) { p.Resolve(val) })},
			&Callback{Fn: nativeAdopt(func(val value.Value) { p.Reject(val) })},
		)
		return
	}
	p.settle(Fulfilled, v)
}

// Reject transitions Pending -> Rejected(r). No-op if already settled.
func (p *Promise) Reject(r value.Value) {
	if p.state != Pending {
		return
	}
	p.settle(Rejected, r)
}

func (p *Promise) settle(state State, v value.Value) {
	p.state = state
	p.value = v
	p.flush()
}

// Then appends a handler pair and returns the new child promise,
// scheduling a flush immediately if already settled (spec.md §4.5).
func (p *Promise) Then(onFulfilled, onRejected *Callback) *Promise {
	child := New(p.host)
	p.handlers = append(p.handlers, handler{onFulfilled: onFulfilled, onRejected: onRejected, child: child})
	if p.state != Pending {
		p.flush()
	}
	return child
}

// Catch is then(null, onRejected).
func (p *Promise) Catch(onRejected *Callback) *Promise {
	return p.Then(nil, onRejected)
}

// Finally invokes f on either outcome and forwards the original outcome,
// unless f throws synchronously, which supersedes (spec.md §4.5). A
// promise returned by f is ignored: its rejection does not reach the
// returned promise.
func (p *Promise) Finally(f value.Value) *Promise {
	onSettled := func(v value.Value, rejected bool) (value.Value, value.Value, bool) {
		if f != nil {
			_, thrown, ok := p.host.Invoke(f, nil)
			if !ok {
				return nil, thrown, false
			}
		}
		if rejected {
			return nil, v, false
		}
		return v, nil, true
	}
	return p.Then(
		&Callback{Fn: nativeSettled(func(v value.Value) (value.Value, value.Value, bool) {
			return onSettled(v, false)
		})},
		&Callback{Fn: nativeSettled(func(v value.Value) (value.Value, value.Value, bool) {
			return onSettled(v, true)
		})},
	)
}

// flush schedules one microtask per pending handler (spec.md §4.5:
// "flushing never invokes the user callback directly"). Handlers already
// flushed are removed so settling twice never double-fires (settle only
// happens once anyway, but Then after settlement also calls flush).
func (p *Promise) flush() {
	if p.state == Pending || len(p.handlers) == 0 {
		return
	}
	pending := p.handlers
	p.handlers = nil
	for _, h := range pending {
		h := h
		label := "await"
		p.host.ScheduleMicrotask(label, func() {
			p.runHandler(h)
		})
	}
}

func (p *Promise) runHandler(h handler) {
	settledRejected := p.state == Rejected
	var cb *Callback
	if settledRejected {
		cb = h.onRejected
	} else {
		cb = h.onFulfilled
	}

	if cb == nil || cb.Fn == nil {
		// No handler: propagate the outcome directly to the child.
		if settledRejected {
			h.child.Reject(p.value)
		} else {
			h.child.Resolve(p.value)
		}
		return
	}

	// nativeSettled-wrapped callbacks (used by Finally) carry their own
	// three-way result/thrown/ok protocol instead of a plain JS call.
	if s, ok := cb.Fn.(*settledFn); ok {
		result, thrown, ok2 := s.fn(p.value)
		if !ok2 {
			h.child.Reject(thrown)
			return
		}
		h.child.Resolve(result)
		return
	}
	if a, ok := cb.Fn.(*adoptFn); ok {
		a.fn(p.value)
		return
	}

	result, thrown, ok := p.host.Invoke(cb.Fn, []value.Value{p.value})
	if !ok {
		h.child.Reject(thrown)
		return
	}
	h.child.Resolve(result)
}

func asPromise(v value.Value) (*Promise, bool) {
	vp, ok := v.(*value.Promise)
	if !ok {
		return nil, false
	}
	pp, ok := vp.Backing.(*Promise)
	return pp, ok
}

// ToValue wraps p as a value.Promise handle.
func (p *Promise) ToValue() *value.Promise {
	return &value.Promise{Backing: p, State: func() value.PromiseState { return p.state }}
}

// --- internal adapter callbacks, never exposed to JS code directly ---

type adoptFn struct{ fn func(value.Value) }

func (*adoptFn) Type() string   { return "function" }
func (*adoptFn) String() string { return "[Function (adopt)]" }

func nativeAdopt(fn func(value.Value)) value.Value { return &adoptFn{fn: fn} }

type settledFn struct{ fn func(value.Value) (value.Value, value.Value, bool) }

func (*settledFn) Type() string   { return "function" }
func (*settledFn) String() string { return "[Function (settled)]" }

func nativeSettled(fn func(value.Value) (value.Value, value.Value, bool)) value.Value {
	return &settledFn{fn: fn}
}

func typeErrorValue(msg string) value.Value {
	o := value.NewObject()
	o.Set("name", value.String{Value: "TypeError"})
	o.Set("message", value.String{Value: msg})
	return o
}

// All resolves when every input promise fulfills, with an ordered array
// of their values, or rejects on the first rejection (spec.md §4.5).
func All(host Host, inputs []value.Value) *Promise {
	result := New(host)
	n := len(inputs)
	if n == 0 {
		result.Resolve(value.NewArray())
		return result
	}
	values := make([]value.Value, n)
	remaining := n
	done := false
	for i, in := range inputs {
		i := i
		p := CoercePromise(host, in)
		p.Then(
			&Callback{Fn: nativeAdopt(func(v value.Value) {
				if done {
					return
				}
				values[i] = v
				remaining--
				if remaining == 0 {
					done = true
					arr := &value.Array{Elements: values}
					result.Resolve(arr)
				}
			})},
			&Callback{Fn: nativeAdopt(func(v value.Value) {
				if done {
					return
				}
				done = true
				result.Reject(v)
			})},
		)
	}
	return result
}

// Race adopts whichever input settles first (spec.md §4.5).
func Race(host Host, inputs []value.Value) *Promise {
	result := New(host)
	done := false
	for _, in := range inputs {
		p := CoercePromise(host, in)
		p.Then(
			&Callback{Fn: nativeAdopt(func(v value.Value) {
				if !done {
					done = true
					result.Resolve(v)
				}
			})},
			&Callback{Fn: nativeAdopt(func(v value.Value) {
				if !done {
					done = true
					result.Reject(v)
				}
			})},
		)
	}
	return result
}

// CoercePromise wraps v as a promise: returns it unchanged if already one,
// otherwise a pre-fulfilled promise (spec.md §4.5 Promise.resolve; §4.7
// "primitives wrap as pre-fulfilled").
func CoercePromise(host Host, v value.Value) *Promise {
	if pp, ok := asPromise(v); ok {
		return pp
	}
	return Resolved(host, v)
}
