package interp

import (
	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// asyncContext threads the "am I inside an async function, and if so
// which promise does my eventual return/throw settle" state through Eval
// (spec.md §4.7). A nil-valued pointer is a valid, non-async context: a
// regular synchronous function call.
type asyncContext struct {
	isAsync  bool
	settling *promise.Promise
}

func newAsyncContext(settling *promise.Promise) *asyncContext {
	if settling == nil {
		return &asyncContext{}
	}
	return &asyncContext{isAsync: true, settling: settling}
}

// evalAwaitExpression implements spec.md §4.7: evaluate the operand,
// coerce it to a promise, and if it is not already settled, produce a
// suspendSignal carrying a resume continuation that yields the
// fulfillment value (or re-throws the rejection reason). If the operand
// settles synchronously in the past (already Fulfilled/Rejected at the
// time of the await), the suspension still goes through a microtask — per
// real JS semantics an await always yields at least one microtask turn,
// modeled here simply by always going through Promise.Then rather than
// special-casing already-settled promises.
func (it *Interpreter) evalAwaitExpression(n *ast.AwaitExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Argument, env, actx, func(operand value.Value) value.Value {
		p := promise.CoercePromise(it, operand)
		return &suspendSignal{
			awaited: p,
			resume: func(v, thrown value.Value) value.Value {
				if thrown != nil {
					return &throwSignal{value: thrown}
				}
				return v
			},
		}
	})
}

// callAsyncFunction invokes an async function body, returning a Promise
// immediately (spec.md §4.7: "calling an async function never blocks;
// it returns a pending promise before the body has necessarily run to
// its first await"). The body executes synchronously up to its first
// suspension point, at which point the suspendSignal's continuation is
// attached to the awaited promise rather than returned to the JS caller.
func (it *Interpreter) callAsyncFunction(bodyEnv *scope.Environment, body *ast.BlockStatement) *value.Promise {
	result := promise.New(it)
	actx := newAsyncContext(result)

	var drive func(value.Value)
	settle := func(v value.Value) {
		switch sig := v.(type) {
		case *suspendSignal:
			sig.awaited.Then(
				&promise.Callback{Fn: it.nativeCallback(func(rv value.Value) { drive(sig.resume(rv, nil)) })},
				&promise.Callback{Fn: it.nativeCallback(func(rv value.Value) { drive(sig.resume(nil, rv)) })},
			)
		case *throwSignal:
			result.Reject(sig.value)
		case *returnSignal:
			result.Resolve(sig.value)
		default:
			result.Resolve(value.TheUndefined)
		}
	}
	drive = settle

	drive(it.evalBlock(body, bodyEnv, actx))
	return result.ToValue()
}

// nativeCallback wraps a Go closure as a value.Value so it can travel
// through promise.Callback without internal/promise needing to know
// about internal/interp. Interpreter.Invoke recognizes this type and
// calls fn directly instead of performing a JS function call.
type nativeCallback struct{ fn func(value.Value) }

func (*nativeCallback) Type() string   { return "native-callback" }
func (*nativeCallback) String() string { return "[native callback]" }

func (it *Interpreter) nativeCallback(fn func(value.Value)) value.Value {
	return &nativeCallback{fn: fn}
}

func promiseAdoptValue(fn func(value.Value)) value.Value {
	return &nativeCallback{fn: fn}
}

// ScheduleMicrotask implements promise.Host by delegating to the
// scheduler.
func (it *Interpreter) ScheduleMicrotask(label string, fn func()) {
	it.Sched.ScheduleMicrotask(label, fn)
}

// Invoke implements promise.Host: calling a JS function value with args,
// used by Promise handler flushing (spec.md §4.5) to run user
// then/catch/finally callbacks. Returns ok=false if the call threw.
func (it *Interpreter) Invoke(fn value.Value, args []value.Value) (result value.Value, thrown value.Value, ok bool) {
	if nc, isNative := fn.(*nativeCallback); isNative {
		var v value.Value = value.TheUndefined
		if len(args) > 0 {
			v = args[0]
		}
		nc.fn(v)
		return value.TheUndefined, nil, true
	}
	v := it.callFunctionValue(fn, value.TheUndefined, args, nil)
	if th, isThrow := v.(*throwSignal); isThrow {
		return nil, th.value, false
	}
	if sig, isSuspend := v.(*suspendSignal); isSuspend {
		// A then/catch/finally handler that is itself async: drive it to
		// a promise the same way callAsyncFunction would, and adopt that
		// promise's eventual outcome synchronously isn't possible here,
		// so wrap it as a rejection-free pass-through promise value and
		// let the caller's own Then chain adopt it.
		p := promise.New(it)
		var drive func(value.Value)
		drive = func(v value.Value) {
			switch s := v.(type) {
			case *suspendSignal:
				s.awaited.Then(
					&promise.Callback{Fn: it.nativeCallback(func(rv value.Value) { drive(s.resume(rv, nil)) })},
					&promise.Callback{Fn: it.nativeCallback(func(rv value.Value) { drive(s.resume(nil, rv)) })},
				)
			case *throwSignal:
				p.Reject(s.value)
			case *returnSignal:
				p.Resolve(s.value)
			default:
				p.Resolve(v)
			}
		}
		drive(sig)
		return p.ToValue(), nil, true
	}
	return v, nil, true
}
