// setTimeout/clearTimeout/setInterval/clearInterval, queueMicrotask,
// process.nextTick, setImmediate (spec.md §4.6, §4.8): thin adapters over
// internal/scheduler's virtual-time queues, invoking the JS callback
// through the exported interp.CallFunction helper when a queued task
// fires.
package builtins

import (
	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/scheduler"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func callbackArgs(args []value.Value) (value.Value, []value.Value) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0], args[1:]
}

func installTimers(it *interp.Interpreter, global globalSetter) {
	global.Set("setTimeout", nativeFn("setTimeout", func(_ any, args []value.Value) (value.Value, error) {
		fn, extra := callbackArgs(args)
		if fn == nil {
			return value.TheUndefined, nil
		}
		delay := int64(0)
		if len(args) > 1 {
			delay = int64(toNumberArg(args[1]))
		}
		id := it.Sched.RegisterTimer("setTimeout", delay, false, func() {
			it.CallFunction(fn, extra)
		})
		return value.Number{Value: float64(id)}, nil
	}))

	global.Set("setInterval", nativeFn("setInterval", func(_ any, args []value.Value) (value.Value, error) {
		fn, extra := callbackArgs(args)
		if fn == nil {
			return value.TheUndefined, nil
		}
		delay := int64(0)
		if len(args) > 1 {
			delay = int64(toNumberArg(args[1]))
		}
		id := it.Sched.RegisterTimer("setInterval", delay, true, func() {
			it.CallFunction(fn, extra)
		})
		return value.Number{Value: float64(id)}, nil
	}))

	clearer := nativeFn("clearTimer", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.TheUndefined, nil
		}
		it.Sched.CancelTimer(int(toNumberArg(args[0])))
		return value.TheUndefined, nil
	})
	global.Set("clearTimeout", clearer)
	global.Set("clearInterval", clearer)

	global.Set("queueMicrotask", nativeFn("queueMicrotask", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.TheUndefined, nil
		}
		fn := args[0]
		it.Sched.ScheduleMicrotask("queueMicrotask", func() { it.CallFunction(fn, nil) })
		return value.TheUndefined, nil
	}))

	if it.Sched.Mode() == scheduler.Node {
		process := value.NewObject()
		process.Set("nextTick", nativeFn("process.nextTick", func(_ any, args []value.Value) (value.Value, error) {
			fn, extra := callbackArgs(args)
			if fn == nil {
				return value.TheUndefined, nil
			}
			it.Sched.ScheduleNextTick("process.nextTick", func() { it.CallFunction(fn, extra) })
			return value.TheUndefined, nil
		}))
		global.Set("process", process)

		global.Set("setImmediate", nativeFn("setImmediate", func(_ any, args []value.Value) (value.Value, error) {
			fn, extra := callbackArgs(args)
			if fn == nil {
				return value.TheUndefined, nil
			}
			id := it.Sched.ScheduleCheck("setImmediate", func() { it.CallFunction(fn, extra) })
			return value.Number{Value: float64(id)}, nil
		}))
	} else {
		global.Set("requestAnimationFrame", nativeFn("requestAnimationFrame", func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.TheUndefined, nil
			}
			fn := args[0]
			// §4.6: rAF enqueues directly to the macrotask queue (source =
			// rAF), not a timer registration.
			id := it.Sched.ScheduleMacrotask("requestAnimationFrame", func() {
				it.CallFunction(fn, []value.Value{value.Number{Value: float64(it.Sched.NowMs())}})
			})
			return value.Number{Value: float64(id)}, nil
		}))
		global.Set("cancelAnimationFrame", nativeFn("cancelAnimationFrame", func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.TheUndefined, nil
			}
			it.Sched.CancelMacrotask(int(toNumberArg(args[0])))
			return value.TheUndefined, nil
		}))
	}
}

func nativeFn(name string, fn value.NativeGo) *value.NativeFunction {
	return &value.NativeFunction{Name: name, Fn: fn}
}
