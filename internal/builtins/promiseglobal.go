// The Promise global's static methods (spec.md §4.5): resolve/reject/all/
// race. `new Promise(executor)` itself is handled directly by
// internal/interp's NewExpression evaluator (constructPromise calls the
// executor with resolve/reject closures over a fresh backing promise and
// `this` undefined); this file only supplies the object hung off the
// `Promise` identifier for static calls like `Promise.all(...)`.
package builtins

import (
	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func installPromise(it *interp.Interpreter) *value.Object {
	p := value.NewObject()
	p.Set("resolve", nativeFn("Promise.resolve", func(_ any, args []value.Value) (value.Value, error) {
		var v value.Value = value.TheUndefined
		if len(args) > 0 {
			v = args[0]
		}
		return promise.CoercePromise(it, v).ToValue(), nil
	}))
	p.Set("reject", nativeFn("Promise.reject", func(_ any, args []value.Value) (value.Value, error) {
		var v value.Value = value.TheUndefined
		if len(args) > 0 {
			v = args[0]
		}
		return promise.RejectedWith(it, v).ToValue(), nil
	}))
	p.Set("all", nativeFn("Promise.all", func(_ any, args []value.Value) (value.Value, error) {
		return promise.All(it, promiseInputs(args)).ToValue(), nil
	}))
	p.Set("race", nativeFn("Promise.race", func(_ any, args []value.Value) (value.Value, error) {
		return promise.Race(it, promiseInputs(args)).ToValue(), nil
	}))
	return p
}

func promiseInputs(args []value.Value) []value.Value {
	if len(args) == 0 {
		return nil
	}
	if arr, ok := args[0].(*value.Array); ok {
		return arr.Elements
	}
	return args
}
