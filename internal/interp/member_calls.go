package interp

import (
	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func (it *Interpreter) evalMemberExpression(n *ast.MemberExpression, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Object, env, actx, func(obj value.Value) value.Value {
		key := it.memberKeyName(n, env, actx)
		return it.getProperty(obj, key, n)
	})
}

// getProperty resolves obj[key] against the small set of built-in
// "prototype" surfaces spec.md §4.6 names (Array/String instance methods,
// Promise's then/catch/finally, Number's toFixed/toString), falling back
// to a plain Object's own properties otherwise.
func (it *Interpreter) getProperty(obj value.Value, key string, node ast.Node) value.Value {
	switch o := obj.(type) {
	case *value.Object:
		if v, ok := o.Get(key); ok {
			return v
		}
		return value.TheUndefined
	case *value.Array:
		if key == "length" {
			return value.Number{Value: float64(len(o.Elements))}
		}
		if idx, ok := arrayIndex(key); ok {
			if idx >= 0 && idx < len(o.Elements) {
				return o.Elements[idx]
			}
			return value.TheUndefined
		}
		if m := it.arrayMethod(o, key); m != nil {
			return m
		}
		return value.TheUndefined
	case value.String:
		if key == "length" {
			return value.Number{Value: float64(len([]rune(o.Value)))}
		}
		if idx, ok := arrayIndex(key); ok {
			runes := []rune(o.Value)
			if idx >= 0 && idx < len(runes) {
				return value.String{Value: string(runes[idx])}
			}
			return value.TheUndefined
		}
		if m := it.stringMethod(o, key); m != nil {
			return m
		}
		return value.TheUndefined
	case *value.Promise:
		if m := it.promiseMethod(o, key); m != nil {
			return m
		}
		return value.TheUndefined
	case value.Number:
		if m := it.numberMethod(o, key); m != nil {
			return m
		}
		return value.TheUndefined
	case value.Undefined, value.Null:
		return it.throwf(jserrors.KindType, node, "Cannot read properties of %s (reading '%s')", obj.String(), key)
	default:
		return value.TheUndefined
	}
}

func (it *Interpreter) evalCallExpression(n *ast.CallExpression, env *scope.Environment, actx *asyncContext) value.Value {
	if mem, ok := n.Callee.(*ast.MemberExpression); ok {
		return it.evalChainable(mem.Object, env, actx, func(obj value.Value) value.Value {
			key := it.memberKeyName(mem, env, actx)
			fn := it.getProperty(obj, key, mem)
			return it.evalArgsThenCall(n.Arguments, env, actx, fn, obj, n)
		})
	}
	return it.evalChainable(n.Callee, env, actx, func(fn value.Value) value.Value {
		return it.evalArgsThenCall(n.Arguments, env, actx, fn, value.TheUndefined, n)
	})
}

func (it *Interpreter) evalArgsThenCall(args []ast.Expression, env *scope.Environment, actx *asyncContext, fn, thisVal value.Value, node ast.Node) value.Value {
	return it.evalCallArgsFrom(args, 0, nil, env, actx, func(argVals []value.Value) value.Value {
		if nf, ok := fn.(*value.NativeFunction); ok {
			return it.callNativeWithThis(nf, thisVal, argVals)
		}
		return it.callFunctionValue(fn, thisVal, argVals, node)
	})
}

// callNativeWithThis wraps callNative for methods that need the receiver
// (array/string/promise instance methods); those are implemented as
// closures that already captured their receiver, so `this` only matters
// for user-registered native globals, which ignore it.
func (it *Interpreter) callNativeWithThis(nf *value.NativeFunction, thisVal value.Value, args []value.Value) value.Value {
	return it.callNative(nf, thisVal, args)
}

func (it *Interpreter) evalCallArgsFrom(args []ast.Expression, i int, acc []value.Value, env *scope.Environment, actx *asyncContext, done func([]value.Value) value.Value) value.Value {
	for ; i < len(args); i++ {
		a := args[i]
		if spread, ok := a.(*ast.SpreadElement); ok {
			next := i + 1
			return it.evalChainable(spread.Argument, env, actx, func(v value.Value) value.Value {
				merged := append(append([]value.Value{}, acc...), spreadElements(v)...)
				return it.evalCallArgsFrom(args, next, merged, env, actx, done)
			})
		}
		next := i + 1
		return it.evalChainable(a, env, actx, func(v value.Value) value.Value {
			return it.evalCallArgsFrom(args, next, append(append([]value.Value{}, acc...), v), env, actx, done)
		})
	}
	return done(acc)
}

func (it *Interpreter) evalNewExpression(n *ast.NewExpression, env *scope.Environment, actx *asyncContext) value.Value {
	if id, ok := n.Callee.(*ast.Identifier); ok {
		switch id.Name {
		case "Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError":
			return it.evalCallArgsFrom(n.Arguments, 0, nil, env, actx, func(args []value.Value) value.Value {
				msg := ""
				if len(args) > 0 {
					msg = args[0].String()
				}
				o := value.NewObject()
				o.Set("name", value.String{Value: id.Name})
				o.Set("message", value.String{Value: msg})
				o.Set("stack", value.String{Value: id.Name + ": " + msg})
				return o
			})
		case "Promise":
			return it.evalCallArgsFrom(n.Arguments, 0, nil, env, actx, func(args []value.Value) value.Value {
				if len(args) == 0 {
					return it.throwf(jserrors.KindType, n, "Promise resolver is not a function")
				}
				return it.constructPromise(args[0])
			})
		case "Array":
			return it.evalCallArgsFrom(n.Arguments, 0, nil, env, actx, func(args []value.Value) value.Value {
				if len(args) == 1 {
					if num, ok := args[0].(value.Number); ok {
						elems := make([]value.Value, int(num.Value))
						for i := range elems {
							elems[i] = value.TheUndefined
						}
						return &value.Array{Elements: elems}
					}
				}
				return &value.Array{Elements: append([]value.Value{}, args...)}
			})
		}
	}
	return it.evalChainable(n.Callee, env, actx, func(fn value.Value) value.Value {
		return it.evalCallArgsFrom(n.Arguments, 0, nil, env, actx, func(args []value.Value) value.Value {
			newObj := value.NewObject()
			result := it.callFunctionValue(fn, newObj, args, n)
			if th, ok := result.(*throwSignal); ok {
				return th
			}
			// spec.md §9 open question: `new` always yields the freshly
			// allocated object, ignoring whatever the constructor itself
			// explicitly returned.
			return newObj
		})
	})
}

// constructPromise implements `new Promise(executor)` (spec.md §4.5):
// executor is invoked synchronously with (resolve, reject) functions.
func (it *Interpreter) constructPromise(executor value.Value) value.Value {
	p := promise.New(it)
	resolveFn := &value.NativeFunction{Name: "resolve", Fn: func(_ any, args []value.Value) (value.Value, error) {
		var v value.Value = value.TheUndefined
		if len(args) > 0 {
			v = args[0]
		}
		p.Resolve(v)
		return value.TheUndefined, nil
	}}
	rejectFn := &value.NativeFunction{Name: "reject", Fn: func(_ any, args []value.Value) (value.Value, error) {
		var v value.Value = value.TheUndefined
		if len(args) > 0 {
			v = args[0]
		}
		p.Reject(v)
		return value.TheUndefined, nil
	}}
	result := it.callFunctionValue(executor, value.TheUndefined, []value.Value{resolveFn, rejectFn}, nil)
	if th, ok := result.(*throwSignal); ok {
		p.Reject(th.value)
	}
	return p.ToValue()
}
