package interp

import (
	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/trace"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// thisKey is the hidden binding name `this` is stored under in a
// function's activation scope (spec.md §4.4).
const thisKey = "this"

// callFunctionValue implements the call protocol of spec.md §4.4: push a
// call-stack frame (emitting PUSH_STACK), bind parameters and `this` in a
// fresh function-scope environment, evaluate the body, pop the frame
// (emitting POP_STACK) on every exit path, and unwrap a returnSignal into
// its carried value. PUSH_STACK carries the callee's own definition line
// (f.Line; 0 for natives); node is used only to locate the TypeError for a
// non-function callee and may be nil (native-driven invocations).
func (it *Interpreter) callFunctionValue(fn value.Value, thisVal value.Value, args []value.Value, node ast.Node) value.Value {
	switch f := fn.(type) {
	case *value.NativeFunction:
		return it.callNative(f, thisVal, args)
	case *value.UserFunction:
		return it.callUserFunction(f, thisVal, args, node)
	default:
		return it.throwf(jserrors.KindType, node, "%s is not a function", fn.String())
	}
}

func (it *Interpreter) callNative(f *value.NativeFunction, thisVal value.Value, args []value.Value) value.Value {
	line := 0
	if perr := it.Calls.Push(f.Name, line); perr != nil {
		return &throwSignal{value: errorValueFrom(perr)}
	}
	it.Emit(trace.ExecutionStep{Type: trace.PushStack, Name: f.Name, Line: line})
	it.Emit(trace.ExecutionStep{Type: trace.HighlightLine, Line: line})
	result, err := f.Fn(it, args)
	it.Emit(trace.ExecutionStep{Type: trace.PopStack, Name: f.Name})
	it.Calls.Pop()
	if err != nil {
		if tv, ok := err.(*thrownValueError); ok {
			return &throwSignal{value: tv.v}
		}
		if re, ok := err.(*jserrors.RuntimeError); ok {
			return &throwSignal{value: errorValueFrom(re)}
		}
		return &throwSignal{value: value.String{Value: err.Error()}}
	}
	if result == nil {
		return value.TheUndefined
	}
	return result
}

func (it *Interpreter) callUserFunction(f *value.UserFunction, thisVal value.Value, args []value.Value, node ast.Node) value.Value {
	line := f.Line
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	if perr := it.Calls.Push(name, line); perr != nil {
		return &throwSignal{value: errorValueFrom(perr)}
	}
	defer func() {
		it.Emit(trace.ExecutionStep{Type: trace.PopStack, Name: name})
		it.Calls.Pop()
	}()
	it.Emit(trace.ExecutionStep{Type: trace.PushStack, Name: name, Line: line})
	it.Emit(trace.ExecutionStep{Type: trace.HighlightLine, Line: line})

	closureEnv, _ := f.Scope.(*scope.Environment)
	if closureEnv == nil {
		closureEnv = it.Global
	}
	fnEnv := closureEnv.Child(true)

	if !f.IsArrow {
		fnEnv.Define(thisKey, thisVal, scope.KindConst)
		argsArr := value.NewArray(args...)
		fnEnv.Define("arguments", argsArr, scope.KindConst)
	}

	bindParams(fnEnv, f.Params, args)

	if f.IsAsync {
		if block, ok := f.Body.(*ast.BlockStatement); ok && block != nil {
			return it.callAsyncFunction(fnEnv, block)
		}
		// Async arrow with expression body: treat as a single implicit
		// return statement.
		if exprBody, ok := f.ExprBody.(ast.Expression); ok {
			synthetic := &ast.BlockStatement{Body: []ast.Statement{&ast.ReturnStatement{Argument: exprBody}}}
			return it.callAsyncFunction(fnEnv, synthetic)
		}
	}

	if exprBody, ok := f.ExprBody.(ast.Expression); ok {
		actx := newAsyncContext(nil)
		return unwrapReturn(it.Eval(exprBody, fnEnv, actx))
	}

	block, ok := f.Body.(*ast.BlockStatement)
	if !ok {
		return value.TheUndefined
	}
	actx := newAsyncContext(nil)
	result := it.evalBlock(block, fnEnv, actx)
	return unwrapReturn(result)
}

func unwrapReturn(v value.Value) value.Value {
	switch sig := v.(type) {
	case *returnSignal:
		return sig.value
	case *breakSignal, *continueSignal:
		// A stray break/continue escaping a function body is a parser
		// invariant violation upstream; treat as undefined rather than
		// letting it leak into the caller's control flow.
		return value.TheUndefined
	default:
		return v
	}
}

func bindParams(env *scope.Environment, params []string, args []value.Value) {
	for i, name := range params {
		var v value.Value = value.TheUndefined
		if i < len(args) {
			v = args[i]
		}
		env.Define(name, v, scope.KindLet)
	}
}

// thrownValueError lets a NativeFunction (whose Go signature can only
// return a plain `error`) throw an arbitrary JS value instead of a
// RuntimeError, by wrapping it and having callNative unwrap it back out.
type thrownValueError struct{ v value.Value }

func (e *thrownValueError) Error() string { return e.v.String() }

// Throw wraps v for a NativeFunction to return as its error result,
// surfacing it as a genuine thrown JS value rather than a generic error.
func Throw(v value.Value) error { return &thrownValueError{v: v} }

// CallFunction invokes fn synchronously with no `this` binding, for
// built-ins that accept a user callback (Array.prototype.map, and
// similar). An async callback returns its promise as the result; nothing
// waits for that promise to settle (spec.md §4.6).
func (it *Interpreter) CallFunction(fn value.Value, args []value.Value) (value.Value, error) {
	result := it.callFunctionValue(fn, value.TheUndefined, args, nil)
	if th, ok := result.(*throwSignal); ok {
		return nil, Throw(th.value)
	}
	return result, nil
}

func errorValueFrom(re *jserrors.RuntimeError) value.Value {
	o := value.NewObject()
	o.Set("name", value.String{Value: re.Kind.String()})
	o.Set("message", value.String{Value: re.Message})
	return o
}
