// Package interp implements the tree-walking evaluator of spec.md §4.1-4.4,
// §4.7: a single Eval type-switch dispatcher over internal/ast nodes,
// operating on internal/value values and an internal/scope environment
// chain. Grounded on the teacher's internal/interp/evaluator.Evaluator:
// one struct holding cross-cutting state (call stack, current node,
// config), one Eval(node, ctx) method dispatching by type switch to
// per-category Visit methods split across files by node kind.
package interp

import (
	"fmt"

	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/scheduler"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/trace"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// MaxLoopIterations bounds any single loop's iteration count (spec.md §9:
// "a runaway `while(true)` must not hang the host").
const MaxLoopIterations = 10000

// Interpreter holds all state shared across a single Run: the global
// scope, the logical call stack, the trace/console sinks, and the
// scheduler it hands microtasks/timers to. One Interpreter serves exactly
// one Run (spec.md §9). Its own counters are per-instance; promise ids
// come from a package-level counter in internal/promise that keeps
// counting across runs.
type Interpreter struct {
	Global *scope.Environment
	Calls  *jserrors.CallStack
	Trace  *trace.Trace
	Sched  *scheduler.Scheduler
	Source string

	Console []trace.ConsoleEntry
	Errors  []*jserrors.RuntimeError

	currentNode ast.Node
	nextCallID  int

	builtinInstall func(*Interpreter) // set by internal/builtins to avoid an import cycle
}

// New creates an Interpreter bound to sched and tr, with a fresh global
// scope.
func New(sched *scheduler.Scheduler, tr *trace.Trace, source string) *Interpreter {
	it := &Interpreter{
		Global: scope.New(),
		Calls:  jserrors.NewCallStack(jserrors.DefaultMaxCallDepth),
		Trace:  tr,
		Sched:  sched,
		Source: source,
	}
	return it
}

// SetBuiltinInstaller lets internal/builtins register itself without
// internal/interp importing internal/builtins (which in turn imports
// internal/interp for *Interpreter and Throw).
func (it *Interpreter) SetBuiltinInstaller(fn func(*Interpreter)) {
	it.builtinInstall = fn
}

// InstallBuiltins runs the registered builtin installer, if any.
func (it *Interpreter) InstallBuiltins() {
	if it.builtinInstall != nil {
		it.builtinInstall(it)
	}
}

// RunProgram evaluates every top-level statement in program against the
// global scope (spec.md §4.9), wrapped in a virtual `<global>` call-stack
// frame: PUSH_STACK before the body and POP_STACK after, so the trace's
// call stack never starts empty (spec.md §4.9, §8's PUSH_STACK/POP_STACK
// balance invariant). A top-level uncaught throw is recorded as an error
// rather than propagated, matching §7's "nothing escapes Run".
func (it *Interpreter) RunProgram(program *ast.Program) {
	const globalFrame = "<global>"
	it.Calls.Push(globalFrame, 0)
	it.Emit(trace.ExecutionStep{Type: trace.PushStack, Name: globalFrame})
	defer func() {
		it.Emit(trace.ExecutionStep{Type: trace.PopStack, Name: globalFrame})
		it.Calls.Pop()
	}()

	hoist(program.Body, it.Global)

	actx := newAsyncContext(nil)
	for _, stmt := range program.Body {
		result := it.Eval(stmt, it.Global, actx)
		if sig, ok := result.(*suspendSignal); ok {
			// Top-level await: run the continuation once its promise
			// settles, same as any other async boundary.
			it.attachTopLevelContinuation(sig)
			continue
		}
		if th, ok := result.(*throwSignal); ok {
			it.reportUncaught(th.value, stmt.Line())
		}
	}
}

func (it *Interpreter) attachTopLevelContinuation(sig *suspendSignal) {
	// A bare top-level `await expr;` has no enclosing promise to resolve;
	// the continuation still needs to run, so it is driven directly off
	// the awaited promise via a microtask, like any other then-handler.
	p := sig.awaited
	p.Then(
		&promise.Callback{Fn: it.nativeResume(func(v value.Value) {
			result := sig.resume(v, nil)
			if th, ok := result.(*throwSignal); ok {
				it.reportUncaught(th.value, 0)
			} else if s2, ok := result.(*suspendSignal); ok {
				it.attachTopLevelContinuation(s2)
			}
		})},
		&promise.Callback{Fn: it.nativeResume(func(v value.Value) {
			result := sig.resume(nil, v)
			if th, ok := result.(*throwSignal); ok {
				it.reportUncaught(th.value, 0)
			} else if s2, ok := result.(*suspendSignal); ok {
				it.attachTopLevelContinuation(s2)
			}
		})},
	)
}

func (it *Interpreter) reportUncaught(thrown value.Value, line int) {
	msg := thrown.String()
	if o, ok := thrown.(*value.Object); ok {
		if m, ok := o.Get("message"); ok {
			msg = m.String()
		}
	}
	err := jserrors.NewAt(jserrors.KindThrown, jserrors.Position{Line: line}, "Uncaught %s", msg)
	it.ReportError(err)
}

// ReportError appends err to the errors list and surfaces it as a
// CONSOLE_ERROR step (spec.md §7), for errors that originate outside
// ordinary Eval (e.g. a scheduler safety-cap overflow, spec.md §7/§9).
func (it *Interpreter) ReportError(err *jserrors.RuntimeError) {
	it.Errors = append(it.Errors, err)
	it.recordErrorStep(err)
}

// recordErrorStep surfaces err as a CONSOLE_ERROR step and console entry
// (spec.md §7: "all surface as a CONSOLE_ERROR step and an entry in the
// errors list"), at its point of occurrence rather than batched at the
// end of the run, keeping the trace in strict chronological order.
func (it *Interpreter) recordErrorStep(err *jserrors.RuntimeError) {
	text := err.Format()
	it.Console = append(it.Console, trace.ConsoleEntry{Level: "error", Text: text})
	it.Emit(trace.ExecutionStep{Type: trace.ConsoleError, ConsoleArgs: []string{text}})
}

// Emit appends step to the trace after stamping it with the scheduler's
// current virtual-clock reading (spec.md §8: "virtual time is
// monotonically non-decreasing across the step stream"). Every
// interpreter-side trace emission must go through this rather than
// it.Trace.Append directly: a step produced inside a timer/macrotask
// callback after the clock has advanced otherwise carries a stale
// timestamp of 0 and sorts ahead of steps the scheduler itself stamped.
func (it *Interpreter) Emit(step trace.ExecutionStep) {
	step.TimestampMS = it.Sched.NowMs()
	it.Trace.Append(step)
}

// Eval is the sole dispatcher: every node type is matched here and
// delegated to a per-category eval method defined in the other files of
// this package.
func (it *Interpreter) Eval(node ast.Node, env *scope.Environment, actx *asyncContext) value.Value {
	it.currentNode = node
	switch n := node.(type) {
	case *ast.Program:
		panic("Program must be run via RunProgram, not Eval")

	// Statements
	case *ast.BlockStatement:
		return it.evalBlock(n, scopeChild(env), actx)
	case *ast.VariableDeclaration:
		return it.evalVariableDeclaration(n, env, actx)
	case *ast.FunctionDeclaration:
		return it.evalFunctionDeclaration(n, env)
	case *ast.ReturnStatement:
		return it.evalReturnStatement(n, env, actx)
	case *ast.ThrowStatement:
		return it.evalThrowStatement(n, env, actx)
	case *ast.IfStatement:
		return it.evalIfStatement(n, env, actx)
	case *ast.WhileStatement:
		return it.evalWhileStatement(n, env, actx, "")
	case *ast.DoWhileStatement:
		return it.evalDoWhileStatement(n, env, actx, "")
	case *ast.ForStatement:
		return it.evalForStatement(n, env, actx, "")
	case *ast.BreakStatement:
		return &breakSignal{label: n.Label}
	case *ast.ContinueStatement:
		return &continueSignal{label: n.Label}
	case *ast.TryStatement:
		return it.evalTryStatement(n, env, actx)
	case *ast.SwitchStatement:
		return it.evalSwitchStatement(n, env, actx)
	case *ast.LabeledStatement:
		return it.evalLabeledStatement(n, env, actx)
	case *ast.ExpressionStatement:
		return it.evalExpressionStatement(n, env, actx)
	case *ast.EmptyStatement:
		return value.TheUndefined

	// Expressions
	case *ast.Identifier:
		return it.evalIdentifier(n, env)
	case *ast.Literal:
		return it.evalLiteral(n)
	case *ast.UndefinedLiteral:
		return value.TheUndefined
	case *ast.ThisExpression:
		return it.evalThis(env)
	case *ast.TemplateLiteral:
		return it.evalTemplateLiteral(n, env, actx)
	case *ast.ArrayExpression:
		return it.evalArrayExpression(n, env, actx)
	case *ast.ObjectExpression:
		return it.evalObjectExpression(n, env, actx)
	case *ast.FunctionExpression:
		return it.evalFunctionExpression(n, env)
	case *ast.ArrowFunctionExpression:
		return it.evalArrowFunctionExpression(n, env)
	case *ast.UnaryExpression:
		return it.evalUnaryExpression(n, env, actx)
	case *ast.UpdateExpression:
		return it.evalUpdateExpression(n, env, actx)
	case *ast.BinaryExpression:
		return it.evalBinaryExpression(n, env, actx)
	case *ast.LogicalExpression:
		return it.evalLogicalExpression(n, env, actx)
	case *ast.AssignmentExpression:
		return it.evalAssignmentExpression(n, env, actx)
	case *ast.ConditionalExpression:
		return it.evalConditionalExpression(n, env, actx)
	case *ast.CallExpression:
		return it.evalCallExpression(n, env, actx)
	case *ast.NewExpression:
		return it.evalNewExpression(n, env, actx)
	case *ast.MemberExpression:
		return it.evalMemberExpression(n, env, actx)
	case *ast.SequenceExpression:
		return it.evalSequenceExpression(n, env, actx)
	case *ast.AwaitExpression:
		return it.evalAwaitExpression(n, env, actx)

	default:
		return it.throwf(jserrors.KindType, node, "unsupported syntax node %T", node)
	}
}

func scopeChild(env *scope.Environment) *scope.Environment {
	return env.Child(false)
}

// chain composes a continuation onto a pending suspendSignal: when the
// awaited promise settles, sig.resume runs first; if it produces another
// suspendSignal (a second await further down the same statement), chain
// wraps again, otherwise, for a plain (non-abrupt) result, cont runs to
// finish the work the caller was in the middle of. Abrupt results
// (return/break/continue/throw) bypass cont entirely, exactly as they
// would have if no suspension had occurred in between.
func chain(sig *suspendSignal, cont func(value.Value) value.Value) value.Value {
	return &suspendSignal{
		awaited: sig.awaited,
		resume: func(v, t value.Value) value.Value {
			inner := sig.resume(v, t)
			if s2, ok := inner.(*suspendSignal); ok {
				return chain(s2, cont)
			}
			if isAbrupt(inner) {
				return inner
			}
			return cont(inner)
		},
	}
}

// evalChainable evaluates node and, if it suspends, chains cont onto the
// resulting signal; otherwise cont runs immediately. This is the single
// call-site pattern every multi-step evaluator in this package uses to
// stay await-transparent without hand-written coroutines (spec.md §4.7,
// §9).
func (it *Interpreter) evalChainable(node ast.Node, env *scope.Environment, actx *asyncContext, cont func(value.Value) value.Value) value.Value {
	v := it.Eval(node, env, actx)
	if sig, ok := v.(*suspendSignal); ok {
		return chain(sig, cont)
	}
	if isAbrupt(v) {
		return v
	}
	return cont(v)
}

func (it *Interpreter) throwf(kind jserrors.Kind, node ast.Node, format string, args ...any) value.Value {
	msg := fmt.Sprintf(format, args...)
	errObj := value.NewObject()
	errObj.Set("name", value.String{Value: kind.String()})
	errObj.Set("message", value.String{Value: msg})
	line := 0
	if node != nil {
		line = node.Line()
	}
	errObj.Set("stack", value.String{Value: fmt.Sprintf("%s: %s", kind, msg)})
	_ = line
	return &throwSignal{value: errObj}
}

func (it *Interpreter) nativeResume(fn func(value.Value)) value.Value {
	return promiseAdoptValue(fn)
}
