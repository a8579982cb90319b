package interp

import (
	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// evalBlock evaluates a statement list in env (already the block's own
// child scope), pre-hoisting function declarations and `var`s first
// (spec.md §4.1), then running statements in order. The first abrupt
// result (return/break/continue/throw/suspend) short-circuits the rest.
func (it *Interpreter) evalBlock(block *ast.BlockStatement, env *scope.Environment, actx *asyncContext) value.Value {
	hoist(block.Body, env)
	return it.evalStatements(block.Body, 0, env, actx)
}

// evalStatements runs block[idx:] in order, chaining through any
// suspension so the remaining statements resume exactly where they left
// off once the awaited promise settles (spec.md §4.7).
func (it *Interpreter) evalStatements(stmts []ast.Statement, idx int, env *scope.Environment, actx *asyncContext) value.Value {
	var last value.Value = value.TheUndefined
	for i := idx; i < len(stmts); i++ {
		stmt := stmts[i]
		result := it.Eval(stmt, env, actx)
		if sig, ok := result.(*suspendSignal); ok {
			next := i + 1
			return chain(sig, func(value.Value) value.Value {
				return it.evalStatements(stmts, next, env, actx)
			})
		}
		if isAbrupt(result) {
			return result
		}
		last = result
	}
	return last
}

// hoist pre-declares every `var` binding (as undefined) throughout stmts,
// without recursing into nested function bodies, and pre-binds every
// function declaration directly in stmts to its runtime value (spec.md
// §4.1/§4.3: "Function declarations are pre-hoisted at block entry"). A
// function declaration nested inside an if/while/etc. is not a direct
// statement of this body and is left to hoistOne's var-only recursion.
func hoist(stmts []ast.Statement, env *scope.Environment) {
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.FunctionDeclaration); ok {
			env.HoistFunctionDeclaration(fn.Name, buildUserFunction(fn, env))
			continue
		}
		hoistOne(stmt, env)
	}
}

func hoistOne(stmt ast.Statement, env *scope.Environment) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		if s.Kind == ast.VarVar {
			for _, decl := range s.Declarations {
				if !env.Has(decl.ID.Name) {
					env.Define(decl.ID.Name, value.TheUndefined, scope.KindVar)
				}
			}
		}
	case *ast.IfStatement:
		hoistInto(s.Consequent, env)
		if s.Alternate != nil {
			hoistInto(s.Alternate, env)
		}
	case *ast.WhileStatement:
		hoistInto(s.Body, env)
	case *ast.DoWhileStatement:
		hoistInto(s.Body, env)
	case *ast.ForStatement:
		hoistInto(s.Body, env)
	case *ast.BlockStatement:
		hoist(s.Body, env)
	case *ast.TryStatement:
		hoist(s.Block.Body, env)
		if s.Handler != nil {
			hoist(s.Handler.Body.Body, env)
		}
		if s.Finalizer != nil {
			hoist(s.Finalizer.Body, env)
		}
	case *ast.LabeledStatement:
		hoistOne(s.Body, env)
	}
}

func hoistInto(stmt ast.Statement, env *scope.Environment) {
	if block, ok := stmt.(*ast.BlockStatement); ok {
		hoist(block.Body, env)
		return
	}
	hoistOne(stmt, env)
}

func (it *Interpreter) evalVariableDeclaration(n *ast.VariableDeclaration, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalDeclarators(n.Declarations, 0, n.Kind, env, actx)
}

func (it *Interpreter) evalDeclarators(decls []*ast.VariableDeclarator, idx int, kind ast.VariableKind, env *scope.Environment, actx *asyncContext) value.Value {
	for i := idx; i < len(decls); i++ {
		decl := decls[i]
		if decl.Init == nil {
			it.defineDeclarator(decl, value.TheUndefined, kind, env)
			continue
		}
		next := i + 1
		return it.evalChainable(decl.Init, env, actx, func(initVal value.Value) value.Value {
			it.defineDeclarator(decl, initVal, kind, env)
			return it.evalDeclarators(decls, next, kind, env, actx)
		})
	}
	return value.TheUndefined
}

func (it *Interpreter) defineDeclarator(decl *ast.VariableDeclarator, v value.Value, kind ast.VariableKind, env *scope.Environment) {
	var k scope.Kind
	switch kind {
	case ast.VarConst:
		k = scope.KindConst
	case ast.VarVar:
		k = scope.KindVar
	default:
		k = scope.KindLet
	}
	env.Define(decl.ID.Name, v, k)
}

// buildUserFunction constructs the runtime function value for a function
// declaration without binding it to any scope; shared by hoist's pre-pass
// and evalFunctionDeclaration's fallback path.
func buildUserFunction(n *ast.FunctionDeclaration, env *scope.Environment) *value.UserFunction {
	return &value.UserFunction{
		Name:    n.Name,
		Params:  paramNames(n.Params),
		Body:    n.Body,
		Scope:   env,
		IsAsync: n.IsAsync,
		Line:    n.Line(),
	}
}

// evalFunctionDeclaration is reached during normal statement traversal,
// by which point hoist has already bound the name in env (spec.md §4.1):
// a direct function declaration is always pre-hoisted by its enclosing
// block's hoist pass, so re-binding here would be redundant. The
// HoistFunctionDeclaration call only matters for the rare case of a
// function declaration evaluated outside any hoisted body (e.g. as the
// single statement of an unbraced if-branch).
func (it *Interpreter) evalFunctionDeclaration(n *ast.FunctionDeclaration, env *scope.Environment) value.Value {
	if !env.Has(n.Name) {
		env.HoistFunctionDeclaration(n.Name, buildUserFunction(n, env))
	}
	return value.TheUndefined
}

func paramNames(params []*ast.Identifier) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}

func (it *Interpreter) evalReturnStatement(n *ast.ReturnStatement, env *scope.Environment, actx *asyncContext) value.Value {
	if n.Argument == nil {
		return &returnSignal{value: value.TheUndefined}
	}
	return it.evalChainable(n.Argument, env, actx, func(v value.Value) value.Value {
		return &returnSignal{value: v}
	})
}

func (it *Interpreter) evalThrowStatement(n *ast.ThrowStatement, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Argument, env, actx, func(v value.Value) value.Value {
		return &throwSignal{value: v}
	})
}

func (it *Interpreter) evalIfStatement(n *ast.IfStatement, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Test, env, actx, func(test value.Value) value.Value {
		if value.IsTruthy(test) {
			return it.Eval(n.Consequent, env, actx)
		}
		if n.Alternate != nil {
			return it.Eval(n.Alternate, env, actx)
		}
		return value.TheUndefined
	})
}

func (it *Interpreter) evalWhileStatement(n *ast.WhileStatement, env *scope.Environment, actx *asyncContext, label string) value.Value {
	return it.loopFrom(0, func(i int) value.Value {
		if i >= MaxLoopIterations {
			return it.throwf(jserrors.KindRange, n, "loop exceeded maximum iteration count")
		}
		return it.evalChainable(n.Test, env, actx, func(test value.Value) value.Value {
			if !value.IsTruthy(test) {
				return whileDone{}
			}
			return it.evalLoopBody(n.Body, env, actx, label)
		})
	})
}

func (it *Interpreter) evalDoWhileStatement(n *ast.DoWhileStatement, env *scope.Environment, actx *asyncContext, label string) value.Value {
	first := true
	return it.loopFrom(0, func(i int) value.Value {
		if i >= MaxLoopIterations {
			return it.throwf(jserrors.KindRange, n, "loop exceeded maximum iteration count")
		}
		if first {
			first = false
			return it.evalLoopBody(n.Body, env, actx, label)
		}
		return it.evalChainable(n.Test, env, actx, func(test value.Value) value.Value {
			if !value.IsTruthy(test) {
				return whileDone{}
			}
			return it.evalLoopBody(n.Body, env, actx, label)
		})
	})
}

func (it *Interpreter) evalForStatement(n *ast.ForStatement, env *scope.Environment, actx *asyncContext, label string) value.Value {
	loopEnv := env.Child(false)
	if n.Init != nil {
		var initResult value.Value
		switch init := n.Init.(type) {
		case *ast.VariableDeclaration:
			initResult = it.evalVariableDeclaration(init, loopEnv, actx)
		case ast.Expression:
			initResult = it.Eval(init, loopEnv, actx)
		}
		if isAbrupt(initResult) {
			return initResult
		}
	}

	return it.loopFrom(0, func(i int) value.Value {
		if i >= MaxLoopIterations {
			return it.throwf(jserrors.KindRange, n, "loop exceeded maximum iteration count")
		}
		testStep := func() value.Value {
			if n.Test == nil {
				return it.evalLoopBody(n.Body, loopEnv, actx, label)
			}
			return it.evalChainable(n.Test, loopEnv, actx, func(test value.Value) value.Value {
				if !value.IsTruthy(test) {
					return whileDone{}
				}
				return it.evalLoopBody(n.Body, loopEnv, actx, label)
			})
		}
		if i == 0 || n.Update == nil {
			return testStep()
		}
		return it.evalChainable(n.Update, loopEnv, actx, func(value.Value) value.Value {
			return testStep()
		})
	})
}

// evalLoopBody runs a single loop iteration's body. A break/continue
// whose label is empty or matches this loop's own label is consumed here
// (translated to whileDone{} or a plain value respectively); anything
// else propagates as an abrupt signal to an enclosing labeled loop.
func (it *Interpreter) evalLoopBody(body ast.Statement, env *scope.Environment, actx *asyncContext, label string) value.Value {
	result := it.Eval(body, env, actx)
	switch sig := result.(type) {
	case *breakSignal:
		if sig.label == "" || sig.label == label {
			return whileDone{}
		}
		return result
	case *continueSignal:
		if sig.label == "" || sig.label == label {
			return value.TheUndefined
		}
		return result
	default:
		return result
	}
}

// whileDone is the sentinel loopFrom's step function returns to signal
// normal (non-abrupt) loop termination.
type whileDone struct{}

func (whileDone) Type() string   { return "loop-done" }
func (whileDone) String() string { return "" }

// loopFrom drives a counted, suspension-transparent loop: step(i) runs
// iteration i and returns either whileDone{} (stop normally), an abrupt
// signal (propagate), a suspendSignal (chain to continue at i+1), or any
// other value (continue to i+1).
func (it *Interpreter) loopFrom(i int, step func(int) value.Value) value.Value {
	result := step(i)
	if sig, ok := result.(*suspendSignal); ok {
		return chain(sig, func(value.Value) value.Value {
			return it.loopFrom(i+1, step)
		})
	}
	if _, done := result.(whileDone); done {
		return value.TheUndefined
	}
	if isAbrupt(result) {
		return result
	}
	return it.loopFrom(i+1, step)
}

func (it *Interpreter) evalTryStatement(n *ast.TryStatement, env *scope.Environment, actx *asyncContext) value.Value {
	runFinally := func(outcome value.Value) value.Value {
		if n.Finalizer == nil {
			return outcome
		}
		finResult := it.Eval(n.Finalizer, env, actx)
		if sig, ok := finResult.(*suspendSignal); ok {
			return chain(sig, func(value.Value) value.Value { return outcome })
		}
		if isAbrupt(finResult) {
			// finally's own abrupt completion supersedes the try/catch
			// outcome (spec.md §4.3).
			return finResult
		}
		return outcome
	}

	blockResult := it.Eval(n.Block, env, actx)
	return it.handleTryOutcome(blockResult, n, env, actx, runFinally)
}

func (it *Interpreter) handleTryOutcome(blockResult value.Value, n *ast.TryStatement, env *scope.Environment, actx *asyncContext, runFinally func(value.Value) value.Value) value.Value {
	if sig, ok := blockResult.(*suspendSignal); ok {
		return chain(sig, func(resumed value.Value) value.Value {
			return it.handleTryOutcome(resumed, n, env, actx, runFinally)
		})
	}
	if th, ok := blockResult.(*throwSignal); ok {
		if n.Handler != nil {
			catchEnv := env.Child(false)
			if n.Handler.Param != nil {
				catchEnv.Define(n.Handler.Param.Name, th.value, scope.KindLet)
			}
			catchResult := it.evalBlock(n.Handler.Body, catchEnv, actx)
			return runFinally(catchResult)
		}
		return runFinally(blockResult)
	}
	return runFinally(blockResult)
}

func (it *Interpreter) evalSwitchStatement(n *ast.SwitchStatement, env *scope.Environment, actx *asyncContext) value.Value {
	return it.evalChainable(n.Discriminant, env, actx, func(disc value.Value) value.Value {
		return it.runSwitchCases(n.Cases, disc, env, actx)
	})
}

func (it *Interpreter) runSwitchCases(cases []*ast.SwitchCase, disc value.Value, env *scope.Environment, actx *asyncContext) value.Value {
	matchIdx := -1
	defaultIdx := -1
	for i, c := range cases {
		if c.Test == nil {
			defaultIdx = i
			continue
		}
		testVal := it.Eval(c.Test, env, actx)
		if isAbrupt(testVal) {
			return testVal
		}
		if strictEquals(disc, testVal) {
			matchIdx = i
			break
		}
	}
	start := matchIdx
	if start == -1 {
		start = defaultIdx
	}
	if start == -1 {
		return value.TheUndefined
	}
	switchEnv := env.Child(false)
	return it.runCasesFrom(cases, start, switchEnv, actx)
}

func (it *Interpreter) runCasesFrom(cases []*ast.SwitchCase, idx int, env *scope.Environment, actx *asyncContext) value.Value {
	for ci := idx; ci < len(cases); ci++ {
		result := it.evalStatements(cases[ci].Consequent, 0, env, actx)
		if sig, ok := result.(*suspendSignal); ok {
			next := ci + 1
			return chain(sig, func(value.Value) value.Value {
				return it.runCasesFrom(cases, next, env, actx)
			})
		}
		if b, ok := result.(*breakSignal); ok && b.label == "" {
			return value.TheUndefined
		}
		if isAbrupt(result) {
			return result
		}
	}
	return value.TheUndefined
}

func (it *Interpreter) evalLabeledStatement(n *ast.LabeledStatement, env *scope.Environment, actx *asyncContext) value.Value {
	var result value.Value
	switch body := n.Body.(type) {
	case *ast.WhileStatement:
		result = it.evalWhileStatement(body, env, actx, n.Label)
	case *ast.DoWhileStatement:
		result = it.evalDoWhileStatement(body, env, actx, n.Label)
	case *ast.ForStatement:
		result = it.evalForStatement(body, env, actx, n.Label)
	default:
		result = it.Eval(n.Body, env, actx)
	}
	if b, ok := result.(*breakSignal); ok && b.label == n.Label {
		return value.TheUndefined
	}
	return result
}

func (it *Interpreter) evalExpressionStatement(n *ast.ExpressionStatement, env *scope.Environment, actx *asyncContext) value.Value {
	return it.Eval(n.Expression, env, actx)
}
