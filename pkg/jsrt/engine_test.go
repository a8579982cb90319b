package jsrt

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/cwbudde/go-jsrt/internal/ast"
)

func str(s string) *ast.Literal { return &ast.Literal{Value: s} }
func num(f float64) *ast.Literal { return &ast.Literal{Value: f} }
func id(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func consoleLog(arg ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: &ast.CallExpression{
		Callee:    &ast.MemberExpression{Object: id("console"), Property: id("log")},
		Arguments: []ast.Expression{arg},
	}}
}

func arrowBlock(stmts ...ast.Statement) *ast.ArrowFunctionExpression {
	return &ast.ArrowFunctionExpression{Body: &ast.BlockStatement{Body: stmts}}
}

func arrowBlockWithParams(params []string, stmts ...ast.Statement) *ast.ArrowFunctionExpression {
	ids := make([]*ast.Identifier, len(params))
	for i, p := range params {
		ids[i] = &ast.Identifier{Name: p}
	}
	return &ast.ArrowFunctionExpression{Params: ids, Body: &ast.BlockStatement{Body: stmts}}
}

func callExpr(callee ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, Arguments: args}
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e}
}

func promiseResolveCall(args ...ast.Expression) *ast.CallExpression {
	return callExpr(&ast.MemberExpression{Object: id("Promise"), Property: id("resolve")}, args...)
}

func thenCall(promiseExpr ast.Expression, handler ast.Expression) *ast.CallExpression {
	return callExpr(&ast.MemberExpression{Object: promiseExpr, Property: id("then")}, handler)
}

func consoleText(entries []string) string {
	return strings.Join(entries, ", ")
}

func runProgram(t *testing.T, mode Mode, body []ast.Statement) []string {
	t.Helper()
	engine, err := New(WithMode(mode))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	result := engine.Run(&ast.Program{Body: body}, "")
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected runtime errors: %v", result.Errors)
	}
	texts := make([]string, len(result.Console))
	for i, c := range result.Console {
		texts[i] = c.Text
	}
	return texts
}

// Scenario 1: setTimeout vs. a resolved promise's microtask (spec.md §8).
func TestScenarioMicrotaskBeforeMacrotask(t *testing.T) {
	body := []ast.Statement{
		consoleLog(str("A")),
		exprStmt(callExpr(id("setTimeout"), arrowBlock(consoleLog(str("B"))), num(0))),
		exprStmt(thenCall(promiseResolveCall(), arrowBlock(consoleLog(str("C"))))),
		consoleLog(str("D")),
	}
	got := runProgram(t, Browser, body)
	want := "A, D, C, B"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Scenario 2: a synchronous Promise executor runs immediately; the .then
// handler still waits for a microtask turn (spec.md §8).
func TestScenarioSynchronousExecutorOrdering(t *testing.T) {
	executor := arrowBlockWithParams([]string{"r"},
		consoleLog(str("B")),
		exprStmt(callExpr(id("r"))),
		consoleLog(str("C")),
	)
	newPromise := &ast.NewExpression{Callee: id("Promise"), Arguments: []ast.Expression{executor}}
	body := []ast.Statement{
		exprStmt(thenCall(newPromise, arrowBlock(consoleLog(str("D"))))),
		consoleLog(str("A")),
		consoleLog(str("E")),
	}
	got := runProgram(t, Browser, body)
	want := "B, C, A, E, D"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Scenario 3: an async function suspends at await, letting the caller's
// remaining synchronous statements run first (spec.md §8).
func TestScenarioAsyncFunctionSuspendsAtAwait(t *testing.T) {
	f := &ast.FunctionDeclaration{
		Name:    "f",
		IsAsync: true,
		Body: &ast.BlockStatement{Body: []ast.Statement{
			consoleLog(str("s")),
			&ast.ExpressionStatement{Expression: &ast.AwaitExpression{Argument: promiseResolveCall()}},
			consoleLog(str("e")),
		}},
	}
	body := []ast.Statement{
		f,
		consoleLog(str("1")),
		exprStmt(callExpr(id("f"))),
		consoleLog(str("2")),
	}
	got := runProgram(t, Browser, body)
	want := "1, s, 2, e"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Scenario 4: a microtask that reposts itself three times still drains
// entirely before the next macrotask (spec.md §8).
func TestScenarioMicrotaskFloodDrainsBeforeTimer(t *testing.T) {
	tick := &ast.FunctionDeclaration{
		Name: "tick",
		Body: &ast.BlockStatement{Body: []ast.Statement{
			consoleLog(&ast.BinaryExpression{Operator: "+", Left: str("m"), Right: id("count")}),
			exprStmt(&ast.AssignmentExpression{Operator: "=", Target: id("count"),
				Value: &ast.BinaryExpression{Operator: "+", Left: id("count"), Right: num(1)}}),
			&ast.IfStatement{
				Test: &ast.BinaryExpression{Operator: "<", Left: id("count"), Right: num(3)},
				Consequent: &ast.BlockStatement{Body: []ast.Statement{
					exprStmt(callExpr(id("queueMicrotask"), id("tick"))),
				}},
			},
		}},
	}
	body := []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: id("count"), Init: num(0)},
		}},
		tick,
		exprStmt(callExpr(id("queueMicrotask"), id("tick"))),
		exprStmt(callExpr(id("setTimeout"), arrowBlock(consoleLog(str("T"))), num(0))),
	}
	got := runProgram(t, Browser, body)
	want := "m0, m1, m2, T"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Scenario 5 (node mode): a zero-delay timer fires in the Timers phase,
// strictly before a setImmediate callback in the Check phase (spec.md §8).
func TestScenarioNodeTimerBeforeImmediate(t *testing.T) {
	body := []ast.Statement{
		exprStmt(callExpr(id("setTimeout"), arrowBlock(consoleLog(str("T"))), num(0))),
		exprStmt(callExpr(id("setImmediate"), arrowBlock(consoleLog(str("I"))))),
	}
	got := runProgram(t, Node, body)
	want := "T, I"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Scenario 6 (node mode): process.nextTick jumps the ordinary microtask
// queue (spec.md §4.6, §8).
func TestScenarioNodeNextTickBeforePromise(t *testing.T) {
	body := []ast.Statement{
		exprStmt(callExpr(&ast.MemberExpression{Object: id("process"), Property: id("nextTick")}, arrowBlock(consoleLog(str("N"))))),
		exprStmt(thenCall(promiseResolveCall(), arrowBlock(consoleLog(str("P"))))),
	}
	got := runProgram(t, Node, body)
	want := "N, P"
	if consoleText(got) != want {
		t.Fatalf("console order = %q, want %q", consoleText(got), want)
	}
}

// Determinism law (spec.md §8): running the same program twice in the
// same mode produces byte-identical console and trace streams.
func TestDeterminismAcrossRuns(t *testing.T) {
	body := []ast.Statement{
		consoleLog(str("A")),
		exprStmt(callExpr(id("setTimeout"), arrowBlock(consoleLog(str("B"))), num(0))),
		exprStmt(thenCall(promiseResolveCall(), arrowBlock(consoleLog(str("C"))))),
		consoleLog(str("D")),
	}

	run := func() Result {
		engine, err := New(WithMode(Browser))
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		return engine.Run(&ast.Program{Body: body}, "")
	}

	first := run()
	second := run()

	if len(first.Trace) != len(second.Trace) {
		t.Fatalf("trace length differs: %d vs %d", len(first.Trace), len(second.Trace))
	}
	for i := range first.Trace {
		if !reflect.DeepEqual(first.Trace[i], second.Trace[i]) {
			t.Fatalf("trace step %d differs: %+v vs %+v", i, first.Trace[i], second.Trace[i])
		}
	}
	if len(first.Console) != len(second.Console) {
		t.Fatalf("console length differs: %d vs %d", len(first.Console), len(second.Console))
	}
	for i := range first.Console {
		if first.Console[i].Text != second.Console[i].Text {
			t.Fatalf("console entry %d differs: %q vs %q", i, first.Console[i].Text, second.Console[i].Text)
		}
	}
}

// Snapshot the console stream of two of the scenarios, mechanically
// enforcing the Determinism law the way the teacher uses go-snaps for
// fixture output rather than eyeballing diffs.
func TestScenarioSnapshots(t *testing.T) {
	scenarios := []struct {
		name string
		mode Mode
		body []ast.Statement
	}{
		{"microtask_before_macrotask", Browser, []ast.Statement{
			consoleLog(str("A")),
			exprStmt(callExpr(id("setTimeout"), arrowBlock(consoleLog(str("B"))), num(0))),
			exprStmt(thenCall(promiseResolveCall(), arrowBlock(consoleLog(str("C"))))),
			consoleLog(str("D")),
		}},
		{"node_next_tick_before_promise", Node, []ast.Statement{
			exprStmt(callExpr(&ast.MemberExpression{Object: id("process"), Property: id("nextTick")}, arrowBlock(consoleLog(str("N"))))),
			exprStmt(thenCall(promiseResolveCall(), arrowBlock(consoleLog(str("P"))))),
		}},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got := runProgram(t, sc.mode, sc.body)
			snaps.MatchSnapshot(t, sc.name, consoleText(got))
		})
	}
}
