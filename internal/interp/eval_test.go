package interp

import (
	"testing"

	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/scheduler"
	"github.com/cwbudde/go-jsrt/internal/trace"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func newTestInterpreter() *Interpreter {
	tr := &trace.Trace{}
	sched := scheduler.New(scheduler.Browser, tr)
	return New(sched, tr, "")
}

func lit(v any) *ast.Literal { return &ast.Literal{Value: v} }

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func run(it *Interpreter, stmts []ast.Statement) value.Value {
	actx := newAsyncContext(nil)
	var last value.Value = value.TheUndefined
	for _, s := range stmts {
		last = it.Eval(s, it.Global, actx)
	}
	return last
}

func TestArithmeticBinaryExpression(t *testing.T) {
	it := newTestInterpreter()
	expr := &ast.BinaryExpression{Operator: "+", Left: lit(float64(2)), Right: lit(float64(3))}
	got := it.Eval(expr, it.Global, newAsyncContext(nil))
	n, ok := got.(value.Number)
	if !ok || n.Value != 5 {
		t.Fatalf("2 + 3 = %v, want Number(5)", got)
	}
}

func TestStringConcatenation(t *testing.T) {
	it := newTestInterpreter()
	expr := &ast.BinaryExpression{Operator: "+", Left: lit("foo"), Right: lit("bar")}
	got := it.Eval(expr, it.Global, newAsyncContext(nil))
	s, ok := got.(value.String)
	if !ok || s.Value != "foobar" {
		t.Fatalf(`"foo" + "bar" = %v, want "foobar"`, got)
	}
}

func TestLetBindingAndReassignment(t *testing.T) {
	it := newTestInterpreter()
	stmts := []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: ident("x"), Init: lit(float64(1))},
		}},
		&ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
			Operator: "=", Target: ident("x"), Value: lit(float64(9)),
		}},
	}
	run(it, stmts)
	v, ok := it.Global.Get("x")
	if !ok || v.(value.Number).Value != 9 {
		t.Fatalf("x = %v, want Number(9)", v)
	}
}

func TestConstReassignmentThrows(t *testing.T) {
	it := newTestInterpreter()
	stmts := []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarConst, Declarations: []*ast.VariableDeclarator{
			{ID: ident("c"), Init: lit(float64(1))},
		}},
	}
	run(it, stmts)
	result := it.Eval(&ast.AssignmentExpression{Operator: "=", Target: ident("c"), Value: lit(float64(2))}, it.Global, newAsyncContext(nil))
	if _, ok := result.(*throwSignal); !ok {
		t.Fatalf("reassigning const should throw, got %T", result)
	}
}

func TestIfElseBranches(t *testing.T) {
	it := newTestInterpreter()
	stmt := &ast.IfStatement{
		Test: lit(false),
		Consequent: &ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
			Operator: "=", Target: ident("hit"), Value: lit("then"),
		}},
		Alternate: &ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
			Operator: "=", Target: ident("hit"), Value: lit("else"),
		}},
	}
	it.Global.Define("hit", value.TheUndefined, 0)
	it.Eval(stmt, it.Global, newAsyncContext(nil))
	v, _ := it.Global.Get("hit")
	if v.(value.String).Value != "else" {
		t.Fatalf("hit = %v, want else", v)
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	it := newTestInterpreter()
	it.Global.Define("i", value.Number{Value: 0}, 0)
	it.Global.Define("sum", value.Number{Value: 0}, 0)

	loop := &ast.WhileStatement{
		Test: &ast.BinaryExpression{Operator: "<", Left: ident("i"), Right: lit(float64(5))},
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
				Operator: "+=", Target: ident("sum"), Value: ident("i"),
			}},
			&ast.ExpressionStatement{Expression: &ast.UpdateExpression{
				Operator: ast.UpdateIncrement, Argument: ident("i"), Prefix: false,
			}},
		}},
	}
	it.Eval(loop, it.Global, newAsyncContext(nil))

	v, _ := it.Global.Get("sum")
	if v.(value.Number).Value != 10 { // 0+1+2+3+4
		t.Fatalf("sum = %v, want 10", v)
	}
}

func TestBreakExitsLoop(t *testing.T) {
	it := newTestInterpreter()
	it.Global.Define("i", value.Number{Value: 0}, 0)

	loop := &ast.WhileStatement{
		Test: lit(true),
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.IfStatement{
				Test:       &ast.BinaryExpression{Operator: ">=", Left: ident("i"), Right: lit(float64(3))},
				Consequent: &ast.BreakStatement{},
			},
			&ast.ExpressionStatement{Expression: &ast.UpdateExpression{
				Operator: ast.UpdateIncrement, Argument: ident("i"), Prefix: false,
			}},
		}},
	}
	it.Eval(loop, it.Global, newAsyncContext(nil))
	v, _ := it.Global.Get("i")
	if v.(value.Number).Value != 3 {
		t.Fatalf("i = %v, want 3", v)
	}
}

func TestFunctionCallAndClosure(t *testing.T) {
	it := newTestInterpreter()
	// function makeAdder(a) { return function(b) { return a + b; }; }
	inner := &ast.FunctionExpression{
		Params: []*ast.Identifier{{Name: "b"}},
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ReturnStatement{Argument: &ast.BinaryExpression{Operator: "+", Left: ident("a"), Right: ident("b")}},
		}},
	}
	makeAdder := &ast.FunctionDeclaration{
		Name:   "makeAdder",
		Params: []*ast.Identifier{{Name: "a"}},
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ReturnStatement{Argument: inner},
		}},
	}
	run(it, []ast.Statement{makeAdder})

	stmts := []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: ident("add5"), Init: &ast.CallExpression{Callee: ident("makeAdder"), Arguments: []ast.Expression{lit(float64(5))}}},
		}},
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: ident("result"), Init: &ast.CallExpression{Callee: ident("add5"), Arguments: []ast.Expression{lit(float64(10))}}},
		}},
	}
	run(it, stmts)

	v, ok := it.Global.Get("result")
	if !ok || v.(value.Number).Value != 15 {
		t.Fatalf("result = %v, want 15", v)
	}
}

// Function declarations are pre-hoisted before a block/program body runs,
// so a call appearing before the declaration still resolves (spec.md
// §4.1/§4.3).
func TestFunctionDeclarationIsHoisted(t *testing.T) {
	it := newTestInterpreter()
	f := &ast.FunctionDeclaration{
		Name: "f",
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ReturnStatement{Argument: lit(float64(42))},
		}},
	}
	program := &ast.Program{Body: []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: ident("result"), Init: &ast.CallExpression{Callee: ident("f")}},
		}},
		f,
	}}
	it.RunProgram(program)

	if len(it.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", it.Errors)
	}
	v, ok := it.Global.Get("result")
	if !ok || v.(value.Number).Value != 42 {
		t.Fatalf("result = %v, want 42 (f should be callable before its declaration)", v)
	}
}

// RunProgram wraps the whole run in a virtual <global> call-stack frame
// (spec.md §4.9), so the trace's PUSH_STACK/POP_STACK pairs are always
// balanced and never start from an empty stack.
func TestRunProgramEmitsGlobalFrame(t *testing.T) {
	it := newTestInterpreter()
	program := &ast.Program{Body: []ast.Statement{
		&ast.VariableDeclaration{Kind: ast.VarLet, Declarations: []*ast.VariableDeclarator{
			{ID: ident("x"), Init: lit(float64(1))},
		}},
	}}
	it.RunProgram(program)

	steps := it.Trace.Steps
	if len(steps) < 2 {
		t.Fatalf("expected at least PUSH_STACK/POP_STACK, got %v", steps)
	}
	if steps[0].Type != trace.PushStack || steps[0].Name != "<global>" {
		t.Fatalf("first step = %+v, want PUSH_STACK <global>", steps[0])
	}
	last := steps[len(steps)-1]
	if last.Type != trace.PopStack || last.Name != "<global>" {
		t.Fatalf("last step = %+v, want POP_STACK <global>", last)
	}
}

func TestTryCatchRecoversThrow(t *testing.T) {
	it := newTestInterpreter()
	stmt := &ast.TryStatement{
		Block: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ThrowStatement{Argument: lit("boom")},
		}},
		Handler: &ast.CatchClause{
			Param: ident("e"),
			Body: &ast.BlockStatement{Body: []ast.Statement{
				&ast.ExpressionStatement{Expression: &ast.AssignmentExpression{
					Operator: "=", Target: ident("caught"), Value: ident("e"),
				}},
			}},
		},
	}
	it.Global.Define("caught", value.TheUndefined, 0)
	result := it.Eval(stmt, it.Global, newAsyncContext(nil))
	if _, ok := result.(*throwSignal); ok {
		t.Fatalf("try/catch should have recovered the throw, got %v", result)
	}
	v, _ := it.Global.Get("caught")
	if v.(value.String).Value != "boom" {
		t.Fatalf("caught = %v, want boom", v)
	}
}

func TestArrayAndObjectLiterals(t *testing.T) {
	it := newTestInterpreter()
	arrExpr := &ast.ArrayExpression{Elements: []ast.Expression{lit(float64(1)), lit(float64(2))}}
	arr := it.Eval(arrExpr, it.Global, newAsyncContext(nil)).(*value.Array)
	if len(arr.Elements) != 2 {
		t.Fatalf("array literal length = %d, want 2", len(arr.Elements))
	}

	objExpr := &ast.ObjectExpression{Properties: []*ast.Property{
		{Key: ident("x"), Value: lit(float64(1))},
	}}
	obj := it.Eval(objExpr, it.Global, newAsyncContext(nil)).(*value.Object)
	v, ok := obj.Get("x")
	if !ok || v.(value.Number).Value != 1 {
		t.Fatalf("object literal x = %v, want 1", v)
	}
}

func TestTypeofOperator(t *testing.T) {
	it := newTestInterpreter()
	it.Global.Define("x", value.Number{Value: 1}, 0)
	expr := &ast.UnaryExpression{Operator: ast.UnaryTypeof, Argument: ident("x")}
	got := it.Eval(expr, it.Global, newAsyncContext(nil))
	if got.(value.String).Value != "number" {
		t.Fatalf("typeof x = %v, want number", got)
	}
}
