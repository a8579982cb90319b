// Package jsrt is the public facade of the JavaScript runtime simulator
// (spec.md §6): construct an Engine with functional options, then Run an
// already-parsed program (the AST parser is explicitly out of scope,
// spec.md §1/§13) to get back the ordered ExecutionStep trace, console
// stream, and any runtime errors. Grounded on the teacher's pkg/dwscript
// (confirmed via pkg/dwscript/*_test.go, the only files of that package
// the pack retrieved): `engine, err := New(opts...)` with functional
// `With*` options, one `Result` struct returned from the run entry point.
package jsrt

import (
	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/builtins"
	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/scheduler"
	"github.com/cwbudde/go-jsrt/internal/trace"
)

// Mode selects the event-loop algorithm (spec.md §4.8).
type Mode = scheduler.Mode

const (
	Browser = scheduler.Browser
	Node    = scheduler.Node
)

// config collects the options New accepts.
type config struct {
	mode         Mode
	iterationCap int
	drainCap     int
	maxCallDepth int
}

// Option configures an Engine at construction, in the teacher's
// `With*`-returns-`Option` idiom.
type Option func(*config)

// WithMode selects Browser (default) or Node loop semantics.
func WithMode(m Mode) Option { return func(c *config) { c.mode = m } }

// WithIterationCap overrides the event loop's outer iteration safety net
// (spec.md §4.8, §9; default scheduler.DefaultIterationCap).
func WithIterationCap(n int) Option { return func(c *config) { c.iterationCap = n } }

// WithDrainCap overrides the per-drain microtask safety net (default
// scheduler.DefaultDrainCap).
func WithDrainCap(n int) Option { return func(c *config) { c.drainCap = n } }

// WithMaxCallDepth overrides the call-stack overflow guard (default
// jserrors.DefaultMaxCallDepth).
func WithMaxCallDepth(n int) Option { return func(c *config) { c.maxCallDepth = n } }

// Engine runs one program per Run call against a fresh interpreter and
// scheduler (spec.md §9); Engine itself only remembers its configured
// options. Promise ids are the exception: they come from a package-level
// counter in internal/promise that is not reset between runs.
type Engine struct {
	cfg config
}

// New constructs an Engine. It never fails today (there is no fallible
// setup step), but returns an error to match the teacher's
// `engine, err := New(...)` call shape and leave room for future
// validation of option combinations.
func New(opts ...Option) (*Engine, error) {
	cfg := config{
		mode:         Browser,
		iterationCap: scheduler.DefaultIterationCap,
		drainCap:     scheduler.DefaultDrainCap,
		maxCallDepth: jserrors.DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{cfg: cfg}, nil
}

// Result is the engine's sole output (spec.md §6): the ordered step
// trace, the parallel console stream, and any runtime errors encountered.
type Result struct {
	Trace   []trace.ExecutionStep
	Console []trace.ConsoleEntry
	Errors  []*jserrors.RuntimeError
}

// Run evaluates program to completion: the top-level statements run
// synchronously, then the configured event loop drains every queued
// microtask/macrotask/timer until nothing remains or a safety cap is hit
// (spec.md §4.8, §4.9). source is the original text, used only for
// error-message caret rendering (spec.md §7); pass "" if unavailable.
func (e *Engine) Run(program *ast.Program, source string) Result {
	tr := &trace.Trace{}
	sched := scheduler.New(e.cfg.mode, tr, scheduler.WithIterationCap(e.cfg.iterationCap), scheduler.WithDrainCap(e.cfg.drainCap))
	it := interp.New(sched, tr, source)
	it.Calls = jserrors.NewCallStack(e.cfg.maxCallDepth)
	it.SetBuiltinInstaller(builtins.Install)
	it.InstallBuiltins()

	// A scheduler safety cap hit surfaces as a runtime error rather than a
	// silent stop, with the partial trace still returned (spec.md §7).
	sched.SetOverflowHandler(func(message string) {
		it.ReportError(jserrors.New(jserrors.KindRange, "%s", message))
	})

	it.RunProgram(program)
	sched.Run()

	return Result{Trace: tr.Steps, Console: it.Console, Errors: it.Errors}
}
