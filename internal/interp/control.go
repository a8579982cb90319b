package interp

import (
	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// Control-flow is propagated as ordinary value.Value return values from
// Eval, inspected with a type assertion at the point that can act on
// them (isControl style, mirroring the teacher's isError(val) idiom).
// Deliberately NOT modeled as an *ExecutionContext field the way the
// teacher's ControlFlow.SetBreak/SetContinue/SetExit is (see DESIGN.md):
// `await` suspension must compose through the exact same propagation
// path as return/break/continue, and a single sentinel value composes
// far more simply than a ctx-side enum would once Suspended is added
// to the set.

// returnSignal unwinds to the nearest function call boundary.
type returnSignal struct{ value value.Value }

func (*returnSignal) Type() string   { return "return-signal" }
func (*returnSignal) String() string { return "[return]" }

// breakSignal unwinds to the nearest enclosing loop or switch, or to a
// specific label if non-empty.
type breakSignal struct{ label string }

func (*breakSignal) Type() string   { return "break-signal" }
func (*breakSignal) String() string { return "[break]" }

// continueSignal unwinds to the top of the nearest enclosing loop, or to
// a specific label if non-empty.
type continueSignal struct{ label string }

func (*continueSignal) Type() string   { return "continue-signal" }
func (*continueSignal) String() string { return "[continue]" }

// throwSignal carries a thrown JS value up through Eval until a
// try/catch handler (or the top-level Run) intercepts it.
type throwSignal struct{ value value.Value }

func (*throwSignal) Type() string   { return "throw-signal" }
func (*throwSignal) String() string { return "[throw]" }

// suspendSignal is produced by an `await` that is not yet ready to
// resume: it carries the continuation to run once the awaited promise
// settles (spec.md §4.7). It propagates exactly like the other signals
// through block/if/loop evaluation up to the innermost async function
// call, which attaches it to the awaited promise instead of returning to
// its caller.
type suspendSignal struct {
	awaited *promise.Promise
	resume  func(resumeValue value.Value, thrown value.Value) value.Value
}

func (*suspendSignal) Type() string   { return "suspend-signal" }
func (*suspendSignal) String() string { return "[suspended]" }

func isSignal(v value.Value) bool {
	switch v.(type) {
	case *returnSignal, *breakSignal, *continueSignal, *throwSignal, *suspendSignal:
		return true
	default:
		return false
	}
}

// isAbrupt reports whether evaluation of the current statement sequence
// must stop and propagate v upward unexamined (every signal except a
// plain value).
func isAbrupt(v value.Value) bool { return isSignal(v) }
