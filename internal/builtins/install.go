// Package builtins populates an Interpreter's global scope (spec.md
// §4.6): console, setTimeout family, queueMicrotask/process.nextTick/
// setImmediate, Math, JSON, Promise's static methods, Array/Date/String/
// Number/Boolean globals, and parseInt/parseFloat/isNaN/isFinite.
// Registered via Interpreter.SetBuiltinInstaller rather than imported
// directly by internal/interp, avoiding an import cycle (interp needs
// Install to run after New but builtins needs *interp.Interpreter).
package builtins

import (
	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/scope"
	"github.com/cwbudde/go-jsrt/internal/value"
)

// globalSetter is the minimal surface installTimers/installGlobalFunctions
// need to register a binding: satisfied both by a namespace *value.Object
// (for "Math.floor"-style grouped built-ins) and by scopeSetter below (for
// names that live directly in the global scope, like setTimeout).
type globalSetter interface {
	Set(name string, v value.Value)
}

// scopeSetter adapts *scope.Environment to globalSetter so
// installTimers/installGlobalFunctions can define bare global names
// (setTimeout, process, parseInt, ...) the same way installMath/
// installConsole populate a namespace object.
type scopeSetter struct{ env *scope.Environment }

func (s scopeSetter) Set(name string, v value.Value) { s.env.Define(name, v, scope.KindConst) }

// Install registers every built-in global on it.Global. Call once per
// fresh Interpreter, before RunProgram.
func Install(it *interp.Interpreter) {
	define := func(name string, v value.Value) { it.Global.Define(name, v, scope.KindConst) }

	define("console", installConsole(it))
	define("Math", installMath(it))
	define("JSON", installJSON(it))
	define("Promise", installPromise(it))

	global := scopeSetter{env: it.Global}
	installTimers(it, global)
	installGlobalFunctions(it, global)
}
