// console.log/warn/error (spec.md §4.6): every call both appends a
// trace.ConsoleEntry to the interpreter's parallel console stream and
// emits a CONSOLE_* trace step, so a host UI can replay console output
// at the exact point in the trace it was produced.
package builtins

import (
	"strings"

	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/trace"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func installConsole(it *interp.Interpreter) *value.Object {
	console := value.NewObject()
	console.Set("log", consoleMethod(it, "log", trace.ConsoleLog))
	console.Set("warn", consoleMethod(it, "warn", trace.ConsoleWarn))
	console.Set("error", consoleMethod(it, "error", trace.ConsoleError))
	console.Set("info", consoleMethod(it, "log", trace.ConsoleLog))
	console.Set("debug", consoleMethod(it, "log", trace.ConsoleLog))
	return console
}

func consoleMethod(it *interp.Interpreter, level string, stepType trace.StepType) *value.NativeFunction {
	return &value.NativeFunction{Name: "console." + level, Fn: func(_ any, args []value.Value) (value.Value, error) {
		texts := make([]string, len(args))
		raw := make([]any, len(args))
		for i, a := range args {
			texts[i] = a.String()
			raw[i] = a
		}
		text := strings.Join(texts, " ")
		it.Console = append(it.Console, trace.ConsoleEntry{Level: level, Text: text, Raw: raw})
		it.Emit(trace.ExecutionStep{Type: stepType, ConsoleArgs: texts, ConsoleRaw: raw})
		return value.TheUndefined, nil
	}}
}
