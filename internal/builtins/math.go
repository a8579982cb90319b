// The Math global (spec.md §4.6): a plain object of constants and
// Go-math-backed functions, mirroring the teacher's pattern of exposing a
// namespace object rather than free functions for a grouped built-in
// surface (see internal/interp's string/array builtin tables).
package builtins

import (
	"math"

	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func installMath(_ *interp.Interpreter) *value.Object {
	m := value.NewObject()
	m.Set("PI", value.Number{Value: math.Pi})
	m.Set("E", value.Number{Value: math.E})
	m.Set("LN2", value.Number{Value: math.Ln2})
	m.Set("LN10", value.Number{Value: math.Log(10)})
	m.Set("SQRT2", value.Number{Value: math.Sqrt2})

	unary := func(name string, fn func(float64) float64) {
		m.Set(name, nativeFn("Math."+name, func(_ any, args []value.Value) (value.Value, error) {
			return value.Number{Value: fn(arg0(args))}, nil
		}))
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("sqrt", math.Sqrt)
	unary("cbrt", math.Cbrt)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("log", math.Log)
	unary("log2", math.Log2)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("sign", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	})
	unary("trunc", math.Trunc)
	unary("round", func(f float64) float64 { return math.Floor(f + 0.5) })

	m.Set("pow", nativeFn("Math.pow", func(_ any, args []value.Value) (value.Value, error) {
		return value.Number{Value: math.Pow(argAt(args, 0), argAt(args, 1))}, nil
	}))
	m.Set("max", nativeFn("Math.max", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number{Value: math.Inf(-1)}, nil
		}
		best := argAt(args, 0)
		for _, a := range args[1:] {
			best = math.Max(best, toNumberArg(a))
		}
		return value.Number{Value: best}, nil
	}))
	m.Set("min", nativeFn("Math.min", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number{Value: math.Inf(1)}, nil
		}
		best := argAt(args, 0)
		for _, a := range args[1:] {
			best = math.Min(best, toNumberArg(a))
		}
		return value.Number{Value: best}, nil
	}))
	m.Set("random", nativeFn("Math.random", func(_ any, _ []value.Value) (value.Value, error) {
		// Deterministic replay (spec.md §7's Determinism law) precludes a
		// real PRNG: every call returns the same fixed value.
		return value.Number{Value: 0.5}, nil
	}))

	return m
}

func arg0(args []value.Value) float64 { return argAt(args, 0) }

func argAt(args []value.Value, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	return toNumberArg(args[i])
}
