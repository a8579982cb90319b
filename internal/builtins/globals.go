// Free global functions and the Array/Date namespace objects spec.md
// §4.6 names: parseInt/parseFloat/isNaN/isFinite/String/Number/Boolean,
// Array.from/Array.isArray, Date.now (virtual-clock-backed, spec.md §4.8's
// determinism requirement rules out wall-clock time).
package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func installGlobalFunctions(it *interp.Interpreter, global globalSetter) {
	global.Set("parseInt", nativeFn("parseInt", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number{Value: math.NaN()}, nil
		}
		s := strings.TrimSpace(args[0].String())
		base := 10
		if len(args) > 1 {
			if b := int(toNumberArg(args[1])); b != 0 {
				base = b
			}
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		} else if strings.HasPrefix(s, "+") {
			s = s[1:]
		}
		if (base == 16 || base == 10) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			s = s[2:]
			base = 16
		}
		end := 0
		for end < len(s) && isDigitInBase(s[end], base) {
			end++
		}
		if end == 0 {
			return value.Number{Value: math.NaN()}, nil
		}
		n, err := strconv.ParseInt(s[:end], base, 64)
		if err != nil {
			return value.Number{Value: math.NaN()}, nil
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return value.Number{Value: f}, nil
	}))

	global.Set("parseFloat", nativeFn("parseFloat", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number{Value: math.NaN()}, nil
		}
		s := strings.TrimSpace(args[0].String())
		end := len(s)
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
				continue
			}
			end = i
			break
		}
		f, err := strconv.ParseFloat(s[:end], 64)
		if err != nil {
			return value.Number{Value: math.NaN()}, nil
		}
		return value.Number{Value: f}, nil
	}))

	global.Set("isNaN", nativeFn("isNaN", func(_ any, args []value.Value) (value.Value, error) {
		f := toNumberArg(firstArg(args))
		return value.Bool{Value: f != f}, nil
	}))
	global.Set("isFinite", nativeFn("isFinite", func(_ any, args []value.Value) (value.Value, error) {
		f := toNumberArg(firstArg(args))
		return value.Bool{Value: !math.IsNaN(f) && !math.IsInf(f, 0)}, nil
	}))
	global.Set("String", nativeFn("String", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String{Value: ""}, nil
		}
		return value.String{Value: args[0].String()}, nil
	}))
	global.Set("Number", nativeFn("Number", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number{Value: 0}, nil
		}
		return value.Number{Value: toNumberArg(args[0])}, nil
	}))
	global.Set("Boolean", nativeFn("Boolean", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool{Value: false}, nil
		}
		return value.Bool{Value: value.IsTruthy(args[0])}, nil
	}))

	arrayNS := value.NewObject()
	arrayNS.Set("isArray", nativeFn("Array.isArray", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool{Value: false}, nil
		}
		_, ok := args[0].(*value.Array)
		return value.Bool{Value: ok}, nil
	}))
	arrayNS.Set("from", nativeFn("Array.from", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return &value.Array{}, nil
		}
		items := arrayLikeElements(args[0])
		if len(args) > 1 {
			mapFn := args[1]
			mapped := make([]value.Value, len(items))
			for i, it2 := range items {
				v, err := it.CallFunction(mapFn, []value.Value{it2, value.Number{Value: float64(i)}})
				if err != nil {
					return nil, err
				}
				mapped[i] = v
			}
			return &value.Array{Elements: mapped}, nil
		}
		return &value.Array{Elements: items}, nil
	}))
	arrayNS.Set("of", nativeFn("Array.of", func(_ any, args []value.Value) (value.Value, error) {
		return &value.Array{Elements: append([]value.Value{}, args...)}, nil
	}))
	global.Set("Array", arrayNS)

	dateNS := value.NewObject()
	dateNS.Set("now", nativeFn("Date.now", func(_ any, _ []value.Value) (value.Value, error) {
		return value.Number{Value: float64(it.Sched.NowMs())}, nil
	}))
	global.Set("Date", dateNS)
}

func firstArg(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.TheUndefined
	}
	return args[0]
}

func isDigitInBase(c byte, base int) bool {
	var d int
	switch {
	case c >= '0' && c <= '9':
		d = int(c - '0')
	case c >= 'a' && c <= 'z':
		d = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		d = int(c-'A') + 10
	default:
		return false
	}
	return d < base
}

func arrayLikeElements(v value.Value) []value.Value {
	switch vv := v.(type) {
	case *value.Array:
		return append([]value.Value{}, vv.Elements...)
	case value.String:
		runes := []rune(vv.Value)
		out := make([]value.Value, len(runes))
		for i, r := range runes {
			out[i] = value.String{Value: string(r)}
		}
		return out
	default:
		return nil
	}
}
