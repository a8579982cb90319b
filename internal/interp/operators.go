// Operator and coercion semantics (spec.md §4.2). Grounded on the
// teacher's internal/interp/evaluator coercion helpers (conversion.go,
// string_helpers.go): a handful of free toX functions plus one dispatcher
// per operator family, rather than a method per Value type.
package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/go-jsrt/internal/ast"
	"github.com/cwbudde/go-jsrt/internal/jserrors"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func nan() float64    { return math.NaN() }
func posInf() float64 { return math.Inf(1) }

func isNullish(v value.Value) bool {
	switch v.(type) {
	case value.Undefined, value.Null:
		return true
	default:
		return false
	}
}

func typeofValue(v value.Value) string {
	switch v.(type) {
	case value.Undefined:
		return "undefined"
	case value.Null:
		return "object" // spec.md §4.2: famous JS quirk, preserved deliberately
	case value.Bool:
		return "boolean"
	case value.Number:
		return "number"
	case value.String:
		return "string"
	case *value.UserFunction, *value.NativeFunction:
		return "function"
	default:
		return "object"
	}
}

func toNumber(v value.Value) float64 {
	switch n := v.(type) {
	case value.Number:
		return n.Value
	case value.Bool:
		if n.Value {
			return 1
		}
		return 0
	case value.Undefined:
		return nan()
	case value.Null:
		return 0
	case value.String:
		s := strings.TrimSpace(n.Value)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nan()
		}
		return f
	case *value.Array:
		if len(n.Elements) == 0 {
			return 0
		}
		if len(n.Elements) == 1 {
			return toNumber(n.Elements[0])
		}
		return nan()
	default:
		return nan()
	}
}

func toStringValue(v value.Value) string { return v.String() }

func applyUnary(op ast.UnaryOperator, v value.Value) value.Value {
	switch op {
	case ast.UnaryMinus:
		return value.Number{Value: -toNumber(v)}
	case ast.UnaryPlus:
		return value.Number{Value: toNumber(v)}
	case ast.UnaryNot:
		return value.Bool{Value: !value.IsTruthy(v)}
	case ast.UnaryBitNot:
		return value.Number{Value: float64(^toInt32(toNumber(v)))}
	case ast.UnaryVoid:
		return value.TheUndefined
	default:
		return value.TheUndefined
	}
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(int64(f))
}

func applyBinary(op string, left, right value.Value) value.Value {
	switch op {
	case "+":
		if isStringLike(left) || isStringLike(right) {
			return value.String{Value: toStringValue(left) + toStringValue(right)}
		}
		return value.Number{Value: toNumber(left) + toNumber(right)}
	case "-":
		return value.Number{Value: toNumber(left) - toNumber(right)}
	case "*":
		return value.Number{Value: toNumber(left) * toNumber(right)}
	case "/":
		return value.Number{Value: toNumber(left) / toNumber(right)}
	case "%":
		return value.Number{Value: math.Mod(toNumber(left), toNumber(right))}
	case "**":
		return value.Number{Value: math.Pow(toNumber(left), toNumber(right))}
	case "<":
		return compareValues(left, right, func(a, b float64) bool { return a < b }, func(a, b string) bool { return a < b })
	case "<=":
		return compareValues(left, right, func(a, b float64) bool { return a <= b }, func(a, b string) bool { return a <= b })
	case ">":
		return compareValues(left, right, func(a, b float64) bool { return a > b }, func(a, b string) bool { return a > b })
	case ">=":
		return compareValues(left, right, func(a, b float64) bool { return a >= b }, func(a, b string) bool { return a >= b })
	case "==":
		return value.Bool{Value: looseEquals(left, right)}
	case "!=":
		return value.Bool{Value: !looseEquals(left, right)}
	case "===":
		return value.Bool{Value: strictEquals(left, right)}
	case "!==":
		return value.Bool{Value: !strictEquals(left, right)}
	case "&":
		return value.Number{Value: float64(toInt32(toNumber(left)) & toInt32(toNumber(right)))}
	case "|":
		return value.Number{Value: float64(toInt32(toNumber(left)) | toInt32(toNumber(right)))}
	case "^":
		return value.Number{Value: float64(toInt32(toNumber(left)) ^ toInt32(toNumber(right)))}
	case "<<":
		return value.Number{Value: float64(toInt32(toNumber(left)) << (toInt32(toNumber(right)) & 31))}
	case ">>":
		return value.Number{Value: float64(toInt32(toNumber(left)) >> (toInt32(toNumber(right)) & 31))}
	case ">>>":
		return value.Number{Value: float64(uint32(toInt32(toNumber(left))) >> (toInt32(toNumber(right)) & 31))}
	case "instanceof":
		// spec.md §9 open question: instanceof always reports false rather
		// than walking a prototype chain this engine does not model.
		return value.Bool{Value: false}
	case "in":
		return value.Bool{Value: hasProperty(left, right)}
	default:
		return &throwSignal{value: errorValueFrom(jserrors.New(jserrors.KindType, "unsupported operator %q", op))}
	}
}

func isStringLike(v value.Value) bool {
	_, ok := v.(value.String)
	return ok
}

func compareValues(left, right value.Value, numCmp func(a, b float64) bool, strCmp func(a, b string) bool) value.Value {
	if ls, lok := left.(value.String); lok {
		if rs, rok := right.(value.String); rok {
			return value.Bool{Value: strCmp(ls.Value, rs.Value)}
		}
	}
	a, b := toNumber(left), toNumber(right)
	if math.IsNaN(a) || math.IsNaN(b) {
		return value.Bool{Value: false}
	}
	return value.Bool{Value: numCmp(a, b)}
}

func strictEquals(a, b value.Value) bool {
	switch av := a.(type) {
	case value.Undefined:
		_, ok := b.(value.Undefined)
		return ok
	case value.Null:
		_, ok := b.(value.Null)
		return ok
	case value.Bool:
		bv, ok := b.(value.Bool)
		return ok && av.Value == bv.Value
	case value.Number:
		bv, ok := b.(value.Number)
		return ok && av.Value == bv.Value && !math.IsNaN(av.Value)
	case value.String:
		bv, ok := b.(value.String)
		return ok && av.Value == bv.Value
	default:
		return a == b // reference identity for objects/arrays/functions
	}
}

func looseEquals(a, b value.Value) bool {
	if strictEquals(a, b) {
		return true
	}
	if isNullish(a) && isNullish(b) {
		return true
	}
	if isNullish(a) || isNullish(b) {
		return false
	}
	_, aIsObj := a.(*value.Object)
	_, bIsObj := b.(*value.Object)
	_, aIsArr := a.(*value.Array)
	_, bIsArr := b.(*value.Array)
	if aIsObj || bIsObj || aIsArr || bIsArr {
		return strictEquals(a, b)
	}
	return toNumber(a) == toNumber(b)
}

func combineAssign(op string, current, rhs value.Value) value.Value {
	if op == "=" {
		return rhs
	}
	binOp := strings.TrimSuffix(op, "=")
	return applyBinary(binOp, current, rhs)
}

func arrayIndex(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func hasProperty(left, right value.Value) bool {
	key := toStringValue(left)
	switch r := right.(type) {
	case *value.Object:
		_, ok := r.Get(key)
		return ok
	case *value.Array:
		idx, ok := arrayIndex(key)
		return ok && idx >= 0 && idx < len(r.Elements)
	default:
		return false
	}
}
