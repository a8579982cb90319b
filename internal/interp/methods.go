// Instance methods for the handful of built-in "prototypes" spec.md §4.6
// requires (Array, String, Number, Promise). There is no class/prototype
// model in this engine (spec.md Non-goals), so these are resolved by the
// Value's dynamic Go type directly in getProperty rather than via a
// prototype chain lookup, each returning a *value.NativeFunction closure
// bound over its receiver.
package interp

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/go-jsrt/internal/promise"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func native(name string, fn value.NativeGo) *value.NativeFunction {
	return &value.NativeFunction{Name: name, Fn: fn}
}

func (it *Interpreter) arrayMethod(arr *value.Array, name string) value.Value {
	switch name {
	case "push":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			arr.Elements = append(arr.Elements, args...)
			return value.Number{Value: float64(len(arr.Elements))}, nil
		})
	case "pop":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			if len(arr.Elements) == 0 {
				return value.TheUndefined, nil
			}
			last := arr.Elements[len(arr.Elements)-1]
			arr.Elements = arr.Elements[:len(arr.Elements)-1]
			return last, nil
		})
	case "shift":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			if len(arr.Elements) == 0 {
				return value.TheUndefined, nil
			}
			first := arr.Elements[0]
			arr.Elements = arr.Elements[1:]
			return first, nil
		})
	case "unshift":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			arr.Elements = append(append([]value.Value{}, args...), arr.Elements...)
			return value.Number{Value: float64(len(arr.Elements))}, nil
		})
	case "slice":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			start, end := sliceBounds(args, len(arr.Elements))
			out := append([]value.Value{}, arr.Elements[start:end]...)
			return &value.Array{Elements: out}, nil
		})
	case "splice":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			return spliceArray(arr, args), nil
		})
	case "concat":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			out := append([]value.Value{}, arr.Elements...)
			for _, a := range args {
				if other, ok := a.(*value.Array); ok {
					out = append(out, other.Elements...)
				} else {
					out = append(out, a)
				}
			}
			return &value.Array{Elements: out}, nil
		})
	case "join":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			sep := ","
			if len(args) > 0 {
				sep = args[0].String()
			}
			parts := make([]string, len(arr.Elements))
			for i, e := range arr.Elements {
				if isNullish(e) {
					parts[i] = ""
				} else {
					parts[i] = e.String()
				}
			}
			return value.String{Value: strings.Join(parts, sep)}, nil
		})
	case "indexOf":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Number{Value: -1}, nil
			}
			for i, e := range arr.Elements {
				if strictEquals(e, args[0]) {
					return value.Number{Value: float64(i)}, nil
				}
			}
			return value.Number{Value: -1}, nil
		})
	case "includes":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Bool{Value: false}, nil
			}
			for _, e := range arr.Elements {
				if strictEquals(e, args[0]) {
					return value.Bool{Value: true}, nil
				}
			}
			return value.Bool{Value: false}, nil
		})
	case "forEach":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.TheUndefined, nil
			}
			for i, e := range arr.Elements {
				if _, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr}); err != nil {
					return nil, err
				}
			}
			return value.TheUndefined, nil
		})
	case "map":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return &value.Array{}, nil
			}
			out := make([]value.Value, len(arr.Elements))
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return &value.Array{Elements: out}, nil
		})
	case "filter":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return &value.Array{}, nil
			}
			var out []value.Value
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				if value.IsTruthy(v) {
					out = append(out, e)
				}
			}
			return &value.Array{Elements: out}, nil
		})
	case "find":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.TheUndefined, nil
			}
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				if value.IsTruthy(v) {
					return e, nil
				}
			}
			return value.TheUndefined, nil
		})
	case "findIndex":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Number{Value: -1}, nil
			}
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				if value.IsTruthy(v) {
					return value.Number{Value: float64(i)}, nil
				}
			}
			return value.Number{Value: -1}, nil
		})
	case "some":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				if value.IsTruthy(v) {
					return value.Bool{Value: true}, nil
				}
			}
			return value.Bool{Value: false}, nil
		})
	case "every":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			for i, e := range arr.Elements {
				v, err := it.CallFunction(args[0], []value.Value{e, value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				if !value.IsTruthy(v) {
					return value.Bool{Value: false}, nil
				}
			}
			return value.Bool{Value: true}, nil
		})
	case "reduce":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return nil, Throw(value.String{Value: "Reduce of empty array with no initial value"})
			}
			i := 0
			var acc value.Value
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(arr.Elements) == 0 {
					return nil, Throw(value.String{Value: "Reduce of empty array with no initial value"})
				}
				acc = arr.Elements[0]
				i = 1
			}
			for ; i < len(arr.Elements); i++ {
				v, err := it.CallFunction(args[0], []value.Value{acc, arr.Elements[i], value.Number{Value: float64(i)}, arr})
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		})
	case "sort":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			var cmpErr error
			sort.SliceStable(arr.Elements, func(i, j int) bool {
				if cmpErr != nil {
					return false
				}
				if len(args) > 0 {
					v, err := it.CallFunction(args[0], []value.Value{arr.Elements[i], arr.Elements[j]})
					if err != nil {
						cmpErr = err
						return false
					}
					return toNumber(v) < 0
				}
				return arr.Elements[i].String() < arr.Elements[j].String()
			})
			if cmpErr != nil {
				return nil, cmpErr
			}
			return arr, nil
		})
	case "reverse":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
				arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
			}
			return arr, nil
		})
	case "flat":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			var out []value.Value
			for _, e := range arr.Elements {
				if inner, ok := e.(*value.Array); ok {
					out = append(out, inner.Elements...)
				} else {
					out = append(out, e)
				}
			}
			return &value.Array{Elements: out}, nil
		})
	case "fill":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			var v value.Value = value.TheUndefined
			if len(args) > 0 {
				v = args[0]
			}
			for i := range arr.Elements {
				arr.Elements[i] = v
			}
			return arr, nil
		})
	default:
		return nil
	}
}

func sliceBounds(args []value.Value, length int) (int, int) {
	start, end := 0, length
	if len(args) > 0 {
		start = normalizeIndex(toNumber(args[0]), length)
	}
	if len(args) > 1 {
		end = normalizeIndex(toNumber(args[1]), length)
	}
	if end < start {
		end = start
	}
	return start, end
}

func normalizeIndex(f float64, length int) int {
	i := int(f)
	if i < 0 {
		i += length
	}
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

func spliceArray(arr *value.Array, args []value.Value) value.Value {
	length := len(arr.Elements)
	start := 0
	if len(args) > 0 {
		start = normalizeIndex(toNumber(args[0]), length)
	}
	deleteCount := length - start
	if len(args) > 1 {
		deleteCount = int(toNumber(args[1]))
		if deleteCount < 0 {
			deleteCount = 0
		}
		if start+deleteCount > length {
			deleteCount = length - start
		}
	}
	removed := append([]value.Value{}, arr.Elements[start:start+deleteCount]...)
	var inserted []value.Value
	if len(args) > 2 {
		inserted = args[2:]
	}
	out := append([]value.Value{}, arr.Elements[:start]...)
	out = append(out, inserted...)
	out = append(out, arr.Elements[start+deleteCount:]...)
	arr.Elements = out
	return &value.Array{Elements: removed}
}

func (it *Interpreter) stringMethod(s value.String, name string) value.Value {
	str := s.Value
	switch name {
	case "charAt":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			runes := []rune(str)
			idx := 0
			if len(args) > 0 {
				idx = int(toNumber(args[0]))
			}
			if idx < 0 || idx >= len(runes) {
				return value.String{Value: ""}, nil
			}
			return value.String{Value: string(runes[idx])}, nil
		})
	case "slice", "substring":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			runes := []rune(str)
			start, end := sliceBounds(args, len(runes))
			return value.String{Value: string(runes[start:end])}, nil
		})
	case "split":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.NewArray(value.String{Value: str}), nil
			}
			sep := args[0].String()
			var parts []string
			if sep == "" {
				for _, r := range str {
					parts = append(parts, string(r))
				}
			} else {
				parts = strings.Split(str, sep)
			}
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.String{Value: p}
			}
			return &value.Array{Elements: out}, nil
		})
	case "toUpperCase":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			return value.String{Value: strings.ToUpper(str)}, nil
		})
	case "toLowerCase":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			return value.String{Value: strings.ToLower(str)}, nil
		})
	case "trim":
		return native(name, func(_ any, _ []value.Value) (value.Value, error) {
			return value.String{Value: strings.TrimSpace(str)}, nil
		})
	case "includes":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Bool{Value: false}, nil
			}
			return value.Bool{Value: strings.Contains(str, args[0].String())}, nil
		})
	case "indexOf":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Number{Value: -1}, nil
			}
			return value.Number{Value: float64(strings.Index(str, args[0].String()))}, nil
		})
	case "startsWith":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Bool{Value: false}, nil
			}
			return value.Bool{Value: strings.HasPrefix(str, args[0].String())}, nil
		})
	case "endsWith":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Bool{Value: false}, nil
			}
			return value.Bool{Value: strings.HasSuffix(str, args[0].String())}, nil
		})
	case "replace":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) < 2 {
				return value.String{Value: str}, nil
			}
			return value.String{Value: strings.Replace(str, args[0].String(), args[1].String(), 1)}, nil
		})
	case "replaceAll":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			if len(args) < 2 {
				return value.String{Value: str}, nil
			}
			return value.String{Value: strings.ReplaceAll(str, args[0].String(), args[1].String())}, nil
		})
	case "repeat":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			n := 0
			if len(args) > 0 {
				n = int(toNumber(args[0]))
			}
			if n < 0 {
				return nil, Throw(value.String{Value: "Invalid count value"})
			}
			return value.String{Value: strings.Repeat(str, n)}, nil
		})
	case "concat":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			var sb strings.Builder
			sb.WriteString(str)
			for _, a := range args {
				sb.WriteString(a.String())
			}
			return value.String{Value: sb.String()}, nil
		})
	case "padStart":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			return value.String{Value: padString(str, args, true)}, nil
		})
	case "padEnd":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			return value.String{Value: padString(str, args, false)}, nil
		})
	default:
		return nil
	}
}

func padString(str string, args []value.Value, start bool) string {
	if len(args) == 0 {
		return str
	}
	target := int(toNumber(args[0]))
	pad := " "
	if len(args) > 1 {
		pad = args[1].String()
	}
	runes := []rune(str)
	if len(runes) >= target || pad == "" {
		return str
	}
	need := target - len(runes)
	var sb strings.Builder
	for sb.Len() < need {
		sb.WriteString(pad)
	}
	padding := []rune(sb.String())[:need]
	if start {
		return string(padding) + str
	}
	return str + string(padding)
}

func (it *Interpreter) numberMethod(n value.Number, name string) value.Value {
	switch name {
	case "toFixed":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			digits := 0
			if len(args) > 0 {
				digits = int(toNumber(args[0]))
			}
			return value.String{Value: strconv.FormatFloat(n.Value, 'f', digits, 64)}, nil
		})
	case "toString":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			base := 10
			if len(args) > 0 {
				base = int(toNumber(args[0]))
			}
			if base == 10 {
				return value.String{Value: n.String()}, nil
			}
			if math.Trunc(n.Value) != n.Value {
				return value.String{Value: n.String()}, nil
			}
			return value.String{Value: strconv.FormatInt(int64(n.Value), base)}, nil
		})
	default:
		return nil
	}
}

func (it *Interpreter) promiseMethod(pv *value.Promise, name string) value.Value {
	p, _ := pv.Backing.(*promise.Promise)
	if p == nil {
		return nil
	}
	switch name {
	case "then":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			onF, onR := callbackArg(args, 0), callbackArg(args, 1)
			child := p.Then(onF, onR)
			return child.ToValue(), nil
		})
	case "catch":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			child := p.Catch(callbackArg(args, 0))
			return child.ToValue(), nil
		})
	case "finally":
		return native(name, func(_ any, args []value.Value) (value.Value, error) {
			var f value.Value
			if len(args) > 0 {
				f = args[0]
			}
			child := p.Finally(f)
			return child.ToValue(), nil
		})
	default:
		return nil
	}
}

func callbackArg(args []value.Value, i int) *promise.Callback {
	if i >= len(args) || args[i] == nil {
		return nil
	}
	if _, ok := args[i].(value.Undefined); ok {
		return nil
	}
	return &promise.Callback{Fn: args[i]}
}
