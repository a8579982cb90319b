// The JSON global (spec.md §4.6): parse backed by gjson (walking its
// Result tree into the runtime value model), stringify built incrementally
// with sjson.SetRaw rather than encoding/json, since the value model's
// Array/Object are not plain Go structs reflection could walk directly.
package builtins

import (
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cwbudde/go-jsrt/internal/interp"
	"github.com/cwbudde/go-jsrt/internal/value"
)

func installJSON(it *interp.Interpreter) *value.Object {
	j := value.NewObject()
	j.Set("parse", nativeFn("JSON.parse", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return nil, interp.Throw(jsonSyntaxError("Unexpected end of JSON input"))
		}
		text := args[0].String()
		if !gjson.Valid(text) {
			return nil, interp.Throw(jsonSyntaxError("Unexpected token in JSON"))
		}
		return gjsonToValue(gjson.Parse(text)), nil
	}))
	j.Set("stringify", nativeFn("JSON.stringify", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.TheUndefined, nil
		}
		raw, ok := stringifyValue(args[0])
		if !ok {
			return value.TheUndefined, nil
		}
		return value.String{Value: raw}, nil
	}))
	return j
}

func jsonSyntaxError(msg string) value.Value {
	o := value.NewObject()
	o.Set("name", value.String{Value: "SyntaxError"})
	o.Set("message", value.String{Value: msg})
	return o
}

func gjsonToValue(r gjson.Result) value.Value {
	switch r.Type {
	case gjson.Null:
		return value.TheNull
	case gjson.False:
		return value.Bool{Value: false}
	case gjson.True:
		return value.Bool{Value: true}
	case gjson.Number:
		return value.Number{Value: r.Num}
	case gjson.String:
		return value.String{Value: r.Str}
	case gjson.JSON:
		if r.IsArray() {
			var elems []value.Value
			r.ForEach(func(_, v gjson.Result) bool {
				elems = append(elems, gjsonToValue(v))
				return true
			})
			return &value.Array{Elements: elems}
		}
		obj := value.NewObject()
		r.ForEach(func(k, v gjson.Result) bool {
			obj.Set(k.String(), gjsonToValue(v))
			return true
		})
		return obj
	default:
		return value.TheUndefined
	}
}

// stringifyValue returns the raw JSON text for v, and false for values
// JSON.stringify drops entirely (undefined, functions — spec.md §4.6).
func stringifyValue(v value.Value) (string, bool) {
	switch vv := v.(type) {
	case value.Undefined:
		return "", false
	case value.Null:
		return "null", true
	case value.Bool:
		if vv.Value {
			return "true", true
		}
		return "false", true
	case value.Number:
		if vv.Value != vv.Value || math.IsInf(vv.Value, 0) { // NaN and +-Inf serialize as null
			return "null", true
		}
		return strconv.FormatFloat(vv.Value, 'g', -1, 64), true
	case value.String:
		return strconv.Quote(vv.Value), true
	case *value.Array:
		raw := "[]"
		for i, el := range vv.Elements {
			elRaw, ok := stringifyValue(el)
			if !ok {
				elRaw = "null"
			}
			var err error
			raw, err = sjson.SetRaw(raw, strconv.Itoa(i), elRaw)
			if err != nil {
				return "null", true
			}
		}
		return raw, true
	case *value.Object:
		raw := "{}"
		for _, k := range vv.Keys() {
			val, _ := vv.Get(k)
			elRaw, ok := stringifyValue(val)
			if !ok {
				continue
			}
			var err error
			raw, err = sjson.SetRaw(raw, sjsonKey(k), elRaw)
			if err != nil {
				return "{}", true
			}
		}
		return raw, true
	case *value.NativeFunction, *value.UserFunction:
		return "", false
	default:
		return "null", true
	}
}

// sjsonKey escapes a property name that itself contains sjson path
// metacharacters ('.', '*', '?') so it is treated as a literal key.
func sjsonKey(k string) string {
	needsEscape := false
	for _, r := range k {
		if r == '.' || r == '*' || r == '?' {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return k
	}
	escaped := make([]rune, 0, len(k))
	for _, r := range k {
		if r == '.' || r == '*' || r == '?' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return string(escaped)
}
