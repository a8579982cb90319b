package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/go-jsrt/internal/value"
)

// toNumberArg mirrors interp's unexported toNumber coercion (spec.md
// §4.2) for the small set of cases builtins need; duplicated rather than
// exported from interp to keep that coercion table a single Eval-facing
// concern.
func toNumberArg(v value.Value) float64 {
	switch n := v.(type) {
	case value.Number:
		return n.Value
	case value.Bool:
		if n.Value {
			return 1
		}
		return 0
	case value.String:
		s := strings.TrimSpace(n.Value)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case value.Null:
		return 0
	default:
		return math.NaN()
	}
}
