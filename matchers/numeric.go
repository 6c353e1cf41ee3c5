package matchers

import (
	"fmt"
	"time"

	"github.com/golobby/cast"

	"github.com/GoCodeAlone/split-go-core/dto"
)

type numericOp func(value, arg float64) bool

func eqOp(value, arg float64) bool { return value == arg }
func geOp(value, arg float64) bool { return value >= arg }
func leOp(value, arg float64) bool { return value <= arg }

// asNumber coerces an attribute value to float64, honoring the matcher's
// declared DataType. DATETIME values are normalized to a Unix timestamp so
// that the datetime-suffixed matcher variants can reuse the same numeric
// comparison operators as plain numbers. Values are compared at full
// precision: nothing is truncated to day or minute granularity.
//
// golobby/cast absorbs the int/int64/float32/json.Number zoo that attribute
// maps tend to arrive in without this package hand-rolling a type switch
// per numeric kind.
func asNumber(m dto.Matcher, v interface{}) (float64, bool) {
	switch m.DataType {
	case dto.DataTypeDatetime:
		return asUnixSeconds(v)
	default:
		return toFloat64(v)
	}
}

func asUnixSeconds(v interface{}) (float64, bool) {
	if t, ok := v.(time.Time); ok {
		return float64(t.Unix()), true
	}
	return toFloat64(v)
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		return 0, false
	case nil:
		return 0, false
	}
	converted, err := cast.FromString(fmt.Sprintf("%v", v), "float64")
	if err != nil {
		return 0, false
	}
	f, ok := converted.(float64)
	return f, ok
}

func matchNumeric(m dto.Matcher, key dto.Key, attrs map[string]interface{}, op numericOp) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	n, ok := asNumber(m, v)
	if !ok {
		return false
	}
	return op(n, m.NumberArg)
}

func matchBetween(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	n, ok := asNumber(m, v)
	if !ok {
		return false
	}
	return n >= m.LowArg && n <= m.HighArg
}
