package matchers

import (
	"strings"

	"github.com/GoCodeAlone/split-go-core/dto"
)

type stringOp func(value, arg string) bool

func containsOp(value, arg string) bool  { return strings.Contains(value, arg) }
func startsWithOp(value, arg string) bool { return strings.HasPrefix(value, arg) }
func endsWithOp(value, arg string) bool   { return strings.HasSuffix(value, arg) }

func matchStringOp(m dto.Matcher, key dto.Key, attrs map[string]interface{}, op stringOp) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	if len(m.StringsArg) > 0 {
		for _, arg := range m.StringsArg {
			if op(s, arg) {
				return true
			}
		}
		return false
	}
	return op(s, m.StringArg)
}
