package matchers

import (
	"fmt"

	"github.com/GoCodeAlone/split-go-core/dto"
)

func matchEqualTo(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	return s == m.StringArg
}

func matchInList(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	for _, candidate := range m.StringsArg {
		if candidate == s {
			return true
		}
	}
	return false
}

func matchBoolean(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b == m.BoolArg
}

// asString returns v as a string for equality/set matchers. It accepts a
// string or a fmt.Stringer; any other kind (numbers, booleans, nil)
// reports false and is not converted.
func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}
