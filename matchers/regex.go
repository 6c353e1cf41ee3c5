package matchers

import (
	"regexp"
	"sync"

	"github.com/GoCodeAlone/split-go-core/dto"
)

// regexCache avoids recompiling the same pattern on every evaluation; a
// flag's condition set is immutable between fetches, so this only grows
// with the number of distinct patterns ever attached to a rollout.
var regexCache sync.Map // pattern string -> *regexp.Regexp

// compileRegex uses Go's RE2-backed regexp package: deterministic and
// locale-independent by construction.
func compileRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Store(pattern, re)
	return re, true
}

func matchRegex(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	re, ok := compileRegex(m.StringArg)
	if !ok {
		return false
	}
	return re.MatchString(s)
}
