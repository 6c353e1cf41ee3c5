package matchers

import (
	"strconv"
	"strings"

	"github.com/GoCodeAlone/split-go-core/dto"
)

// semverVersion is a minimal parsed MAJOR.MINOR.PATCH[-PRERELEASE]
// version, sufficient for the comparison matchers. Not a full semver
// 2.0.0 implementation: build metadata is ignored, as it carries no
// ordering semantics.
type semverVersion struct {
	major, minor, patch int
	prerelease          string
	hasPrerelease       bool
}

func parseSemver(s string) (semverVersion, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if idx := strings.IndexByte(s, '+'); idx >= 0 {
		s = s[:idx]
	}
	core := s
	var prerelease string
	hasPre := false
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		core = s[:idx]
		prerelease = s[idx+1:]
		hasPre = true
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return semverVersion{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semverVersion{}, false
		}
		nums[i] = n
	}
	return semverVersion{major: nums[0], minor: nums[1], patch: nums[2], prerelease: prerelease, hasPrerelease: hasPre}, true
}

// compareSemver returns -1, 0, or 1. A prerelease version is considered
// lower than the same MAJOR.MINOR.PATCH without one; otherwise
// prereleases compare lexically, which matches the common case this
// matcher is used for (gating rollouts on release channel ordering).
func compareSemver(a, b semverVersion) int {
	if a.major != b.major {
		return cmpInt(a.major, b.major)
	}
	if a.minor != b.minor {
		return cmpInt(a.minor, b.minor)
	}
	if a.patch != b.patch {
		return cmpInt(a.patch, b.patch)
	}
	switch {
	case a.hasPrerelease && !b.hasPrerelease:
		return -1
	case !a.hasPrerelease && b.hasPrerelease:
		return 1
	case a.hasPrerelease && b.hasPrerelease:
		return strings.Compare(a.prerelease, b.prerelease)
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type semverOp func(cmp int) bool

func semverEq(cmp int) bool { return cmp == 0 }
func semverGe(cmp int) bool { return cmp >= 0 }
func semverLe(cmp int) bool { return cmp <= 0 }

func matchSemver(m dto.Matcher, key dto.Key, attrs map[string]interface{}, op semverOp) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	attrVer, ok := parseSemver(s)
	if !ok {
		return false
	}
	argVer, ok := parseSemver(m.StringArg)
	if !ok {
		return false
	}
	return op(compareSemver(attrVer, argVer))
}

func matchBetweenSemver(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	attrVer, ok := parseSemver(s)
	if !ok {
		return false
	}
	lowVer, ok := parseSemver(m.StringArg)
	if !ok {
		return false
	}
	if len(m.StringsArg) == 0 {
		return false
	}
	highVer, ok := parseSemver(m.StringsArg[0])
	if !ok {
		return false
	}
	return compareSemver(attrVer, lowVer) >= 0 && compareSemver(attrVer, highVer) <= 0
}

func matchInListSemver(m dto.Matcher, key dto.Key, attrs map[string]interface{}) bool {
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	attrVer, ok := parseSemver(s)
	if !ok {
		return false
	}
	for _, candidate := range m.StringsArg {
		candVer, ok := parseSemver(candidate)
		if ok && compareSemver(attrVer, candVer) == 0 {
			return true
		}
	}
	return false
}
