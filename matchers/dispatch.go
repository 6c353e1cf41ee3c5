package matchers

import "github.com/GoCodeAlone/split-go-core/dto"

// matchPrimitive dispatches on m.Type and returns the pre-negation
// decision. Any attribute that is absent or of the wrong kind yields
// false rather than an error or panic.
func matchPrimitive(m dto.Matcher, key dto.Key, attrs map[string]interface{}, ctx MatchContext) bool {
	switch m.Type {
	case dto.MatcherAllKeys:
		return true
	case dto.MatcherEqualTo:
		return matchEqualTo(m, key, attrs)
	case dto.MatcherInList:
		return matchInList(m, key, attrs)
	case dto.MatcherContainsString:
		return matchStringOp(m, key, attrs, containsOp)
	case dto.MatcherStartsWith:
		return matchStringOp(m, key, attrs, startsWithOp)
	case dto.MatcherEndsWith:
		return matchStringOp(m, key, attrs, endsWithOp)
	case dto.MatcherGreaterOrEqual:
		return matchNumeric(m, key, attrs, geOp)
	case dto.MatcherLessOrEqual:
		return matchNumeric(m, key, attrs, leOp)
	case dto.MatcherEqual:
		return matchNumeric(m, key, attrs, eqOp)
	case dto.MatcherBetween:
		return matchBetween(m, key, attrs)
	case dto.MatcherInSegment:
		return matchInSegment(m, key, attrs, ctx)
	case dto.MatcherMatchesString:
		return matchRegex(m, key, attrs)
	case dto.MatcherInSplitTreatment:
		return matchDependency(m, key, attrs, ctx)
	case dto.MatcherEqualToBoolean:
		return matchBoolean(m, key, attrs)
	case dto.MatcherEqualToSemver:
		return matchSemver(m, key, attrs, semverEq)
	case dto.MatcherGreaterOrEqualSemver:
		return matchSemver(m, key, attrs, semverGe)
	case dto.MatcherLessOrEqualSemver:
		return matchSemver(m, key, attrs, semverLe)
	case dto.MatcherBetweenSemver:
		return matchBetweenSemver(m, key, attrs)
	case dto.MatcherInListSemver:
		return matchInListSemver(m, key, attrs)
	default:
		return false
	}
}
