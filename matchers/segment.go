package matchers

import "github.com/GoCodeAlone/split-go-core/dto"

func matchInSegment(m dto.Matcher, key dto.Key, attrs map[string]interface{}, ctx MatchContext) bool {
	if ctx.Segments == nil {
		return false
	}
	v, ok := attributeOrKey(m, key, attrs)
	if !ok {
		return false
	}
	s, ok := asString(v)
	if !ok {
		return false
	}
	return ctx.Segments.InSegment(m.SegmentName, s)
}
