// Package matchers implements the predicate primitives a Condition
// evaluates a key/attribute set against. Each matcher is a tagged variant
// over dto.Matcher rather than a duck-typed object; MatchContext
// supplies the capability handles a matcher needs to look outside its
// own inputs (segment membership, other flags) without relying on
// global state.
package matchers

import "github.com/GoCodeAlone/split-go-core/dto"

// SegmentLookup resolves segment membership for the IN_SEGMENT matcher.
type SegmentLookup interface {
	InSegment(name, key string) bool
}

// FlagLookup resolves another flag's evaluated treatment for the
// IN_SPLIT_TREATMENT dependency matcher.
type FlagLookup interface {
	EvaluateTreatment(flagName string, key dto.Key, attrs map[string]interface{}) (treatment string, ok bool)
}

// MatchContext grants a matcher access to collaborators beyond its own
// key/attributes: segment storage and flag dependency resolution.
type MatchContext struct {
	Segments SegmentLookup
	Flags    FlagLookup
}

// Matches evaluates m against key/attrs in ctx, applying negation after
// the underlying primitive decision.
func Matches(m dto.Matcher, key dto.Key, attrs map[string]interface{}, ctx MatchContext) bool {
	result := matchPrimitive(m, key, attrs, ctx)
	if m.Negate {
		return !result
	}
	return result
}

// attributeOrKey returns the value the matcher should operate on: the
// named attribute, or the matching key when Attribute is empty.
func attributeOrKey(m dto.Matcher, key dto.Key, attrs map[string]interface{}) (interface{}, bool) {
	if m.Attribute == "" {
		return key.MatchingKey, true
	}
	if attrs == nil {
		return nil, false
	}
	v, ok := attrs[m.Attribute]
	return v, ok
}
