package matchers

import "github.com/GoCodeAlone/split-go-core/dto"

// matchDependency evaluates the IN_SPLIT_TREATMENT matcher: it asks the
// dependency flag for its own treatment on the same key, and checks
// whether that treatment is one of the listed acceptable treatments.
// Dependency resolution is capability-injected through ctx.Flags rather
// than a global registry, so a matcher never needs to reach outside its
// inputs to find the other flag.
func matchDependency(m dto.Matcher, key dto.Key, attrs map[string]interface{}, ctx MatchContext) bool {
	if ctx.Flags == nil {
		return false
	}
	treatment, ok := ctx.Flags.EvaluateTreatment(m.DependsOnFlag, key, attrs)
	if !ok {
		return false
	}
	for _, want := range m.Treatments {
		if want == treatment {
			return true
		}
	}
	return false
}
