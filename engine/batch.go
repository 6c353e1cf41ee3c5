package engine

import (
	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/matchers"
)

// EvaluateMany evaluates every named flag independently; there is no
// inter-flag ordering guarantee beyond what dependency matchers impose
// through ctx.
func EvaluateMany(flags map[string]*dto.Flag, names []string, key dto.Key, attrs map[string]interface{}, ctx matchers.MatchContext) map[string]dto.EvaluationResult {
	results := make(map[string]dto.EvaluationResult, len(names))
	for _, name := range names {
		results[name] = Evaluate(flags[name], key, attrs, ctx)
	}
	return results
}
