// Package engine implements the evaluation algorithm: walking a flag's
// conditions in order and resolving a treatment, label, and change number
// for a given key.
package engine

import (
	"github.com/GoCodeAlone/split-go-core/dto"
	"github.com/GoCodeAlone/split-go-core/hashing"
	"github.com/GoCodeAlone/split-go-core/matchers"
)

func toHashingAlgo(a dto.HashAlgo) hashing.Algo {
	if a == dto.HashMurmur3 {
		return hashing.Murmur3
	}
	return hashing.Legacy
}

// Evaluate resolves the treatment flag would serve to key given attrs.
// It is side-effect-free: impression creation is the caller's
// responsibility.
func Evaluate(flag *dto.Flag, key dto.Key, attrs map[string]interface{}, ctx matchers.MatchContext) dto.EvaluationResult {
	if flag == nil {
		return dto.EvaluationResult{Treatment: dto.Control, Label: dto.LabelDefinitionNotFound, ChangeNumber: -1}
	}

	if flag.Killed {
		return dto.EvaluationResult{
			Treatment:      flag.DefaultTreatment,
			Label:          dto.LabelKilled,
			ChangeNumber:   flag.ChangeNumber,
			Configurations: flag.Configurations[flag.DefaultTreatment],
		}
	}

	for _, cond := range flag.Conditions {
		if !allMatchersAccept(cond, key, attrs, ctx) {
			continue
		}
		treatment, ok := selectPartition(cond.Partitions, toHashingAlgo(flag.Algo), key.BucketingKey, flag.Seed)
		if !ok {
			continue
		}
		return dto.EvaluationResult{
			Treatment:      treatment,
			Label:          cond.Label,
			ChangeNumber:   flag.ChangeNumber,
			Configurations: flag.Configurations[treatment],
		}
	}

	return dto.EvaluationResult{
		Treatment:      flag.DefaultTreatment,
		Label:          dto.LabelDefaultRule,
		ChangeNumber:   flag.ChangeNumber,
		Configurations: flag.Configurations[flag.DefaultTreatment],
	}
}

func allMatchersAccept(cond dto.Condition, key dto.Key, attrs map[string]interface{}, ctx matchers.MatchContext) bool {
	// Combiner is presently always AND (dto.CombinerAnd); every matcher
	// must accept for the condition to match.
	for _, m := range cond.Matchers {
		if !matchers.Matches(m, key, attrs, ctx) {
			return false
		}
	}
	return true
}

// selectPartition walks partitions accumulating weight until the
// bucket value is reached. A partition with weight 0 can never be
// selected; zero-weight partitions are simply skipped.
func selectPartition(partitions []dto.Partition, algo hashing.Algo, bucketingKey string, seed int32) (string, bool) {
	if len(partitions) == 0 {
		return "", false
	}
	bucket := hashing.Bucket(algo, bucketingKey, seed)
	accumulated := 0
	for _, p := range partitions {
		accumulated += p.Weight
		if bucket <= accumulated {
			return p.Treatment, true
		}
	}
	// Weights not summing to exactly 100 due to upstream data drift: fall
	// back to the last partition rather than reporting no match.
	return partitions[len(partitions)-1].Treatment, true
}
