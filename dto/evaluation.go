package dto

// Control is the sentinel treatment returned when evaluation cannot proceed.
const Control = "control"

// LabelDefinitionNotFound is returned when the flag looked up is unknown.
const LabelDefinitionNotFound = "definition not found"

// LabelKilled is returned when the flag has been killed.
const LabelKilled = "killed"

// LabelDefaultRule is returned when no condition accepted the key.
const LabelDefaultRule = "default rule"

// LabelException is returned when evaluation could not complete due to a
// validation error at the evaluator boundary.
const LabelException = "exception"

// EvaluationResult is the outcome of evaluating one flag for one key.
type EvaluationResult struct {
	Treatment      string
	Label          string
	ChangeNumber   int64
	Configurations string // optional per-treatment config blob, if present
}
