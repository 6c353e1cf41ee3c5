package dto

// MatcherType tags the matcher variant. Duck-typed matchers in the
// control plane become this fixed enumeration over a single struct
// shape, dispatched on by the matchers package.
type MatcherType string

const (
	MatcherAllKeys              MatcherType = "ALL_KEYS"
	MatcherEqualTo              MatcherType = "EQUAL_TO"
	MatcherInList               MatcherType = "IN_LIST"
	MatcherContainsString       MatcherType = "CONTAINS_STRING"
	MatcherStartsWith           MatcherType = "STARTS_WITH"
	MatcherEndsWith             MatcherType = "ENDS_WITH"
	MatcherGreaterOrEqual       MatcherType = "GREATER_OR_EQUAL"
	MatcherLessOrEqual          MatcherType = "LESS_OR_EQUAL"
	MatcherEqual                MatcherType = "EQUAL"
	MatcherBetween              MatcherType = "BETWEEN"
	MatcherInSegment            MatcherType = "IN_SEGMENT"
	MatcherMatchesString        MatcherType = "MATCHES_STRING"
	MatcherInSplitTreatment     MatcherType = "IN_SPLIT_TREATMENT"
	MatcherEqualToBoolean       MatcherType = "EQUAL_TO_BOOLEAN"
	MatcherEqualToSemver        MatcherType = "EQUAL_TO_SEMVER"
	MatcherGreaterOrEqualSemver MatcherType = "GREATER_OR_EQUAL_SEMVER"
	MatcherLessOrEqualSemver    MatcherType = "LESS_OR_EQUAL_SEMVER"
	MatcherBetweenSemver        MatcherType = "BETWEEN_SEMVER"
	MatcherInListSemver         MatcherType = "IN_LIST_SEMVER"
)

// DataType tells a matcher how to coerce the attribute value it reads,
// carrying the wire format's per-matcher dataType discriminator so
// datetime matchers can coerce their operands correctly.
type DataType string

const (
	DataTypeString   DataType = "STRING"
	DataTypeNumber   DataType = "NUMBER"
	DataTypeDatetime DataType = "DATETIME"
	DataTypeBoolean  DataType = "BOOLEAN"
	DataTypeSet      DataType = "SET"
)

// Matcher is one predicate primitive over the evaluation key or an
// attribute. When Attribute is empty, the matcher operates on the
// matching key.
type Matcher struct {
	Type      MatcherType
	Negate    bool
	Attribute string // empty => operate on the matching key
	DataType  DataType

	// String/value arguments, interpreted per Type.
	StringArg  string
	StringsArg []string
	NumberArg  float64
	NumbersArg []float64
	BoolArg    bool

	// Between-style arguments.
	LowArg  float64
	HighArg float64

	// IN_SPLIT_TREATMENT arguments.
	DependsOnFlag string
	Treatments    []string

	// IN_SEGMENT argument.
	SegmentName string
}
