package transport

import "github.com/GoCodeAlone/split-go-core/dto"

// wireFlag is the JSON shape of one splitChanges entry. Field naming
// follows the control plane's actual wire format (camelCase,
// "seed"/"algo"/"trafficTypeName"), distinct from dto.Flag's Go-idiomatic
// field names.
type wireFlag struct {
	Name             string            `json:"name"`
	Status           string            `json:"status"`
	Killed           bool              `json:"killed"`
	DefaultTreatment string            `json:"defaultTreatment"`
	TrafficTypeName  string            `json:"trafficTypeName"`
	ChangeNumber     int64             `json:"changeNumber"`
	Seed             int32             `json:"seed"`
	Algo             int               `json:"algo"`
	Conditions       []wireCondition   `json:"conditions"`
	Configurations   map[string]string `json:"configurations"`
}

type wireCondition struct {
	ConditionType string          `json:"conditionType"`
	Label         string          `json:"label"`
	MatcherGroup  wireMatcherGrp  `json:"matcherGroup"`
	Partitions    []wirePartition `json:"partitions"`
}

type wireMatcherGrp struct {
	Combiner string        `json:"combiner"`
	Matchers []wireMatcher `json:"matchers"`
}

type wireMatcher struct {
	Negate      bool      `json:"negate"`
	Attribute   string    `json:"attribute"`
	Type        string    `json:"matcherType"`
	DataType    string    `json:"dataType"`
	StringArg   string    `json:"stringArg"`
	StringsArg  []string  `json:"stringsArg"`
	NumberArg   float64   `json:"numberArg"`
	NumbersArg  []float64 `json:"numbersArg"`
	BoolArg     bool      `json:"boolArg"`
	LowArg      float64   `json:"lowArg"`
	HighArg     float64   `json:"highArg"`
	DependsOn   string    `json:"dependsOnFlag"`
	Treatments  []string  `json:"treatments"`
	SegmentName string    `json:"segmentName"`
}

type wirePartition struct {
	Treatment string `json:"treatment"`
	Size      int    `json:"size"`
}

func (w wireFlag) toDTO() dto.Flag {
	algo := dto.HashLegacy
	if w.Algo == 2 {
		algo = dto.HashMurmur3
	}
	status := dto.StatusActive
	if w.Status != "ACTIVE" {
		status = dto.StatusArchived
	}

	conditions := make([]dto.Condition, 0, len(w.Conditions))
	for _, wc := range w.Conditions {
		matchers := make([]dto.Matcher, 0, len(wc.MatcherGroup.Matchers))
		for _, wm := range wc.MatcherGroup.Matchers {
			matchers = append(matchers, dto.Matcher{
				Type:          dto.MatcherType(wm.Type),
				Negate:        wm.Negate,
				Attribute:     wm.Attribute,
				DataType:      dto.DataType(wm.DataType),
				StringArg:     wm.StringArg,
				StringsArg:    wm.StringsArg,
				NumberArg:     wm.NumberArg,
				NumbersArg:    wm.NumbersArg,
				BoolArg:       wm.BoolArg,
				LowArg:        wm.LowArg,
				HighArg:       wm.HighArg,
				DependsOnFlag: wm.DependsOn,
				Treatments:    wm.Treatments,
				SegmentName:   wm.SegmentName,
			})
		}
		partitions := make([]dto.Partition, 0, len(wc.Partitions))
		for _, wp := range wc.Partitions {
			partitions = append(partitions, dto.Partition{Treatment: wp.Treatment, Weight: wp.Size})
		}
		conditions = append(conditions, dto.Condition{
			Label:      wc.Label,
			Type:       dto.ConditionType(wc.ConditionType),
			Combiner:   dto.CombinerAnd,
			Matchers:   matchers,
			Partitions: partitions,
		})
	}

	return dto.Flag{
		Name:             w.Name,
		TrafficTypeName:  w.TrafficTypeName,
		Killed:           w.Killed,
		DefaultTreatment: w.DefaultTreatment,
		Conditions:       conditions,
		Status:           status,
		ChangeNumber:     w.ChangeNumber,
		Algo:             algo,
		Seed:             w.Seed,
		Configurations:   w.Configurations,
	}
}

type wireImpression struct {
	KeyName      string `json:"keyName"`
	Treatment    string `json:"treatment"`
	Time         int64  `json:"time"`
	ChangeNumber int64  `json:"changeNumber"`
	Label        string `json:"label"`
	BucketingKey string `json:"bucketingKey,omitempty"`
}

type wireImpressionBatch struct {
	TestName       string           `json:"testName"`
	KeyImpressions []wireImpression `json:"keyImpressions"`
}

type wireEvent struct {
	Key             string                 `json:"key"`
	TrafficTypeName string                 `json:"trafficTypeName"`
	EventTypeID     string                 `json:"eventTypeId"`
	Value           *float64               `json:"value"`
	Timestamp       int64                  `json:"timestamp"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
}
