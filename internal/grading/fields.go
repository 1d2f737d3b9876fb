package grading

import "fmt"

const (
	// LingkupMateriCount number of LM groups on the sheet
	LingkupMateriCount = 6
	// TPCount TP scores per LM group
	TPCount = 4

	FieldSemesterFinal = "semester_final"
	FieldFinalScore    = "final_score"
)

var (
	allFields       []string
	fieldSet        map[string]struct{}
	aggregateInputs []string
	aggregateSet    map[string]struct{}
)

func init() {
	fieldSet = make(map[string]struct{})
	aggregateSet = make(map[string]struct{})

	for lm := 1; lm <= LingkupMateriCount; lm++ {
		for tp := 1; tp <= TPCount; tp++ {
			allFields = append(allFields, TPField(lm, tp))
		}
		allFields = append(allFields, SumField(lm))
		aggregateInputs = append(aggregateInputs, SumField(lm))
	}
	allFields = append(allFields, FieldSemesterFinal, FieldFinalScore)
	aggregateInputs = append(aggregateInputs, FieldSemesterFinal)

	for _, f := range allFields {
		fieldSet[f] = struct{}{}
	}
	for _, f := range aggregateInputs {
		aggregateSet[f] = struct{}{}
	}
}

// TPField column name of TP score tp in group lm, e.g. "lm2_tp3"
func TPField(lm, tp int) string { return fmt.Sprintf("lm%d_tp%d", lm, tp) }

// SumField column name of the summative score of group lm, e.g. "lm2_sum"
func SumField(lm int) string { return fmt.Sprintf("lm%d_sum", lm) }

// Fields every writable grade field in sheet order. The returned slice is a copy.
func Fields() []string {
	out := make([]string, len(allFields))
	copy(out, allFields)
	return out
}

// IsGradeField reports whether name is on the grade write allow-list
func IsGradeField(name string) bool {
	_, ok := fieldSet[name]
	return ok
}

// AggregateInputs the seven fields NR is computed from: lm1_sum..lm6_sum, semester_final
func AggregateInputs() []string {
	out := make([]string, len(aggregateInputs))
	copy(out, aggregateInputs)
	return out
}

// IsAggregateInput reports whether a change to name changes NR
func IsAggregateInput(name string) bool {
	_, ok := aggregateSet[name]
	return ok
}
