package grading

import "math"

// Components the seven inputs of the report score. Nil means absent.
type Components struct {
	LMSums        [LingkupMateriCount]*float64
	SemesterFinal *float64
}

// Scores a grade record keyed by field name. A missing key and a nil value
// both mean "no score yet".
type Scores map[string]*float64

// Components extracts the aggregate inputs
func (s Scores) Components() Components {
	var c Components
	for lm := 1; lm <= LingkupMateriCount; lm++ {
		c.LMSums[lm-1] = s[SumField(lm)]
	}
	c.SemesterFinal = s[FieldSemesterFinal]
	return c
}

// Clone deep-copies the record so the copy can be mutated independently
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		if v == nil {
			out[k] = nil
			continue
		}
		f := *v
		out[k] = &f
	}
	return out
}

// Aggregate NR: the mean of the present inputs rounded to two decimals, or
// nil when none is present. A score of 0 is present.
func Aggregate(c Components) *float64 {
	var sum float64
	var n int
	for _, v := range c.LMSums {
		if v != nil {
			sum += *v
			n++
		}
	}
	if c.SemesterFinal != nil {
		sum += *c.SemesterFinal
		n++
	}
	if n == 0 {
		return nil
	}
	nr := Round(sum/float64(n), 2)
	return &nr
}

// Round rounds half away from zero to the given number of decimals
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ── report bands ──

// PassingScore minimum NR counted as passed (KKM)
const PassingScore = 75

// Letter grade band used on the dashboard
func Letter(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "E"
	}
}

// Passed reports whether score reaches the passing score
func Passed(score float64) bool {
	return score >= PassingScore
}
