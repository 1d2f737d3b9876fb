package model

import "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"

// Grade one row per student, table grades
//
// final_score (NR) is derived from lm1_sum..lm6_sum and semester_final; the
// service recomputes it on every write.
type Grade struct {
	GradeID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StudentID string `gorm:"type:uuid;not null;uniqueIndex"                 json:"student_id"`

	LM1TP1        *float64 `gorm:"column:lm1_tp1;type:numeric(5,2)"     json:"lm1_tp1"`
	LM1TP2        *float64 `gorm:"column:lm1_tp2;type:numeric(5,2)"     json:"lm1_tp2"`
	LM1TP3        *float64 `gorm:"column:lm1_tp3;type:numeric(5,2)"     json:"lm1_tp3"`
	LM1TP4        *float64 `gorm:"column:lm1_tp4;type:numeric(5,2)"     json:"lm1_tp4"`
	LM1Sum        *float64 `gorm:"column:lm1_sum;type:numeric(5,2)"     json:"lm1_sum"`
	LM2TP1        *float64 `gorm:"column:lm2_tp1;type:numeric(5,2)"     json:"lm2_tp1"`
	LM2TP2        *float64 `gorm:"column:lm2_tp2;type:numeric(5,2)"     json:"lm2_tp2"`
	LM2TP3        *float64 `gorm:"column:lm2_tp3;type:numeric(5,2)"     json:"lm2_tp3"`
	LM2TP4        *float64 `gorm:"column:lm2_tp4;type:numeric(5,2)"     json:"lm2_tp4"`
	LM2Sum        *float64 `gorm:"column:lm2_sum;type:numeric(5,2)"     json:"lm2_sum"`
	LM3TP1        *float64 `gorm:"column:lm3_tp1;type:numeric(5,2)"     json:"lm3_tp1"`
	LM3TP2        *float64 `gorm:"column:lm3_tp2;type:numeric(5,2)"     json:"lm3_tp2"`
	LM3TP3        *float64 `gorm:"column:lm3_tp3;type:numeric(5,2)"     json:"lm3_tp3"`
	LM3TP4        *float64 `gorm:"column:lm3_tp4;type:numeric(5,2)"     json:"lm3_tp4"`
	LM3Sum        *float64 `gorm:"column:lm3_sum;type:numeric(5,2)"     json:"lm3_sum"`
	LM4TP1        *float64 `gorm:"column:lm4_tp1;type:numeric(5,2)"     json:"lm4_tp1"`
	LM4TP2        *float64 `gorm:"column:lm4_tp2;type:numeric(5,2)"     json:"lm4_tp2"`
	LM4TP3        *float64 `gorm:"column:lm4_tp3;type:numeric(5,2)"     json:"lm4_tp3"`
	LM4TP4        *float64 `gorm:"column:lm4_tp4;type:numeric(5,2)"     json:"lm4_tp4"`
	LM4Sum        *float64 `gorm:"column:lm4_sum;type:numeric(5,2)"     json:"lm4_sum"`
	LM5TP1        *float64 `gorm:"column:lm5_tp1;type:numeric(5,2)"     json:"lm5_tp1"`
	LM5TP2        *float64 `gorm:"column:lm5_tp2;type:numeric(5,2)"     json:"lm5_tp2"`
	LM5TP3        *float64 `gorm:"column:lm5_tp3;type:numeric(5,2)"     json:"lm5_tp3"`
	LM5TP4        *float64 `gorm:"column:lm5_tp4;type:numeric(5,2)"     json:"lm5_tp4"`
	LM5Sum        *float64 `gorm:"column:lm5_sum;type:numeric(5,2)"     json:"lm5_sum"`
	LM6TP1        *float64 `gorm:"column:lm6_tp1;type:numeric(5,2)"     json:"lm6_tp1"`
	LM6TP2        *float64 `gorm:"column:lm6_tp2;type:numeric(5,2)"     json:"lm6_tp2"`
	LM6TP3        *float64 `gorm:"column:lm6_tp3;type:numeric(5,2)"     json:"lm6_tp3"`
	LM6TP4        *float64 `gorm:"column:lm6_tp4;type:numeric(5,2)"     json:"lm6_tp4"`
	LM6Sum        *float64 `gorm:"column:lm6_sum;type:numeric(5,2)"     json:"lm6_sum"`
	SemesterFinal *float64 `gorm:"column:semester_final;type:numeric(5,2)" json:"semester_final"`
	FinalScore    *float64 `gorm:"column:final_score;type:numeric(5,2)" json:"final_score"`

	VersionedModel
}

// TableName table name
func (Grade) TableName() string { return "grades" }

var gradeColumns = map[string]func(g *Grade) **float64{
	"lm1_tp1":        func(g *Grade) **float64 { return &g.LM1TP1 },
	"lm1_tp2":        func(g *Grade) **float64 { return &g.LM1TP2 },
	"lm1_tp3":        func(g *Grade) **float64 { return &g.LM1TP3 },
	"lm1_tp4":        func(g *Grade) **float64 { return &g.LM1TP4 },
	"lm1_sum":        func(g *Grade) **float64 { return &g.LM1Sum },
	"lm2_tp1":        func(g *Grade) **float64 { return &g.LM2TP1 },
	"lm2_tp2":        func(g *Grade) **float64 { return &g.LM2TP2 },
	"lm2_tp3":        func(g *Grade) **float64 { return &g.LM2TP3 },
	"lm2_tp4":        func(g *Grade) **float64 { return &g.LM2TP4 },
	"lm2_sum":        func(g *Grade) **float64 { return &g.LM2Sum },
	"lm3_tp1":        func(g *Grade) **float64 { return &g.LM3TP1 },
	"lm3_tp2":        func(g *Grade) **float64 { return &g.LM3TP2 },
	"lm3_tp3":        func(g *Grade) **float64 { return &g.LM3TP3 },
	"lm3_tp4":        func(g *Grade) **float64 { return &g.LM3TP4 },
	"lm3_sum":        func(g *Grade) **float64 { return &g.LM3Sum },
	"lm4_tp1":        func(g *Grade) **float64 { return &g.LM4TP1 },
	"lm4_tp2":        func(g *Grade) **float64 { return &g.LM4TP2 },
	"lm4_tp3":        func(g *Grade) **float64 { return &g.LM4TP3 },
	"lm4_tp4":        func(g *Grade) **float64 { return &g.LM4TP4 },
	"lm4_sum":        func(g *Grade) **float64 { return &g.LM4Sum },
	"lm5_tp1":        func(g *Grade) **float64 { return &g.LM5TP1 },
	"lm5_tp2":        func(g *Grade) **float64 { return &g.LM5TP2 },
	"lm5_tp3":        func(g *Grade) **float64 { return &g.LM5TP3 },
	"lm5_tp4":        func(g *Grade) **float64 { return &g.LM5TP4 },
	"lm5_sum":        func(g *Grade) **float64 { return &g.LM5Sum },
	"lm6_tp1":        func(g *Grade) **float64 { return &g.LM6TP1 },
	"lm6_tp2":        func(g *Grade) **float64 { return &g.LM6TP2 },
	"lm6_tp3":        func(g *Grade) **float64 { return &g.LM6TP3 },
	"lm6_tp4":        func(g *Grade) **float64 { return &g.LM6TP4 },
	"lm6_sum":        func(g *Grade) **float64 { return &g.LM6Sum },
	"semester_final": func(g *Grade) **float64 { return &g.SemesterFinal },
	"final_score":    func(g *Grade) **float64 { return &g.FinalScore },
}

// Score returns the value of a grade column; ok is false for unknown names
func (g *Grade) Score(field string) (v *float64, ok bool) {
	acc, ok := gradeColumns[field]
	if !ok {
		return nil, false
	}
	return *acc(g), true
}

// SetScore assigns a grade column; unknown names are ignored and reported false
func (g *Grade) SetScore(field string, v *float64) bool {
	acc, ok := gradeColumns[field]
	if !ok {
		return false
	}
	*acc(g) = v
	return true
}

// Scores snapshot of every grade column keyed by field name
func (g *Grade) Scores() grading.Scores {
	s := make(grading.Scores, len(gradeColumns))
	for name, acc := range gradeColumns {
		s[name] = *acc(g)
	}
	return s
}

// RecomputeFinalScore derives NR from the stored components and reports
// whether it changed
func (g *Grade) RecomputeFinalScore() bool {
	nr := grading.Aggregate(g.Scores().Components())
	changed := !sameScore(g.FinalScore, nr)
	g.FinalScore = nr
	return changed
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
