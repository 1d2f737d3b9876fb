package dto

// ── Dashboard ──

// DashboardResponse grading statistics of one teacher
type DashboardResponse struct {
	SubjectCount    int                    `json:"subject_count"`
	StudentCount    int                    `json:"student_count"` // unique by name
	AverageScore    *float64               `json:"average_score"`
	PassPercentage  int                    `json:"pass_percentage"`
	UngradedCount   int                    `json:"ungraded_count"`
	Distribution    GradeDistribution      `json:"distribution"`
	SubjectAverages []SubjectAverage       `json:"subject_averages"`
	TopStudents     []StudentScoreResponse `json:"top_students"`
	NeedsAttention  []StudentScoreResponse `json:"needs_attention"`
	GeneratedAt     string                 `json:"generated_at"`
}

// GradeDistribution NR count per letter band
type GradeDistribution struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
	E int `json:"E"`
}

// SubjectAverage per-subject mean NR, one decimal
type SubjectAverage struct {
	SubjectID    string   `json:"subject_id"`
	Name         string   `json:"name"`
	Semester     *string  `json:"semester"`
	StudentCount int      `json:"student_count"`
	Average      *float64 `json:"average"`
}

// StudentScoreResponse one student's NR in one subject
type StudentScoreResponse struct {
	StudentID   string  `json:"student_id"`
	Name        string  `json:"name"`
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	FinalScore  float64 `json:"final_score"`
}
