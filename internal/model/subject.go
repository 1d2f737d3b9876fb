package model

// Semester labels; a subject may also have none
const (
	SemesterGanjil = "Ganjil"
	SemesterGenap  = "Genap"
)

// Subject a course taught by one teacher, table subjects
type Subject struct {
	SubjectID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	TeacherID string  `gorm:"type:uuid;not null;index"                       json:"teacher_id"`
	Name      string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Semester  *string `gorm:"type:varchar(10)"                               json:"semester,omitempty"`
	BaseModel

	Teacher  *Teacher  `gorm:"foreignKey:TeacherID;references:TeacherID" json:"teacher,omitempty"`
	Students []Student `gorm:"foreignKey:SubjectID;references:SubjectID" json:"students,omitempty"`

	// StudentCount filled by list queries only
	StudentCount int64 `gorm:"->;-:migration" json:"student_count"`
}

// TableName table name
func (Subject) TableName() string { return "subjects" }

// SemesterLabel the semester text, or "" when unset
func (s *Subject) SemesterLabel() string {
	if s.Semester == nil {
		return ""
	}
	return *s.Semester
}
