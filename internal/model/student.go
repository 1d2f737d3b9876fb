package model

import "strings"

// Gender markers as printed in the L/P column
const (
	GenderMale   = "L"
	GenderFemale = "P"
)

// Student belongs to exactly one subject, table students
type Student struct {
	StudentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	SubjectID string  `gorm:"type:uuid;not null;index"                       json:"subject_id"`
	Name      string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Gender    *string `gorm:"type:varchar(1)"                                json:"gender,omitempty"`
	Notes     *string `gorm:"type:text"                                      json:"notes,omitempty"`
	ClassName *string `gorm:"type:varchar(50)"                               json:"class_name,omitempty"`
	BaseModel

	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
	Grade   *Grade   `gorm:"foreignKey:StudentID;references:StudentID" json:"grade,omitempty"`
}

// TableName table name
func (Student) TableName() string { return "students" }

// NameKey the de-duplication key used when copying students between subjects
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
