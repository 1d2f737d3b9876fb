package dto

import "encoding/json"

// ── Students ──

// CreateStudentRequest new student; an empty grade row is created with it
type CreateStudentRequest struct {
	SubjectID string  `json:"subject_id" binding:"required,uuid"`
	Name      string  `json:"name"       binding:"required,max=100"`
	Gender    *string `json:"gender"     binding:"omitempty,oneof=L P"`
	Notes     *string `json:"notes"`
	ClassName *string `json:"class_name" binding:"omitempty,max=50"`
}

// UpdateStudentRequest partial update; only non-nil fields are written.
// An empty gender, notes or class_name clears the column.
type UpdateStudentRequest struct {
	Name      *string `json:"name"       binding:"omitempty,max=100"`
	Gender    *string `json:"gender"     binding:"omitempty,oneof=L P"`
	Notes     *string `json:"notes"`
	ClassName *string `json:"class_name" binding:"omitempty,max=50"`
}

// UnmarshalJSON also accepts subjectId and className; the snake_case keys
// win when both are sent
func (r *CreateStudentRequest) UnmarshalJSON(data []byte) error {
	type plain CreateStudentRequest
	aux := struct {
		*plain
		SubjectIDAlias *string `json:"subjectId"`
		ClassNameAlias *string `json:"className"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.SubjectID == "" && aux.SubjectIDAlias != nil {
		r.SubjectID = *aux.SubjectIDAlias
	}
	if r.ClassName == nil {
		r.ClassName = aux.ClassNameAlias
	}
	return nil
}

// UnmarshalJSON also accepts className
func (r *UpdateStudentRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateStudentRequest
	aux := struct {
		*plain
		ClassNameAlias *string `json:"className"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ClassName == nil {
		r.ClassName = aux.ClassNameAlias
	}
	return nil
}

// RosterRequest query of the cross-subject student roster
type RosterRequest struct {
	ClassName string `form:"class_name"`
	Search    string `form:"q"`
	PaginationRequest
}

// ── Responses ──

// StudentResponse student with its grade
type StudentResponse struct {
	ID        string         `json:"id"`
	SubjectID string         `json:"subject_id"`
	Name      string         `json:"name"`
	Gender    *string        `json:"gender"`
	Notes     *string        `json:"notes"`
	ClassName *string        `json:"class_name"`
	Grade     *GradeResponse `json:"grade,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// RosterSubject one subject a rostered student is enrolled in
type RosterSubject struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Semester    *string  `json:"semester"`
	StudentID   string   `json:"student_id"`
	FinalScore  *float64 `json:"final_score"`
}

// RosterEntry students sharing a name across subjects
type RosterEntry struct {
	Rank      int             `json:"rank"`
	Name      string          `json:"name"`
	Gender    *string         `json:"gender"`
	ClassName *string         `json:"class_name"`
	Average   *float64        `json:"average"`
	Subjects  []RosterSubject `json:"subjects"`
}
