package dto

import "encoding/json"

// ── Subjects ──

// CreateSubjectRequest new subject
type CreateSubjectRequest struct {
	Name     string  `json:"name"     binding:"required,max=100"`
	Semester *string `json:"semester" binding:"omitempty,oneof=Ganjil Genap"`
}

// UpdateSubjectRequest rename / change semester. An empty semester clears it.
type UpdateSubjectRequest struct {
	Name     string  `json:"name"     binding:"required,max=100"`
	Semester *string `json:"semester" binding:"omitempty,oneof=Ganjil Genap"`
}

// CopyStudentsRequest copies the roster of another subject into this one
type CopyStudentsRequest struct {
	SourceSubjectID string `json:"source_subject_id" binding:"required,uuid"`
}

// UnmarshalJSON also accepts sourceSubjectId
func (r *CopyStudentsRequest) UnmarshalJSON(data []byte) error {
	type plain CopyStudentsRequest
	aux := struct {
		*plain
		SourceAlias *string `json:"sourceSubjectId"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.SourceSubjectID == "" && aux.SourceAlias != nil {
		r.SourceSubjectID = *aux.SourceAlias
	}
	return nil
}

// ── Responses ──

// SubjectResponse subject summary
type SubjectResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Semester     *string `json:"semester"`
	StudentCount int64   `json:"student_count"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// SubjectDetailResponse subject with its students and their grades
type SubjectDetailResponse struct {
	SubjectResponse
	Students []StudentResponse `json:"students"`
}

// CopyStudentsResponse outcome of a bulk copy
type CopyStudentsResponse struct {
	AddedCount   int               `json:"added_count"`
	SkippedCount int               `json:"skipped_count"`
	Students     []StudentResponse `json:"students"`
}
