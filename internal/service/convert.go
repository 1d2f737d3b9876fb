package service

import (
	"time"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
)

// ── model → dto ──

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toSubjectResponse(s *model.Subject) dto.SubjectResponse {
	return dto.SubjectResponse{
		ID:           s.SubjectID,
		Name:         s.Name,
		Semester:     s.Semester,
		StudentCount: s.StudentCount,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

func toStudentResponse(s *model.Student) dto.StudentResponse {
	resp := dto.StudentResponse{
		ID:        s.StudentID,
		SubjectID: s.SubjectID,
		Name:      s.Name,
		Gender:    s.Gender,
		Notes:     s.Notes,
		ClassName: s.ClassName,
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
	}
	if s.Grade != nil {
		g := toGradeResponse(s.Grade)
		resp.Grade = &g
	}
	return resp
}

func toStudentResponses(students []model.Student) []dto.StudentResponse {
	out := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, toStudentResponse(&students[i]))
	}
	return out
}

func toGradeResponse(g *model.Grade) dto.GradeResponse {
	return dto.GradeResponse{
		ID:        g.GradeID,
		StudentID: g.StudentID,
		Scores:    g.Scores(),
		Version:   g.Version,
		UpdatedAt: formatTime(g.UpdatedAt),
	}
}
