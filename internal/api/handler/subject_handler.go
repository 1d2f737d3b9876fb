package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// SubjectHandler subject endpoints
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler creates a SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects subjects of the teacher with their student counts
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	subjects, err := h.subjectSvc.List(c.Request.Context(), teacherID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// GetSubject subject with its students and grades
// GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	subject, err := h.subjectSvc.Get(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// CreateSubject
// POST /api/v1/subjects
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.Created(c, subject)
}

// UpdateSubject renames a subject and sets its semester
// PUT /api/v1/subjects/:id
func (h *SubjectHandler) UpdateSubject(c *gin.Context) {
	var req dto.UpdateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	subject, err := h.subjectSvc.Update(c.Request.Context(), c.Param("id"), teacherID, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// DeleteSubject deletes the subject with its students and grades
// DELETE /api/v1/subjects/:id
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	if err := h.subjectSvc.Delete(c.Request.Context(), c.Param("id"), teacherID); err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, nil)
}

// CopyStudents copies students from another subject, skipping names the
// target already has
// POST /api/v1/subjects/:id/copy-students
func (h *SubjectHandler) CopyStudents(c *gin.Context) {
	var req dto.CopyStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	result, err := h.subjectSvc.CopyStudents(c.Request.Context(), c.Param("id"), teacherID, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, result)
}

// ListStudents students of one subject with their grades, by name
// GET /api/v1/subjects/:id/students
func (h *SubjectHandler) ListStudents(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	students, err := h.subjectSvc.ListStudents(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, gin.H{"list": students})
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 12001, "Mata pelajaran tidak ditemukan")
	case errors.Is(err, service.ErrSourceSubjectNotFound):
		response.NotFound(c, 12002, "Mata pelajaran sumber tidak ditemukan")
	case errors.Is(err, service.ErrSubjectNameRequired):
		response.BadRequest(c, 12003, "Nama mata pelajaran wajib diisi")
	case errors.Is(err, service.ErrSubjectNameTaken):
		response.Conflict(c, 12004, "Mata pelajaran dengan nama ini sudah ada")
	default:
		response.InternalError(c)
	}
}
