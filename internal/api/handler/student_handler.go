package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// StudentHandler student endpoints
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler creates a StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// CreateStudent adds a student to a subject
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.Create(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.Created(c, student)
}

// UpdateStudent writes the fields present in the body
// PATCH /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.Update(c.Request.Context(), c.Param("id"), teacherID, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, student)
}

// DeleteStudent deletes a student and its grade
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	if err := h.studentSvc.Delete(c.Request.Context(), c.Param("id"), teacherID); err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListRoster students grouped by name across subjects, ranked by average NR
// GET /api/v1/students?class_name=&q=&page=&page_size=
func (h *StudentHandler) ListRoster(c *gin.Context) {
	var req dto.RosterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	entries, total, classes, err := h.studentSvc.Roster(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OKPage(c, entries, total, req.GetPage(), req.GetPageSize(), gin.H{"classes": classes})
}

func (h *StudentHandler) handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13001, "Siswa tidak ditemukan")
	case errors.Is(err, service.ErrStudentNameRequired):
		response.BadRequest(c, 13002, "Nama siswa wajib diisi")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 12001, "Mata pelajaran tidak ditemukan")
	default:
		response.InternalError(c)
	}
}
