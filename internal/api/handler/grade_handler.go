package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	pkgerrors "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/errors"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// GradeHandler grade endpoints
type GradeHandler struct {
	gradeSvc service.GradeService
}

// NewGradeHandler creates a GradeHandler
func NewGradeHandler(gradeSvc service.GradeService) *GradeHandler {
	return &GradeHandler{gradeSvc: gradeSvc}
}

// GetGrade
// GET /api/v1/grades/:id
func (h *GradeHandler) GetGrade(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	grade, err := h.gradeSvc.Get(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		h.handleGradeError(c, err)
		return
	}

	response.OK(c, grade)
}

// PatchGrade partial update of score fields. Unknown keys are ignored.
// A version in the body or an If-Match header makes the write conditional.
// PATCH /api/v1/grades/:id
func (h *GradeHandler) PatchGrade(c *gin.Context) {
	var req dto.PatchGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Version == nil {
		version, err := ifMatchVersion(c.GetHeader("If-Match"))
		if err != nil {
			response.BadRequest(c, 10001, "Header If-Match tidak valid")
			return
		}
		req.Version = version
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	grade, err := h.gradeSvc.Patch(c.Request.Context(), c.Param("id"), teacherID, &req)
	if err != nil {
		h.handleGradeError(c, err)
		return
	}

	response.OK(c, grade)
}

// UpsertGrade writes the grade of a student, creating it when missing
// POST /api/v1/grades
func (h *GradeHandler) UpsertGrade(c *gin.Context) {
	var req dto.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	grade, created, err := h.gradeSvc.Upsert(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleGradeError(c, err)
		return
	}

	if created {
		response.Created(c, grade)
		return
	}
	response.OK(c, grade)
}

// ifMatchVersion parses `If-Match: "3"` (weak tags and bare numbers too).
// An absent header yields nil.
func ifMatchVersion(header string) (*int, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	header = strings.TrimPrefix(header, "W/")
	header = strings.Trim(header, `"`)
	v, err := strconv.Atoi(header)
	if err != nil || v < 1 {
		return nil, errors.New("invalid version")
	}
	return &v, nil
}

func (h *GradeHandler) handleGradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGradeNotFound):
		response.NotFound(c, 14001, "Nilai tidak ditemukan")
	case errors.Is(err, grading.ErrScoreOutOfRange):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14002, "Nilai harus antara 0-100", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14003, "Nilai sudah diubah di tempat lain, muat ulang lalu coba lagi")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13001, "Siswa tidak ditemukan")
	default:
		response.InternalError(c)
	}
}
