package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler Excel download endpoints
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSubjects one subject, or every subject when subject_id is empty
// GET /api/v1/export?subject_id=xxx
func (h *ExportHandler) ExportSubjects(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSubjects(c.Request.Context(), teacherID, req.SubjectID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendWorkbook(c, buf, filename)
}

// ExportGradeDetail every TP column of one subject
// GET /api/v1/export/grades?subject_id=xxx
func (h *ExportHandler) ExportGradeDetail(c *gin.Context) {
	var req dto.DetailedExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "subject_id wajib diisi")
		return
	}

	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportGradeDetail(c.Request.Context(), teacherID, req.SubjectID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendWorkbook(c, buf, filename)
}

// ExportReport summary sheet plus one sheet per subject
// GET /api/v1/export/dashboard
func (h *ExportHandler) ExportReport(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportReport(c.Request.Context(), teacherID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendWorkbook(c, buf, filename)
}

func sendWorkbook(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSubjects):
		response.NotFound(c, 15001, "Tidak ada mata pelajaran untuk diekspor")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 12001, "Mata pelajaran tidak ditemukan")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 11004, "Guru tidak ditemukan")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 15002, "Gagal membuat file Excel")
	default:
		response.InternalError(c)
	}
}
