package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

// DashboardHandler statistics endpoint
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler creates a DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// GetDashboard
// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	teacherID, ok := MustGetTeacherID(c)
	if !ok {
		return
	}

	stats, err := h.dashboardSvc.Get(c.Request.Context(), teacherID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, stats)
}
