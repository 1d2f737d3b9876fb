package handler

import "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"

// Handler aggregate of every HTTP handler
type Handler struct {
	Auth      *AuthHandler
	Subject   *SubjectHandler
	Student   *StudentHandler
	Grade     *GradeHandler
	Export    *ExportHandler
	Dashboard *DashboardHandler
}

// NewHandler creates the Handler aggregate
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Subject:   NewSubjectHandler(svc.Subject),
		Student:   NewStudentHandler(svc.Student),
		Grade:     NewGradeHandler(svc.Grade),
		Export:    NewExportHandler(svc.Export),
		Dashboard: NewDashboardHandler(svc.Dashboard),
	}
}
