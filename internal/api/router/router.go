package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/api/handler"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/api/middleware"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
)

// Infra optional redis-backed collaborators; nil disables the feature
type Infra struct {
	Blacklist middleware.Blacklist
	Limiter   middleware.Limiter
}

// RegisterValidators installs the DTO validation tags on gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return dto.RegisterValidations(v)
}

// Setup builds the gin engine with every route
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, infra Infra, logger *zap.Logger) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── health ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authLimit := middleware.RateLimit(infra.Limiter, cfg.Server.AuthRateLimit.Limit, cfg.Server.AuthRateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// unauthenticated
		auth := v1.Group("/auth", authLimit)
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, infra.Blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.POST("", h.Subject.CreateSubject)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.PUT("/:id", h.Subject.UpdateSubject)
				subjects.DELETE("/:id", h.Subject.DeleteSubject)
				subjects.POST("/:id/copy-students", h.Subject.CopyStudents)
				subjects.GET("/:id/students", h.Subject.ListStudents)
			}

			students := authorized.Group("/students")
			{
				students.GET("", h.Student.ListRoster)
				students.POST("", h.Student.CreateStudent)
				students.PATCH("/:id", h.Student.UpdateStudent)
				students.DELETE("/:id", h.Student.DeleteStudent)
			}

			grades := authorized.Group("/grades")
			{
				grades.POST("", h.Grade.UpsertGrade)
				grades.GET("/:id", h.Grade.GetGrade)
				grades.PATCH("/:id", h.Grade.PatchGrade)
			}

			export := authorized.Group("/export")
			{
				export.GET("", h.Export.ExportSubjects)
				export.GET("/grades", h.Export.ExportGradeDetail)
				export.GET("/dashboard", h.Export.ExportReport)
			}

			authorized.GET("/dashboard", h.Dashboard.GetDashboard)
		}
	}

	return r, nil
}
