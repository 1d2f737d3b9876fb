package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
	pkgerrors "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/errors"
)

// ── Grade errors ──

var ErrGradeNotFound = errors.New("nilai tidak ditemukan")

// GradeService grade reads and writes.
//
// final_score is always derived here from lm1_sum..lm6_sum and
// semester_final; a final_score sent by the client is accepted but replaced.
type GradeService interface {
	Get(ctx context.Context, id, teacherID string) (*dto.GradeResponse, error)
	// Patch applies a partial update. With req.Version set the write only
	// succeeds against that version, otherwise the last writer wins.
	Patch(ctx context.Context, id, teacherID string, req *dto.PatchGradeRequest) (*dto.GradeResponse, error)
	// Upsert writes the grade of a student, creating the row when missing.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, teacherID string, req *dto.UpsertGradeRequest) (resp *dto.GradeResponse, created bool, err error)
}

type gradeService struct {
	repo   *repository.Repository
	stats  *statsCache
	logger *zap.Logger
}

// NewGradeService creates a GradeService
func NewGradeService(repo *repository.Repository, stats *statsCache, logger *zap.Logger) GradeService {
	return &gradeService{repo: repo, stats: stats, logger: logger}
}

func (s *gradeService) Get(ctx context.Context, id, teacherID string) (*dto.GradeResponse, error) {
	grade, err := s.repo.Grade.GetOwned(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGradeNotFound
		}
		s.logger.Error("failed to get grade", zap.String("grade_id", id), zap.Error(err))
		return nil, err
	}
	resp := toGradeResponse(grade)
	return &resp, nil
}

func (s *gradeService) Patch(ctx context.Context, id, teacherID string, req *dto.PatchGradeRequest) (*dto.GradeResponse, error) {
	if len(req.Scores) == 0 {
		// nothing on the allow-list: no write
		return s.Get(ctx, id, teacherID)
	}
	if err := validateScores(req.Scores); err != nil {
		return nil, err
	}

	var grade *model.Grade
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		g, err := tx.Grade.GetOwnedForUpdate(ctx, id, teacherID)
		if err != nil {
			return err
		}
		if req.Version != nil && *req.Version != g.Version {
			return pkgerrors.ErrOptimisticLock
		}

		fields := s.apply(g, req.Scores)
		if err := tx.Grade.UpdateScores(ctx, g, fields, req.Version); err != nil {
			return err
		}
		grade = g
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrGradeNotFound
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			s.logger.Info("stale grade write rejected", zap.String("grade_id", id))
			return nil, err
		}
		s.logger.Error("failed to update grade", zap.String("grade_id", id), zap.Error(err))
		return nil, err
	}

	s.stats.invalidate(ctx, teacherID)
	resp := toGradeResponse(grade)
	return &resp, nil
}

func (s *gradeService) Upsert(ctx context.Context, teacherID string, req *dto.UpsertGradeRequest) (*dto.GradeResponse, bool, error) {
	if err := validateScores(req.Scores); err != nil {
		return nil, false, err
	}

	var (
		grade   *model.Grade
		created bool
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Student.GetOwned(ctx, req.StudentID, teacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}

		g, err := tx.Grade.GetByStudentForUpdate(ctx, req.StudentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g = &model.Grade{StudentID: req.StudentID}
			s.apply(g, req.Scores)
			if err := tx.Grade.Create(ctx, g); err != nil {
				return err
			}
			grade, created = g, true
			return nil
		}
		if err != nil {
			return err
		}

		fields := s.apply(g, req.Scores)
		if err := tx.Grade.UpdateScores(ctx, g, fields, nil); err != nil {
			return err
		}
		grade = g
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			return nil, false, err
		}
		s.logger.Error("failed to upsert grade", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, false, err
	}

	s.stats.invalidate(ctx, teacherID)
	resp := toGradeResponse(grade)
	return &resp, created, nil
}

// apply writes scores onto g, recomputes final_score and returns the
// component columns that were written, sorted
func (s *gradeService) apply(g *model.Grade, scores map[string]*float64) []string {
	fields := make([]string, 0, len(scores))
	for field, v := range scores {
		if field == grading.FieldFinalScore {
			continue
		}
		if g.SetScore(field, v) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	g.RecomputeFinalScore()
	if sent, ok := scores[grading.FieldFinalScore]; ok && !sameValue(sent, g.FinalScore) {
		s.logger.Debug("client final_score replaced",
			zap.String("grade_id", g.GradeID),
			zap.Any("sent", sent),
			zap.Any("stored", g.FinalScore),
		)
	}
	return fields
}

func validateScores(scores map[string]*float64) error {
	for field, v := range scores {
		if err := grading.ValidateScore(v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

func sameValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
