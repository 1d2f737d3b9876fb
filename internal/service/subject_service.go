package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
)

// ── Subject errors ──

var (
	ErrSubjectNotFound       = errors.New("mata pelajaran tidak ditemukan")
	ErrSourceSubjectNotFound = errors.New("mata pelajaran sumber tidak ditemukan")
	ErrSubjectNameRequired   = errors.New("nama mata pelajaran wajib diisi")
	ErrSubjectNameTaken      = errors.New("mata pelajaran dengan nama ini sudah ada")
)

// SubjectService subject management. Every call is scoped to teacherID;
// subjects of other teachers behave as missing.
type SubjectService interface {
	List(ctx context.Context, teacherID string) ([]dto.SubjectResponse, error)
	Get(ctx context.Context, id, teacherID string) (*dto.SubjectDetailResponse, error)
	Create(ctx context.Context, teacherID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	Update(ctx context.Context, id, teacherID string, req *dto.UpdateSubjectRequest) (*dto.SubjectResponse, error)
	// Delete removes grades, students and the subject in one transaction
	Delete(ctx context.Context, id, teacherID string) error
	// CopyStudents copies the students of req.SourceSubjectID into subject id,
	// skipping names (case-insensitive, trimmed) the target already has
	CopyStudents(ctx context.Context, id, teacherID string, req *dto.CopyStudentsRequest) (*dto.CopyStudentsResponse, error)
	ListStudents(ctx context.Context, id, teacherID string) ([]dto.StudentResponse, error)
}

type subjectService struct {
	repo   *repository.Repository
	stats  *statsCache
	logger *zap.Logger
}

// NewSubjectService creates a SubjectService
func NewSubjectService(repo *repository.Repository, stats *statsCache, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, stats: stats, logger: logger}
}

func (s *subjectService) List(ctx context.Context, teacherID string) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to list subjects", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		out = append(out, toSubjectResponse(&subjects[i]))
	}
	return out, nil
}

func (s *subjectService) Get(ctx context.Context, id, teacherID string) (*dto.SubjectDetailResponse, error) {
	subject, err := s.repo.Subject.GetOwnedWithStudents(ctx, id, teacherID)
	if err != nil {
		return nil, s.translate(err, ErrSubjectNotFound, "failed to get subject")
	}
	subject.StudentCount = int64(len(subject.Students))
	return &dto.SubjectDetailResponse{
		SubjectResponse: toSubjectResponse(subject),
		Students:        toStudentResponses(subject.Students),
	}, nil
}

func (s *subjectService) Create(ctx context.Context, teacherID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrSubjectNameRequired
	}
	if err := s.checkNameFree(ctx, teacherID, name, ""); err != nil {
		return nil, err
	}

	subject := &model.Subject{
		TeacherID: teacherID,
		Name:      name,
		Semester:  normalizeSemester(req.Semester),
	}
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("failed to create subject", zap.Error(err))
		return nil, err
	}

	s.stats.invalidate(ctx, teacherID)
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *subjectService) Update(ctx context.Context, id, teacherID string, req *dto.UpdateSubjectRequest) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetOwned(ctx, id, teacherID)
	if err != nil {
		return nil, s.translate(err, ErrSubjectNotFound, "failed to get subject")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrSubjectNameRequired
	}
	if name != subject.Name {
		if err := s.checkNameFree(ctx, teacherID, name, id); err != nil {
			return nil, err
		}
	}

	subject.Name = name
	subject.Semester = normalizeSemester(req.Semester)
	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		s.logger.Error("failed to update subject", zap.String("subject_id", id), zap.Error(err))
		return nil, err
	}

	s.stats.invalidate(ctx, teacherID)
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *subjectService) Delete(ctx context.Context, id, teacherID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Subject.GetOwned(ctx, id, teacherID); err != nil {
			return err
		}
		if err := tx.Grade.DeleteBySubject(ctx, id); err != nil {
			return err
		}
		if err := tx.Student.DeleteBySubject(ctx, id); err != nil {
			return err
		}
		return tx.Subject.Delete(ctx, id)
	})
	if err != nil {
		return s.translate(err, ErrSubjectNotFound, "failed to delete subject")
	}

	s.stats.invalidate(ctx, teacherID)
	s.logger.Info("subject deleted", zap.String("subject_id", id), zap.String("teacher_id", teacherID))
	return nil
}

func (s *subjectService) CopyStudents(ctx context.Context, id, teacherID string, req *dto.CopyStudentsRequest) (*dto.CopyStudentsResponse, error) {
	var (
		created []model.Student
		skipped int
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Subject.GetOwned(ctx, id, teacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubjectNotFound
			}
			return err
		}
		if _, err := tx.Subject.GetOwned(ctx, req.SourceSubjectID, teacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSourceSubjectNotFound
			}
			return err
		}

		existing, err := tx.Student.ListBySubject(ctx, id)
		if err != nil {
			return err
		}
		source, err := tx.Student.ListBySubject(ctx, req.SourceSubjectID)
		if err != nil {
			return err
		}

		created, skipped = planCopy(id, existing, source)
		if len(created) == 0 {
			return nil
		}

		if err := tx.Student.CreateBatch(ctx, created); err != nil {
			return err
		}
		grades := make([]model.Grade, len(created))
		for i := range created {
			grades[i] = model.Grade{StudentID: created[i].StudentID}
		}
		if err := tx.Grade.CreateBatch(ctx, grades); err != nil {
			return err
		}
		for i := range created {
			created[i].Grade = &grades[i]
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) || errors.Is(err, ErrSourceSubjectNotFound) {
			return nil, err
		}
		s.logger.Error("failed to copy students",
			zap.String("subject_id", id),
			zap.String("source_subject_id", req.SourceSubjectID),
			zap.Error(err),
		)
		return nil, err
	}

	if len(created) > 0 {
		s.stats.invalidate(ctx, teacherID)
	}
	s.logger.Info("students copied",
		zap.String("subject_id", id),
		zap.String("source_subject_id", req.SourceSubjectID),
		zap.Int("added", len(created)),
		zap.Int("skipped", skipped),
	)

	return &dto.CopyStudentsResponse{
		AddedCount:   len(created),
		SkippedCount: skipped,
		Students:     toStudentResponses(created),
	}, nil
}

// planCopy new students for targetID from source, minus the names existing
// already holds. Notes are not carried over.
func planCopy(targetID string, existing, source []model.Student) (toCreate []model.Student, skipped int) {
	taken := make(map[string]struct{}, len(existing))
	for _, st := range existing {
		taken[model.NameKey(st.Name)] = struct{}{}
	}

	for _, st := range source {
		if _, dup := taken[model.NameKey(st.Name)]; dup {
			skipped++
			continue
		}
		toCreate = append(toCreate, model.Student{
			SubjectID: targetID,
			Name:      st.Name,
			Gender:    st.Gender,
			ClassName: st.ClassName,
		})
	}
	return toCreate, skipped
}

func (s *subjectService) ListStudents(ctx context.Context, id, teacherID string) ([]dto.StudentResponse, error) {
	if _, err := s.repo.Subject.GetOwned(ctx, id, teacherID); err != nil {
		return nil, s.translate(err, ErrSubjectNotFound, "failed to get subject")
	}
	students, err := s.repo.Student.ListBySubject(ctx, id)
	if err != nil {
		s.logger.Error("failed to list students", zap.String("subject_id", id), zap.Error(err))
		return nil, err
	}
	return toStudentResponses(students), nil
}

// ── helpers ──

func (s *subjectService) checkNameFree(ctx context.Context, teacherID, name, excludeID string) error {
	taken, err := s.repo.Subject.ExistsByName(ctx, teacherID, name, excludeID)
	if err != nil {
		s.logger.Error("failed to check subject name", zap.Error(err))
		return err
	}
	if taken {
		return ErrSubjectNameTaken
	}
	return nil
}

// translate maps gorm.ErrRecordNotFound to notFound and logs anything else
func (s *subjectService) translate(err, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

// normalizeSemester nil and "" both mean no semester
func normalizeSemester(semester *string) *string {
	if semester == nil {
		return nil
	}
	v := strings.TrimSpace(*semester)
	if v == "" {
		return nil
	}
	return &v
}
