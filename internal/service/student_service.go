package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
)

// ── Student errors ──

var (
	ErrStudentNotFound     = errors.New("siswa tidak ditemukan")
	ErrStudentNameRequired = errors.New("nama siswa wajib diisi")
)

// StudentService student management
type StudentService interface {
	// Create adds a student and its empty grade row in one transaction
	Create(ctx context.Context, teacherID string, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	// Update writes only the fields present in req
	Update(ctx context.Context, id, teacherID string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	// Delete removes the student and its grade
	Delete(ctx context.Context, id, teacherID string) error
	// Roster groups the teacher's students by name across subjects and ranks
	// them by average NR. classes lists every class name, sorted.
	Roster(ctx context.Context, teacherID string, req *dto.RosterRequest) (entries []dto.RosterEntry, total int64, classes []string, err error)
}

type studentService struct {
	repo   *repository.Repository
	stats  *statsCache
	logger *zap.Logger
}

// NewStudentService creates a StudentService
func NewStudentService(repo *repository.Repository, stats *statsCache, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, stats: stats, logger: logger}
}

func (s *studentService) Create(ctx context.Context, teacherID string, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrStudentNameRequired
	}

	student := &model.Student{
		SubjectID: req.SubjectID,
		Name:      name,
		Gender:    emptyToNil(req.Gender),
		Notes:     emptyToNil(req.Notes),
		ClassName: emptyToNil(req.ClassName),
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Subject.GetOwned(ctx, req.SubjectID, teacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubjectNotFound
			}
			return err
		}
		if err := tx.Student.Create(ctx, student); err != nil {
			return err
		}
		grade := &model.Grade{StudentID: student.StudentID}
		if err := tx.Grade.Create(ctx, grade); err != nil {
			return err
		}
		student.Grade = grade
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create student", zap.String("subject_id", req.SubjectID), zap.Error(err))
		return nil, err
	}

	s.stats.invalidate(ctx, teacherID)
	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) Update(ctx context.Context, id, teacherID string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetOwned(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("failed to get student", zap.String("student_id", id), zap.Error(err))
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrStudentNameRequired
		}
		student.Name = name
		fields["name"] = name
	}
	if req.Gender != nil {
		student.Gender = emptyToNil(req.Gender)
		fields["gender"] = student.Gender
	}
	if req.Notes != nil {
		student.Notes = emptyToNil(req.Notes)
		fields["notes"] = student.Notes
	}
	if req.ClassName != nil {
		student.ClassName = emptyToNil(req.ClassName)
		fields["class_name"] = student.ClassName
	}

	if err := s.repo.Student.UpdateFields(ctx, id, fields); err != nil {
		s.logger.Error("failed to update student", zap.String("student_id", id), zap.Error(err))
		return nil, err
	}

	if len(fields) > 0 {
		s.stats.invalidate(ctx, teacherID)
	}
	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) Delete(ctx context.Context, id, teacherID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Student.GetOwned(ctx, id, teacherID); err != nil {
			return err
		}
		if err := tx.Grade.DeleteByStudent(ctx, id); err != nil {
			return err
		}
		return tx.Student.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("failed to delete student", zap.String("student_id", id), zap.Error(err))
		return err
	}

	s.stats.invalidate(ctx, teacherID)
	return nil
}

func (s *studentService) Roster(ctx context.Context, teacherID string, req *dto.RosterRequest) ([]dto.RosterEntry, int64, []string, error) {
	students, err := s.repo.Student.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to list students", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, 0, nil, err
	}

	all, classes := buildRoster(students)

	search := strings.ToLower(strings.TrimSpace(req.Search))
	filtered := make([]dto.RosterEntry, 0, len(all))
	for _, e := range all {
		if req.ClassName != "" && (e.ClassName == nil || *e.ClassName != req.ClassName) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		filtered = append(filtered, e)
	}

	total := int64(len(filtered))
	start := req.GetOffset()
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + req.GetPageSize()
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, classes, nil
}

// buildRoster groups students by exact name. The first record seen supplies
// gender and class. Entries are ranked by average NR, highest first; a
// student without any NR ranks after every graded one.
func buildRoster(students []model.Student) ([]dto.RosterEntry, []string) {
	type group struct {
		entry  dto.RosterEntry
		scores []float64
	}

	var order []string
	groups := make(map[string]*group)
	classSet := make(map[string]struct{})

	for i := range students {
		st := &students[i]
		g, ok := groups[st.Name]
		if !ok {
			g = &group{entry: dto.RosterEntry{
				Name:      st.Name,
				Gender:    st.Gender,
				ClassName: st.ClassName,
			}}
			groups[st.Name] = g
			order = append(order, st.Name)
		}

		var nr *float64
		if st.Grade != nil {
			nr = st.Grade.FinalScore
		}
		if nr != nil {
			g.scores = append(g.scores, *nr)
		}

		rs := dto.RosterSubject{StudentID: st.StudentID, SubjectID: st.SubjectID, FinalScore: nr}
		if st.Subject != nil {
			rs.SubjectName = st.Subject.Name
			rs.Semester = st.Subject.Semester
		}
		g.entry.Subjects = append(g.entry.Subjects, rs)

		if st.ClassName != nil && *st.ClassName != "" {
			classSet[*st.ClassName] = struct{}{}
		}
	}

	entries := make([]dto.RosterEntry, 0, len(order))
	for _, name := range order {
		g := groups[name]
		if len(g.scores) > 0 {
			var sum float64
			for _, v := range g.scores {
				sum += v
			}
			avg := grading.Round(sum/float64(len(g.scores)), 2)
			g.entry.Average = &avg
		}
		entries = append(entries, g.entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Average, entries[j].Average
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	return entries, classes
}

// emptyToNil trims v; blank becomes nil
func emptyToNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
