package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
)

func ptr(v float64) *float64 { return &v }

func str(v string) *string { return &v }

// testEnv services wired to one in-memory store
type testEnv struct {
	st    *mockStore
	cache *mockCache
	stats *statsCache

	subjects  SubjectService
	students  StudentService
	grades    GradeService
	dashboard DashboardService
	export    ExportService
}

func newTestEnv() *testEnv {
	st := newMockStore()
	cache := newMockCache()
	stats := newStatsCache(cache, time.Minute, zap.NewNop())
	repo := st.repository()
	logger := zap.NewNop()
	return &testEnv{
		st:        st,
		cache:     cache,
		stats:     stats,
		subjects:  NewSubjectService(repo, stats, logger),
		students:  NewStudentService(repo, stats, logger),
		grades:    NewGradeService(repo, stats, logger),
		dashboard: NewDashboardService(repo, stats, logger),
		export:    NewExportService(repo, logger),
	}
}

func (e *testEnv) teacher(id, name string) *model.Teacher {
	t := &model.Teacher{TeacherID: id, Name: name, Email: id + "@sekolah.id"}
	e.st.teachers[id] = t
	return t
}

func (e *testEnv) subject(id, teacherID, name string, semester *string) *model.Subject {
	s := &model.Subject{SubjectID: id, TeacherID: teacherID, Name: name, Semester: semester}
	e.st.subjects[id] = s
	return s
}

// student adds a student with its grade; grade may be nil for an empty row
func (e *testEnv) student(id, subjectID, name string, grade *model.Grade) *model.Student {
	s := &model.Student{StudentID: id, SubjectID: subjectID, Name: name}
	e.st.students[id] = s
	if grade == nil {
		grade = &model.Grade{}
	}
	grade.GradeID = "g-" + id
	grade.StudentID = id
	if grade.Version == 0 {
		grade.Version = 1
	}
	e.st.grades[grade.GradeID] = grade
	return s
}

// graded grade whose NR is derived from the given LM1 sum
func graded(lm1 float64) *model.Grade {
	g := &model.Grade{LM1Sum: ptr(lm1)}
	g.RecomputeFinalScore()
	return g
}
