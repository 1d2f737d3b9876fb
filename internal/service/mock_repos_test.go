package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
	pkgerrors "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/errors"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/redis"
)

// ── In-memory store shared by the mock repositories ──

type mockStore struct {
	teachers map[string]*model.Teacher
	subjects map[string]*model.Subject
	students map[string]*model.Student
	grades   map[string]*model.Grade
	seq      int
}

func newMockStore() *mockStore {
	return &mockStore{
		teachers: make(map[string]*model.Teacher),
		subjects: make(map[string]*model.Subject),
		students: make(map[string]*model.Student),
		grades:   make(map[string]*model.Grade),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		Teacher: &mockTeacherRepo{st: s},
		Subject: &mockSubjectRepo{st: s},
		Student: &mockStudentRepo{st: s},
		Grade:   &mockGradeRepo{st: s},
	}
}

func (s *mockStore) gradeOf(studentID string) *model.Grade {
	for _, g := range s.grades {
		if g.StudentID == studentID {
			return g
		}
	}
	return nil
}

func (s *mockStore) studentsOf(subjectID string) []model.Student {
	var out []model.Student
	for _, st := range s.students {
		if st.SubjectID == subjectID {
			cp := *st
			if g := s.gradeOf(st.StudentID); g != nil {
				gc := *g
				cp.Grade = &gc
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *mockStore) ownsStudent(studentID, teacherID string) bool {
	st, ok := s.students[studentID]
	if !ok {
		return false
	}
	sub, ok := s.subjects[st.SubjectID]
	return ok && sub.TeacherID == teacherID
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct{ st *mockStore }

func (m *mockTeacherRepo) Create(_ context.Context, t *model.Teacher) error {
	if t.TeacherID == "" {
		t.TeacherID = m.st.nextID("teacher")
	}
	m.st.teachers[t.TeacherID] = t
	return nil
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	if t, ok := m.st.teachers[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) GetByEmail(_ context.Context, email string) (*model.Teacher, error) {
	for _, t := range m.st.teachers {
		if strings.EqualFold(t.Email, email) {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct{ st *mockStore }

func (m *mockSubjectRepo) Create(_ context.Context, s *model.Subject) error {
	if s.SubjectID == "" {
		s.SubjectID = m.st.nextID("subject")
	}
	m.st.subjects[s.SubjectID] = s
	return nil
}

func (m *mockSubjectRepo) GetOwned(_ context.Context, id, teacherID string) (*model.Subject, error) {
	if s, ok := m.st.subjects[id]; ok && s.TeacherID == teacherID {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetOwnedWithStudents(ctx context.Context, id, teacherID string) (*model.Subject, error) {
	s, err := m.GetOwned(ctx, id, teacherID)
	if err != nil {
		return nil, err
	}
	s.Teacher = m.st.teachers[teacherID]
	s.Students = m.st.studentsOf(id)
	return s, nil
}

func (m *mockSubjectRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Subject, error) {
	var out []model.Subject
	for _, s := range m.st.subjects {
		if s.TeacherID == teacherID {
			cp := *s
			cp.StudentCount = int64(len(m.st.studentsOf(s.SubjectID)))
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSubjectRepo) ListWithStudents(ctx context.Context, teacherID string) ([]model.Subject, error) {
	list, _ := m.ListByTeacher(ctx, teacherID)
	for i := range list {
		list[i].Teacher = m.st.teachers[teacherID]
		list[i].Students = m.st.studentsOf(list[i].SubjectID)
	}
	return list, nil
}

func (m *mockSubjectRepo) ExistsByName(_ context.Context, teacherID, name, excludeID string) (bool, error) {
	for _, s := range m.st.subjects {
		if s.TeacherID == teacherID && s.Name == name && s.SubjectID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, s *model.Subject) error {
	stored, ok := m.st.subjects[s.SubjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Name = s.Name
	stored.Semester = s.Semester
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string) error {
	delete(m.st.subjects, id)
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct{ st *mockStore }

func (m *mockStudentRepo) Create(_ context.Context, s *model.Student) error {
	if s.StudentID == "" {
		s.StudentID = m.st.nextID("student")
	}
	cp := *s
	cp.Grade = nil
	m.st.students[s.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) CreateBatch(ctx context.Context, students []model.Student) error {
	for i := range students {
		if err := m.Create(ctx, &students[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStudentRepo) GetOwned(_ context.Context, id, teacherID string) (*model.Student, error) {
	if !m.st.ownsStudent(id, teacherID) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.st.students[id]
	if g := m.st.gradeOf(id); g != nil {
		gc := *g
		cp.Grade = &gc
	}
	return &cp, nil
}

func (m *mockStudentRepo) ListBySubject(_ context.Context, subjectID string) ([]model.Student, error) {
	return m.st.studentsOf(subjectID), nil
}

func (m *mockStudentRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Student, error) {
	var out []model.Student
	for _, sub := range m.st.subjects {
		if sub.TeacherID != teacherID {
			continue
		}
		for _, st := range m.st.studentsOf(sub.SubjectID) {
			subCopy := *sub
			st.Subject = &subCopy
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStudentRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	st, ok := m.st.students[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			st.Name = v.(string)
		case "gender":
			st.Gender = v.(*string)
		case "notes":
			st.Notes = v.(*string)
		case "class_name":
			st.ClassName = v.(*string)
		}
	}
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.st.students, id)
	return nil
}

func (m *mockStudentRepo) DeleteBySubject(_ context.Context, subjectID string) error {
	for id, st := range m.st.students {
		if st.SubjectID == subjectID {
			delete(m.st.students, id)
		}
	}
	return nil
}

// ── Mock GradeRepository ──

type mockGradeRepo struct {
	st *mockStore

	updates   int
	failWrite error
}

func (m *mockGradeRepo) Create(_ context.Context, g *model.Grade) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	if g.GradeID == "" {
		g.GradeID = m.st.nextID("grade")
	}
	if g.Version == 0 {
		g.Version = 1
	}
	cp := *g
	m.st.grades[g.GradeID] = &cp
	return nil
}

func (m *mockGradeRepo) CreateBatch(ctx context.Context, grades []model.Grade) error {
	for i := range grades {
		if err := m.Create(ctx, &grades[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockGradeRepo) GetOwned(_ context.Context, id, teacherID string) (*model.Grade, error) {
	g, ok := m.st.grades[id]
	if !ok || !m.st.ownsStudent(g.StudentID, teacherID) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockGradeRepo) GetOwnedForUpdate(ctx context.Context, id, teacherID string) (*model.Grade, error) {
	return m.GetOwned(ctx, id, teacherID)
}

func (m *mockGradeRepo) GetByStudentForUpdate(_ context.Context, studentID string) (*model.Grade, error) {
	if g := m.st.gradeOf(studentID); g != nil {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGradeRepo) UpdateScores(_ context.Context, g *model.Grade, fields []string, expectedVersion *int) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	stored, ok := m.st.grades[g.GradeID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return pkgerrors.ErrOptimisticLock
	}
	for _, f := range fields {
		v, _ := g.Score(f)
		stored.SetScore(f, v)
	}
	stored.FinalScore = g.FinalScore
	stored.Version++
	g.Version = stored.Version
	m.updates++
	return nil
}

func (m *mockGradeRepo) DeleteByStudent(_ context.Context, studentID string) error {
	for id, g := range m.st.grades {
		if g.StudentID == studentID {
			delete(m.st.grades, id)
		}
	}
	return nil
}

func (m *mockGradeRepo) DeleteBySubject(_ context.Context, subjectID string) error {
	for id, g := range m.st.grades {
		if st, ok := m.st.students[g.StudentID]; ok && st.SubjectID == subjectID {
			delete(m.st.grades, id)
		}
	}
	return nil
}

// ── Mock Cache ──

type mockCache struct {
	data    map[string][]byte
	reads   int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) GetJSON(_ context.Context, key string, dst interface{}) error {
	m.reads++
	raw, ok := m.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (m *mockCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deletes++
	}
	return nil
}

func (m *mockCache) Incr(_ context.Context, key string) (int64, error) {
	var n int64
	if raw, ok := m.data[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}
