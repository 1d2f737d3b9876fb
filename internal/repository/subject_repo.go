package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
)

// SubjectRepository subject access. Every read is scoped to the owning teacher.
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetOwned(ctx context.Context, id, teacherID string) (*model.Subject, error)
	// GetOwnedWithStudents preloads students (name asc) and their grade
	GetOwnedWithStudents(ctx context.Context, id, teacherID string) (*model.Subject, error)
	// ListByTeacher name asc, with StudentCount filled
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Subject, error)
	// ListWithStudents preloads teacher, students (name asc) and grades
	ListWithStudents(ctx context.Context, teacherID string) ([]model.Subject, error)
	ExistsByName(ctx context.Context, teacherID, name, excludeID string) (bool, error)
	Update(ctx context.Context, subject *model.Subject) error
	Delete(ctx context.Context, id string) error
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo creates a SubjectRepository
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetOwned(ctx context.Context, id, teacherID string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND teacher_id = ?", id, teacherID).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetOwnedWithStudents(ctx context.Context, id, teacherID string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Students", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Students.Grade").
		Where("subject_id = ? AND teacher_id = ?", id, teacherID).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.db.WithContext(ctx).
		Select("subjects.*, (SELECT COUNT(*) FROM students WHERE students.subject_id = subjects.subject_id) AS student_count").
		Where("teacher_id = ?", teacherID).
		Order("name ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *subjectRepo) ListWithStudents(ctx context.Context, teacherID string) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Preload("Students", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Students.Grade").
		Where("teacher_id = ?", teacherID).
		Order("name ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *subjectRepo) ExistsByName(ctx context.Context, teacherID, name, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&model.Subject{}).
		Where("teacher_id = ? AND name = ?", teacherID, name)
	if excludeID != "" {
		db = db.Where("subject_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *subjectRepo) Update(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).
		Model(subject).
		Updates(map[string]interface{}{
			"name":       subject.Name,
			"semester":   subject.Semester,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *subjectRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ?", id).
		Delete(&model.Subject{}).Error
}
