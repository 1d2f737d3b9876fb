package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
)

// StudentRepository student access
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	CreateBatch(ctx context.Context, students []model.Student) error
	// GetOwned finds a student whose subject belongs to teacherID
	GetOwned(ctx context.Context, id, teacherID string) (*model.Student, error)
	// ListBySubject name asc, grade preloaded
	ListBySubject(ctx context.Context, subjectID string) ([]model.Student, error)
	// ListByTeacher every student across the teacher's subjects, with subject and grade
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Student, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	DeleteBySubject(ctx context.Context, subjectID string) error
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo creates a StudentRepository
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Omit("Subject", "Grade").Create(student).Error
}

func (r *studentRepo) CreateBatch(ctx context.Context, students []model.Student) error {
	if len(students) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Subject", "Grade").Create(&students).Error
}

func (r *studentRepo) GetOwned(ctx context.Context, id, teacherID string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Joins("JOIN subjects ON subjects.subject_id = students.subject_id").
		Where("students.student_id = ? AND subjects.teacher_id = ?", id, teacherID).
		Preload("Grade").
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) ListBySubject(ctx context.Context, subjectID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Preload("Grade").
		Where("subject_id = ?", subjectID).
		Order("name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Joins("JOIN subjects ON subjects.subject_id = students.subject_id").
		Where("subjects.teacher_id = ?", teacherID).
		Preload("Subject").
		Preload("Grade").
		Order("students.name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = gorm.Expr("NOW()")
	return r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ?", id).
		Updates(fields).Error
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("student_id = ?", id).
		Delete(&model.Student{}).Error
}

func (r *studentRepo) DeleteBySubject(ctx context.Context, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Delete(&model.Student{}).Error
}
