package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	pkgerrors "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/errors"
)

// GradeRepository grade access
type GradeRepository interface {
	Create(ctx context.Context, grade *model.Grade) error
	CreateBatch(ctx context.Context, grades []model.Grade) error
	// GetOwned finds a grade whose student's subject belongs to teacherID
	GetOwned(ctx context.Context, id, teacherID string) (*model.Grade, error)
	// GetOwnedForUpdate same as GetOwned but row-locks the grade until the
	// surrounding transaction ends
	GetOwnedForUpdate(ctx context.Context, id, teacherID string) (*model.Grade, error)
	GetByStudentForUpdate(ctx context.Context, studentID string) (*model.Grade, error)
	// UpdateScores writes the named columns plus final_score and bumps the
	// version. With expectedVersion set the write is conditional and a stale
	// version yields pkgerrors.ErrOptimisticLock.
	UpdateScores(ctx context.Context, grade *model.Grade, fields []string, expectedVersion *int) error
	DeleteByStudent(ctx context.Context, studentID string) error
	DeleteBySubject(ctx context.Context, subjectID string) error
}

type gradeRepo struct {
	db *gorm.DB
}

// NewGradeRepo creates a GradeRepository
func NewGradeRepo(db *gorm.DB) GradeRepository {
	return &gradeRepo{db: db}
}

func (r *gradeRepo) Create(ctx context.Context, grade *model.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepo) CreateBatch(ctx context.Context, grades []model.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&grades).Error
}

func (r *gradeRepo) ownedQuery(ctx context.Context, id, teacherID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Joins("JOIN students ON students.student_id = grades.student_id").
		Joins("JOIN subjects ON subjects.subject_id = students.subject_id").
		Where("grades.grade_id = ? AND subjects.teacher_id = ?", id, teacherID)
}

func (r *gradeRepo) GetOwned(ctx context.Context, id, teacherID string) (*model.Grade, error) {
	var grade model.Grade
	if err := r.ownedQuery(ctx, id, teacherID).First(&grade).Error; err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *gradeRepo) GetOwnedForUpdate(ctx context.Context, id, teacherID string) (*model.Grade, error) {
	var grade model.Grade
	err := r.ownedQuery(ctx, id, teacherID).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "grades"}}).
		First(&grade).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *gradeRepo) GetByStudentForUpdate(ctx context.Context, studentID string) (*model.Grade, error) {
	var grade model.Grade
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&grade).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *gradeRepo) UpdateScores(ctx context.Context, grade *model.Grade, fields []string, expectedVersion *int) error {
	updates := make(map[string]interface{}, len(fields)+3)
	for _, f := range fields {
		if v, ok := grade.Score(f); ok {
			updates[f] = v
		}
	}
	updates["final_score"] = grade.FinalScore
	updates["updated_at"] = gorm.Expr("NOW()")

	db := r.db.WithContext(ctx).Model(&model.Grade{})
	if expectedVersion != nil {
		db = db.Where("grade_id = ? AND version = ?", grade.GradeID, *expectedVersion)
		updates["version"] = *expectedVersion + 1
	} else {
		db = db.Where("grade_id = ?", grade.GradeID)
		updates["version"] = gorm.Expr("version + 1")
	}

	result := db.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if expectedVersion != nil {
			return pkgerrors.ErrOptimisticLock
		}
		return gorm.ErrRecordNotFound
	}
	if expectedVersion != nil {
		grade.Version = *expectedVersion + 1
	} else {
		grade.Version++
	}
	return nil
}

func (r *gradeRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	return r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&model.Grade{}).Error
}

func (r *gradeRepo) DeleteBySubject(ctx context.Context, subjectID string) error {
	return r.db.WithContext(ctx).
		Where("student_id IN (?)",
			r.db.Model(&model.Student{}).Select("student_id").Where("subject_id = ?", subjectID),
		).
		Delete(&model.Grade{}).Error
}
