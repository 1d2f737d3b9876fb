package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregate of every data-access interface
type Repository struct {
	Teacher TeacherRepository
	Subject SubjectRepository
	Student StudentRepository
	Grade   GradeRepository

	db *gorm.DB
}

// NewRepository builds the GORM-backed repositories
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Teacher: NewTeacherRepo(db),
		Subject: NewSubjectRepo(db),
		Student: NewStudentRepo(db),
		Grade:   NewGradeRepo(db),
		db:      db,
	}
}

// WithTx returns repositories bound to tx
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction runs fn inside one database transaction; fn receives
// repositories bound to it. A Repository assembled without a database
// (unit tests) runs fn directly against itself.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
