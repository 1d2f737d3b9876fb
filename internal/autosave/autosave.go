// Package autosave coordinates per-cell saving for the grades table.
//
// Each edited cell is addressed by a Key. Edits are applied to a local copy
// of the record at once and written to the server after a trailing-edge
// debounce, or immediately when the cell loses focus. Every Coordinator is
// owned by one editing session; nothing here is package-level state.
package autosave

import (
	"context"
	"errors"
	"time"
)

// Key identifies one editable cell
type Key struct {
	RecordID string
	Field    string
}

func (k Key) String() string { return k.RecordID + "/" + k.Field }

// Status save state of a cell
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// User-facing messages
const (
	MsgScoreRange  = "Nilai harus antara 0-100"
	MsgScoreNumber = "Nilai harus berupa angka"
	MsgNameEmpty   = "Nama siswa wajib diisi"
	MsgGender      = "Jenis kelamin harus L atau P"
	MsgSaveFailed  = "Gagal menyimpan nilai"
)

var (
	ErrValidation    = errors.New("autosave: invalid value")
	ErrUnknownField  = errors.New("autosave: unknown field")
	ErrReadOnlyField = errors.New("autosave: field is computed")
	ErrClosed        = errors.New("autosave: coordinator closed")
)

// Saver writes partial updates. Implementations must be safe for
// concurrent use; calls for one key never overlap.
type Saver interface {
	// SaveGrade PATCHes score fields of a grade; a nil value clears the field
	SaveGrade(ctx context.Context, gradeID string, fields map[string]*float64) error
	// SaveStudent PATCHes text fields of a student
	SaveStudent(ctx context.Context, studentID string, fields map[string]*string) error
}

// Notifier receives cell feedback. Calls happen outside the coordinator's
// lock, one at a time and in the order the state changed, but may come
// from timer or network goroutines. A Notifier must not call OnChange,
// OnBlur, Flush or Close.
type Notifier interface {
	StatusChanged(key Key, status Status)
	// Error a validation message for key, or a toast after a failed save
	Error(key Key, message string)
}

// Clock schedules callbacks; tests substitute a manual clock
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer handle returned by Clock.AfterFunc
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// NopNotifier discards every notification
type NopNotifier struct{}

func (NopNotifier) StatusChanged(Key, Status) {}
func (NopNotifier) Error(Key, string)         {}

// ValidationError a rejected edit. It matches ErrValidation.
type ValidationError struct {
	Key     Key
	Message string
}

func (e *ValidationError) Error() string { return e.Key.String() + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
