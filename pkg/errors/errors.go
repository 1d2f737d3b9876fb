package errors

import "errors"

// ErrOptimisticLock the row was modified by someone else since it was read
var ErrOptimisticLock = errors.New("data sudah diubah oleh proses lain, muat ulang lalu coba lagi")
