package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/autosave"
)

// printer serialises terminal output; autosave notifications arrive from
// timer and network goroutines
type printer struct {
	mu    sync.Mutex
	w     io.Writer
	label func(autosave.Key) string
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) name(key autosave.Key) string {
	if p.label != nil {
		return p.label(key)
	}
	return key.String()
}

var statusMarks = map[autosave.Status]string{
	autosave.StatusSaving: "…",
	autosave.StatusSaved:  "✓",
	autosave.StatusError:  "✗",
}

// StatusChanged the return to idle is not shown
func (p *printer) StatusChanged(key autosave.Key, status autosave.Status) {
	mark, ok := statusMarks[status]
	if !ok {
		return
	}
	p.printf("  %s %s %s\n", mark, p.name(key), status)
}

func (p *printer) Error(key autosave.Key, message string) {
	p.printf("  ! %s: %s\n", p.name(key), message)
}
