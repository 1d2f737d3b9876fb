package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/autosave"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
)

const defaultCloseTimeout = 10 * time.Second

// loader what a session needs from the API to build its table
type loader interface {
	Subject(ctx context.Context, subjectID string) (*dto.SubjectDetailResponse, error)
	EnsureGrade(ctx context.Context, studentID string) (*dto.GradeResponse, error)
}

type row struct {
	studentID string
	gradeID   string
	name      string
}

// session one subject being edited from the terminal
type session struct {
	coord        *autosave.Coordinator
	guard        autosave.Guard
	out          *printer
	lines        <-chan string
	rows         []row
	labels       map[string]string // record id → "#n name"
	closeTimeout time.Duration
}

func newSession(coord *autosave.Coordinator, out *printer, lines <-chan string) *session {
	s := &session{
		coord:        coord,
		guard:        coord.Guard(),
		out:          out,
		lines:        lines,
		labels:       make(map[string]string),
		closeTimeout: defaultCloseTimeout,
	}
	out.label = s.label
	return s
}

func (s *session) load(ctx context.Context, l loader, subject *dto.SubjectResponse) error {
	detail, err := l.Subject(ctx, subject.ID)
	if err != nil {
		return err
	}

	for _, st := range detail.Students {
		grade := st.Grade
		if grade == nil {
			if grade, err = l.EnsureGrade(ctx, st.ID); err != nil {
				return fmt.Errorf("siswa %s: %w", st.Name, err)
			}
		}
		name := st.Name
		s.coord.LoadGrade(grade.ID, grade.Scores)
		s.coord.LoadStudent(st.ID, map[string]*string{
			autosave.FieldName:      &name,
			autosave.FieldGender:    st.Gender,
			autosave.FieldNotes:     st.Notes,
			autosave.FieldClassName: st.ClassName,
		})

		s.rows = append(s.rows, row{studentID: st.ID, gradeID: grade.ID, name: st.Name})
		label := fmt.Sprintf("#%d %s", len(s.rows), st.Name)
		s.labels[st.ID] = label
		s.labels[grade.ID] = label
	}

	s.out.printf("%s: %d siswa\n", detail.Name, len(s.rows))
	s.show()
	return nil
}

func (s *session) run(ctx context.Context, sigs <-chan os.Signal) error {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return s.close()
			}
			quit, err := s.exec(ctx, line)
			if err != nil {
				s.out.printf("  ! %v\n", err)
			}
			if quit {
				return s.close()
			}
		case <-sigs:
			if s.leave() {
				return s.close()
			}
		case <-ctx.Done():
			return s.close()
		}
	}
}

// exec runs one input line and reports whether the session should end
func (s *session) exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "quit", "exit", "q":
		return s.leave(), nil
	case "help", "?":
		s.out.printf("  <baris|id> <kolom> <nilai> | blur <baris|id> <kolom> [nilai] | show | pending | flush | quit\n")
		return false, nil
	case "show":
		s.show()
		return false, nil
	case "pending":
		pending := s.coord.Pending()
		if len(pending) == 0 {
			s.out.printf("  tidak ada penyimpanan yang berjalan\n")
		}
		for _, key := range pending {
			s.out.printf("  … %s\n", s.label(key))
		}
		return false, nil
	case "flush":
		ctx, cancel := context.WithTimeout(ctx, s.closeTimeout)
		defer cancel()
		return false, s.coord.Flush(ctx)
	case "blur":
		if len(args) < 3 {
			return false, errors.New("pemakaian: blur <baris|id> <kolom> [nilai]")
		}
		id, err := s.resolve(args[1], args[2])
		if err != nil {
			return false, err
		}
		raw := strings.Join(args[3:], " ")
		if len(args) == 3 {
			raw = s.current(id, args[2])
		}
		return false, quiet(s.coord.OnBlur(id, args[2], raw))
	}

	if len(args) < 2 {
		return false, fmt.Errorf("perintah tidak dikenal: %s", args[0])
	}
	id, err := s.resolve(args[0], args[1])
	if err != nil {
		return false, err
	}
	return false, quiet(s.coord.OnChange(id, args[1], strings.Join(args[2:], " ")))
}

// leave asks for confirmation while saves are in flight
func (s *session) leave() bool {
	return s.guard.BeforeLeave(func() bool {
		s.out.printf("Masih ada %d nilai yang sedang disimpan. Tetap keluar? [y/N] ", s.coord.PendingCount())
		answer, ok := <-s.lines
		if !ok {
			return true
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "ya"
	})
}

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()
	if err := s.coord.Close(ctx); err != nil {
		return fmt.Errorf("sebagian nilai belum tersimpan: %w", err)
	}
	return nil
}

// resolve turns "#3" or "3" into the record id holding field on row 3.
// Anything else is taken as a record id.
func (s *session) resolve(ref, field string) (string, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return ref, nil
	}
	if n < 1 || n > len(s.rows) {
		return "", fmt.Errorf("baris %d tidak ada", n)
	}
	r := s.rows[n-1]
	if isStudentField(field) {
		return r.studentID, nil
	}
	return r.gradeID, nil
}

// current local value of a cell, as it would be typed
func (s *session) current(id, field string) string {
	if isStudentField(field) {
		if v := s.coord.Text(id, field); v != nil {
			return *v
		}
		return ""
	}
	return formatScore(s.coord.Score(id, field))
}

func (s *session) label(key autosave.Key) string {
	if l, ok := s.labels[key.RecordID]; ok {
		return l + " " + key.Field
	}
	return key.String()
}

func (s *session) show() {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()

	tw := tabwriter.NewWriter(s.out.w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "NO\tNAMA")
	for i := 1; i <= grading.LingkupMateriCount; i++ {
		fmt.Fprintf(tw, "\tLM%d", i)
	}
	fmt.Fprint(tw, "\tSAS\tNR\n")

	for i, r := range s.rows {
		fmt.Fprintf(tw, "%d\t%s", i+1, r.name)
		for lm := 1; lm <= grading.LingkupMateriCount; lm++ {
			fmt.Fprintf(tw, "\t%s", dash(s.coord.Score(r.gradeID, grading.SumField(lm))))
		}
		fmt.Fprintf(tw, "\t%s\t%s\n",
			dash(s.coord.Score(r.gradeID, grading.FieldSemesterFinal)),
			dash(s.coord.Score(r.gradeID, grading.FieldFinalScore)),
		)
	}
	tw.Flush()
}

func isStudentField(field string) bool {
	switch field {
	case autosave.FieldName, autosave.FieldGender, autosave.FieldNotes, autosave.FieldClassName:
		return true
	}
	return false
}

// quiet drops validation errors; the notifier already showed them
func quiet(err error) error {
	if errors.Is(err, autosave.ErrValidation) {
		return nil
	}
	return err
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func dash(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatScore(v)
}
