package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
)

// ── Export errors ──

var (
	ErrExportNoSubjects   = errors.New("tidak ada mata pelajaran untuk diekspor")
	ErrExportGenerateFail = errors.New("terjadi kesalahan saat membuat file Excel")
)

// ExportService Excel workbooks of grades.
//
// Each method returns the .xlsx content and a suggested file name; the
// handler sets the HTTP headers.
type ExportService interface {
	// ExportSubjects one sheet for subjectID, or for every subject of the
	// teacher (Ganjil, then Genap, then unlabelled) when subjectID is empty
	ExportSubjects(ctx context.Context, teacherID, subjectID string) (*bytes.Buffer, string, error)
	// ExportGradeDetail every TP, summative and SAS column of one subject
	ExportGradeDetail(ctx context.Context, teacherID, subjectID string) (*bytes.Buffer, string, error)
	// ExportReport "Ringkasan" summary sheet followed by one sheet per subject
	ExportReport(ctx context.Context, teacherID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService creates an ExportService
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// subjectHeaders columns of the subject sheet
var subjectHeaders = []string{"NO", "NAMA", "L/P", "LM1", "LM2", "LM3", "LM4", "LM5", "LM6", "SAS", "NR", "KET"}

// ═══════════════════════════════════════════════════════════
// ExportSubjects
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSubjects(ctx context.Context, teacherID, subjectID string) (*bytes.Buffer, string, error) {
	var (
		subjects []model.Subject
		filename string
	)

	if subjectID != "" {
		subject, err := s.repo.Subject.GetOwnedWithStudents(ctx, subjectID, teacherID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", ErrSubjectNotFound
			}
			s.logger.Error("failed to load subject for export", zap.String("subject_id", subjectID), zap.Error(err))
			return nil, "", err
		}
		subjects = []model.Subject{*subject}
		filename = fmt.Sprintf("Nilai_%s.xlsx", fileSafe(subject.Name))
	} else {
		all, err := s.repo.Subject.ListWithStudents(ctx, teacherID)
		if err != nil {
			s.logger.Error("failed to load subjects for export", zap.String("teacher_id", teacherID), zap.Error(err))
			return nil, "", err
		}
		if len(all) == 0 {
			return nil, "", ErrExportNoSubjects
		}
		subjects = orderBySemester(all)
		filename = fmt.Sprintf("Nilai_Semua_Mapel_%s.xlsx", fileSafe(teacherName(subjects)))
	}

	wb, err := newWorkbook()
	if err != nil {
		s.logger.Error("failed to create workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	defer wb.close()

	for i := range subjects {
		if err := writeSubjectSheet(wb, &subjects[i]); err != nil {
			s.logger.Error("failed to write subject sheet", zap.String("subject_id", subjects[i].SubjectID), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	return s.finish(wb, filename)
}

// writeSubjectSheet title rows, header row 3, one row per student from row 4
func writeSubjectSheet(wb *workbook, subject *model.Subject) error {
	sheet, err := wb.addSheet(subject.Name)
	if err != nil {
		return err
	}

	width := len(subjectHeaders)
	wb.banner(sheet, 1, width, "DAFTAR NILAI "+semesterTitle(subject.Semester), wb.titleStyle)
	wb.banner(sheet, 2, width, "MATA PELAJARAN: "+strings.ToUpper(subject.Name), wb.subtitleStyle)

	const headerRow = 3
	for i, h := range subjectHeaders {
		wb.set(sheet, i+1, headerRow, h)
	}
	wb.style(sheet, 1, headerRow, width, headerRow, wb.headerStyle)
	wb.widths(sheet, 5, 25, 8, 10, 10, 10, 10, 10, 10, 10, 10, 15)

	for i := range subject.Students {
		st := &subject.Students[i]
		row := headerRow + 1 + i
		g := st.Grade
		if g == nil {
			g = &model.Grade{}
		}

		values := []interface{}{
			i + 1,
			st.Name,
			textCell(st.Gender),
			scoreCell(g.LM1Sum),
			scoreCell(g.LM2Sum),
			scoreCell(g.LM3Sum),
			scoreCell(g.LM4Sum),
			scoreCell(g.LM5Sum),
			scoreCell(g.LM6Sum),
			scoreCell(g.SemesterFinal),
			scoreCell(g.FinalScore),
			textCell(st.Notes),
		}
		for col, v := range values {
			wb.set(sheet, col+1, row, v)
		}
		wb.style(sheet, 1, row, width, row, wb.cellStyle)
		wb.style(sheet, 2, row, 2, row, wb.leftStyle)
		wb.style(sheet, width, row, width, row, wb.leftStyle)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// ExportGradeDetail
// ═══════════════════════════════════════════════════════════
//
// Layout: rows 1-2 title, row 4 group headers ("Lingkup Materi N" merged
// over TP1..TP4, "Sumatif LMN", "Sumatif Akhir Semester", "NR"), row 5
// sub-headers, students from row 6.

func (s *exportService) ExportGradeDetail(ctx context.Context, teacherID, subjectID string) (*bytes.Buffer, string, error) {
	subject, err := s.repo.Subject.GetOwnedWithStudents(ctx, subjectID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSubjectNotFound
		}
		s.logger.Error("failed to load subject for export", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, "", err
	}

	wb, err := newWorkbook()
	if err != nil {
		s.logger.Error("failed to create workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	defer wb.close()

	if err := writeDetailSheet(wb, subject); err != nil {
		s.logger.Error("failed to write detail sheet", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return s.finish(wb, fmt.Sprintf("Nilai_Detail_%s.xlsx", fileSafe(subject.Name)))
}

func writeDetailSheet(wb *workbook, subject *model.Subject) error {
	sheet, err := wb.addSheet("Daftar Nilai")
	if err != nil {
		return err
	}

	// No, Nama, L/P, 6 x (4 TP), 6 sums, SAS, NR
	width := 3 + grading.LingkupMateriCount*grading.TPCount + grading.LingkupMateriCount + 2
	wb.banner(sheet, 1, width, "DAFTAR NILAI "+semesterTitle(subject.Semester), wb.titleStyle)
	wb.banner(sheet, 2, width, "MATA PELAJARAN: "+strings.ToUpper(subject.Name), wb.subtitleStyle)

	const groupRow, subRow = 4, 5
	col := 1
	for _, h := range []string{"No", "Nama Siswa", "L/P"} {
		wb.f.MergeCell(sheet, cell(col, groupRow), cell(col, subRow))
		wb.set(sheet, col, groupRow, h)
		col++
	}

	var fields []string
	for lm := 1; lm <= grading.LingkupMateriCount; lm++ {
		wb.f.MergeCell(sheet, cell(col, groupRow), cell(col+grading.TPCount-1, groupRow))
		wb.set(sheet, col, groupRow, fmt.Sprintf("Lingkup Materi %d", lm))
		for tp := 1; tp <= grading.TPCount; tp++ {
			wb.set(sheet, col, subRow, fmt.Sprintf("TP%d", tp))
			fields = append(fields, grading.TPField(lm, tp))
			col++
		}
	}
	for lm := 1; lm <= grading.LingkupMateriCount; lm++ {
		wb.set(sheet, col, groupRow, fmt.Sprintf("Sumatif LM%d", lm))
		wb.set(sheet, col, subRow, "Nilai")
		fields = append(fields, grading.SumField(lm))
		col++
	}
	wb.set(sheet, col, groupRow, "Sumatif Akhir Semester")
	wb.set(sheet, col, subRow, "Nilai")
	fields = append(fields, grading.FieldSemesterFinal)
	col++
	wb.set(sheet, col, groupRow, "NR")
	wb.set(sheet, col, subRow, "Nilai")
	fields = append(fields, grading.FieldFinalScore)

	wb.style(sheet, 1, groupRow, width, subRow, wb.headerStyle)
	wb.f.SetColWidth(sheet, "A", "A", 5)
	wb.f.SetColWidth(sheet, "B", "B", 25)
	wb.f.SetColWidth(sheet, "C", colName(width), 8)

	for i := range subject.Students {
		st := &subject.Students[i]
		row := subRow + 1 + i
		g := st.Grade
		if g == nil {
			g = &model.Grade{}
		}

		wb.set(sheet, 1, row, i+1)
		wb.set(sheet, 2, row, st.Name)
		wb.set(sheet, 3, row, textCell(st.Gender))
		for j, f := range fields {
			v, _ := g.Score(f)
			wb.set(sheet, 4+j, row, scoreCell(v))
		}
		wb.style(sheet, 1, row, width, row, wb.cellStyle)
		wb.style(sheet, 2, row, 2, row, wb.leftStyle)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// ExportReport
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportReport(ctx context.Context, teacherID string) (*bytes.Buffer, string, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTeacherNotFound
		}
		s.logger.Error("failed to load teacher for report", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, "", err
	}
	subjects, err := s.repo.Subject.ListWithStudents(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to load subjects for report", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, "", err
	}

	wb, err := newWorkbook()
	if err != nil {
		s.logger.Error("failed to create workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	defer wb.close()

	now := s.now()
	if err := writeSummarySheet(wb, teacher.Name, subjects, now); err != nil {
		s.logger.Error("failed to write summary sheet", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	for i := range subjects {
		if err := writeSubjectSheet(wb, &subjects[i]); err != nil {
			s.logger.Error("failed to write subject sheet", zap.String("subject_id", subjects[i].SubjectID), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	return s.finish(wb, fmt.Sprintf("Laporan_Lengkap_%s.xlsx", now.Format("2006-01-02")))
}

func writeSummarySheet(wb *workbook, teacher string, subjects []model.Subject, now time.Time) error {
	sheet, err := wb.addSheet("Ringkasan")
	if err != nil {
		return err
	}

	wb.banner(sheet, 1, 5, "LAPORAN LENGKAP PENILAIAN", wb.titleStyle)
	wb.set(sheet, 1, 3, "Guru:")
	wb.set(sheet, 2, 3, teacher)
	wb.set(sheet, 1, 4, "Tanggal Export:")
	wb.set(sheet, 2, 4, indonesianDate(now))

	entries := 0
	names := make(map[string]struct{})
	for _, sub := range subjects {
		entries += len(sub.Students)
		for _, st := range sub.Students {
			names[st.Name] = struct{}{}
		}
	}

	wb.set(sheet, 1, 6, "STATISTIK")
	wb.style(sheet, 1, 6, 1, 6, wb.boldStyle)
	stats := []struct {
		label string
		value int
	}{
		{"Total Mata Pelajaran", len(subjects)},
		{"Total Siswa (Unik)", len(names)},
		{"Total Entri Siswa", entries},
	}
	for i, st := range stats {
		wb.set(sheet, 1, 7+i, st.label)
		wb.set(sheet, 2, 7+i, st.value)
		wb.style(sheet, 2, 7+i, 2, 7+i, wb.boldStyle)
	}

	wb.set(sheet, 1, 11, "DAFTAR MATA PELAJARAN")
	wb.style(sheet, 1, 11, 1, 11, wb.boldStyle)
	for i, h := range []string{"No", "Mata Pelajaran", "Semester", "Jumlah Siswa", "Rata-rata Nilai"} {
		wb.set(sheet, i+1, 12, h)
	}
	wb.style(sheet, 1, 12, 5, 12, wb.headerStyle)

	for i := range subjects {
		sub := &subjects[i]
		row := 13 + i
		var scores []float64
		for _, st := range sub.Students {
			if st.Grade != nil && st.Grade.FinalScore != nil {
				scores = append(scores, *st.Grade.FinalScore)
			}
		}
		wb.set(sheet, 1, row, i+1)
		wb.set(sheet, 2, row, sub.Name)
		wb.set(sheet, 3, row, textCell(sub.Semester))
		wb.set(sheet, 4, row, len(sub.Students))
		wb.set(sheet, 5, row, scoreCell(mean(scores, 1)))
		wb.style(sheet, 1, row, 5, row, wb.cellStyle)
	}
	wb.widths(sheet, 5, 30, 15, 15, 15)
	return nil
}

// ── helpers ──

func (s *exportService) finish(wb *workbook, filename string) (*bytes.Buffer, string, error) {
	buf, err := wb.f.WriteToBuffer()
	if err != nil {
		s.logger.Error("failed to write workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, filename, nil
}

// orderBySemester Ganjil subjects, then Genap, then the rest; the relative
// order inside each group is kept
func orderBySemester(subjects []model.Subject) []model.Subject {
	out := make([]model.Subject, 0, len(subjects))
	for _, want := range []string{model.SemesterGanjil, model.SemesterGenap} {
		for _, sub := range subjects {
			if sub.SemesterLabel() == want {
				out = append(out, sub)
			}
		}
	}
	for _, sub := range subjects {
		if l := sub.SemesterLabel(); l != model.SemesterGanjil && l != model.SemesterGenap {
			out = append(out, sub)
		}
	}
	return out
}

func semesterTitle(semester *string) string {
	switch {
	case semester == nil:
		return "SEMESTER 1"
	case *semester == model.SemesterGanjil:
		return "SEMESTER GANJIL"
	case *semester == model.SemesterGenap:
		return "SEMESTER GENAP"
	}
	return "SEMESTER 1"
}

func teacherName(subjects []model.Subject) string {
	for _, sub := range subjects {
		if sub.Teacher != nil && sub.Teacher.Name != "" {
			return sub.Teacher.Name
		}
	}
	return "Guru"
}

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// indonesianDate e.g. "19 Oktober 2026"
func indonesianDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}
