package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// maxSheetName Excel's sheet name limit, in characters
const maxSheetName = 31

// workbook wraps an excelize file with sheet naming and shared styles
type workbook struct {
	f      *excelize.File
	used   map[string]struct{}
	sheets int

	titleStyle    int
	subtitleStyle int
	headerStyle   int
	cellStyle     int
	leftStyle     int
	boldStyle     int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	w := &workbook{f: f, used: make(map[string]struct{})}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	styles := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&w.titleStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: center}},
		{&w.subtitleStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}, Alignment: center}},
		{&w.headerStyle, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"E6F3FF"}, Pattern: 1},
			Border:    border,
			Alignment: center,
		}},
		{&w.cellStyle, &excelize.Style{Border: border, Alignment: center}},
		{&w.leftStyle, &excelize.Style{Border: border, Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"}}},
		{&w.boldStyle, &excelize.Style{Font: &excelize.Font{Bold: true}}},
	}
	for _, s := range styles {
		id, err := f.NewStyle(s.style)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*s.dst = id
	}
	return w, nil
}

// addSheet creates a sheet named after name, made valid and unique.
// The first call renames the default sheet.
func (w *workbook) addSheet(name string) (string, error) {
	sheet := w.uniqueName(sheetName(name))
	if w.sheets == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), sheet); err != nil {
			return "", err
		}
	} else if _, err := w.f.NewSheet(sheet); err != nil {
		return "", err
	}
	w.sheets++
	w.used[strings.ToLower(sheet)] = struct{}{}
	return sheet, nil
}

func (w *workbook) uniqueName(name string) string {
	if _, taken := w.used[strings.ToLower(name)]; !taken {
		return name
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := truncateRunes(name, maxSheetName-utf8.RuneCountInString(suffix))
		candidate := base + suffix
		if _, taken := w.used[strings.ToLower(candidate)]; !taken {
			return candidate
		}
	}
}

func (w *workbook) set(sheet string, col, row int, value interface{}) {
	w.f.SetCellValue(sheet, cell(col, row), value)
}

func (w *workbook) style(sheet string, fromCol, fromRow, toCol, toRow, style int) {
	w.f.SetCellStyle(sheet, cell(fromCol, fromRow), cell(toCol, toRow), style)
}

// banner writes a merged, styled line across columns 1..width
func (w *workbook) banner(sheet string, row, width int, text string, style int) {
	w.f.MergeCell(sheet, cell(1, row), cell(width, row))
	w.set(sheet, 1, row, text)
	w.style(sheet, 1, row, 1, row, style)
}

func (w *workbook) widths(sheet string, widths ...float64) {
	for i, wd := range widths {
		col := colName(i + 1)
		w.f.SetColWidth(sheet, col, col, wd)
	}
}

func (w *workbook) close() { w.f.Close() }

// ── helpers ──

// sheetName strips characters Excel forbids and shortens names over 31
// characters to 28 plus "..."
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	if utf8.RuneCountInString(name) > maxSheetName {
		name = truncateRunes(name, maxSheetName-3) + "..."
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// scoreCell value for a score column: the number, or "-" when absent
func scoreCell(v *float64) interface{} {
	if v == nil {
		return "-"
	}
	return *v
}

func textCell(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "-"
	}
	return *v
}

// fileSafe replaces everything but ASCII letters and digits with '_'
func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}
