package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
)

// ═══════════════════════════════════════════════════════════
// CopyStudents
// ═══════════════════════════════════════════════════════════

func TestCopyStudents_DeduplicatesByNormalizedName(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("src", "t1", "Matematika", nil)
	env.subject("dst", "t1", "IPA", nil)
	a := env.student("s1", "src", "Ana", nil)
	a.Gender = str(model.GenderFemale)
	a.Notes = str("rajin")
	env.student("s2", "src", "Budi", nil)
	env.student("s3", "dst", "ana ", nil)

	resp, err := env.subjects.CopyStudents(context.Background(), "dst", "t1", &dto.CopyStudentsRequest{SourceSubjectID: "src"})
	if err != nil {
		t.Fatalf("CopyStudents failed: %v", err)
	}
	if resp.AddedCount != 1 || resp.SkippedCount != 1 {
		t.Fatalf("expected added=1 skipped=1, got added=%d skipped=%d", resp.AddedCount, resp.SkippedCount)
	}
	if len(resp.Students) != 1 || resp.Students[0].Name != "Budi" {
		t.Fatalf("expected Budi to be copied, got %+v", resp.Students)
	}
	if resp.Students[0].Grade == nil {
		t.Error("expected an empty grade for the copied student")
	}

	target := env.st.studentsOf("dst")
	if len(target) != 2 {
		t.Fatalf("expected 2 students in target, got %d", len(target))
	}
	for _, st := range target {
		if st.Grade == nil {
			t.Errorf("student %s has no grade row", st.Name)
		}
	}
}

func TestCopyStudents_ResetsNotesKeepsGender(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("src", "t1", "Matematika", nil)
	env.subject("dst", "t1", "IPA", nil)
	a := env.student("s1", "src", "Ana", nil)
	a.Gender = str(model.GenderFemale)
	a.Notes = str("rajin")
	a.ClassName = str("4A")

	resp, err := env.subjects.CopyStudents(context.Background(), "dst", "t1", &dto.CopyStudentsRequest{SourceSubjectID: "src"})
	if err != nil {
		t.Fatalf("CopyStudents failed: %v", err)
	}
	got := resp.Students[0]
	if got.Notes != nil {
		t.Errorf("notes should not be copied, got %q", *got.Notes)
	}
	if got.Gender == nil || *got.Gender != model.GenderFemale {
		t.Error("gender should be copied")
	}
	if got.ClassName == nil || *got.ClassName != "4A" {
		t.Error("class name should be copied")
	}
}

func TestCopyStudents_OtherTeachersSource(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.teacher("t2", "Pak Budi")
	env.subject("dst", "t1", "IPA", nil)
	env.subject("foreign", "t2", "IPS", nil)
	env.student("s1", "foreign", "Ana", nil)

	_, err := env.subjects.CopyStudents(context.Background(), "dst", "t1", &dto.CopyStudentsRequest{SourceSubjectID: "foreign"})
	if !errors.Is(err, ErrSourceSubjectNotFound) {
		t.Errorf("expected ErrSourceSubjectNotFound, got %v", err)
	}
	if len(env.st.studentsOf("dst")) != 0 {
		t.Error("nothing should be copied")
	}
}

func TestCopyStudents_TargetNotOwned(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.teacher("t2", "Pak Budi")
	env.subject("src", "t1", "IPA", nil)
	env.subject("foreign", "t2", "IPS", nil)

	_, err := env.subjects.CopyStudents(context.Background(), "foreign", "t1", &dto.CopyStudentsRequest{SourceSubjectID: "src"})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestPlanCopy_AllDuplicates(t *testing.T) {
	existing := []model.Student{{Name: "ANA"}, {Name: " budi"}}
	source := []model.Student{{Name: "Ana"}, {Name: "Budi "}}

	created, skipped := planCopy("dst", existing, source)
	if len(created) != 0 || skipped != 2 {
		t.Errorf("expected 0 created / 2 skipped, got %d / %d", len(created), skipped)
	}
}

// ═══════════════════════════════════════════════════════════
// CRUD
// ═══════════════════════════════════════════════════════════

func TestCreateSubject_NameTrimmedAndUnique(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	ctx := context.Background()

	resp, err := env.subjects.Create(ctx, "t1", &dto.CreateSubjectRequest{Name: "  Matematika  ", Semester: str("Ganjil")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if resp.Name != "Matematika" {
		t.Errorf("expected trimmed name, got %q", resp.Name)
	}

	if _, err := env.subjects.Create(ctx, "t1", &dto.CreateSubjectRequest{Name: "Matematika"}); !errors.Is(err, ErrSubjectNameTaken) {
		t.Errorf("expected ErrSubjectNameTaken, got %v", err)
	}

	env.teacher("t2", "Pak Budi")
	if _, err := env.subjects.Create(ctx, "t2", &dto.CreateSubjectRequest{Name: "Matematika"}); err != nil {
		t.Errorf("another teacher may reuse the name: %v", err)
	}

	if _, err := env.subjects.Create(ctx, "t1", &dto.CreateSubjectRequest{Name: "   "}); !errors.Is(err, ErrSubjectNameRequired) {
		t.Errorf("expected ErrSubjectNameRequired, got %v", err)
	}
}

func TestUpdateSubject_ClearsSemester(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("sub", "t1", "IPA", str(model.SemesterGenap))

	resp, err := env.subjects.Update(context.Background(), "sub", "t1", &dto.UpdateSubjectRequest{Name: "IPA", Semester: str("")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if resp.Semester != nil {
		t.Errorf("expected semester cleared, got %v", *resp.Semester)
	}
}

func TestDeleteSubject_Cascades(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("sub", "t1", "IPA", nil)
	env.subject("keep", "t1", "IPS", nil)
	env.student("s1", "sub", "Ana", nil)
	env.student("s2", "sub", "Budi", nil)
	env.student("s3", "keep", "Citra", nil)

	if err := env.subjects.Delete(context.Background(), "sub", "t1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := env.st.subjects["sub"]; ok {
		t.Error("subject still present")
	}
	if len(env.st.students) != 1 || len(env.st.grades) != 1 {
		t.Errorf("expected only Citra and her grade left, got %d students / %d grades", len(env.st.students), len(env.st.grades))
	}
}

func TestDeleteSubject_NotOwned(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("sub", "t1", "IPA", nil)

	if err := env.subjects.Delete(context.Background(), "sub", "t2"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound, got %v", err)
	}
	if _, ok := env.st.subjects["sub"]; !ok {
		t.Error("subject must survive a foreign delete")
	}
}

func TestListSubjects_StudentCount(t *testing.T) {
	env := newTestEnv()
	env.teacher("t1", "Bu Sari")
	env.subject("b", "t1", "IPA", nil)
	env.subject("a", "t1", "Bahasa", nil)
	env.student("s1", "b", "Ana", nil)
	env.student("s2", "b", "Budi", nil)

	list, err := env.subjects.List(context.Background(), "t1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Bahasa" {
		t.Fatalf("expected name ordering, got %+v", list)
	}
	if list[1].StudentCount != 2 {
		t.Errorf("expected 2 students in IPA, got %d", list[1].StudentCount)
	}
}
