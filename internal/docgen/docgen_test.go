package docgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"verihub/internal/identity"
)

type fakeRenderer struct {
	calls   []string
	failOn  int // 1-based call index to fail at, 0 = never
	payload []byte
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.calls = append(f.calls, html)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, errors.New("browser gone")
	}
	if f.payload != nil {
		return f.payload, nil
	}
	return []byte("png"), nil
}

func newTestBuilder(r Renderer) *Builder {
	return NewBuilder(r, identity.NewSeeded(1))
}

func TestBuildStudentSet(t *testing.T) {
	fr := &fakeRenderer{}
	b := newTestBuilder(fr)

	docs, err := b.Build(context.Background(), "Jane", "Smith", identity.CategoryStudent, "State University")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("student set len = %d, want 1", len(docs))
	}
	if docs[0].FileName != "enrollment_verification.png" {
		t.Errorf("file name = %q", docs[0].FileName)
	}
	if docs[0].MimeType != "image/png" {
		t.Errorf("mime = %q", docs[0].MimeType)
	}
	if !strings.Contains(fr.calls[0], "Jane Smith") || !strings.Contains(fr.calls[0], "State University") {
		t.Error("rendered page missing persona or organization")
	}
	if !strings.Contains(fr.calls[0], "Certificate of Enrollment") {
		t.Error("wrong template for student category")
	}
}

func TestBuildTeacherSetOrder(t *testing.T) {
	fr := &fakeRenderer{}
	b := newTestBuilder(fr)

	docs, err := b.Build(context.Background(), "John", "Doe", identity.CategoryTeacher, "State University")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("teacher set len = %d, want 2", len(docs))
	}
	// Card first, letter second. Slot requests depend on this order.
	if docs[0].FileName != "faculty_id_card.png" || docs[1].FileName != "employment_verification.png" {
		t.Errorf("order = %q, %q", docs[0].FileName, docs[1].FileName)
	}
	if !strings.Contains(fr.calls[0], "Faculty Identification") {
		t.Error("first render is not the identity card")
	}
	if !strings.Contains(fr.calls[1], "Verification of Employment") {
		t.Error("second render is not the employment letter")
	}
}

func TestBuildK12SetSingleAndDouble(t *testing.T) {
	b := newTestBuilder(&fakeRenderer{})

	docs, err := b.Build(context.Background(), "A", "B", identity.CategoryK12Teacher, "Unified School District")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 1 || docs[0].FileName != "employment_verification.png" {
		t.Fatalf("k12 default set = %+v", docs)
	}

	b.K12TwoDocuments = true
	docs, err = b.Build(context.Background(), "A", "B", identity.CategoryK12Teacher, "Unified School District")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(docs) != 2 || docs[1].FileName != "educator_id_card.png" {
		t.Fatalf("k12 two-doc set = %+v", docs)
	}
}

func TestBuildRendererFailure(t *testing.T) {
	b := newTestBuilder(&fakeRenderer{failOn: 2})

	// Second render dies; the whole set fails rather than returning a
	// partial document list.
	_, err := b.Build(context.Background(), "John", "Doe", identity.CategoryTeacher, "State University")
	if err == nil {
		t.Fatal("want error when a render fails")
	}
}

func TestBuildNoRenderer(t *testing.T) {
	b := newTestBuilder(nil)
	if _, err := b.Build(context.Background(), "A", "B", identity.CategoryStudent, "X"); err == nil {
		t.Fatal("want error with no renderer")
	}
}

func TestOrgInitials(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"State University", "SU"},
		{"University of the Pacific", "UP"},
		{"Abc Def Ghi Jkl", "ADG"},
		{"x y", "U"},
	}
	for _, tt := range tests {
		if got := orgInitials(tt.in); got != tt.want {
			t.Errorf("orgInitials(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
