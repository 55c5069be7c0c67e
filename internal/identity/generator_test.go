package identity

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func TestEmailShape(t *testing.T) {
	g := NewSeeded(42)

	email := g.Email("Jane", "Smith", "Berkeley.EDU")
	if !strings.HasSuffix(email, "@berkeley.edu") {
		t.Errorf("domain not lowercased: %q", email)
	}
	if !strings.HasPrefix(email, "jane.smith") {
		t.Errorf("local part not first.last lowercased: %q", email)
	}

	digits := strings.TrimSuffix(strings.TrimPrefix(email, "jane.smith"), "@berkeley.edu")
	n, err := strconv.Atoi(digits)
	if err != nil {
		t.Fatalf("suffix %q not numeric", digits)
	}
	if n < 1000 || n > 9999 {
		t.Errorf("suffix %d outside 1000..9999", n)
	}
}

func TestEmailDefaultDomain(t *testing.T) {
	g := NewSeeded(1)
	if !strings.HasSuffix(g.Email("A", "B", ""), "@psu.edu") {
		t.Error("empty domain should fall back to psu.edu")
	}
}

func TestBirthDateWindows(t *testing.T) {
	g := NewSeeded(7)
	datePattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	for i := 0; i < 200; i++ {
		for _, tc := range []struct {
			cat      Category
			min, max int
		}{
			{CategoryStudent, 2000, 2005},
			{CategoryTeacher, 1970, 1999},
			{CategoryK12Teacher, 1970, 1999},
		} {
			d := g.BirthDate(tc.cat)
			if !datePattern.MatchString(d) {
				t.Fatalf("%s date %q not zero-padded ISO", tc.cat, d)
			}
			year, _ := strconv.Atoi(d[:4])
			if year < tc.min || year > tc.max {
				t.Fatalf("%s year %d outside %d..%d", tc.cat, year, tc.min, tc.max)
			}
			day, _ := strconv.Atoi(d[8:])
			if day < 1 || day > 28 {
				t.Fatalf("day %d outside 1..28", day)
			}
			month, _ := strconv.Atoi(d[5:7])
			if month < 1 || month > 12 {
				t.Fatalf("month %d outside 1..12", month)
			}
		}
	}
}

func TestDeviceFingerprint(t *testing.T) {
	g := NewSeeded(9)

	fp := g.DeviceFingerprint()
	if len(fp) != 32 {
		t.Fatalf("len = %d, want 32", len(fp))
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(fp) {
		t.Errorf("fingerprint %q not lowercase hex", fp)
	}
	if fp == g.DeviceFingerprint() {
		t.Error("consecutive fingerprints identical")
	}
}

func TestStudentIDNineDigits(t *testing.T) {
	g := NewSeeded(3)
	for i := 0; i < 100; i++ {
		id := g.StudentID()
		if len(id) != 9 {
			t.Fatalf("student id %q not nine digits", id)
		}
		if id[0] == '0' {
			t.Fatalf("student id %q has leading zero", id)
		}
	}
}

func TestNamePoolsPopulated(t *testing.T) {
	g := NewSeeded(11)
	first, last := g.Name()
	if first == "" || last == "" {
		t.Fatal("empty name drawn")
	}
}

func TestSeededReproducible(t *testing.T) {
	a, b := NewSeeded(5), NewSeeded(5)
	for i := 0; i < 10; i++ {
		af, al := a.Name()
		bf, bl := b.Name()
		if af != bf || al != bl {
			t.Fatal("same seed produced different draws")
		}
	}
}
