// Package docgen builds the document images a verification category needs:
// enrollment certificates for students, employment letters and identity cards
// for teachers, district employment letters for k12 educators. Rasterization
// is delegated to a Renderer; a dead renderer fails the build, never the
// process.
package docgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"verihub/internal/identity"
	"verihub/internal/logging"
)

// Document is one rendered file ready for slot declaration and upload.
type Document struct {
	FileName string
	Data     []byte
	MimeType string
}

// Renderer turns a standalone HTML page into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

var majors = []string{
	"Computer Science", "Biology", "Psychology", "Business Administration",
	"Engineering", "English Literature", "Mathematics", "Economics",
	"Political Science", "Chemistry", "Communications", "Nursing",
	"Accounting", "Sociology", "History", "Environmental Science",
}

var departments = []string{
	"College of Arts and Sciences", "School of Education", "Department of Mathematics",
	"Department of English", "College of Engineering", "School of Business",
	"Department of Biology", "Department of History",
}

var gradeLevels = []string{
	"Elementary (K-5)", "Middle School (6-8)", "High School (9-12)",
}

// Builder assembles the per-category document set.
type Builder struct {
	renderer Renderer
	gen      *identity.Generator

	mu  sync.Mutex
	rng *rand.Rand

	// K12TwoDocuments adds the identity card to k12 sets for districts that
	// require both.
	K12TwoDocuments bool
}

// NewBuilder wires a renderer and an identity generator.
func NewBuilder(r Renderer, gen *identity.Generator) *Builder {
	return &Builder{
		renderer: r,
		gen:      gen,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *Builder) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}

func (b *Builder) pick(pool []string) string {
	return pool[b.intn(len(pool))]
}

// Build renders the ordered document set for a category. The count and order
// are significant: upload slots are requested for exactly these files, in
// this order.
func (b *Builder) Build(ctx context.Context, first, last string, cat identity.Category, orgName string) ([]Document, error) {
	timer := logging.StartTimer(logging.CategoryRenderer, "build documents")
	defer timer.Stop()

	switch cat {
	case identity.CategoryStudent:
		data, err := b.render(ctx, b.enrollmentHTML(first, last, orgName))
		if err != nil {
			return nil, err
		}
		return []Document{{FileName: "enrollment_verification.png", Data: data, MimeType: "image/png"}}, nil

	case identity.CategoryTeacher:
		card, err := b.render(ctx, b.identityCardHTML(first, last, orgName))
		if err != nil {
			return nil, err
		}
		letter, err := b.render(ctx, b.employmentHTML(first, last, orgName))
		if err != nil {
			return nil, err
		}
		return []Document{
			{FileName: "faculty_id_card.png", Data: card, MimeType: "image/png"},
			{FileName: "employment_verification.png", Data: letter, MimeType: "image/png"},
		}, nil

	case identity.CategoryK12Teacher:
		letter, err := b.render(ctx, b.k12HTML(first, last, orgName))
		if err != nil {
			return nil, err
		}
		docs := []Document{{FileName: "employment_verification.png", Data: letter, MimeType: "image/png"}}
		if b.K12TwoDocuments {
			card, err := b.render(ctx, b.identityCardHTML(first, last, orgName))
			if err != nil {
				return nil, err
			}
			docs = append(docs, Document{FileName: "educator_id_card.png", Data: card, MimeType: "image/png"})
		}
		return docs, nil
	}
	return nil, fmt.Errorf("unknown category %q", cat)
}

func (b *Builder) render(ctx context.Context, html string) ([]byte, error) {
	if b.renderer == nil {
		return nil, fmt.Errorf("no renderer available")
	}
	data, err := b.renderer.Render(ctx, html)
	if err != nil {
		logging.RendererError("render failed: %v", err)
		return nil, fmt.Errorf("render document: %w", err)
	}
	return data, nil
}

func docID(prefix string, rng func(int) int) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 10)
	for i := range b {
		b[i] = alphabet[rng(len(alphabet))]
	}
	return prefix + "-" + string(b[:5]) + "-" + string(b[5:])
}

// orgInitials reduces an organization name to up to three capital initials
// for the letterhead mark.
func orgInitials(name string) string {
	var out []byte
	for _, w := range strings.Fields(name) {
		if len(w) > 2 && w[0] >= 'A' && w[0] <= 'Z' {
			out = append(out, w[0])
		}
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return "U"
	}
	return string(out)
}

func currentTerm(now time.Time) string {
	switch m := now.Month(); {
	case m <= time.May:
		return fmt.Sprintf("Spring %d", now.Year())
	case m <= time.August:
		return fmt.Sprintf("Summer %d", now.Year())
	default:
		return fmt.Sprintf("Fall %d", now.Year())
	}
}

func (b *Builder) enrollmentHTML(first, last, org string) string {
	now := time.Now()
	enrollYear := now.Year() - (b.intn(3) + 1)
	data := struct {
		Initials, Organization, Date, Term string
		Name, StudentID, Major             string
		Credits, EnrollYear, GradYear      int
		DocumentID                         string
	}{
		Initials:     orgInitials(org),
		Organization: org,
		Date:         now.Format("January 2, 2006"),
		Term:         currentTerm(now),
		Name:         first + " " + last,
		StudentID:    b.gen.StudentID(),
		Major:        b.pick(majors),
		Credits:      b.intn(6) + 12,
		EnrollYear:   enrollYear,
		GradYear:     enrollYear + 4,
		DocumentID:   docID("ENR", b.intn),
	}
	var buf bytes.Buffer
	enrollmentTmpl.Execute(&buf, data)
	return buf.String()
}

func (b *Builder) employmentHTML(first, last, org string) string {
	now := time.Now()
	data := struct {
		Initials, Organization, Date   string
		Name, Position, Department     string
		HireYear                       int
		DocumentID                     string
	}{
		Initials:     orgInitials(org),
		Organization: org,
		Date:         now.Format("January 2, 2006"),
		Name:         first + " " + last,
		Position:     "Assistant Professor",
		Department:   b.pick(departments),
		HireYear:     now.Year() - (b.intn(8) + 2),
		DocumentID:   docID("EMP", b.intn),
	}
	var buf bytes.Buffer
	employmentTmpl.Execute(&buf, data)
	return buf.String()
}

func (b *Builder) identityCardHTML(first, last, org string) string {
	data := struct {
		Initials, Organization, Name   string
		EmployeeID, Position, Department string
		ExpiryYear                     int
	}{
		Initials:     orgInitials(org),
		Organization: org,
		Name:         first + " " + last,
		EmployeeID:   b.gen.StudentID(),
		Position:     "Faculty",
		Department:   b.pick(departments),
		ExpiryYear:   time.Now().Year() + 1,
	}
	var buf bytes.Buffer
	identityCardTmpl.Execute(&buf, data)
	return buf.String()
}

func (b *Builder) k12HTML(first, last, org string) string {
	now := time.Now()
	year := now.Year()
	if now.Month() < time.August {
		year--
	}
	data := struct {
		Initials, Organization, Date string
		Name, Position, GradeLevel   string
		ContractYear                 string
		DocumentID                   string
	}{
		Initials:     orgInitials(org),
		Organization: org,
		Date:         now.Format("January 2, 2006"),
		Name:         first + " " + last,
		Position:     "Classroom Teacher",
		GradeLevel:   b.pick(gradeLevels),
		ContractYear: fmt.Sprintf("%d-%d", year, year+1),
		DocumentID:   docID("K12", b.intn),
	}
	var buf bytes.Buffer
	k12EmploymentTmpl.Execute(&buf, data)
	return buf.String()
}
