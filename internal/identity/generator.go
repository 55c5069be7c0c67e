// Package identity produces the synthetic personas a verification run
// submits: names, campus email addresses, category-appropriate birth dates,
// device fingerprints, and student id numbers.
package identity

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Category selects the birth date window and payload shape of a persona.
type Category string

const (
	CategoryStudent    Category = "student"
	CategoryTeacher    Category = "teacher"
	CategoryK12Teacher Category = "k12teacher"
)

// Generator draws personas from a seeded source. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a generator seeded from the clock.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a generator with a fixed seed. Tests use this for
// reproducible draws.
func NewSeeded(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// Name draws a first and last name from the pools.
func (g *Generator) Name() (first, last string) {
	return firstNames[g.intn(len(firstNames))], lastNames[g.intn(len(lastNames))]
}

// Email builds a campus address as first.last<NNNN>@domain, lowercased, with
// a four digit suffix in 1000..9999.
func (g *Generator) Email(first, last, domain string) string {
	if domain == "" {
		domain = "psu.edu"
	}
	digits := g.intn(9000) + 1000
	return strings.ToLower(fmt.Sprintf("%s.%s%d@%s", first, last, digits, domain))
}

// BirthDate returns an ISO date inside the category's plausible window:
// teachers 1970..1999, students 2000..2005. Day caps at 28 so every month is
// valid.
func (g *Generator) BirthDate(cat Category) string {
	var year int
	if cat == CategoryTeacher || cat == CategoryK12Teacher {
		year = 1970 + g.intn(30)
	} else {
		year = 2000 + g.intn(6)
	}
	month := g.intn(12) + 1
	day := g.intn(28) + 1
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// DeviceFingerprint returns 32 lowercase hex characters.
func (g *Generator) DeviceFingerprint() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 32)
	for i := range b {
		b[i] = hex[g.intn(len(hex))]
	}
	return string(b)
}

// StudentID returns a nine digit id with a nonzero leading digit.
func (g *Generator) StudentID() string {
	return fmt.Sprintf("%d", 100000000+g.intn(900000000))
}

// ExternalUserToken returns a fresh opaque user token for programs that
// require one when the landing URL carries none.
func (g *Generator) ExternalUserToken() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 16)
	for i := range b {
		b[i] = alphabet[g.intn(len(alphabet))]
	}
	return string(b)
}
