// Package studentapi provides a client for the university registrar's
// student-app API, abstracted behind interfaces for testability.
package studentapi

import (
	"context"
	"strconv"
	"strings"
)

// CourseQuery defines the parameters for a catalog lookup.
type CourseQuery struct {
	Term    string
	Subject string // department code, e.g. COS
	CatNum  string // catalog number, e.g. 333
	Search  string
}

// Term is one academic term as reported by the terms endpoint.
type Term struct {
	Code string `json:"code"`
	Name string `json:"cal_name"`
}

// CourseListing is one course in a catalog response, with its class sections.
type CourseListing struct {
	CourseID      Ident          `json:"course_id"`
	CatalogNumber string         `json:"catalog_number"`
	Title         string         `json:"title"`
	Classes       []ClassSection `json:"classes"`
}

// ClassSection is one section of a course in a catalog response.
type ClassSection struct {
	ClassNumber Ident  `json:"class_number"`
	Section     string `json:"section"`
	Type        string `json:"type_name"`
}

// CatalogSubject groups the courses of one department in a catalog response.
type CatalogSubject struct {
	Code    string          `json:"code"`
	Courses []CourseListing `json:"courses"`
}

// Catalog is the decoded tree of one catalog query.
type Catalog struct {
	Subjects []CatalogSubject `json:"subjects"`
}

// SeatSnapshot is the seat state of one class section at one poll.
//
// A section with reserved seats can report StatusOpen with free capacity
// while not actually being enrollable for the requesting student. The API
// exposes no field to detect this, so callers must treat OpenSeats as an
// upper bound on enrollability.
type SeatSnapshot struct {
	CourseID   string
	ClassID    string
	Status     string
	Capacity   int
	Enrollment int
}

// StatusOpen is the registrar's calculated status for an enrollable section.
const StatusOpen = "Open"

// Open reports whether the section is open with at least one free seat.
func (s SeatSnapshot) Open() bool {
	return s.Status == StatusOpen && s.Capacity > s.Enrollment
}

// OpenSeats returns capacity minus enrollment, or 0 when the section is not open.
func (s SeatSnapshot) OpenSeats() int {
	if !s.Open() {
		return 0
	}
	return s.Capacity - s.Enrollment
}

// Client defines the interface for querying the registrar API.
type Client interface {
	// Terms lists academic terms, most recent last.
	Terms(ctx context.Context) ([]Term, error)
	// Courses queries the course catalog for one subject/catalog number.
	Courses(ctx context.Context, q CourseQuery) (*Catalog, error)
	// Seats returns current seat state for every class of the given courses.
	Seats(ctx context.Context, term string, courseIDs []string) ([]SeatSnapshot, error)
}

// TokenProvider defines the interface for obtaining OAuth2 tokens.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops any cached token so the next Token call refreshes.
	Invalidate()
}

// Ident decodes registrar identifiers that arrive as either JSON numbers
// or quoted strings, depending on endpoint.
type Ident string

// UnmarshalJSON implements json.Unmarshaler.
func (id *Ident) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*id = Ident(s)
	return nil
}

// seatCount decodes capacity/enrollment fields, which some responses emit
// as strings. A value that does not parse decodes as -1 so that malformed
// sections never look enrollable.
type seatCount int

func (c *seatCount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		*c = -1
		return nil
	}
	*c = seatCount(n)
	return nil
}
