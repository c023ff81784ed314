package watch

import (
	"context"
	"fmt"
	"log/slog"

	"seatwatch/internal/studentapi"
)

// Section is one resolved tracked section.
type Section struct {
	CourseID string
	ClassID  string
	Display  string // e.g. COS333, or the course ID for numeric specs
	Label    string // e.g. L01; empty for numeric specs
}

// ResolutionError reports a course spec that could not be mapped to
// registrar identifiers. It is fatal for the entry that produced it.
type ResolutionError struct {
	Spec   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %s", e.Spec, e.Reason)
}

// Resolver maps course specs to registrar identifiers via the catalog API.
type Resolver struct {
	api studentapi.Client
	log *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(api studentapi.Client, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{api: api, log: log}
}

// LatestTerm returns the code of the most recent academic term. The terms
// endpoint lists terms oldest-first, so the last entry with a code wins.
func (r *Resolver) LatestTerm(ctx context.Context) (string, error) {
	terms, err := r.api.Terms(ctx)
	if err != nil {
		return "", fmt.Errorf("listing terms: %w", err)
	}
	for i := len(terms) - 1; i >= 0; i-- {
		if terms[i].Code != "" {
			return terms[i].Code, nil
		}
	}
	return "", fmt.Errorf("no term code in terms response")
}

// Resolve maps one spec to its tracked sections within the given term.
// Pre-resolved specs pass through without an API call.
func (r *Resolver) Resolve(
	ctx context.Context,
	term string,
	spec Spec,
) ([]Section, error) {
	if spec.Resolved() {
		sections := make([]Section, 0, len(spec.ClassIDs))
		for _, classID := range spec.ClassIDs {
			sections = append(sections, Section{
				CourseID: spec.CourseID,
				ClassID:  classID,
				Display:  spec.CourseID,
			})
		}
		return sections, nil
	}

	catalog, err := r.api.Courses(ctx, studentapi.CourseQuery{
		Term:    term,
		Subject: spec.subject(),
		CatNum:  spec.catNum(),
	})
	if err != nil {
		return nil, &ResolutionError{Spec: spec.String(), Reason: err.Error()}
	}

	course, subjectCode := findCourse(catalog, spec.CourseCode)
	if course == nil {
		return nil, &ResolutionError{
			Spec:   spec.String(),
			Reason: fmt.Sprintf("no course %s in term %s", spec.CourseCode, term),
		}
	}

	wanted := make(map[string]bool, len(spec.Sections))
	for _, sec := range spec.Sections {
		wanted[sec] = true
	}

	var sections []Section
	for _, cls := range course.Classes {
		if len(wanted) > 0 && !wanted[cls.Section] {
			continue
		}
		sections = append(sections, Section{
			CourseID: string(course.CourseID),
			ClassID:  string(cls.ClassNumber),
			Display:  subjectCode + course.CatalogNumber,
			Label:    cls.Section,
		})
	}

	if len(sections) == 0 {
		return nil, &ResolutionError{
			Spec:   spec.String(),
			Reason: fmt.Sprintf("no matching sections for %s in term %s", spec.CourseCode, term),
		}
	}

	r.log.Debug("resolved course",
		"spec", spec.String(),
		"course_id", sections[0].CourseID,
		"sections", len(sections),
	)
	return sections, nil
}

func findCourse(catalog *studentapi.Catalog, courseCode string) (*studentapi.CourseListing, string) {
	for si := range catalog.Subjects {
		subj := &catalog.Subjects[si]
		for ci := range subj.Courses {
			course := &subj.Courses[ci]
			if subj.Code+course.CatalogNumber == courseCode {
				return course, subj.Code
			}
		}
	}
	return nil, ""
}
