// Package watch turns operator course specs into resolved registrar
// identifiers ready for seat polling.
package watch

import (
	"fmt"
	"strings"
)

// Spec is one tracked-course request from the command line or environment.
// Either CourseCode (with optional section labels) or CourseID+ClassIDs is
// set, never both. Immutable once parsed.
type Spec struct {
	CourseCode string   // e.g. COS333
	Sections   []string // e.g. L01, P01; nil means all sections
	CourseID   string   // registrar course identifier, e.g. 002054
	ClassIDs   []string // registrar class identifiers, e.g. 21931
}

// String returns the spec in its original argument form.
func (s Spec) String() string {
	left := s.CourseCode
	right := strings.Join(s.Sections, ",")
	if s.CourseID != "" {
		left = s.CourseID
		right = strings.Join(s.ClassIDs, ",")
	}
	if right == "" {
		return left
	}
	return left + ":" + right
}

// Resolved reports whether the spec already carries registrar identifiers.
func (s Spec) Resolved() bool {
	return s.CourseID != "" && len(s.ClassIDs) > 0
}

// ParseSpec parses one course spec argument. Accepted forms:
//
//	COS333:L01,P01   course code with specific sections
//	COS333           course code, all sections
//	002054:21931,21927   pre-resolved course ID with class IDs
func ParseSpec(arg string) (Spec, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Spec{}, fmt.Errorf("empty course spec")
	}

	left, right, hasParts := strings.Cut(arg, ":")
	var parts []string
	if hasParts {
		for _, p := range strings.Split(right, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}

	if isDigits(left) {
		if len(parts) == 0 {
			return Spec{}, fmt.Errorf("spec %q: numeric course ID requires class IDs", arg)
		}
		for _, p := range parts {
			if !isDigits(p) {
				return Spec{}, fmt.Errorf("spec %q: class ID %q is not numeric", arg, p)
			}
		}
		return Spec{CourseID: left, ClassIDs: parts}, nil
	}

	code := strings.ToUpper(left)
	if len(code) < 4 || !isLetters(code[:3]) {
		return Spec{}, fmt.Errorf(
			"spec %q: course code must be a department code followed by a catalog number",
			arg,
		)
	}

	var sections []string
	for _, p := range parts {
		sections = append(sections, strings.ToUpper(p))
	}
	return Spec{CourseCode: code, Sections: sections}, nil
}

// ParseSpecs parses a list of spec arguments, failing on the first bad one.
func ParseSpecs(args []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(args))
	for _, arg := range args {
		s, err := ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// subject returns the department code portion of the course code.
func (s Spec) subject() string {
	return s.CourseCode[:3]
}

// catNum returns the catalog number portion of the course code.
func (s Spec) catNum() string {
	return s.CourseCode[3:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
