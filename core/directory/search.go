package directory

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

type SortKey string

const (
	SortNone       SortKey = ""
	SortNameAsc    SortKey = "name_asc"
	SortNameDesc   SortKey = "name_desc"
	SortDepartment SortKey = "department"
)

// ParseSortKey parses a sort query param. The empty string keeps insertion order.
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(core.CleanString(s, true /* lower */)); key {
	case SortNone, SortNameAsc, SortNameDesc, SortDepartment:
		return key, nil
	default:
		return SortNone, core.NewValidationError(
			errors.Errorf("unknown sort %q", s),
			core.FieldError{Field: "sort", Error: "sort must be one of: name_asc, name_desc, department"},
		)
	}
}

// Collators are not safe for concurrent use: every sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// SortStudents sorts students in place using locale-aware comparison.
// SortDepartment orders by department then name; a missing department sorts as "".
func SortStudents(students []student.Student, key SortKey) {
	if key == SortNone || len(students) < 2 {
		return
	}
	c := newCollator()
	var less func(a, b student.Student) bool
	switch key {
	case SortNameAsc:
		less = func(a, b student.Student) bool { return c.CompareString(a.Name, b.Name) < 0 }
	case SortNameDesc:
		less = func(a, b student.Student) bool { return c.CompareString(a.Name, b.Name) > 0 }
	case SortDepartment:
		less = func(a, b student.Student) bool {
			if cmp := c.CompareString(a.Department, b.Department); cmp != 0 {
				return cmp < 0
			}
			return c.CompareString(a.Name, b.Name) < 0
		}
	default:
		return
	}
	sort.SliceStable(students, func(i, j int) bool { return less(students[i], students[j]) })
}

// SortStrings sorts names in place using locale-aware comparison.
func SortStrings(names []string) {
	c := newCollator()
	sort.SliceStable(names, func(i, j int) bool { return c.CompareString(names[i], names[j]) < 0 })
}

// matcher does case-insensitive substring matching.
type matcher struct {
	fold   cases.Caser
	needle string
}

func newMatcher(query string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.needle = m.fold.String(strings.TrimSpace(query))
	return m
}

func (m *matcher) empty() bool { return m.needle == "" }

func (m *matcher) match(s string) bool {
	return s != "" && strings.Contains(m.fold.String(s), m.needle)
}

// FilterStudents keeps the students whose name, email or department contains query, ignoring case.
// An empty query keeps everyone.
func FilterStudents(students []student.Student, query string) []student.Student {
	m := newMatcher(query)
	if m.empty() {
		return students
	}
	res := make([]student.Student, 0, len(students))
	for _, s := range students {
		if m.match(s.Name) || m.match(s.Email) || m.match(s.Department) {
			res = append(res, s)
		}
	}
	return res
}
