package directory

import "github.com/trezcool/studentdir/core/student"

// Roster is the list of students enrolled in a course.
type Roster struct {
	Course   string            `json:"course"`
	Students []student.Student `json:"students"`
}

// BuildRosters inverts students to courses. Rosters are sorted by course name and their students by name.
// A course listed twice by a student appears once in its roster.
func BuildRosters(students []student.Student) []Roster {
	byCourse := make(map[string][]student.Student)
	courses := make([]string, 0)
	for _, s := range students {
		seen := make(map[string]bool, len(s.CurrentCourses))
		for _, c := range s.CurrentCourses {
			if c.Name == "" || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			if _, ok := byCourse[c.Name]; !ok {
				courses = append(courses, c.Name)
			}
			byCourse[c.Name] = append(byCourse[c.Name], s)
		}
	}

	SortStrings(courses)
	rosters := make([]Roster, 0, len(courses))
	for _, course := range courses {
		members := byCourse[course]
		SortStudents(members, SortNameAsc)
		rosters = append(rosters, Roster{Course: course, Students: members})
	}
	return rosters
}

// FindRoster returns the roster of course.
func FindRoster(rosters []Roster, course string) (Roster, bool) {
	for _, r := range rosters {
		if r.Course == course {
			return r, true
		}
	}
	return Roster{}, false
}

// FilterRoster keeps the members whose name or email contains query, ignoring case, sorted by key.
// Only the name sort keys apply to rosters.
func FilterRoster(r Roster, query string, key SortKey) Roster {
	m := newMatcher(query)
	members := make([]student.Student, 0, len(r.Students))
	for _, s := range r.Students {
		if m.empty() || m.match(s.Name) || m.match(s.Email) {
			members = append(members, s)
		}
	}
	if key == SortNameAsc || key == SortNameDesc {
		SortStudents(members, key)
	}
	return Roster{Course: r.Course, Students: members}
}

type ClassMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ClassExport struct {
	ClassName    string        `json:"class_name"`
	StudentCount int           `json:"student_count"`
	Students     []ClassMember `json:"students"`
}

// ClassListExport flattens rosters for download.
func ClassListExport(rosters []Roster) []ClassExport {
	res := make([]ClassExport, 0, len(rosters))
	for _, r := range rosters {
		ce := ClassExport{ClassName: r.Course, StudentCount: len(r.Students), Students: make([]ClassMember, 0, len(r.Students))}
		for _, s := range r.Students {
			ce.Students = append(ce.Students, ClassMember{Name: s.Name, Email: s.Email})
		}
		res = append(res, ce)
	}
	return res
}

// NoGrade is exported in place of a missing grade.
const NoGrade = "N/A"

type GradeExportRow struct {
	StudentEmail string      `json:"student_email"`
	StudentName  string      `json:"student_name"`
	Grade        interface{} `json:"grade"` // float64 or NoGrade
}

// GradeExport lists the grade of each member of the roster.
func GradeExport(r Roster) []GradeExportRow {
	rows := make([]GradeExportRow, 0, len(r.Students))
	for _, s := range r.Students {
		row := GradeExportRow{StudentEmail: s.Email, StudentName: s.Name, Grade: NoGrade}
		if g, ok := s.CourseGrade(r.Course); ok {
			row.Grade = g
		}
		rows = append(rows, row)
	}
	return rows
}
