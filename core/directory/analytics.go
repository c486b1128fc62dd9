package directory

import (
	"math"
	"sort"

	"github.com/trezcool/studentdir/core/student"
)

// Count is a named tally of a chart.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Analytics struct {
	TotalStudents int     `json:"total_students"`
	Departments   []Count `json:"departments"`
	Courses       []Count `json:"courses"`
	// AverageGWA is the mean of the unrounded GWAs of the students who have grades, 0 when nobody has.
	AverageGWA        float64 `json:"average_gwa"`
	AverageGWADisplay int     `json:"average_gwa_display"`
	GradedStudents    int     `json:"graded_students"`
	ScholarStatus     []Count `json:"scholar_status"`
}

// departmentTieOrder breaks ties between department counts.
func departmentTieOrder() []string {
	order := append([]string{}, student.StandaloneDepartments...)
	for _, p := range student.ParentDepartments {
		order = append(order, p.Name)
	}
	return order
}

// ComputeAnalytics tallies the students. Departments are rolled up to their college;
// a student without grades counts as a non-scholar.
func ComputeAnalytics(students []student.Student) Analytics {
	a := Analytics{TotalStudents: len(students)}

	deptCounts := make(map[string]int)
	courseCounts := make(map[string]int)
	courses := make([]string, 0)
	var gwaSum float64
	var scholars int
	for _, s := range students {
		if top, ok := student.TopLevelDepartment(s.Department); ok {
			deptCounts[top]++
		}

		seen := make(map[string]bool, len(s.CurrentCourses))
		for _, c := range s.CurrentCourses {
			if c.Name == "" || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			if courseCounts[c.Name] == 0 {
				courses = append(courses, c.Name)
			}
			courseCounts[c.Name]++
		}

		if mean, ok := s.MeanGrade(); ok {
			a.GradedStudents++
			gwaSum += mean
		}
		if s.IsScholar() {
			scholars++
		}
	}

	a.Departments = make([]Count, 0, len(deptCounts))
	for _, name := range departmentTieOrder() {
		if n := deptCounts[name]; n > 0 {
			a.Departments = append(a.Departments, Count{Name: name, Value: n})
		}
	}
	sortCountsDesc(a.Departments)

	a.Courses = make([]Count, 0, len(courses))
	for _, name := range courses {
		a.Courses = append(a.Courses, Count{Name: name, Value: courseCounts[name]})
	}
	sortCountsDesc(a.Courses)

	if a.GradedStudents > 0 {
		avg := gwaSum / float64(a.GradedStudents)
		a.AverageGWA = student.RoundGWA(avg)
		a.AverageGWADisplay = int(math.Round(avg))
	}

	a.ScholarStatus = []Count{
		{Name: "Scholars", Value: scholars},
		{Name: "Non-Scholars", Value: len(students) - scholars},
	}
	return a
}

// sortCountsDesc sorts by value, keeping the current order between equal values.
func sortCountsDesc(counts []Count) {
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Value > counts[j].Value })
}

// Stats are the dashboard figures.
type Stats struct {
	TotalStudents    int `json:"total_students"`
	DepartmentGroups int `json:"department_groups"`
	Classes          int `json:"classes"`
}

func ComputeStats(students []student.Student) Stats {
	return Stats{
		TotalStudents:    len(students),
		DepartmentGroups: len(BuildHierarchy(students)),
		Classes:          len(BuildRosters(students)),
	}
}
