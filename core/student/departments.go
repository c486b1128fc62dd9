package student

// ParentDepartment is a college grouping several departments.
type ParentDepartment struct {
	Name     string
	Title    string
	Children []string
}

var (
	// ParentDepartments are the colleges, in display order.
	ParentDepartments = []ParentDepartment{
		{
			Name:     "ECOAST",
			Title:    "ECOAST (College of Engineering, Computer Studies and Architecture)",
			Children: []string{"Engineering", "Computer Science", "Information Technology"},
		},
		{
			Name:     "RPSEA",
			Title:    "RPSEA (College of Teacher Education)",
			Children: []string{"Education Major in English", "Education Major in Filipino", "Education Major in Math"},
		},
	}

	// StandaloneDepartments are top-level departments outside any college.
	StandaloneDepartments = []string{"Business Administration", "Arts and Sciences"}

	departmentParents = buildDepartmentParents()
)

func buildDepartmentParents() map[string]string {
	m := make(map[string]string)
	for _, p := range ParentDepartments {
		for _, child := range p.Children {
			m[child] = p.Name
		}
	}
	for _, d := range StandaloneDepartments {
		m[d] = d
	}
	return m
}

// Departments returns every department a student may belong to.
func Departments() []string {
	depts := make([]string, 0, len(departmentParents))
	for _, p := range ParentDepartments {
		depts = append(depts, p.Children...)
	}
	return append(depts, StandaloneDepartments...)
}

// IsDepartment reports whether name is a known department.
func IsDepartment(name string) bool {
	_, ok := departmentParents[name]
	return ok
}

// TopLevelDepartment returns the college of dept, or dept itself for standalone departments.
// ok is false for unknown departments.
func TopLevelDepartment(dept string) (top string, ok bool) {
	top, ok = departmentParents[dept]
	return
}

// ParentOf returns the college dept belongs to, if any.
func ParentOf(dept string) (ParentDepartment, bool) {
	name, ok := departmentParents[dept]
	if !ok {
		return ParentDepartment{}, false
	}
	for _, p := range ParentDepartments {
		if p.Name == name {
			return p, true
		}
	}
	return ParentDepartment{}, false
}
