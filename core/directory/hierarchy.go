package directory

import "github.com/trezcool/studentdir/core/student"

// DepartmentGroup is a node of the department hierarchy.
// Total counts the students of the group and of all its children.
type DepartmentGroup struct {
	Name     string            `json:"name"`
	Title    string            `json:"title"`
	Students []student.Student `json:"students"`
	Children []DepartmentGroup `json:"children,omitempty"`
	Total    int               `json:"total"`
}

// BuildHierarchy groups students by department: colleges first, in declaration order, then the standalone departments.
// Groups without students are left out. Students of unknown departments are not counted.
func BuildHierarchy(students []student.Student) []DepartmentGroup {
	byDept := make(map[string][]student.Student)
	for _, s := range students {
		if s.Department == "" {
			continue
		}
		byDept[s.Department] = append(byDept[s.Department], s)
	}

	groups := make([]DepartmentGroup, 0, len(student.ParentDepartments)+len(student.StandaloneDepartments))
	for _, p := range student.ParentDepartments {
		parent := DepartmentGroup{
			Name:     p.Name,
			Title:    p.Title,
			Students: nonNil(byDept[p.Name]),
		}
		parent.Total = len(parent.Students)
		for _, child := range p.Children {
			if leaf, ok := leafGroup(child, byDept[child]); ok {
				parent.Children = append(parent.Children, leaf)
				parent.Total += leaf.Total
			}
		}
		if parent.Total > 0 {
			groups = append(groups, parent)
		}
	}
	for _, dept := range student.StandaloneDepartments {
		if leaf, ok := leafGroup(dept, byDept[dept]); ok {
			groups = append(groups, leaf)
		}
	}
	return groups
}

func leafGroup(name string, students []student.Student) (DepartmentGroup, bool) {
	if len(students) == 0 {
		return DepartmentGroup{}, false
	}
	return DepartmentGroup{Name: name, Title: name, Students: students, Total: len(students)}, true
}

func nonNil(students []student.Student) []student.Student {
	if students == nil {
		return []student.Student{}
	}
	return students
}

// DepartmentPath is the path of dept in the hierarchy: [college, department] or [department].
func DepartmentPath(dept string) []string {
	if dept == "" {
		return []string{}
	}
	if p, ok := student.ParentOf(dept); ok {
		return []string{p.Name, dept}
	}
	return []string{dept}
}
