package directory

import (
	"github.com/trezcool/studentdir/core/student"
)

func stud(id, name, email, dept string, courses ...string) student.Student {
	s := student.Student{
		ID:             id,
		Name:           name,
		Email:          email,
		Department:     dept,
		CurrentCourses: make([]student.Course, 0, len(courses)),
		Grades:         []student.Grade{},
	}
	for _, c := range courses {
		s.CurrentCourses = append(s.CurrentCourses, student.Course{Name: c, Credits: 3})
	}
	return s
}

func withGrades(s student.Student, scores ...float64) student.Student {
	for i, g := range scores {
		s.Grades = append(s.Grades, student.Grade{CourseName: string(rune('A' + i)), Grade: g})
	}
	return s
}

func names(students []student.Student) []string {
	res := make([]string, 0, len(students))
	for _, s := range students {
		res = append(res, s.Name)
	}
	return res
}
