package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studentdir/core/student"
)

func TestComputeAnalytics(t *testing.T) {
	students := []student.Student{
		withGrades(stud("1", "A", "a@x.edu", "Engineering"), 90, 80),
		stud("2", "B", "b@x.edu", "Computer Science"),
	}

	a := ComputeAnalytics(students)

	assert.Equal(t, 2, a.TotalStudents)
	assert.Equal(t, []Count{{Name: "ECOAST", Value: 2}}, a.Departments)
	assert.Equal(t, 85.0, a.AverageGWA, "students without grades are left out of the average")
	assert.Equal(t, 85, a.AverageGWADisplay)
	assert.Equal(t, 1, a.GradedStudents)
	assert.Equal(t, []Count{{Name: "Scholars", Value: 1}, {Name: "Non-Scholars", Value: 1}}, a.ScholarStatus)
}

func TestComputeAnalytics_rawMeans(t *testing.T) {
	students := []student.Student{
		withGrades(stud("1", "A", "a@x.edu", "Engineering"), 84, 85.99), // 84.995, shown as 85.00
		withGrades(stud("2", "B", "b@x.edu", "Engineering"), 84),
	}

	a := ComputeAnalytics(students)

	assert.Equal(t, []Count{{Name: "Scholars", Value: 0}, {Name: "Non-Scholars", Value: 2}}, a.ScholarStatus)
	assert.InDelta(t, 84.5, a.AverageGWA, 0.0001)
	assert.Equal(t, 84, a.AverageGWADisplay)
}

func TestComputeAnalytics_distributions(t *testing.T) {
	students := []student.Student{
		withGrades(stud("1", "A", "a@x.edu", "Education Major in English", "Physics", "Art"), 84.4),
		withGrades(stud("2", "B", "b@x.edu", "Business Administration", "Art", "Art"), 90),
		stud("3", "C", "c@x.edu", "Engineering", "Physics"),
		stud("4", "D", "d@x.edu", "Arts and Sciences", "Chemistry"),
		stud("5", "E", "e@x.edu", "Nursing", "Chemistry", "Art"),
	}

	a := ComputeAnalytics(students)

	assert.Equal(t, []Count{
		{Name: "Business Administration", Value: 1},
		{Name: "Arts and Sciences", Value: 1},
		{Name: "ECOAST", Value: 1},
		{Name: "RPSEA", Value: 1},
	}, a.Departments, "ties keep the fixed order; unknown departments are left out")
	assert.Equal(t, []Count{
		{Name: "Art", Value: 3},
		{Name: "Physics", Value: 2},
		{Name: "Chemistry", Value: 2},
	}, a.Courses, "a course listed twice by a student counts once")
	assert.Equal(t, 87.2, a.AverageGWA)
	assert.Equal(t, 87, a.AverageGWADisplay)
	assert.Equal(t, []Count{{Name: "Scholars", Value: 1}, {Name: "Non-Scholars", Value: 4}}, a.ScholarStatus)
}

func TestComputeAnalytics_empty(t *testing.T) {
	a := ComputeAnalytics(nil)
	assert.Equal(t, 0, a.TotalStudents)
	assert.Empty(t, a.Departments)
	assert.Empty(t, a.Courses)
	assert.Zero(t, a.AverageGWA)
	assert.Equal(t, []Count{{Name: "Scholars", Value: 0}, {Name: "Non-Scholars", Value: 0}}, a.ScholarStatus)
}

func TestComputeStats(t *testing.T) {
	students := []student.Student{
		stud("1", "A", "a@x.edu", "Engineering", "Physics"),
		stud("2", "B", "b@x.edu", "Computer Science", "Art"),
		stud("3", "C", "c@x.edu", "Business Administration", "Art"),
	}
	assert.Equal(t, Stats{TotalStudents: 3, DepartmentGroups: 2, Classes: 2}, ComputeStats(students))
}
