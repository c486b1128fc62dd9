package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentdir/core/student"
)

// checkTotals asserts that every group counts its own students plus its children's, and that none is empty.
func checkTotals(t *testing.T, groups []DepartmentGroup) int {
	t.Helper()
	var sum int
	for _, g := range groups {
		want := len(g.Students) + checkTotals(t, g.Children)
		assert.Equal(t, want, g.Total, g.Name)
		assert.NotZero(t, g.Total, "empty group %s", g.Name)
		sum += g.Total
	}
	return sum
}

func groupNames(groups []DepartmentGroup) []string {
	res := make([]string, 0, len(groups))
	for _, g := range groups {
		res = append(res, g.Name)
	}
	return res
}

func TestBuildHierarchy(t *testing.T) {
	students := []student.Student{
		stud("1", "A", "a@x.edu", "Arts and Sciences"),
		stud("2", "B", "b@x.edu", "Information Technology"),
		stud("3", "C", "c@x.edu", "Engineering"),
		stud("4", "D", "d@x.edu", "Information Technology"),
		stud("5", "E", "e@x.edu", ""),
		stud("6", "F", "f@x.edu", "Nursing"),
		stud("7", "G", "g@x.edu", "Education Major in Math"),
	}

	groups := BuildHierarchy(students)

	assert.Equal(t, []string{"ECOAST", "RPSEA", "Arts and Sciences"}, groupNames(groups))
	assert.Equal(t, 5, checkTotals(t, groups), "students without a known department are left out")

	ecoast := groups[0]
	assert.Equal(t, "ECOAST (College of Engineering, Computer Studies and Architecture)", ecoast.Title)
	assert.Equal(t, 3, ecoast.Total)
	assert.Empty(t, ecoast.Students)
	assert.Equal(t, []string{"Engineering", "Information Technology"}, groupNames(ecoast.Children), "declaration order, empty children pruned")
	assert.Equal(t, []string{"B", "D"}, names(ecoast.Children[1].Students))

	rpsea := groups[1]
	require.Len(t, rpsea.Children, 1)
	assert.Equal(t, "Education Major in Math", rpsea.Children[0].Name)

	standalone := groups[2]
	assert.Equal(t, 1, standalone.Total)
	assert.Empty(t, standalone.Children)
}

func TestBuildHierarchy_empty(t *testing.T) {
	assert.Empty(t, BuildHierarchy(nil))
	assert.Empty(t, BuildHierarchy([]student.Student{stud("1", "A", "a@x.edu", "")}))
}

func TestDepartmentPath(t *testing.T) {
	assert.Equal(t, []string{"ECOAST", "Computer Science"}, DepartmentPath("Computer Science"))
	assert.Equal(t, []string{"Business Administration"}, DepartmentPath("Business Administration"))
	assert.Equal(t, []string{}, DepartmentPath(""))
}
