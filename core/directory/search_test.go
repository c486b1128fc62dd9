package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentdir/core/student"
)

func TestFilterStudents(t *testing.T) {
	students := []student.Student{
		stud("1", "Juan Dela Cruz", "juan.cruz@x.edu", "Computer Science"),
		stud("2", "Maria Santos", "maria@x.edu", ""),
		stud("3", "Ángela Ñuñez", "angela@x.edu", "Engineering"),
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty query keeps everyone", want: []string{"Juan Dela Cruz", "Maria Santos", "Ángela Ñuñez"}},
		{name: "blank query keeps everyone", query: "   ", want: []string{"Juan Dela Cruz", "Maria Santos", "Ángela Ñuñez"}},
		{name: "upper case query matches an email", query: "CRUZ", want: []string{"Juan Dela Cruz"}},
		{name: "matches a department", query: "engineer", want: []string{"Ángela Ñuñez"}},
		{name: "matches accented names ignoring case", query: "ñuñez", want: []string{"Ángela Ñuñez"}},
		{name: "substring", query: "san", want: []string{"Maria Santos"}},
		{name: "no department never matches", query: "science", want: []string{"Juan Dela Cruz"}},
		{name: "no match", query: "zzz", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(FilterStudents(students, tt.query)))
		})
	}
}

func TestSortStudents(t *testing.T) {
	base := []student.Student{
		stud("1", "maria", "m@x.edu", "Engineering"),
		stud("2", "Álvaro", "a@x.edu", ""),
		stud("3", "Bea", "b@x.edu", "Engineering"),
		stud("4", "carlo", "c@x.edu", "Arts and Sciences"),
	}

	tests := []struct {
		key  SortKey
		want []string
	}{
		{key: SortNone, want: []string{"maria", "Álvaro", "Bea", "carlo"}},
		{key: SortNameAsc, want: []string{"Álvaro", "Bea", "carlo", "maria"}},
		{key: SortNameDesc, want: []string{"maria", "carlo", "Bea", "Álvaro"}},
		{key: SortDepartment, want: []string{"Álvaro", "carlo", "Bea", "maria"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			students := append([]student.Student{}, base...)
			SortStudents(students, tt.key)
			assert.Equal(t, tt.want, names(students))
		})
	}
}

func TestParseSortKey(t *testing.T) {
	for _, s := range []string{"", "name_asc", "NAME_DESC", " department "} {
		_, err := ParseSortKey(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseSortKey("age")
	require.Error(t, err)
}
