// Package sample provides the students shown when the record store has none to show.
package sample

import (
	"encoding/json"
	"hash/fnv"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
	appfs "github.com/trezcool/studentdir/fs"
)

// Dataset is a read-only list of sample students.
type Dataset struct {
	students []student.Student
	byID     map[string]int
}

// Load parses a JSON array of students.
func Load(r io.Reader) (*Dataset, error) {
	var students []student.Student
	if err := json.NewDecoder(r).Decode(&students); err != nil {
		return nil, errors.Wrap(err, "decoding sample students")
	}

	ds := &Dataset{students: make([]student.Student, 0, len(students)), byID: make(map[string]int, len(students))}
	for _, s := range students {
		if s.ID == "" {
			return nil, errors.Errorf("sample student %q has no id", s.Email)
		}
		if _, dup := ds.byID[s.ID]; dup {
			return nil, errors.Errorf("duplicate sample student id %q", s.ID)
		}
		if s.CurrentCourses == nil {
			s.CurrentCourses = []student.Course{}
		}
		if s.Grades == nil {
			s.Grades = []student.Grade{}
		}
		ds.byID[s.ID] = len(ds.students)
		ds.students = append(ds.students, s)
	}
	return ds, nil
}

// Open loads the dataset at path, or the embedded one when path is empty.
func Open(path string) (*Dataset, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if path == "" {
		f, err = appfs.Files.Open(appfs.StudentsFile)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening sample students")
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Embedded returns the dataset bundled in the binary.
func Embedded() (*Dataset, error) {
	return Open("")
}

// Students returns a copy of the sample students, in file order.
func (ds *Dataset) Students() []student.Student {
	return append(make([]student.Student, 0, len(ds.students)), ds.students...)
}

func (ds *Dataset) Student(id string) (student.Student, bool) {
	i, ok := ds.byID[id]
	if !ok {
		return student.Student{}, false
	}
	return ds.students[i], true
}

// Attendance generates the attendance of a student for the current month.
// It is stable within a month for a given student.
func (ds *Dataset) Attendance(studentID string) []student.Attendance {
	today := core.NowFunc()
	return GenerateAttendance(studentID, today, newRand(seed(studentID, today.Format("2006-01"))))
}

func seed(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64())
}
