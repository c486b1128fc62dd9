package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("student")
	ErrNoteNotFound = core.NewNotFoundError("note")
	ErrEmailExists  = errors.New("a student with this email already exists")
)

// QueryFilter scopes a student query.
type QueryFilter struct {
	// NamePrefix keeps the students whose name starts with it (case-sensitive).
	NamePrefix string
	// Aggregate marks a read that feeds the summary views (departments, classes, analytics).
	// Teachers may run it unscoped.
	Aggregate bool
}

// GradeEntry is one line of a course grade import.
type GradeEntry struct {
	StudentEmail string  `json:"student_email" validate:"required,email"`
	Grade        float64 `json:"grade" validate:"min=0,max=100"`
}

// GradeUpdate is the outcome of Repository.UpdateCourseGrades.
type GradeUpdate struct {
	Updated  int
	NotFound []string // emails
}

// Repository is the record store.
// Queries return students in insertion order.
// Implementations publish to their Feed after every successful write, and only then.
type Repository interface {
	QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	CountStudents(ctx context.Context) (int, error)
	// ExistingEmails returns the subset of emails already used by a student.
	ExistingEmails(ctx context.Context, emails []string) ([]string, error)
	// CreateStudents inserts all the students or none. It fails with ErrEmailExists on duplicates.
	CreateStudents(ctx context.Context, students ...Student) ([]Student, error)
	UpdateStudent(ctx context.Context, stud Student) (Student, error)
	DeleteStudent(ctx context.Context, id string) error
	// UpdateCourseGrades sets the grade of course for each entry's student, in a single transaction.
	UpdateCourseGrades(ctx context.Context, course string, entries []GradeEntry) (GradeUpdate, error)

	QueryNotes(ctx context.Context, studentID string) ([]Note, error) // newest first
	GetNote(ctx context.Context, studentID, noteID string) (Note, error)
	CreateNote(ctx context.Context, note Note) (Note, error)
	DeleteNote(ctx context.Context, studentID, noteID string) error

	QueryAttendance(ctx context.Context, studentID string) ([]Attendance, error) // by date
	// SaveAttendance creates or replaces the record of att.StudentID on att.Date.
	SaveAttendance(ctx context.Context, att Attendance) (Attendance, error)
}
