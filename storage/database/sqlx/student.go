// Package sqlxrepos is the PostgreSQL record store.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

const studentColumns = `id, name, email, department, date_of_birth, graduation_date, academic_history,
	current_courses, grades, created_at, updated_at`

type studentRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	Department      null.String    `db:"department"`
	DateOfBirth     null.String    `db:"date_of_birth"`
	GraduationDate  null.String    `db:"graduation_date"`
	AcademicHistory null.String    `db:"academic_history"`
	CurrentCourses  types.JSONText `db:"current_courses"`
	Grades          types.JSONText `db:"grades"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newStudentRow(s student.Student) (studentRow, error) {
	courses, err := json.Marshal(nonNilCourses(s.CurrentCourses))
	if err != nil {
		return studentRow{}, err
	}
	grades, err := json.Marshal(nonNilGrades(s.Grades))
	if err != nil {
		return studentRow{}, err
	}
	return studentRow{
		ID:              s.ID,
		Name:            s.Name,
		Email:           s.Email,
		Department:      null.NewString(s.Department, s.Department != ""),
		DateOfBirth:     null.NewString(s.DateOfBirth, s.DateOfBirth != ""),
		GraduationDate:  null.NewString(s.GraduationDate, s.GraduationDate != ""),
		AcademicHistory: null.NewString(s.AcademicHistory, s.AcademicHistory != ""),
		CurrentCourses:  courses,
		Grades:          grades,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}, nil
}

func (row studentRow) student() (student.Student, error) {
	s := student.Student{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Department:      row.Department.String,
		DateOfBirth:     row.DateOfBirth.String,
		GraduationDate:  row.GraduationDate.String,
		AcademicHistory: row.AcademicHistory.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if err := row.CurrentCourses.Unmarshal(&s.CurrentCourses); err != nil {
		return student.Student{}, errors.Wrap(err, "decoding courses")
	}
	if err := row.Grades.Unmarshal(&s.Grades); err != nil {
		return student.Student{}, errors.Wrap(err, "decoding grades")
	}
	s.CurrentCourses = nonNilCourses(s.CurrentCourses)
	s.Grades = nonNilGrades(s.Grades)
	return s, nil
}

func nonNilCourses(courses []student.Course) []student.Course {
	if courses == nil {
		return []student.Course{}
	}
	return courses
}

func nonNilGrades(grades []student.Grade) []student.Grade {
	if grades == nil {
		return []student.Grade{}
	}
	return grades
}

type noteRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	AuthorEmail string    `db:"author_email"`
	Content     string    `db:"content"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row noteRow) note() student.Note {
	return student.Note{
		ID:          row.ID,
		StudentID:   row.StudentID,
		AuthorEmail: row.AuthorEmail,
		Content:     row.Content,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type attendanceRow struct {
	ID        string `db:"id"`
	StudentID string `db:"student_id"`
	Date      string `db:"date"`
	Status    string `db:"status"`
}

type studentRepository struct {
	db   core.DB
	feed *student.Feed
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

// NewStudentRepository returns the student store of db. Its own writes are published to feed;
// writes of other connections reach it through database.Listen.
func NewStudentRepository(db core.DB, feed *student.Feed) *studentRepository {
	return &studentRepository{db: db, feed: feed}
}

func (repo studentRepository) publish() {
	if repo.feed != nil {
		repo.feed.Publish()
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// inTx runs fn in a transaction, committed when fn succeeds.
func (repo studentRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// likePrefix escapes the LIKE wildcards of prefix.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func scanStudents(rows []studentRow) ([]student.Student, error) {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		s, err := row.student()
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	q := "SELECT " + studentColumns + " FROM student"
	args := make([]interface{}, 0, 1)
	if filter.NamePrefix != "" {
		q += ` WHERE name LIKE $1 ESCAPE '\'`
		args = append(args, likePrefix(filter.NamePrefix))
	}
	q += " ORDER BY seq"

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return scanStudents(rows)
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM student WHERE id = $1", id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.student()
}

func (repo studentRepository) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM student"); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo studentRepository) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	found := make([]string, 0)
	if len(emails) == 0 {
		return found, nil
	}
	if err := repo.db.SelectContext(ctx, &found, "SELECT email FROM student WHERE email = ANY($1)", pq.Array(emails)); err != nil {
		return nil, errors.Wrap(err, "checking emails")
	}
	return found, nil
}

const insertStudent = `INSERT INTO student (` + studentColumns + `)
	VALUES (:id, :name, :email, :department, :date_of_birth, :graduation_date, :academic_history,
		:current_courses, :grades, :created_at, :updated_at)`

func (repo studentRepository) CreateStudents(ctx context.Context, students ...student.Student) ([]student.Student, error) {
	created := make([]student.Student, 0, len(students))
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range students {
			row, err := newStudentRow(s)
			if err != nil {
				return errors.Wrap(err, "encoding student")
			}
			if _, err := sqlx.NamedExecContext(ctx, tx, insertStudent, row); err != nil {
				if isUniqueViolation(err) {
					return student.ErrEmailExists
				}
				return errors.Wrap(err, "inserting student")
			}
			created = append(created, s.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	repo.publish()
	return created, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, stud student.Student) (student.Student, error) {
	row, err := newStudentRow(stud)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "encoding student")
	}
	const q = `UPDATE student SET name = :name, email = :email, department = :department,
		date_of_birth = :date_of_birth, graduation_date = :graduation_date, academic_history = :academic_history,
		current_courses = :current_courses, grades = :grades, updated_at = :updated_at
		WHERE id = :id RETURNING ` + studentColumns

	rows, err := sqlx.NamedQueryContext(ctx, repo.db, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if isUniqueViolation(err) {
				return student.Student{}, student.ErrEmailExists
			}
			return student.Student{}, errors.Wrap(err, "updating student")
		}
		return student.Student{}, student.ErrNotFound
	}
	var updated studentRow
	if err := rows.StructScan(&updated); err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	repo.publish()
	return updated.student()
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM student WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNotFound
	}
	repo.publish()
	return nil
}

func (repo studentRepository) UpdateCourseGrades(ctx context.Context, course string, entries []student.GradeEntry) (student.GradeUpdate, error) {
	res := student.GradeUpdate{NotFound: make([]string, 0)}
	now := core.NowFunc().UTC()
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			var row studentRow
			err := tx.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM student WHERE email = $1 FOR UPDATE", e.StudentEmail)
			if err == sql.ErrNoRows {
				res.NotFound = append(res.NotFound, e.StudentEmail)
				continue
			}
			if err != nil {
				return errors.Wrap(err, "getting student")
			}
			s, err := row.student()
			if err != nil {
				return err
			}
			s.SetCourseGrade(course, e.Grade)
			grades, err := json.Marshal(s.Grades)
			if err != nil {
				return errors.Wrap(err, "encoding grades")
			}
			if _, err := tx.ExecContext(ctx, "UPDATE student SET grades = $1, updated_at = $2 WHERE id = $3",
				types.JSONText(grades), now, s.ID); err != nil {
				return errors.Wrap(err, "updating grades")
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return student.GradeUpdate{}, err
	}
	if res.Updated > 0 {
		repo.publish()
	}
	return res, nil
}

// Notes

func (repo studentRepository) QueryNotes(ctx context.Context, studentID string) ([]student.Note, error) {
	var rows []noteRow
	const q = `SELECT id, student_id, author_email, content, created_at FROM student_note
		WHERE student_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]student.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.note())
	}
	return notes, nil
}

func (repo studentRepository) GetNote(ctx context.Context, studentID, noteID string) (student.Note, error) {
	var row noteRow
	const q = `SELECT id, student_id, author_email, content, created_at FROM student_note
		WHERE student_id = $1 AND id = $2`
	if err := repo.db.GetContext(ctx, &row, q, studentID, noteID); err != nil {
		return student.Note{}, trapNoRowsErr(err, student.ErrNoteNotFound, "getting note")
	}
	return row.note(), nil
}

func (repo studentRepository) CreateNote(ctx context.Context, note student.Note) (student.Note, error) {
	const q = `INSERT INTO student_note (id, student_id, author_email, content, created_at)
		VALUES (:id, :student_id, :author_email, :content, :created_at)`
	row := noteRow{
		ID:          note.ID,
		StudentID:   note.StudentID,
		AuthorEmail: note.AuthorEmail,
		Content:     note.Content,
		CreatedAt:   note.CreatedAt.UTC(),
	}
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return student.Note{}, student.ErrNotFound
		}
		return student.Note{}, errors.Wrap(err, "inserting note")
	}
	repo.publish()
	return note, nil
}

func (repo studentRepository) DeleteNote(ctx context.Context, studentID, noteID string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM student_note WHERE student_id = $1 AND id = $2", studentID, noteID)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.ErrNoteNotFound
	}
	repo.publish()
	return nil
}

// Attendance

func (repo studentRepository) QueryAttendance(ctx context.Context, studentID string) ([]student.Attendance, error) {
	var rows []attendanceRow
	const q = "SELECT id, student_id, date, status FROM student_attendance WHERE student_id = $1 ORDER BY date"
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]student.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.attendance())
	}
	return records, nil
}

func (row attendanceRow) attendance() student.Attendance {
	return student.Attendance{ID: row.ID, StudentID: row.StudentID, Date: row.Date, Status: student.AttendanceStatus(row.Status)}
}

func (repo studentRepository) SaveAttendance(ctx context.Context, att student.Attendance) (student.Attendance, error) {
	const q = `INSERT INTO student_attendance (id, student_id, date, status) VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status
		RETURNING id, student_id, date, status`
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, q, att.ID, att.StudentID, att.Date, string(att.Status)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return student.Attendance{}, student.ErrNotFound
		}
		return student.Attendance{}, errors.Wrap(err, "saving attendance")
	}
	repo.publish()
	return row.attendance(), nil
}
