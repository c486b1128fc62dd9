package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
	inmemdb "github.com/trezcool/studentdir/storage/database/inmem"
	"github.com/trezcool/studentdir/tests"
)

type importCount struct {
	kind              string
	imported, skipped int
}

type observerStub struct {
	imports []importCount
}

func (o *observerStub) ObserveImport(kind string, imported, skipped int) {
	o.imports = append(o.imports, importCount{kind, imported, skipped})
}

type env struct {
	svc      *student.Service
	repo     student.Repository
	feed     *student.Feed
	observer *observerStub
}

func setup(t *testing.T) env {
	t.Helper()
	feed := student.NewFeed()
	repo := inmemdb.NewStudentRepository(inmemdb.Open(feed))
	validate, translator := testutil.NewValidator()
	observer := &observerStub{}
	return env{
		svc:      student.NewService(repo, validate, translator, testutil.NewLogger(), observer),
		repo:     repo,
		feed:     feed,
		observer: observer,
	}
}

func strPtr(s string) *string { return &s }

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	flds := make(map[string]string)
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	testutil.CreateStudent(t, e.repo, testutil.NewStudent("Maria Santos", "maria@x.edu", "Engineering"))

	tests := []struct {
		name       string
		caller     bool // admin
		ns         student.NewStudent
		wantErr    error
		wantFields []string
	}{
		{name: "teacher", ns: student.NewStudent{Name: "A", Email: "a@x.edu"}, wantErr: student.ErrCreateDenied},
		{name: "missing fields", caller: true, wantFields: []string{"name", "email"}},
		{
			name:       "invalid fields",
			caller:     true,
			ns:         student.NewStudent{Name: "A", Email: "a@x.edu", Department: "Nursing", DateOfBirth: "01/02/2003"},
			wantFields: []string{"department", "date_of_birth"},
		},
		{name: "duplicate email", caller: true, ns: student.NewStudent{Name: "A", Email: " MARIA@x.edu "}, wantFields: []string{"email"}},
		{
			name:   "valid",
			caller: true,
			ns: student.NewStudent{
				Name:           " Juan Dela Cruz ",
				Email:          "Juan.Cruz@x.edu",
				Department:     "Computer Science",
				CurrentCourses: []student.Course{{Name: "Web Development", Credits: 3}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := testutil.Teacher()
			if tt.caller {
				caller = testutil.Admin()
			}
			rev := e.feed.Revision()

			got, err := e.svc.Create(ctx, caller, tt.ns)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, rev, e.feed.Revision(), "a failed write must not publish")
			case tt.wantFields != nil:
				flds := fieldErrors(t, err)
				for _, f := range tt.wantFields {
					assert.Contains(t, flds, f)
				}
				assert.Equal(t, rev, e.feed.Revision(), "a failed write must not publish")
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, "Juan Dela Cruz", got.Name)
				assert.Equal(t, "juan.cruz@x.edu", got.Email)
				assert.Equal(t, []student.Grade{}, got.Grades)
				assert.Greater(t, e.feed.Revision(), rev)

				stored, err := e.repo.GetStudent(ctx, got.ID)
				require.NoError(t, err)
				assert.Equal(t, got, stored)
			}
		})
	}

	count, err := e.repo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	stud := testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juan Dela Cruz", "juan@x.edu", "Engineering", "Physics"))
	testutil.CreateStudent(t, e.repo, testutil.NewStudent("Maria Santos", "maria@x.edu", "Engineering"))

	tests := []struct {
		name       string
		admin      bool
		id         string
		upd        student.UpdateStudent
		wantErr    error
		wantFields []string
		check      func(t *testing.T, s student.Student)
	}{
		{name: "not found", admin: true, id: "nope", wantErr: student.ErrNotFound},
		{name: "teacher changes the name", id: stud.ID, upd: student.UpdateStudent{Name: strPtr("Juana")}, wantErr: student.ErrTeacherFieldsDenied},
		{name: "teacher changes the department", id: stud.ID, upd: student.UpdateStudent{Department: strPtr("Computer Science")}, wantErr: student.ErrTeacherFieldsDenied},
		{
			name: "teacher resends unchanged restricted fields",
			id:   stud.ID,
			upd: student.UpdateStudent{
				Name:           strPtr("Juan Dela Cruz"),
				Email:          strPtr("juan@x.edu"),
				GraduationDate: strPtr("2025-06-30"),
				Grades:         []student.Grade{{CourseName: "Physics", Grade: 88}},
			},
			check: func(t *testing.T, s student.Student) {
				assert.Equal(t, "2025-06-30", s.GraduationDate)
				assert.Equal(t, []student.Grade{{CourseName: "Physics", Grade: 88}}, s.Grades)
			},
		},
		{name: "invalid graduation date", id: stud.ID, upd: student.UpdateStudent{GraduationDate: strPtr("soon")}, wantFields: []string{"graduation_date"}},
		{name: "admin takes a used email", admin: true, id: stud.ID, upd: student.UpdateStudent{Email: strPtr("MARIA@x.edu")}, wantFields: []string{"email"}},
		{
			name:  "admin renames",
			admin: true,
			id:    stud.ID,
			upd:   student.UpdateStudent{Name: strPtr(" Juan D. Cruz "), Department: strPtr("Computer Science")},
			check: func(t *testing.T, s student.Student) {
				assert.Equal(t, "Juan D. Cruz", s.Name)
				assert.Equal(t, "Computer Science", s.Department)
				assert.Equal(t, "2025-06-30", s.GraduationDate, "unset fields are left untouched")
				assert.Len(t, s.CurrentCourses, 1)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := testutil.Teacher()
			if tt.admin {
				caller = testutil.Admin()
			}
			got, err := e.svc.Update(ctx, caller, tt.id, tt.upd)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantFields != nil:
				flds := fieldErrors(t, err)
				for _, f := range tt.wantFields {
					assert.Contains(t, flds, f)
				}
			default:
				require.NoError(t, err)
				tt.check(t, got)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	stud := testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juan", "juan@x.edu", ""))

	assert.Equal(t, student.ErrDeleteDenied, e.svc.Delete(ctx, testutil.Teacher(), stud.ID))
	require.NoError(t, e.svc.Delete(ctx, testutil.Admin(), stud.ID))
	assert.Equal(t, student.ErrNotFound, e.svc.Delete(ctx, testutil.Admin(), stud.ID))
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juan Dela Cruz", "juan@x.edu", ""))
	testutil.CreateStudent(t, e.repo, testutil.NewStudent("Maria Santos", "maria@x.edu", ""))
	testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juana Reyes", "juana@x.edu", ""))

	tests := []struct {
		name      string
		admin     bool
		prefix    string
		aggregate bool
		wantNames []string
		wantErr   error
	}{
		{name: "admin, unscoped", admin: true, wantNames: []string{"Juan Dela Cruz", "Maria Santos", "Juana Reyes"}},
		{name: "teacher, unscoped", wantErr: student.ErrListDenied},
		{name: "teacher, blank prefix", prefix: "  ", wantErr: student.ErrListDenied},
		{name: "teacher, aggregate read", aggregate: true, wantNames: []string{"Juan Dela Cruz", "Maria Santos", "Juana Reyes"}},
		{name: "teacher, prefix", prefix: "Juan", wantNames: []string{"Juan Dela Cruz", "Juana Reyes"}},
		{name: "prefix is case-sensitive", prefix: "juan", wantNames: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := testutil.Teacher()
			if tt.admin {
				caller = testutil.Admin()
			}
			got, err := e.svc.Query(ctx, caller, student.QueryFilter{NamePrefix: tt.prefix, Aggregate: tt.aggregate})
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.True(t, core.IsPermissionDenied(err))
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestService_Notes(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	stud := testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juan", "juan@x.edu", ""))
	teacher, admin := testutil.Teacher(), testutil.Admin()

	_, err := e.svc.AddNote(ctx, teacher, stud.ID, student.NewNote{Content: "   "})
	assert.Equal(t, map[string]string{"content": "Note cannot be empty."}, fieldErrors(t, err))

	_, err = e.svc.AddNote(ctx, teacher, "nope", student.NewNote{Content: "hello"})
	assert.Equal(t, student.ErrNotFound, err)

	first, err := e.svc.AddNote(ctx, teacher, stud.ID, student.NewNote{Content: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, teacher.Email, first.AuthorEmail)
	second, err := e.svc.AddNote(ctx, admin, stud.ID, student.NewNote{Content: "second"})
	require.NoError(t, err)

	notes, err := e.svc.Notes(ctx, teacher, stud.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID, "newest first")

	assert.Equal(t, student.ErrNoteDeleteDenied, e.svc.DeleteNote(ctx, teacher, stud.ID, second.ID))
	assert.Equal(t, student.ErrNoteNotFound, e.svc.DeleteNote(ctx, teacher, stud.ID, "nope"))
	require.NoError(t, e.svc.DeleteNote(ctx, teacher, stud.ID, first.ID))

	notes, err = e.svc.Notes(ctx, admin, stud.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestService_RecordAttendance(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	stud := testutil.CreateStudent(t, e.repo, testutil.NewStudent("Juan", "juan@x.edu", ""))
	teacher := testutil.Teacher()

	_, err := e.svc.RecordAttendance(ctx, teacher, stud.ID, student.NewAttendance{Date: "2024-13-01", Status: "Sleeping"})
	flds := fieldErrors(t, err)
	assert.Contains(t, flds, "date")
	assert.Contains(t, flds, "status")

	_, err = e.svc.RecordAttendance(ctx, teacher, stud.ID, student.NewAttendance{Date: "2024-03-05", Status: student.AttendanceAbsent})
	require.NoError(t, err)
	_, err = e.svc.RecordAttendance(ctx, teacher, stud.ID, student.NewAttendance{Date: "2024-03-04", Status: student.AttendancePresent})
	require.NoError(t, err)
	_, err = e.svc.RecordAttendance(ctx, teacher, stud.ID, student.NewAttendance{Date: "2024-03-05", Status: student.AttendanceExcused})
	require.NoError(t, err)

	records, err := e.svc.Attendance(ctx, teacher, stud.ID)
	require.NoError(t, err)
	require.Len(t, records, 2, "a day is recorded once")
	assert.Equal(t, "2024-03-04", records[0].Date)
	assert.Equal(t, student.AttendanceExcused, records[1].Status)
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	seed := []student.Student{
		{ID: "s-1", Name: "Juan", Email: "juan@x.edu", Department: "Engineering"},
		{ID: "s-2", Name: "", Email: "nameless@x.edu"},
		{ID: "s-3", Name: "Juan Again", Email: "JUAN@x.edu"},
		{ID: "s-4", Name: "Maria", Email: "maria@x.edu"},
	}
	res, err := e.svc.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, student.SeedResult{Seeded: 2, Invalid: 2, Message: "Database seeded with 2 students."}, res)

	stud, err := e.repo.GetStudent(ctx, "s-4")
	require.NoError(t, err)
	assert.Equal(t, "Maria", stud.Name)

	res, err = e.svc.Seed(ctx, seed)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Database already contains data. Seeding skipped.", res.Message)
}
