package tests

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/tests"
)

func pageNames(t *testing.T, body []byte) (directory.Page, []string) {
	t.Helper()
	var page directory.Page
	unmarshalObj(t, body, &page)
	names := make([]string, 0, len(page.Students))
	for _, s := range page.Students {
		names = append(names, s.Name)
	}
	return page, names
}

func Test_studentApi_browse(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, testutil.Admin())
	teacherToken := getToken(t, testutil.Teacher())

	browse := func(t *testing.T, token, query string) (directory.Page, []string) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students"+query, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return pageNames(t, rec.Body.Bytes())
	}

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "unknown sort", path: "/v1/students?sort=age", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpFieldsErr{Error: map[string]string{"sort": "sort must be one of: name_asc, name_desc, department"}}),
		},
	})

	t.Run("empty store shows the sample students", func(t *testing.T) {
		page, names := browse(t, adminToken, "")
		assert.Equal(t, directory.SourceFallback, page.Source)
		assert.Len(t, names, len(fallback.Students()))

		page, names = browse(t, teacherToken, "?search=maria")
		assert.Equal(t, directory.SourceFallback, page.Source)
		assert.Equal(t, []string{"Maria Santos"}, names)
	})

	testutil.CreateStudent(t, studRepo, testutil.NewStudent("Juanito Reyes", "juanito@test.ph", "Computer Science", "Web Development"))
	testutil.CreateStudent(t, studRepo, testutil.NewStudent("Ana Lopez", "ana@test.ph", "Engineering", "Thermodynamics"))
	testutil.CreateStudent(t, studRepo, testutil.NewStudent("juan Bautista", "jbautista@test.ph", "", "Web Development"))

	t.Run("teachers must search", func(t *testing.T) {
		page, names := browse(t, teacherToken, "?search=%20")
		assert.Equal(t, directory.NoticeSearchRequired, page.Notice)
		assert.Equal(t, directory.NoticeSearchRequired.Message(), page.Message)
		assert.Empty(t, names)
	})

	t.Run("teachers search by name prefix", func(t *testing.T) {
		page, names := browse(t, teacherToken, "?search=Juan")
		assert.Equal(t, directory.SourceLive, page.Source)
		assert.Equal(t, []string{"Juanito Reyes"}, names, "the prefix is case sensitive")
	})

	t.Run("admins see everyone", func(t *testing.T) {
		page, names := browse(t, adminToken, "")
		assert.Equal(t, directory.SourceLive, page.Source)
		assert.Equal(t, []string{"Juanito Reyes", "Ana Lopez", "juan Bautista"}, names)

		_, names = browse(t, adminToken, "?search=JUAN&sort=name_asc")
		assert.Equal(t, []string{"juan Bautista", "Juanito Reyes"}, names)
	})
}

func Test_studentApi_write(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, testutil.Admin())
	teacherToken := getToken(t, testutil.Teacher())

	stud := testutil.CreateStudent(t, studRepo, testutil.NewStudent("Juan Dela Cruz", "juan@test.ph", "Computer Science", "Web Development"))
	newStud := student.NewStudent{Name: "Maria Clara", Email: "maria@test.ph", Department: "Engineering"}

	runHTTPTests(t, app, []httpTest{
		{
			name: "teachers cannot create", method: http.MethodPost, path: "/v1/students", token: teacherToken,
			body: marshalObj(t, newStud), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid student", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body:     marshalObj(t, student.NewStudent{Name: "Maria Clara", Email: "lol", Department: "Magic"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpFieldsErr{Error: map[string]string{
				"email":      "enter a valid email address",
				"department": "department must be one of: " + strings.Join(student.Departments(), ", "),
			}}),
		},
		{
			name: "malformed", method: http.MethodPost, path: "/v1/students", token: adminToken, body: []byte(`[`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "invalid JSON: please check the syntax"}),
		},
		{name: "create", method: http.MethodPost, path: "/v1/students", token: adminToken, body: marshalObj(t, newStud), wantCode: http.StatusCreated},
		{
			name: "duplicate email", method: http.MethodPost, path: "/v1/students", token: adminToken, body: marshalObj(t, newStud),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "teachers cannot rename", method: http.MethodPut, path: "/v1/students/" + stud.ID, token: teacherToken,
			body:     []byte(`{"name": "Juan"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: student.ErrTeacherFieldsDenied.Error()}),
		},
		{
			name: "teachers update courses", method: http.MethodPut, path: "/v1/students/" + stud.ID, token: teacherToken,
			body: []byte(`{"graduation_date": "2026-06-01"}`), wantCode: http.StatusOK,
		},
		{
			name: "update unknown", method: http.MethodPut, path: "/v1/students/lol", token: adminToken,
			body: []byte(`{"name": "Juan"}`), wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "teachers cannot delete", method: http.MethodDelete, path: "/v1/students/" + stud.ID, token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	})

	ctx := context.Background()
	got, err := studRepo.GetStudent(ctx, stud.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-01", got.GraduationDate)
	assert.Equal(t, "Juan Dela Cruz", got.Name)

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/students/"+stud.ID, adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		_, err := studRepo.GetStudent(ctx, stud.ID)
		assert.ErrorIs(t, err, student.ErrNotFound)
	})
}

func Test_studentApi_import(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, testutil.Admin())

	payload := []byte(`[
		{"name": "Juan Dela Cruz", "email": "juan@test.ph", "department": "Computer Science"},
		{"name": "Juan Again", "email": "JUAN@test.ph"},
		{"name": "", "email": "nobody@test.ph"}
	]`)

	runHTTPTests(t, app, []httpTest{
		{
			name: "admins only", method: http.MethodPost, path: "/v1/students/import", token: getToken(t, testutil.Teacher()),
			body: payload, wantCode: http.StatusForbidden,
		},
		{
			name: "not an array", method: http.MethodPost, path: "/v1/students/import", token: adminToken,
			body: []byte(`{"name": "Juan"}`), wantCode: http.StatusBadRequest,
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/students/import", adminToken, payload)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res student.ImportResult
	unmarshalObj(t, rec.Body.Bytes(), &res)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Invalid)
}

func Test_studentApi_profile(t *testing.T) {
	app := setup(t)
	teacher := testutil.Teacher()
	teacherToken := getToken(t, teacher)
	otherToken := getToken(t, testutil.Admin())

	stud := testutil.CreateStudent(t, studRepo, testutil.NewStudent("Juan Dela Cruz", "juan@test.ph", "Computer Science", "Web Development"),
		student.Grade{CourseName: "Web Development", Grade: 92})

	runHTTPTests(t, app, []httpTest{
		{name: "unknown student", path: "/v1/students/lol", token: teacherToken, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "student not found"})},
		{
			name: "empty note", method: http.MethodPost, path: "/v1/students/" + stud.ID + "/notes", token: teacherToken,
			body: []byte(`{"content": "  "}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid attendance", method: http.MethodPost, path: "/v1/students/" + stud.ID + "/attendance", token: teacherToken,
			body: []byte(`{"date": "2024-13-01", "status": "sick"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "record attendance", method: http.MethodPost, path: "/v1/students/" + stud.ID + "/attendance", token: teacherToken,
			body: []byte(`{"date": "2024-03-04", "status": "Late"}`), wantCode: http.StatusOK,
		},
	})

	// notes
	req, rec := newAuthRequest(http.MethodPost, "/v1/students/"+stud.ID+"/notes", teacherToken, []byte(`{"content": "Needs help with CSS"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note student.Note
	unmarshalObj(t, rec.Body.Bytes(), &note)
	assert.Equal(t, teacher.Email, note.AuthorEmail)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+stud.ID+"/notes/"+note.ID, otherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the author can delete a note")

	// profile
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+stud.ID, teacherToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prof directory.Profile
	unmarshalObj(t, rec.Body.Bytes(), &prof)
	assert.Equal(t, directory.SourceLive, prof.Source)
	assert.Equal(t, stud.Email, prof.Student.Email)
	assert.Equal(t, []string{"ECOAST", "Computer Science"}, prof.DepartmentPath)
	if assert.NotNil(t, prof.GWA) {
		assert.Equal(t, 92.0, *prof.GWA)
	}
	assert.Len(t, prof.Notes, 1)
	assert.Equal(t, directory.SourceLive, prof.Attendance.Source)
	assert.Equal(t, 1, prof.Attendance.Summary.LateDays)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+stud.ID+"/notes/"+note.ID, teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	t.Run("sample student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/s-0001/attendance", teacherToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view directory.AttendanceView
		unmarshalObj(t, rec.Body.Bytes(), &view)
		assert.Equal(t, directory.SourceFallback, view.Source)
		assert.NotEmpty(t, view.Records, "sample attendance is generated")
	})
}

func Test_studentApi_export(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, testutil.Admin())

	testutil.CreateStudent(t, studRepo, testutil.NewStudent("Juan Dela Cruz", "juan@test.ph", "Computer Science", "Web Development"),
		student.Grade{CourseName: "Web Development", Grade: 92})

	runHTTPTests(t, app, []httpTest{
		{name: "admins only", path: "/v1/students/export", token: getToken(t, testutil.Teacher()), wantCode: http.StatusForbidden},
		{name: "unknown format", path: "/v1/students/export?format=csv", token: adminToken, wantCode: http.StatusBadRequest},
	})

	t.Run("json", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/export", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="students.json"`, rec.Header().Get("Content-Disposition"))

		var students []student.Student
		unmarshalObj(t, rec.Body.Bytes(), &students)
		require.Len(t, students, 1)
		assert.Equal(t, "juan@test.ph", students[0].Email)
	})

	t.Run("xlsx", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/export?format=xlsx", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Students")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Name", rows[0][1])
		assert.Equal(t, []string{"Juan Dela Cruz", "juan@test.ph", "Computer Science"}, rows[1][1:4])
		assert.Equal(t, "Scholar", rows[1][8])
	})
}
