// Package testutil holds the fixtures shared by the tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
	logsvc "github.com/trezcool/studentdir/services/logger"
)

const AdminEmail = "admin@panpacificu.edu.ph"

func NewConfig() *core.Config {
	return &core.Config{
		Debug:         true,
		TestMode:      true,
		Env:           "TEST",
		Build:         "test",
		AppName:       "Student Directory",
		SecretKey:     "test-secret",
		AdminEmail:    AdminEmail,
		StorageEngine: core.EngineMemory,
		CacheSize:     16,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger() *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate, translator
}

func Admin() user.Caller {
	return user.Caller{ID: "admin", Name: "Admin", Email: AdminEmail, Role: user.RoleAdmin}
}

func Teacher() user.Caller {
	return user.Caller{ID: "teacher", Name: "Teacher", Email: "teacher@panpacificu.edu.ph", Role: user.RoleTeacher}
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NewStudent returns a student that is not saved yet.
func NewStudent(name, email, dept string, courses ...string) student.Student {
	now := time.Now().UTC()
	s := student.Student{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          email,
		Department:     dept,
		CurrentCourses: make([]student.Course, 0, len(courses)),
		Grades:         []student.Grade{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, c := range courses {
		s.CurrentCourses = append(s.CurrentCourses, student.Course{Name: c, Credits: 3})
	}
	return s
}

// CreateStudent saves a student with the given grades, keyed by course.
func CreateStudent(t *testing.T, repo student.Repository, s student.Student, grades ...student.Grade) student.Student {
	t.Helper()

	s.Grades = append(s.Grades, grades...)
	created, err := repo.CreateStudents(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return created[0]
}

// Diff returns a unified diff of want and got, for readable assertion messages.
func Diff(want, got string) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	return diff
}
