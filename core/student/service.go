package student

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/user"
)

var (
	ErrTeacherFieldsDenied = core.NewPermissionError("teachers can only edit graduation date, academic history, courses and grades")
	ErrNoteDeleteDenied    = core.NewPermissionError("only the author can delete a note")
)

// ImportObserver is notified of bulk imports.
type ImportObserver interface {
	ObserveImport(kind string, imported, skipped int)
}

// newID returns a new record identifier.
var newID = func() string { return uuid.New().String() }

type Service struct {
	repo       Repository
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	observer   ImportObserver
}

func NewService(
	repo Repository,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	observer ImportObserver,
) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		core.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		validate:   validate,
		translator: translator,
		logger:     logger,
		observer:   observer,
	}
}

func (svc *Service) repoFor(caller user.Caller) Repository {
	return Authorize(svc.repo, caller)
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string) error {
	existing, err := svc.repo.ExistingEmails(ctx, []string{email})
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if len(existing) > 0 {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

// Query runs a student query in the caller's scope.
func (svc *Service) Query(ctx context.Context, caller user.Caller, filter QueryFilter) ([]Student, error) {
	return svc.repoFor(caller).QueryStudents(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, caller user.Caller, id string) (Student, error) {
	return svc.repoFor(caller).GetStudent(ctx, id)
}

func (svc *Service) Create(ctx context.Context, caller user.Caller, ns NewStudent) (Student, error) {
	if !caller.IsAdmin() {
		return Student{}, ErrCreateDenied
	}
	ns.Clean()
	if err := svc.validateStruct(ns); err != nil {
		return Student{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, ns.Email); err != nil {
		return Student{}, err
	}

	stud := ns.student(core.NowFunc().UTC())
	stud.ID = newID()
	created, err := svc.repoFor(caller).CreateStudents(ctx, stud)
	if err != nil {
		return Student{}, svc.emailExistsAsValidation(err, "creating student")
	}
	return created[0], nil
}

// Update modifies a student. Teachers may only change the graduation date, academic history, courses and grades.
func (svc *Service) Update(ctx context.Context, caller user.Caller, id string, us UpdateStudent) (Student, error) {
	repo := svc.repoFor(caller)
	orig, err := repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}

	us.Clean()
	if !caller.IsAdmin() && len(us.restrictedChanges(orig)) > 0 {
		return Student{}, ErrTeacherFieldsDenied
	}
	if err = svc.validateStruct(us); err != nil {
		return Student{}, err
	}
	if us.Email != nil && *us.Email != orig.Email {
		if err = svc.checkEmailUniqueness(ctx, *us.Email); err != nil {
			return Student{}, err
		}
	}

	stud := us.apply(orig)
	stud.UpdatedAt = core.NowFunc().UTC()
	stud, err = repo.UpdateStudent(ctx, stud)
	if err != nil {
		return Student{}, svc.emailExistsAsValidation(err, "updating student")
	}
	return stud, nil
}

func (svc *Service) Delete(ctx context.Context, caller user.Caller, id string) error {
	return svc.repoFor(caller).DeleteStudent(ctx, id)
}

func (svc *Service) emailExistsAsValidation(err error, msg string) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	if core.IsPermissionDenied(err) || core.IsNotFound(err) {
		return err
	}
	return errors.Wrap(err, msg)
}

// SeedResult is the outcome of Service.Seed.
type SeedResult struct {
	Seeded  int    `json:"seeded"`
	Invalid int    `json:"invalid"`
	Skipped bool   `json:"skipped"`
	Message string `json:"message"`
}

// Seed fills an empty store with students. Invalid students are logged and left out.
func (svc *Service) Seed(ctx context.Context, students []Student) (SeedResult, error) {
	count, err := svc.repo.CountStudents(ctx)
	if err != nil {
		return SeedResult{}, errors.Wrap(err, "counting students")
	}
	if count > 0 {
		return SeedResult{Skipped: true, Message: "Database already contains data. Seeding skipped."}, nil
	}

	now := core.NowFunc().UTC()
	valid := make([]Student, 0, len(students))
	seen := make(map[string]bool, len(students))
	var res SeedResult
	for _, s := range students {
		ns := newStudentFrom(s)
		ns.Clean()
		if err = svc.validateStruct(ns); err != nil || seen[ns.Email] {
			res.Invalid++
			svc.logger.Warn(fmt.Sprintf("skipping invalid seed student %q", s.Email), err)
			continue
		}
		seen[ns.Email] = true

		stud := ns.student(now)
		stud.ID = s.ID
		if stud.ID == "" {
			stud.ID = newID()
		}
		valid = append(valid, stud)
	}
	if len(valid) == 0 {
		res.Message = "No valid students to seed."
		return res, nil
	}

	if _, err = svc.repo.CreateStudents(ctx, valid...); err != nil {
		return SeedResult{}, errors.Wrap(err, "seeding students")
	}
	res.Seeded = len(valid)
	res.Message = fmt.Sprintf("Database seeded with %d students.", res.Seeded)
	return res, nil
}

// Notes

func (svc *Service) Notes(ctx context.Context, caller user.Caller, studentID string) ([]Note, error) {
	repo := svc.repoFor(caller)
	if _, err := repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return repo.QueryNotes(ctx, studentID)
}

func (svc *Service) AddNote(ctx context.Context, caller user.Caller, studentID string, nn NewNote) (Note, error) {
	content := core.CleanString(nn.Content)
	if content == "" {
		return Note{}, core.NewValidationError(errors.New(noteEmptyText), core.FieldError{Field: "content", Error: noteEmptyText})
	}
	repo := svc.repoFor(caller)
	if _, err := repo.GetStudent(ctx, studentID); err != nil {
		return Note{}, err
	}
	note, err := repo.CreateNote(ctx, Note{
		ID:          newID(),
		StudentID:   studentID,
		AuthorEmail: caller.Email,
		Content:     content,
		CreatedAt:   core.NowFunc().UTC(),
	})
	return note, errors.Wrap(err, "creating note")
}

// DeleteNote deletes a note of its author.
func (svc *Service) DeleteNote(ctx context.Context, caller user.Caller, studentID, noteID string) error {
	repo := svc.repoFor(caller)
	note, err := repo.GetNote(ctx, studentID, noteID)
	if err != nil {
		return err
	}
	if note.AuthorEmail != caller.Email {
		return ErrNoteDeleteDenied
	}
	return repo.DeleteNote(ctx, studentID, noteID)
}

// Attendance

func (svc *Service) Attendance(ctx context.Context, caller user.Caller, studentID string) ([]Attendance, error) {
	return svc.repoFor(caller).QueryAttendance(ctx, studentID)
}

func (svc *Service) RecordAttendance(ctx context.Context, caller user.Caller, studentID string, na NewAttendance) (Attendance, error) {
	na.Date = core.CleanString(na.Date)
	if err := svc.validateStruct(na); err != nil {
		return Attendance{}, err
	}
	repo := svc.repoFor(caller)
	if _, err := repo.GetStudent(ctx, studentID); err != nil {
		return Attendance{}, err
	}
	att, err := repo.SaveAttendance(ctx, Attendance{
		ID:        newID(),
		StudentID: studentID,
		Date:      na.Date,
		Status:    na.Status,
	})
	return att, errors.Wrap(err, "saving attendance")
}
