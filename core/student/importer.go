package student

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/user"
)

// Import kinds
const (
	ImportStudents = "students"
	ImportGrades   = "grades"
)

// RejectedEntry is an import entry that was not applied.
type RejectedEntry struct {
	Index  int               `json:"index"`
	Email  string            `json:"email,omitempty"`
	Reason string            `json:"reason"`
	Fields []core.FieldError `json:"fields,omitempty"`
}

type ImportResult struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Total      int             `json:"total"`
	Imported   int             `json:"imported"`
	Skipped    int             `json:"skipped"`
	Duplicates int             `json:"duplicates"`
	Invalid    int             `json:"invalid"`
	Rejected   []RejectedEntry `json:"rejected,omitempty"`
}

type GradeImportResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Course   string          `json:"course"`
	Total    int             `json:"total"`
	Updated  int             `json:"updated"`
	NotFound []string        `json:"not_found,omitempty"`
	Invalid  int             `json:"invalid"`
	Rejected []RejectedEntry `json:"rejected,omitempty"`
}

// decodeEntries splits an import payload into its array entries.
// Anything that is not a JSON array is malformed.
func decodeEntries(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, core.NewMalformedInputError(errors.New("expected a JSON array"))
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, core.NewMalformedInputError(err)
	}
	return entries, nil
}

func (svc *Service) rejection(idx int, email, reason string, err error) RejectedEntry {
	rej := RejectedEntry{Index: idx, Email: email, Reason: reason}
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		rej.Fields = vErr.Fields
	}
	return rej
}

// Import adds the students of a JSON array payload.
// Entries are validated one by one: invalid ones and emails already in use are skipped and reported.
// A payload that is not a JSON array is rejected as a whole.
func (svc *Service) Import(ctx context.Context, caller user.Caller, payload []byte) (ImportResult, error) {
	if !caller.IsAdmin() {
		return ImportResult{}, ErrCreateDenied
	}
	entries, err := decodeEntries(payload)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Total: len(entries), Rejected: make([]RejectedEntry, 0)}
	type indexed struct {
		idx int
		ns  NewStudent
	}
	valid := make([]indexed, 0, len(entries))
	for i, raw := range entries {
		var ns NewStudent
		if err = json.Unmarshal(raw, &ns); err != nil {
			res.Invalid++
			res.Rejected = append(res.Rejected, svc.rejection(i, "", "entry is not a student object", nil))
			continue
		}
		ns.Clean()
		if err = svc.validateStruct(ns); err != nil {
			res.Invalid++
			res.Rejected = append(res.Rejected, svc.rejection(i, ns.Email, "invalid student", err))
			continue
		}
		valid = append(valid, indexed{idx: i, ns: ns})
	}

	emails := make([]string, 0, len(valid))
	for _, v := range valid {
		emails = append(emails, v.ns.Email)
	}
	existing := make(map[string]bool)
	if len(emails) > 0 {
		found, err := svc.repo.ExistingEmails(ctx, emails)
		if err != nil {
			return ImportResult{}, errors.Wrap(err, "checking existing emails")
		}
		for _, e := range found {
			existing[e] = true
		}
	}

	now := core.NowFunc().UTC()
	toCreate := make([]Student, 0, len(valid))
	for _, v := range valid {
		if existing[v.ns.Email] {
			res.Duplicates++
			res.Rejected = append(res.Rejected, svc.rejection(v.idx, v.ns.Email, "duplicate email", nil))
			continue
		}
		existing[v.ns.Email] = true // later entries of the batch with this email are duplicates too

		stud := v.ns.student(now)
		stud.ID = newID()
		toCreate = append(toCreate, stud)
	}
	res.Skipped = res.Duplicates + res.Invalid

	if len(toCreate) == 0 {
		switch {
		case res.Total == 0:
			res.Message = "Import failed. No students were provided."
		case res.Invalid == 0:
			res.Message = fmt.Sprintf("Import failed. All %d provided emails already exist.", res.Total)
		default:
			res.Message = fmt.Sprintf("Import failed. No valid students to import (%s).", skipDetail(res.Duplicates, res.Invalid))
		}
		svc.observe(ImportStudents, 0, res.Skipped)
		return res, nil
	}

	created, err := svc.repoFor(caller).CreateStudents(ctx, toCreate...)
	if err != nil {
		return ImportResult{}, svc.emailExistsAsValidation(err, "importing students")
	}

	res.Success = true
	res.Imported = len(created)
	res.Message = fmt.Sprintf("%d students imported successfully.", res.Imported)
	if res.Skipped > 0 {
		res.Message += fmt.Sprintf(" %d skipped (%s).", res.Skipped, skipDetail(res.Duplicates, res.Invalid))
	}
	svc.observe(ImportStudents, res.Imported, res.Skipped)
	return res, nil
}

func skipDetail(duplicates, invalid int) string {
	return fmt.Sprintf("%d duplicate email(s), %d invalid", duplicates, invalid)
}

// gradeLine is a grade import entry as sent: grade may be a number or a numeric string.
type gradeLine struct {
	StudentEmail string      `json:"student_email"`
	Grade        interface{} `json:"grade"`
}

func (gl gradeLine) entry() (GradeEntry, error) {
	ge := GradeEntry{StudentEmail: core.CleanString(gl.StudentEmail, true /* lower */)}
	switch g := gl.Grade.(type) {
	case float64:
		ge.Grade = g
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(g), 64)
		if err != nil {
			return ge, core.NewValidationError(err, core.FieldError{Field: "grade", Error: "grade must be a number"})
		}
		ge.Grade = f
	case nil:
		return ge, core.NewValidationError(errors.New("grade is required"), core.FieldError{Field: "grade", Error: "this field is required"})
	default:
		return ge, core.NewValidationError(errors.New("invalid grade"), core.FieldError{Field: "grade", Error: "grade must be a number"})
	}
	return ge, nil
}

// ImportGrades sets the grade of a course from a JSON array of {student_email, grade} entries.
// Valid entries are applied in a single transaction; invalid ones are skipped and reported.
func (svc *Service) ImportGrades(ctx context.Context, caller user.Caller, course string, payload []byte) (GradeImportResult, error) {
	course = core.CleanString(course)
	if course == "" {
		return GradeImportResult{}, core.NewValidationError(
			errors.New("course is required"), core.FieldError{Field: "course", Error: "this field is required"},
		)
	}
	entries, err := decodeEntries(payload)
	if err != nil {
		return GradeImportResult{}, err
	}

	res := GradeImportResult{Course: course, Total: len(entries), Rejected: make([]RejectedEntry, 0)}
	valid := make([]GradeEntry, 0, len(entries))
	positions := make(map[string]int, len(entries)) // last grade of an email wins
	for i, raw := range entries {
		var gl gradeLine
		if err = json.Unmarshal(raw, &gl); err != nil {
			res.Invalid++
			res.Rejected = append(res.Rejected, svc.rejection(i, "", "entry is not a grade object", nil))
			continue
		}
		ge, err := gl.entry()
		if err == nil {
			err = svc.validateStruct(ge)
		}
		if err != nil {
			res.Invalid++
			res.Rejected = append(res.Rejected, svc.rejection(i, ge.StudentEmail, "invalid grade entry", err))
			continue
		}
		if pos, ok := positions[ge.StudentEmail]; ok {
			valid[pos] = ge
			continue
		}
		positions[ge.StudentEmail] = len(valid)
		valid = append(valid, ge)
	}

	if len(valid) == 0 {
		res.Message = "No grade data provided."
		svc.observe(ImportGrades, 0, res.Invalid)
		return res, nil
	}

	upd, err := svc.repoFor(caller).UpdateCourseGrades(ctx, course, valid)
	if err != nil {
		if core.IsPermissionDenied(err) {
			return GradeImportResult{}, err
		}
		return GradeImportResult{}, errors.Wrap(err, "updating course grades")
	}

	res.Success = true
	res.Updated = upd.Updated
	res.NotFound = upd.NotFound
	res.Message = fmt.Sprintf("%d students' grades updated for %s.", res.Updated, course)
	if n := len(upd.NotFound); n > 0 {
		res.Message += fmt.Sprintf(" %d students from the import list were not found in the database.", n)
	}
	svc.observe(ImportGrades, res.Updated, res.Invalid+len(upd.NotFound))
	return res, nil
}

func (svc *Service) observe(kind string, imported, skipped int) {
	if svc.observer != nil {
		svc.observer.ObserveImport(kind, imported, skipped)
	}
}
