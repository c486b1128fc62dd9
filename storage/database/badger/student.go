package badgerdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

// Keys
//
//	student/<id>                    studentRecord
//	student_seq/<seq>               id, in insertion order
//	student_email/<email>           id
//	note/<student id>/<note id>     student.Note
//	attendance/<student id>/<date>  student.Attendance
func studentKey(id string) []byte         { return []byte("student/" + id) }
func studentSeqKey(seq uint64) []byte     { return []byte(fmt.Sprintf("student_seq/%020d", seq)) }
func studentEmailKey(email string) []byte { return []byte("student_email/" + email) }
func notesPrefix(studentID string) []byte { return []byte("note/" + studentID + "/") }
func noteKey(studentID, noteID string) []byte {
	return append(notesPrefix(studentID), noteID...)
}
func attendancePrefix(studentID string) []byte { return []byte("attendance/" + studentID + "/") }
func attendanceKey(studentID, date string) []byte {
	return append(attendancePrefix(studentID), date...)
}

var studentSeqPrefix = []byte("student_seq/")

type studentRecord struct {
	Seq uint64 `json:"seq"`
	student.Student
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

// update runs fn in a read-write transaction, publishing once it is committed.
func (repo *studentRepository) update(fn func(txn *badger.Txn) error) error {
	if err := repo.db.db.Update(fn); err != nil {
		return err
	}
	repo.db.publish()
	return nil
}

// domainErr keeps the errors of the student package, wrapping the others.
func domainErr(err error, msg string) error {
	switch err {
	case nil:
		return nil
	case student.ErrNotFound, student.ErrNoteNotFound, student.ErrEmailExists:
		return err
	default:
		return errors.Wrap(err, msg)
	}
}

func getRecord(txn *badger.Txn, id string) (studentRecord, error) {
	var rec studentRecord
	if err := getJSON(txn, studentKey(id), &rec); err != nil {
		if err == badger.ErrKeyNotFound {
			return studentRecord{}, student.ErrNotFound
		}
		return studentRecord{}, err
	}
	rec.Student = normalize(rec.Student)
	return rec, nil
}

func normalize(s student.Student) student.Student {
	if s.CurrentCourses == nil {
		s.CurrentCourses = []student.Course{}
	}
	if s.Grades == nil {
		s.Grades = []student.Grade{}
	}
	return s
}

func emailOwner(txn *badger.Txn, email string) (string, bool, error) {
	id, err := getString(txn, studentEmailKey(email))
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	return id, err == nil, err
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, studentSeqPrefix, func(id string) error {
			rec, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			if filter.NamePrefix == "" || strings.HasPrefix(rec.Name, filter.NamePrefix) {
				students = append(students, rec.Student)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (stud student.Student, err error) {
	err = repo.db.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		stud = rec.Student
		return err
	})
	return stud, domainErr(err, "getting student")
}

func (repo *studentRepository) CountStudents(_ context.Context) (n int, err error) {
	err = repo.db.db.View(func(txn *badger.Txn) error {
		n = len(keysWithPrefix(txn, studentSeqPrefix))
		return nil
	})
	return n, err
}

func (repo *studentRepository) ExistingEmails(_ context.Context, emails []string) ([]string, error) {
	found := make([]string, 0)
	err := repo.db.db.View(func(txn *badger.Txn) error {
		for _, email := range emails {
			_, ok, err := emailOwner(txn, email)
			if err != nil {
				return err
			}
			if ok {
				found = append(found, email)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "checking emails")
	}
	return found, nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, students ...student.Student) ([]student.Student, error) {
	created := make([]student.Student, 0, len(students))
	err := repo.update(func(txn *badger.Txn) error {
		batch := make(map[string]bool, len(students))
		for _, s := range students {
			_, ok, err := emailOwner(txn, s.Email)
			if err != nil {
				return err
			}
			if ok || batch[s.Email] {
				return student.ErrEmailExists
			}
			batch[s.Email] = true
		}

		for _, s := range students {
			seq, err := repo.db.seq.Next()
			if err != nil {
				return err
			}
			s = normalize(s.Clone())
			if err := setJSON(txn, studentKey(s.ID), studentRecord{Seq: seq, Student: s}); err != nil {
				return err
			}
			if err := setJSON(txn, studentSeqKey(seq), s.ID); err != nil {
				return err
			}
			if err := txn.Set(studentEmailKey(s.Email), []byte(s.ID)); err != nil {
				return err
			}
			created = append(created, s)
		}
		return nil
	})
	if err != nil {
		return nil, domainErr(err, "inserting students")
	}
	return created, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, stud student.Student) (student.Student, error) {
	err := repo.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, stud.ID)
		if err != nil {
			return err
		}
		if id, ok, err := emailOwner(txn, stud.Email); err != nil {
			return err
		} else if ok && id != stud.ID {
			return student.ErrEmailExists
		}

		if rec.Email != stud.Email {
			if err := txn.Delete(studentEmailKey(rec.Email)); err != nil {
				return err
			}
		}
		stud = normalize(stud.Clone())
		stud.CreatedAt = rec.CreatedAt
		if err := txn.Set(studentEmailKey(stud.Email), []byte(stud.ID)); err != nil {
			return err
		}
		return setJSON(txn, studentKey(stud.ID), studentRecord{Seq: rec.Seq, Student: stud})
	})
	if err != nil {
		return student.Student{}, domainErr(err, "updating student")
	}
	return stud, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	err := repo.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		keys := [][]byte{studentKey(id), studentSeqKey(rec.Seq), studentEmailKey(rec.Email)}
		keys = append(keys, keysWithPrefix(txn, notesPrefix(id))...)
		keys = append(keys, keysWithPrefix(txn, attendancePrefix(id))...)
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return domainErr(err, "deleting student")
}

func (repo *studentRepository) UpdateCourseGrades(_ context.Context, course string, entries []student.GradeEntry) (student.GradeUpdate, error) {
	res := student.GradeUpdate{NotFound: make([]string, 0)}
	now := core.NowFunc().UTC()
	err := repo.db.db.Update(func(txn *badger.Txn) error {
		for _, e := range entries {
			id, ok, err := emailOwner(txn, e.StudentEmail)
			if err != nil {
				return err
			}
			if !ok {
				res.NotFound = append(res.NotFound, e.StudentEmail)
				continue
			}
			rec, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			rec.SetCourseGrade(course, e.Grade)
			rec.UpdatedAt = now
			if err := setJSON(txn, studentKey(id), rec); err != nil {
				return err
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return student.GradeUpdate{}, errors.Wrap(err, "updating grades")
	}
	if res.Updated > 0 {
		repo.db.publish()
	}
	return res, nil
}

// Notes

func (repo *studentRepository) QueryNotes(_ context.Context, studentID string) ([]student.Note, error) {
	notes := make([]student.Note, 0)
	err := repo.db.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, notesPrefix(studentID), func(n student.Note) error {
			notes = append(notes, n)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

func (repo *studentRepository) GetNote(_ context.Context, studentID, noteID string) (note student.Note, err error) {
	err = repo.db.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, noteKey(studentID, noteID), &note); err == badger.ErrKeyNotFound {
			return student.ErrNoteNotFound
		} else if err != nil {
			return err
		}
		return nil
	})
	return note, domainErr(err, "getting note")
}

func (repo *studentRepository) CreateNote(_ context.Context, note student.Note) (student.Note, error) {
	err := repo.update(func(txn *badger.Txn) error {
		if _, err := getRecord(txn, note.StudentID); err != nil {
			return err
		}
		return setJSON(txn, noteKey(note.StudentID, note.ID), note)
	})
	if err != nil {
		return student.Note{}, domainErr(err, "inserting note")
	}
	return note, nil
}

func (repo *studentRepository) DeleteNote(_ context.Context, studentID, noteID string) error {
	err := repo.update(func(txn *badger.Txn) error {
		key := noteKey(studentID, noteID)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return student.ErrNoteNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return domainErr(err, "deleting note")
}

// Attendance

func (repo *studentRepository) QueryAttendance(_ context.Context, studentID string) ([]student.Attendance, error) {
	records := make([]student.Attendance, 0)
	err := repo.db.db.View(func(txn *badger.Txn) error {
		return eachWithPrefix(txn, attendancePrefix(studentID), func(a student.Attendance) error {
			records = append(records, a)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return records, nil
}

func (repo *studentRepository) SaveAttendance(_ context.Context, att student.Attendance) (student.Attendance, error) {
	err := repo.update(func(txn *badger.Txn) error {
		if _, err := getRecord(txn, att.StudentID); err != nil {
			return err
		}
		key := attendanceKey(att.StudentID, att.Date)
		var prev student.Attendance
		if err := getJSON(txn, key, &prev); err == nil {
			att.ID = prev.ID
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return setJSON(txn, key, att)
	})
	if err != nil {
		return student.Attendance{}, domainErr(err, "saving attendance")
	}
	return att, nil
}
