package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

type studentRepository struct {
	db   *studentTable
	feed *student.Feed
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student, feed: db.feed}
}

func (repo *studentRepository) publish() {
	if repo.feed != nil {
		repo.feed.Publish()
	}
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		s := repo.db.table[id]
		if filter.NamePrefix != "" && !strings.HasPrefix(s.Name, filter.NamePrefix) {
			continue
		}
		students = append(students, s.Clone())
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return s.Clone(), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) CountStudents(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.table), nil
}

func (repo *studentRepository) ExistingEmails(_ context.Context, emails []string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make([]string, 0)
	for _, email := range emails {
		if _, ok := repo.db.emails[email]; ok {
			found = append(found, email)
		}
	}
	return found, nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, students ...student.Student) ([]student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	batch := make(map[string]bool, len(students))
	for _, s := range students {
		if _, ok := repo.db.emails[s.Email]; ok || batch[s.Email] {
			return nil, student.ErrEmailExists
		}
		batch[s.Email] = true
	}

	created := make([]student.Student, 0, len(students))
	for _, s := range students {
		s = s.Clone()
		repo.db.table[s.ID] = &s
		repo.db.order = append(repo.db.order, s.ID)
		repo.db.emails[s.Email] = s.ID
		created = append(created, s.Clone())
	}
	repo.publish()
	return created, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, stud student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[stud.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if id, ok := repo.db.emails[stud.Email]; ok && id != stud.ID {
		return student.Student{}, student.ErrEmailExists
	}

	delete(repo.db.emails, orig.Email)
	stud = stud.Clone()
	stud.CreatedAt = orig.CreatedAt
	repo.db.table[stud.ID] = &stud
	repo.db.emails[stud.Email] = stud.ID
	repo.publish()
	return stud.Clone(), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.table[id]
	if !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	delete(repo.db.emails, s.Email)
	delete(repo.db.notes, id)
	delete(repo.db.attendance, id)
	for i, oid := range repo.db.order {
		if oid == id {
			repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
			break
		}
	}
	repo.publish()
	return nil
}

func (repo *studentRepository) UpdateCourseGrades(_ context.Context, course string, entries []student.GradeEntry) (student.GradeUpdate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	res := student.GradeUpdate{NotFound: make([]string, 0)}
	now := core.NowFunc().UTC()
	for _, e := range entries {
		id, ok := repo.db.emails[e.StudentEmail]
		if !ok {
			res.NotFound = append(res.NotFound, e.StudentEmail)
			continue
		}
		s := repo.db.table[id]
		s.SetCourseGrade(course, e.Grade)
		s.UpdatedAt = now
		res.Updated++
	}
	if res.Updated > 0 {
		repo.publish()
	}
	return res, nil
}

// Notes

func (repo *studentRepository) QueryNotes(_ context.Context, studentID string) ([]student.Note, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.notes[studentID]
	notes := make([]student.Note, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		notes = append(notes, stored[i])
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

func (repo *studentRepository) GetNote(_ context.Context, studentID, noteID string) (student.Note, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, n := range repo.db.notes[studentID] {
		if n.ID == noteID {
			return n, nil
		}
	}
	return student.Note{}, student.ErrNoteNotFound
}

func (repo *studentRepository) CreateNote(_ context.Context, note student.Note) (student.Note, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[note.StudentID]; !ok {
		return student.Note{}, student.ErrNotFound
	}
	repo.db.notes[note.StudentID] = append(repo.db.notes[note.StudentID], note)
	repo.publish()
	return note, nil
}

func (repo *studentRepository) DeleteNote(_ context.Context, studentID, noteID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	notes := repo.db.notes[studentID]
	for i, n := range notes {
		if n.ID == noteID {
			repo.db.notes[studentID] = append(notes[:i:i], notes[i+1:]...)
			repo.publish()
			return nil
		}
	}
	return student.ErrNoteNotFound
}

// Attendance

func (repo *studentRepository) QueryAttendance(_ context.Context, studentID string) ([]student.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	byDate := repo.db.attendance[studentID]
	records := make([]student.Attendance, 0, len(byDate))
	for _, a := range byDate {
		records = append(records, a)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records, nil
}

func (repo *studentRepository) SaveAttendance(_ context.Context, att student.Attendance) (student.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[att.StudentID]; !ok {
		return student.Attendance{}, student.ErrNotFound
	}
	byDate, ok := repo.db.attendance[att.StudentID]
	if !ok {
		byDate = make(map[string]student.Attendance)
		repo.db.attendance[att.StudentID] = byDate
	}
	if prev, ok := byDate[att.Date]; ok {
		att.ID = prev.ID
	}
	byDate[att.Date] = att
	repo.publish()
	return att, nil
}
