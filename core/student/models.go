package student

import (
	"math"
	"time"

	"github.com/trezcool/studentdir/core"
)

// ScholarThreshold is the minimum GWA of a scholar.
const ScholarThreshold = 85.0

type ScholarStatus string

const (
	StatusScholar    ScholarStatus = "Scholar"
	StatusNonScholar ScholarStatus = "Non-Scholar"
	StatusNoGWA      ScholarStatus = "N/A"
)

type Course struct {
	Name    string `json:"name" validate:"required,notblank"`
	Credits int    `json:"credits" validate:"min=0,max=30"`
}

type Grade struct {
	CourseName string  `json:"course_name" validate:"required,notblank"`
	Grade      float64 `json:"grade" validate:"min=0,max=100"`
}

type Student struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Department      string    `json:"department,omitempty"`
	DateOfBirth     string    `json:"date_of_birth,omitempty"`
	GraduationDate  string    `json:"graduation_date,omitempty"`
	AcademicHistory string    `json:"academic_history,omitempty"`
	CurrentCourses  []Course  `json:"current_courses"`
	Grades          []Grade   `json:"grades"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Clone returns a copy of s that shares no slice with it.
func (s Student) Clone() Student {
	s.CurrentCourses = append(make([]Course, 0, len(s.CurrentCourses)), s.CurrentCourses...)
	s.Grades = append(make([]Grade, 0, len(s.Grades)), s.Grades...)
	return s
}

// MeanGrade is the unrounded mean of the student's grades.
// ok is false when the student has no grades.
func (s Student) MeanGrade() (mean float64, ok bool) {
	if len(s.Grades) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range s.Grades {
		sum += g.Grade
	}
	return sum / float64(len(s.Grades)), true
}

// GWA is MeanGrade rounded to 2 decimals, for display.
func (s Student) GWA() (gwa float64, ok bool) {
	mean, ok := s.MeanGrade()
	if !ok {
		return 0, false
	}
	return RoundGWA(mean), true
}

func RoundGWA(gwa float64) float64 {
	return math.Round(gwa*100) / 100
}

// IsScholar reports whether the student's mean grade reaches ScholarThreshold. Students without grades are not scholars.
func (s Student) IsScholar() bool {
	mean, ok := s.MeanGrade()
	return ok && mean >= ScholarThreshold
}

// ScholarStatus is the status shown on a student's profile: N/A when there are no grades.
func (s Student) ScholarStatus() ScholarStatus {
	if _, ok := s.GWA(); !ok {
		return StatusNoGWA
	}
	if s.IsScholar() {
		return StatusScholar
	}
	return StatusNonScholar
}

// CourseGrade returns the grade of the course, if any.
func (s Student) CourseGrade(course string) (float64, bool) {
	for _, g := range s.Grades {
		if g.CourseName == course {
			return g.Grade, true
		}
	}
	return 0, false
}

// SetCourseGrade replaces the grade of the course or appends it.
func (s *Student) SetCourseGrade(course string, grade float64) {
	for i, g := range s.Grades {
		if g.CourseName == course {
			s.Grades[i].Grade = grade
			return
		}
	}
	s.Grades = append(s.Grades, Grade{CourseName: course, Grade: grade})
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name            string   `json:"name" validate:"required,notblank"`
	Email           string   `json:"email" validate:"required,email"`
	Department      string   `json:"department" validate:"omitempty,department"`
	DateOfBirth     string   `json:"date_of_birth" validate:"omitempty,date"`
	GraduationDate  string   `json:"graduation_date" validate:"omitempty,date"`
	AcademicHistory string   `json:"academic_history" validate:"max=5000"`
	CurrentCourses  []Course `json:"current_courses" validate:"dive"`
	Grades          []Grade  `json:"grades" validate:"dive"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Department = core.CleanString(ns.Department)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.GraduationDate = core.CleanString(ns.GraduationDate)
	ns.AcademicHistory = core.CleanString(ns.AcademicHistory)
	ns.CurrentCourses = cleanCourses(ns.CurrentCourses)
	ns.Grades = cleanGrades(ns.Grades)
}

func (ns NewStudent) student(now time.Time) Student {
	return Student{
		Name:            ns.Name,
		Email:           ns.Email,
		Department:      ns.Department,
		DateOfBirth:     ns.DateOfBirth,
		GraduationDate:  ns.GraduationDate,
		AcademicHistory: ns.AcademicHistory,
		CurrentCourses:  ns.CurrentCourses,
		Grades:          ns.Grades,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newStudentFrom(s Student) NewStudent {
	return NewStudent{
		Name:            s.Name,
		Email:           s.Email,
		Department:      s.Department,
		DateOfBirth:     s.DateOfBirth,
		GraduationDate:  s.GraduationDate,
		AcademicHistory: s.AcademicHistory,
		CurrentCourses:  s.CurrentCourses,
		Grades:          s.Grades,
	}
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched.
type UpdateStudent struct {
	Name            *string  `json:"name" validate:"omitempty,notblank"`
	Email           *string  `json:"email" validate:"omitempty,email"`
	Department      *string  `json:"department" validate:"omitempty,department"`
	DateOfBirth     *string  `json:"date_of_birth" validate:"omitempty,date"`
	GraduationDate  *string  `json:"graduation_date" validate:"omitempty,date"`
	AcademicHistory *string  `json:"academic_history" validate:"omitempty,max=5000"`
	CurrentCourses  []Course `json:"current_courses" validate:"dive"`
	Grades          []Grade  `json:"grades" validate:"dive"`
}

func (us *UpdateStudent) Clean() {
	clean := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	clean(us.Name, false)
	clean(us.Email, true)
	clean(us.Department, false)
	clean(us.DateOfBirth, false)
	clean(us.GraduationDate, false)
	clean(us.AcademicHistory, false)
	if us.CurrentCourses != nil {
		us.CurrentCourses = cleanCourses(us.CurrentCourses)
	}
	if us.Grades != nil {
		us.Grades = cleanGrades(us.Grades)
	}
}

// restrictedChanges returns the json names of the fields that would change orig and that only admins may edit.
func (us UpdateStudent) restrictedChanges(orig Student) []string {
	var flds []string
	changed := func(name string, v *string, cur string) {
		if v != nil && *v != cur {
			flds = append(flds, name)
		}
	}
	changed("name", us.Name, orig.Name)
	changed("email", us.Email, orig.Email)
	changed("department", us.Department, orig.Department)
	changed("date_of_birth", us.DateOfBirth, orig.DateOfBirth)
	return flds
}

func (us UpdateStudent) apply(s Student) Student {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.Name, us.Name)
	set(&s.Email, us.Email)
	set(&s.Department, us.Department)
	set(&s.DateOfBirth, us.DateOfBirth)
	set(&s.GraduationDate, us.GraduationDate)
	set(&s.AcademicHistory, us.AcademicHistory)
	if us.CurrentCourses != nil {
		s.CurrentCourses = us.CurrentCourses
	}
	if us.Grades != nil {
		s.Grades = us.Grades
	}
	return s
}

func cleanCourses(courses []Course) []Course {
	if courses == nil {
		return []Course{}
	}
	for i := range courses {
		courses[i].Name = core.CleanString(courses[i].Name)
	}
	return courses
}

func cleanGrades(grades []Grade) []Grade {
	if grades == nil {
		return []Grade{}
	}
	for i := range grades {
		grades[i].CourseName = core.CleanString(grades[i].CourseName)
	}
	return grades
}

type Note struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	AuthorEmail string    `json:"author_email"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewNote struct {
	Content string `json:"content"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceExcused AttendanceStatus = "Excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// CountsAsPresent reports whether a day with this status counts toward the attendance rate.
func (s AttendanceStatus) CountsAsPresent() bool {
	return s == AttendancePresent || s == AttendanceLate
}

type Attendance struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	Date      string           `json:"date"` // YYYY-MM-DD
	Status    AttendanceStatus `json:"status"`
}

type NewAttendance struct {
	Date   string           `json:"date" validate:"required,date"`
	Status AttendanceStatus `json:"status" validate:"required,attendance_status"`
}
