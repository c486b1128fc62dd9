package sample

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

var newRand = func(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Present is picked 4 times out of 6.
var attendanceDraws = []student.AttendanceStatus{
	student.AttendancePresent,
	student.AttendancePresent,
	student.AttendancePresent,
	student.AttendancePresent,
	student.AttendanceLate,
	student.AttendanceAbsent,
}

// GenerateAttendance makes up an attendance record for each day from the first of today's month to today, Sundays excluded.
func GenerateAttendance(studentID string, today time.Time, rnd *rand.Rand) []student.Attendance {
	y, m, d := today.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, today.Location())

	records := make([]student.Attendance, 0, d)
	for i := 0; i < d; i++ {
		day := start.AddDate(0, 0, i)
		if day.Weekday() == time.Sunday {
			continue
		}
		records = append(records, student.Attendance{
			ID:        fmt.Sprintf("rand-%s-%d", studentID, i),
			StudentID: studentID,
			Date:      day.Format(core.DateLayout),
			Status:    attendanceDraws[rnd.Intn(len(attendanceDraws))],
		})
	}
	return records
}
