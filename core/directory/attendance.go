package directory

import "github.com/trezcool/studentdir/core/student"

type AttendanceSummary struct {
	TotalDays int `json:"total_days"`
	// PresentDays counts the days the student attended, late or not.
	PresentDays int     `json:"present_days"`
	AbsentDays  int     `json:"absent_days"`
	LateDays    int     `json:"late_days"`
	ExcusedDays int     `json:"excused_days"`
	Rate        float64 `json:"rate"` // percent
}

// SummarizeAttendance computes the attendance rate of the records; it is 0 when there are none.
func SummarizeAttendance(records []student.Attendance) AttendanceSummary {
	sum := AttendanceSummary{TotalDays: len(records)}
	for _, r := range records {
		switch r.Status {
		case student.AttendanceAbsent:
			sum.AbsentDays++
		case student.AttendanceLate:
			sum.LateDays++
		case student.AttendanceExcused:
			sum.ExcusedDays++
		}
		if r.Status.CountsAsPresent() {
			sum.PresentDays++
		}
	}
	if sum.TotalDays > 0 {
		sum.Rate = float64(sum.PresentDays) / float64(sum.TotalDays) * 100
	}
	return sum
}
