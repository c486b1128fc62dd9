package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studentdir/core/student"
)

func TestSummarizeAttendance(t *testing.T) {
	rec := func(status student.AttendanceStatus) student.Attendance {
		return student.Attendance{Status: status}
	}

	tests := []struct {
		name    string
		records []student.Attendance
		want    AttendanceSummary
	}{
		{name: "no records", want: AttendanceSummary{}},
		{
			name:    "late counts as present",
			records: []student.Attendance{rec(student.AttendancePresent), rec(student.AttendanceLate), rec(student.AttendanceAbsent), rec(student.AttendanceExcused)},
			want:    AttendanceSummary{TotalDays: 4, PresentDays: 2, AbsentDays: 1, LateDays: 1, ExcusedDays: 1, Rate: 50},
		},
		{
			name:    "all present",
			records: []student.Attendance{rec(student.AttendancePresent), rec(student.AttendancePresent)},
			want:    AttendanceSummary{TotalDays: 2, PresentDays: 2, Rate: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SummarizeAttendance(tt.records))
		})
	}
}
