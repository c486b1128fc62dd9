package student

import (
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studentdir/core"
)

var (
	departmentTag  = "department"
	departmentText = "{0} must be one of: " + strings.Join(Departments(), ", ")

	dateTag  = "date"
	dateText = "{0} must be a date formatted as YYYY-MM-DD"

	attendanceStatusTag  = "attendance_status"
	attendanceStatusText = "{0} must be one of: Present, Absent, Late, Excused"

	noteEmptyText = "Note cannot be empty."
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(departmentTag, departmentValidation)
	core.RegisterCustomTranslation(validate, translator, departmentTag, departmentText)

	_ = validate.RegisterValidation(dateTag, dateValidation)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText)

	_ = validate.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
	core.RegisterCustomTranslation(validate, translator, attendanceStatusTag, attendanceStatusText)
}

func departmentValidation(fl validator.FieldLevel) bool {
	return IsDepartment(fl.Field().String())
}

func dateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(core.DateLayout, fl.Field().String())
	return err == nil
}

func attendanceStatusValidation(fl validator.FieldLevel) bool {
	return AttendanceStatus(fl.Field().String()).Valid()
}
