package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/student"
)

// Export formats
const (
	formatJSON = "json"
	formatXLSX = "xlsx"

	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func exportFormat(ctx echo.Context) (string, error) {
	switch f := core.CleanString(ctx.QueryParam("format"), true /* lower */); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatXLSX:
		return formatXLSX, nil
	default:
		return "", core.NewValidationError(
			errors.Errorf("unknown export format %q", f),
			core.FieldError{Field: "format", Error: "format must be one of: json, xlsx"},
		)
	}
}

// sheet is a spreadsheet of a single worksheet.
type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

func (sh sheet) render() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sh.name); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	for i, row := range append([][]interface{}{sh.header}, sh.rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		row := row
		if err = f.SetSheetRow(sh.name, cell, &row); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+1)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

func attachment(ctx echo.Context, filename string) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}

// sendExport sends data as a JSON download, or sh as a workbook.
func sendExport(ctx echo.Context, format, filename string, data interface{}, sh func() sheet) error {
	if format == formatXLSX {
		content, err := sh().render()
		if err != nil {
			return errors.Wrap(err, "rendering workbook")
		}
		attachment(ctx, filename+".xlsx")
		return ctx.Blob(http.StatusOK, mimeXLSX, content)
	}
	attachment(ctx, filename+".json")
	return ctx.JSONPretty(http.StatusOK, data, "  ")
}

func studentsSheet(students []student.Student) sheet {
	sh := sheet{
		name: "Students",
		header: []interface{}{
			"ID", "Name", "Email", "Department", "Date of Birth", "Graduation Date", "Courses", "GWA", "Scholar Status",
		},
		rows: make([][]interface{}, 0, len(students)),
	}
	for _, s := range students {
		courses := make([]string, 0, len(s.CurrentCourses))
		for _, c := range s.CurrentCourses {
			courses = append(courses, c.Name)
		}
		var gwa interface{} = directory.NoGrade
		if g, ok := s.GWA(); ok {
			gwa = g
		}
		sh.rows = append(sh.rows, []interface{}{
			s.ID, s.Name, s.Email, s.Department, s.DateOfBirth, s.GraduationDate,
			strings.Join(courses, ", "), gwa, string(s.ScholarStatus()),
		})
	}
	return sh
}

func classListSheet(classes []directory.ClassExport) sheet {
	sh := sheet{name: "Classes", header: []interface{}{"Class", "Student Count", "Student Name", "Student Email"}}
	for _, c := range classes {
		for _, m := range c.Students {
			sh.rows = append(sh.rows, []interface{}{c.ClassName, c.StudentCount, m.Name, m.Email})
		}
	}
	return sh
}

func gradesSheet(rows []directory.GradeExportRow) sheet {
	sh := sheet{name: "Grades", header: []interface{}{"Student Email", "Student Name", "Grade"}}
	for _, r := range rows {
		sh.rows = append(sh.rows, []interface{}{r.StudentEmail, r.StudentName, r.Grade})
	}
	return sh
}

// exportName turns a course into a file name.
func exportName(prefix, course string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, course)
	return prefix + "_" + name
}
