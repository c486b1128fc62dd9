package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/student"
)

type studentApi struct {
	svc    *student.Service
	dir    *directory.Directory
	logger core.Logger
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	queryJWT echo.MiddlewareFunc,
	svc *student.Service,
	dir *directory.Directory,
	logger core.Logger,
) {
	api := studentApi{svc: svc, dir: dir, logger: logger}

	// the live directory authenticates with the `token` query param
	g.GET("/students/live", api.live, queryJWT)

	sg := g.Group("/students", jwt)
	sg.GET("", api.browse)
	sg.POST("", api.create, adminMiddleware())
	sg.POST("/import", api.importStudents, adminMiddleware())
	sg.GET("/export", api.export, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/notes", api.notes)
	dg.POST("/notes", api.addNote)
	dg.DELETE("/notes/:noteId", api.deleteNote)
	dg.GET("/attendance", api.attendance)
	dg.POST("/attendance", api.recordAttendance)
}

// Handlers

func (api *studentApi) browse(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	params, err := bindBrowseParams(ctx)
	if err != nil {
		return err
	}

	page, err := api.dir.Browse(ctx.Request().Context(), caller, params)
	if err != nil {
		return errors.Wrap(err, "browsing students")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *studentApi) create(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	var data student.NewStudent
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	stud, err := api.svc.Create(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stud)
}

func (api *studentApi) importStudents(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	payload, err := readPayload(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Import(ctx.Request().Context(), caller, payload)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) export(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	format, err := exportFormat(ctx)
	if err != nil {
		return err
	}

	students, err := api.dir.Export(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "exporting students")
	}
	return sendExport(ctx, format, "students", students, func() sheet { return studentsSheet(students) })
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	prof, err := api.dir.Profile(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading student profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *studentApi) update(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	var data student.UpdateStudent
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	stud, err := api.svc.Update(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stud)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.Delete(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) notes(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	notes, err := api.svc.Notes(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []student.Note{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *studentApi) addNote(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	var data student.NewNote
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	note, err := api.svc.AddNote(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding note")
	}
	return ctx.JSON(http.StatusCreated, note)
}

func (api *studentApi) deleteNote(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteNote(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("noteId")); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) attendance(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	view, err := api.dir.Attendance(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading attendance")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *studentApi) recordAttendance(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	var data student.NewAttendance
	if err = bindJSON(ctx, &data); err != nil {
		return err
	}

	att, err := api.svc.RecordAttendance(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}
