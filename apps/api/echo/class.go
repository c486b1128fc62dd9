package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/student"
)

type classApi struct {
	svc *student.Service
	dir *directory.Directory
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service, dir *directory.Directory) {
	api := classApi{svc: svc, dir: dir}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.GET("/export", api.export)
	cg.GET("/:course", api.roster)
	cg.GET("/:course/grades/export", api.exportGrades)
	cg.POST("/:course/grades/import", api.importGrades)
}

func (api *classApi) query(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	view, err := api.dir.Classes(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "building classes")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *classApi) export(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	format, err := exportFormat(ctx)
	if err != nil {
		return err
	}

	classes, err := api.dir.ClassListExport(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "exporting classes")
	}
	return sendExport(ctx, format, "class_list", classes, func() sheet { return classListSheet(classes) })
}

func (api *classApi) roster(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	params, err := bindBrowseParams(ctx)
	if err != nil {
		return err
	}

	view, err := api.dir.Roster(ctx.Request().Context(), caller, courseParam(ctx), params.Search, params.Sort)
	if err != nil {
		return errors.Wrap(err, "building roster")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *classApi) exportGrades(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	format, err := exportFormat(ctx)
	if err != nil {
		return err
	}

	course := courseParam(ctx)
	rows, err := api.dir.GradeExport(ctx.Request().Context(), caller, course)
	if err != nil {
		return errors.Wrap(err, "exporting grades")
	}
	return sendExport(ctx, format, exportName("grades", course), rows, func() sheet { return gradesSheet(rows) })
}

func (api *classApi) importGrades(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	payload, err := readPayload(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.ImportGrades(ctx.Request().Context(), caller, courseParam(ctx), payload)
	if err != nil {
		return errors.Wrap(err, "importing grades")
	}
	return ctx.JSON(http.StatusOK, res)
}
