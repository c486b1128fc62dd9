package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core/directory"
)

type viewApi struct {
	dir *directory.Directory
}

// registerViewAPI registers the read-only aggregate views.
func registerViewAPI(g *echo.Group, jwt echo.MiddlewareFunc, dir *directory.Directory) {
	api := viewApi{dir: dir}

	g.GET("/departments", api.departments, jwt)
	g.GET("/analytics", api.analytics, jwt)
	g.GET("/dashboard", api.dashboard, jwt)
}

func (api *viewApi) departments(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	view, err := api.dir.Departments(ctx.Request().Context(), caller, ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "building departments")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *viewApi) analytics(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	view, err := api.dir.Analytics(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "computing analytics")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *viewApi) dashboard(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	view, err := api.dir.Dashboard(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, view)
}
