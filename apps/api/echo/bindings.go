package echoapi

import (
	"io"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
)

// maxImportSize bounds the payloads of the import endpoints.
const maxImportSize = 10 << 20

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

// bindJSON decodes the request body into v. Syntax errors are reported as malformed input.
func bindJSON(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		var herr *echo.HTTPError
		if errors.As(err, &herr) && herr.Internal != nil {
			return core.NewMalformedInputError(herr.Internal)
		}
		return core.NewMalformedInputError(err)
	}
	return nil
}

// bindBrowseParams reads the `search` and `sort` query params.
func bindBrowseParams(ctx echo.Context) (directory.BrowseParams, error) {
	key, err := directory.ParseSortKey(ctx.QueryParam("sort"))
	if err != nil {
		return directory.BrowseParams{}, err
	}
	return directory.BrowseParams{Search: ctx.QueryParam("search"), Sort: key}, nil
}

func readPayload(ctx echo.Context) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxImportSize))
	return payload, errors.Wrap(err, "reading request body")
}

// courseParam returns the unescaped `course` path param; course names may hold spaces.
func courseParam(ctx echo.Context) string {
	raw := ctx.Param("course")
	if course, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(course)
	}
	return strings.TrimSpace(raw)
}
