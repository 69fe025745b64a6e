package echoapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	exportsvc "github.com/trezcool/kodi/services/export"
)

type exportApi struct {
	svc    exportsvc.Service
	access *accessControl
}

func registerExportAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc exportsvc.Service) {
	api := exportApi{svc: svc, access: access}
	g.GET("/exports/:name", api.export, jwt, managerMiddleware())
}

// export streams a CSV export, e.g. `/exports/rent-roll.csv?period=2026-02`.
func (api *exportApi) export(ctx echo.Context) error {
	name := strings.TrimSuffix(ctx.Param("name"), ".csv")

	// rendered in memory first so that errors still get a JSON response
	var buf bytes.Buffer
	if err := api.svc.Export(ctx.Request().Context(), name, exportsvc.Options{Period: ctx.QueryParam("period")}, &buf); err != nil {
		if errors.Cause(err) == exportsvc.ErrUnknownExport {
			return errHttpNotFound
		}
		return errors.Wrap(err, "exporting "+name)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
