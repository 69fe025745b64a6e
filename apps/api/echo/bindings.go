package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
)

const orderingParam = "ordering"

// bindOrderings reads the `ordering=field,-field` query param.
func bindOrderings(ctx echo.Context) []core.DBOrdering {
	return core.ParseOrderings(ctx.QueryParam(orderingParam))
}

type cleaner interface {
	Clean()
}

// bindFilter binds the query params of a GET request into filter, then cleans it.
func bindFilter(ctx echo.Context, filter cleaner) error {
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding query filter")
	}
	filter.Clean()
	return nil
}
