package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/finance"
)

type financeApi struct {
	svc      finance.Service
	access   *accessControl
	validate *validator.Validate
}

func registerFinanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc finance.Service, validate *validator.Validate) {
	api := financeApi{svc: svc, access: access, validate: validate}

	tg := g.Group("/transactions", jwt, staffMiddleware)
	tg.GET("", api.query)
	tg.POST("", api.create, managerMiddleware())
	tg.DELETE("/:id", api.destroy, managerMiddleware())

	g.POST("/payments", api.logPayment, jwt, managerMiddleware())

	fg := g.Group("/finance", jwt, staffMiddleware)
	fg.GET("/rent-roll", api.rentRoll)
	fg.GET("/summary", api.summary)
}

func (api *financeApi) create(ctx echo.Context) error {
	var data finance.NewTransaction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTransaction")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tx, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating transaction")
	}
	return ctx.JSON(http.StatusCreated, tx)
}

// query lists transactions, optionally within the `period` month.
func (api *financeApi) query(ctx echo.Context) error {
	filter := new(finance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	if p := ctx.QueryParam("period"); p != "" {
		period, err := core.ParseMonth(p, time.Now())
		if err != nil {
			return core.NewFieldError("period", err.Error())
		}
		filter.From, filter.To = period.From, period.To
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.PropertyIDs = scope

	txs, err := api.svc.Query(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying transactions")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(txs))
}

func (api *financeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting transaction")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *financeApi) logPayment(ctx echo.Context) error {
	var data finance.Payment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Payment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tx, err := api.svc.LogPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging payment")
	}
	return ctx.JSON(http.StatusCreated, tx)
}

func (api *financeApi) rentRoll(ctx echo.Context) error {
	var filter finance.RentRollFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to RentRollFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.PropertyIDs = scope

	roll, err := api.svc.RentRoll(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing rent roll")
	}
	return ctx.JSON(http.StatusOK, roll)
}

func (api *financeApi) summary(ctx echo.Context) error {
	var filter finance.SummaryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SummaryFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.PropertyIDs = scope

	sum, err := api.svc.Summary(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}
