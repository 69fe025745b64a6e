package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/owner"
)

type ownerApi struct {
	svc      owner.Service
	access   *accessControl
	validate *validator.Validate
}

func registerOwnerAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc owner.Service, validate *validator.Validate) {
	api := ownerApi{svc: svc, access: access, validate: validate}

	og := g.Group("/owners", jwt)
	og.GET("", api.query, managerMiddleware())
	og.POST("", api.create, managerMiddleware())

	dg := og.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, managerMiddleware())
	dg.DELETE("", api.destroy, managerMiddleware())
	dg.GET("/portfolio", api.portfolio)
}

func (api *ownerApi) create(ctx echo.Context) error {
	var data owner.NewOwner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOwner")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	o, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating owner")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *ownerApi) query(ctx echo.Context) error {
	filter := new(owner.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}

	owners, err := api.svc.Query(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying owners")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(owners))
}

func (api *ownerApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *ownerApi) update(ctx echo.Context) error {
	o := ctx.Get("object").(owner.Owner)

	var data owner.NewOwner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOwner")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	o, err := api.svc.Update(ctx.Request().Context(), o, data)
	if err != nil {
		return errors.Wrap(err, "updating owner")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *ownerApi) destroy(ctx echo.Context) error {
	o := ctx.Get("object").(owner.Owner)
	if err := api.svc.Delete(ctx.Request().Context(), o.ID); err != nil {
		return errors.Wrap(err, "deleting owner")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *ownerApi) portfolio(ctx echo.Context) error {
	o := ctx.Get("object").(owner.Owner)
	pf, err := api.svc.Portfolio(ctx.Request().Context(), o.ID, ctx.QueryParam("period"))
	if err != nil {
		return errors.Wrap(err, "computing portfolio")
	}
	return ctx.JSON(http.StatusOK, pf)
}

// objectMiddleware loads the `:id` owner for managers, and for the owner's own portal users.
func (api *ownerApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		id := ctx.Param("id")
		if !(claims.IsManager || (claims.IsOwner && claims.OwnerID == id)) {
			return errHttpNotFound
		}

		o, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "finding owner by ID")
		}
		ctx.Set("object", o)
		return next(ctx)
	}
}

// listOrEmpty makes sure lists are rendered as `[]` rather than `null`.
func listOrEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
