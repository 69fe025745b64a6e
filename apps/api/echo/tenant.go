package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/tenant"
)

type tenantApi struct {
	svc      tenant.Service
	access   *accessControl
	validate *validator.Validate
}

func registerTenantAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc tenant.Service, validate *validator.Validate) {
	api := tenantApi{svc: svc, access: access, validate: validate}

	tg := g.Group("/tenants", jwt)
	tg.GET("", api.query, staffMiddleware)
	tg.POST("", api.create, managerMiddleware())

	dg := tg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, managerMiddleware())
	dg.DELETE("", api.destroy, managerMiddleware())
	dg.PUT("/screening", api.updateScreening, managerMiddleware())
	dg.POST("/approve", api.approve, managerMiddleware())
	dg.POST("/notice", api.giveNotice, managerMiddleware())
	dg.POST("/move-out", api.moveOut, managerMiddleware())

	lg := g.Group("/leases", jwt)
	lg.GET("", api.queryLeases)
	lg.POST("/:id/renew", api.renewLease, managerMiddleware())
	lg.POST("/:id/terminate", api.terminateLease, managerMiddleware())
}

func (api *tenantApi) create(ctx echo.Context) error {
	var data tenant.NewTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTenant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tnt, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating tenant")
	}
	return ctx.JSON(http.StatusCreated, tnt)
}

func (api *tenantApi) query(ctx echo.Context) error {
	filter := new(tenant.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.PropertyIDs = scope

	tenants, err := api.svc.Query(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying tenants")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(tenants))
}

func (api *tenantApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *tenantApi) update(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)

	var data tenant.UpdateTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTenant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tnt, err := api.svc.Update(ctx.Request().Context(), tnt, data)
	if err != nil {
		return errors.Wrap(err, "updating tenant")
	}
	return ctx.JSON(http.StatusOK, tnt)
}

func (api *tenantApi) destroy(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)
	if err := api.svc.Delete(ctx.Request().Context(), tnt.ID); err != nil {
		return errors.Wrap(err, "deleting tenant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tenantApi) updateScreening(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)

	var data tenant.UpdateScreeningCheck
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScreeningCheck")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tnt, err := api.svc.UpdateScreeningCheck(ctx.Request().Context(), tnt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating screening")
	}
	return ctx.JSON(http.StatusOK, tnt)
}

type approvalResponse struct {
	Tenant tenant.Tenant `json:"tenant"`
	Lease  tenant.Lease  `json:"lease"`
}

func (api *tenantApi) approve(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)

	var data tenant.Approval
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Approval")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tnt, lease, err := api.svc.Approve(ctx.Request().Context(), tnt.ID, data)
	if err != nil {
		return errors.Wrap(err, "approving tenant")
	}
	return ctx.JSON(http.StatusOK, approvalResponse{Tenant: tnt, Lease: lease})
}

func (api *tenantApi) giveNotice(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)

	var data tenant.Notice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Notice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tnt, err := api.svc.GiveNotice(ctx.Request().Context(), tnt.ID, data)
	if err != nil {
		return errors.Wrap(err, "giving notice")
	}
	return ctx.JSON(http.StatusOK, tnt)
}

func (api *tenantApi) moveOut(ctx echo.Context) error {
	tnt := ctx.Get("object").(tenant.Tenant)
	tnt, err := api.svc.MoveOut(ctx.Request().Context(), tnt.ID)
	if err != nil {
		return errors.Wrap(err, "moving out tenant")
	}
	return ctx.JSON(http.StatusOK, tnt)
}

// objectMiddleware loads the `:id` tenant when visible: managers see all, owners the tenants of
// their properties, tenants themselves.
func (api *tenantApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		id := ctx.Param("id")
		if claims.IsTenant && !claims.IsManager && !claims.IsOwner && claims.TenantID != id {
			return errHttpNotFound
		}

		tnt, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "finding tenant by ID")
		}
		if claims.TenantID != tnt.ID {
			if err := api.access.checkProperty(ctx, tnt.PropertyID); err != nil {
				return err
			}
		}
		ctx.Set("object", tnt)
		return next(ctx)
	}
}

// Leases

func (api *tenantApi) queryLeases(ctx echo.Context) error {
	filter := new(tenant.LeaseFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to LeaseFilter")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsManager || claims.IsOwner {
		if filter.PropertyIDs, err = api.access.propertyScope(ctx); err != nil {
			return err
		}
	} else {
		if claims.TenantID == "" {
			return ctx.JSON(http.StatusOK, []tenant.Lease{})
		}
		filter.TenantID = claims.TenantID
	}

	leases, err := api.svc.QueryLeases(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying leases")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(leases))
}

func (api *tenantApi) renewLease(ctx echo.Context) error {
	var data tenant.Renewal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Renewal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lease, err := api.svc.RenewLease(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "renewing lease")
	}
	return ctx.JSON(http.StatusOK, lease)
}

func (api *tenantApi) terminateLease(ctx echo.Context) error {
	lease, err := api.svc.TerminateLease(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "terminating lease")
	}
	return ctx.JSON(http.StatusOK, lease)
}
