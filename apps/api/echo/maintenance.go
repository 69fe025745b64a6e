package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/tenant"
)

type maintenanceApi struct {
	svc       maintenance.Service
	tenantSvc tenant.Service
	access    *accessControl
	validate  *validator.Validate
}

func registerMaintenanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	access *accessControl,
	svc maintenance.Service,
	tenantSvc tenant.Service,
	validate *validator.Validate,
) {
	api := maintenanceApi{svc: svc, tenantSvc: tenantSvc, access: access, validate: validate}

	vg := g.Group("/vendors", jwt, managerMiddleware())
	vg.GET("", api.queryVendors)
	vg.POST("", api.createVendor)
	vg.GET("/:id", api.retrieveVendor)
	vg.PUT("/:id", api.updateVendor)
	vg.DELETE("/:id", api.destroyVendor)

	mg := g.Group("/maintenance", jwt)
	mg.GET("", api.query)
	mg.POST("", api.create)
	mg.GET("/board", api.board, staffMiddleware)

	dg := mg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, managerMiddleware())
	dg.DELETE("", api.destroy, managerMiddleware())
	dg.POST("/assign", api.assign, managerMiddleware())
	dg.POST("/status", api.changeStatus, managerMiddleware())
}

// Vendors

func (api *maintenanceApi) createVendor(ctx echo.Context) error {
	var data maintenance.NewVendor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVendor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.CreateVendor(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating vendor")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *maintenanceApi) queryVendors(ctx echo.Context) error {
	filter := new(maintenance.VendorFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}

	vendors, err := api.svc.QueryVendors(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying vendors")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(vendors))
}

func (api *maintenanceApi) retrieveVendor(ctx echo.Context) error {
	v, err := api.svc.GetVendor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding vendor by ID")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *maintenanceApi) updateVendor(ctx echo.Context) error {
	v, err := api.svc.GetVendor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding vendor by ID")
	}

	var data maintenance.NewVendor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVendor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err = api.svc.UpdateVendor(ctx.Request().Context(), v, data)
	if err != nil {
		return errors.Wrap(err, "updating vendor")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *maintenanceApi) destroyVendor(ctx echo.Context) error {
	if err := api.svc.DeleteVendor(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting vendor")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Requests

// create opens a request. Tenants can only open requests for their own unit.
func (api *maintenanceApi) create(ctx echo.Context) error {
	var data maintenance.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	switch {
	case claims.IsManager:
	case claims.IsTenant && claims.TenantID != "":
		tnt, err := api.tenantSvc.GetByID(ctx.Request().Context(), claims.TenantID)
		if err != nil {
			return errors.Wrap(err, "finding context tenant")
		}
		data.TenantID = tnt.ID
		data.PropertyID = tnt.PropertyID
		data.UnitID = tnt.UnitID
	default:
		return errHttpForbidden
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating maintenance request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

// scopeFilter restricts a filter to what the context user may see.
// It returns false when nothing is visible.
func (api *maintenanceApi) scopeFilter(ctx echo.Context, filter *maintenance.QueryFilter) (bool, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return false, errors.Wrap(err, "getting context claims")
	}
	if claims.IsManager || claims.IsOwner {
		filter.PropertyIDs, err = api.access.propertyScope(ctx)
		return err == nil, err
	}
	if claims.TenantID == "" {
		return false, nil
	}
	filter.TenantID = claims.TenantID
	return true, nil
}

func (api *maintenanceApi) query(ctx echo.Context) error {
	filter := new(maintenance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	if ok, err := api.scopeFilter(ctx, filter); !ok {
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, []maintenance.Request{})
	}

	reqs, err := api.svc.Query(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying maintenance requests")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(reqs))
}

func (api *maintenanceApi) board(ctx echo.Context) error {
	filter := new(maintenance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	if _, err := api.scopeFilter(ctx, filter); err != nil {
		return err
	}

	columns, err := api.svc.Board(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building maintenance board")
	}
	return ctx.JSON(http.StatusOK, columns)
}

func (api *maintenanceApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *maintenanceApi) update(ctx echo.Context) error {
	req := ctx.Get("object").(maintenance.Request)

	var data maintenance.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Update(ctx.Request().Context(), req, data)
	if err != nil {
		return errors.Wrap(err, "updating maintenance request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *maintenanceApi) destroy(ctx echo.Context) error {
	req := ctx.Get("object").(maintenance.Request)
	if err := api.svc.Delete(ctx.Request().Context(), req.ID); err != nil {
		return errors.Wrap(err, "deleting maintenance request")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *maintenanceApi) assign(ctx echo.Context) error {
	req := ctx.Get("object").(maintenance.Request)

	var data maintenance.AssignVendor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignVendor")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.AssignVendor(ctx.Request().Context(), req.ID, data)
	if err != nil {
		return errors.Wrap(err, "assigning vendor")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *maintenanceApi) changeStatus(ctx echo.Context) error {
	req := ctx.Get("object").(maintenance.Request)

	var data maintenance.ChangeStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.ChangeStatus(ctx.Request().Context(), req.ID, data)
	if err != nil {
		return errors.Wrap(err, "changing maintenance request status")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *maintenanceApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		req, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding maintenance request by ID")
		}

		if claims.IsManager || claims.IsOwner {
			if err := api.access.checkProperty(ctx, req.PropertyID); err != nil {
				return err
			}
		} else if claims.TenantID == "" || req.TenantID != claims.TenantID {
			return errHttpNotFound
		}
		ctx.Set("object", req)
		return next(ctx)
	}
}
