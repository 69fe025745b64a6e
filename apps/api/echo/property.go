package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
)

type propertyApi struct {
	svc      property.Service
	access   *accessControl
	validate *validator.Validate
}

func registerPropertyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	access *accessControl,
	svc property.Service,
	validate *validator.Validate,
) {
	api := propertyApi{svc: svc, access: access, validate: validate}

	pg := g.Group("/properties", jwt, staffMiddleware)
	pg.GET("", api.query)
	pg.POST("", api.create, managerMiddleware())
	pg.GET("/nearby", api.nearby)

	dg := pg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, managerMiddleware())
	dg.DELETE("", api.destroy, managerMiddleware())
	dg.GET("/buildings", api.queryBuildings)
	dg.POST("/buildings", api.createBuilding, managerMiddleware())
	dg.GET("/units", api.queryPropertyUnits)
	dg.POST("/units", api.createUnit, managerMiddleware())

	bg := g.Group("/buildings/:id", jwt, managerMiddleware())
	bg.PUT("", api.updateBuilding)
	bg.DELETE("", api.destroyBuilding)

	ug := g.Group("/units", jwt, staffMiddleware)
	ug.GET("", api.queryUnits)
	udg := ug.Group("/:id", api.unitMiddleware)
	udg.GET("", api.retrieveUnit)
	udg.PUT("", api.updateUnit, managerMiddleware())
	udg.DELETE("", api.destroyUnit, managerMiddleware())
	udg.PUT("/listing", api.publishListing, managerMiddleware())
	udg.DELETE("/listing", api.unpublishListing, managerMiddleware())
}

// Properties

func (api *propertyApi) create(ctx echo.Context) error {
	var data property.NewProperty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProperty")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prop, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating property")
	}
	return ctx.JSON(http.StatusCreated, prop)
}

func (api *propertyApi) query(ctx echo.Context) error {
	filter := new(property.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.IDs = narrowScope(scope, filter.IDs)

	summaries, err := api.svc.QuerySummaries(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying properties")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(summaries))
}

func (api *propertyApi) nearby(ctx echo.Context) error {
	var fldErrs []core.FieldError
	lat, err := strconv.ParseFloat(ctx.QueryParam("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		fldErrs = append(fldErrs, core.FieldError{Field: "lat", Error: "lat must be a valid latitude"})
	}
	lng, err := strconv.ParseFloat(ctx.QueryParam("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		fldErrs = append(fldErrs, core.FieldError{Field: "lng", Error: "lng must be a valid longitude"})
	}
	var precision uint64
	if p := ctx.QueryParam("precision"); p != "" {
		if precision, err = strconv.ParseUint(p, 10, 8); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "precision", Error: "precision must be a positive integer"})
		}
	}
	if fldErrs != nil {
		return core.NewValidationError(errors.New("invalid coordinates"), fldErrs...)
	}

	props, err := api.svc.Nearby(ctx.Request().Context(), lat, lng, uint(precision))
	if err != nil {
		return errors.Wrap(err, "searching nearby properties")
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	visible := make([]property.Property, 0, len(props))
	for _, prop := range props {
		if core.InScope(prop.ID, scope) {
			visible = append(visible, prop)
		}
	}
	return ctx.JSON(http.StatusOK, visible)
}

func (api *propertyApi) retrieve(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)
	summary, err := api.svc.GetSummary(ctx.Request().Context(), prop.ID)
	if err != nil {
		return errors.Wrap(err, "summarizing property")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *propertyApi) update(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)

	var data property.NewProperty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProperty")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prop, err := api.svc.Update(ctx.Request().Context(), prop, data)
	if err != nil {
		return errors.Wrap(err, "updating property")
	}
	return ctx.JSON(http.StatusOK, prop)
}

func (api *propertyApi) destroy(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)
	if err := api.svc.Delete(ctx.Request().Context(), prop.ID); err != nil {
		return errors.Wrap(err, "deleting property")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *propertyApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := ctx.Param("id")
		if err := api.access.checkProperty(ctx, id); err != nil {
			return err
		}
		prop, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "finding property by ID")
		}
		ctx.Set("object", prop)
		return next(ctx)
	}
}

// Buildings

func (api *propertyApi) createBuilding(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)

	var data property.NewBuilding
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBuilding")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.svc.CreateBuilding(ctx.Request().Context(), prop.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating building")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *propertyApi) queryBuildings(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)
	buildings, err := api.svc.QueryBuildings(ctx.Request().Context(), prop.ID)
	if err != nil {
		return errors.Wrap(err, "querying buildings")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(buildings))
}

func (api *propertyApi) updateBuilding(ctx echo.Context) error {
	b, err := api.svc.GetBuilding(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding building by ID")
	}

	var data property.NewBuilding
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBuilding")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err = api.svc.UpdateBuilding(ctx.Request().Context(), b, data)
	if err != nil {
		return errors.Wrap(err, "updating building")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *propertyApi) destroyBuilding(ctx echo.Context) error {
	if err := api.svc.DeleteBuilding(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting building")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Units

func (api *propertyApi) createUnit(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)

	var data property.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	u, err := api.svc.CreateUnit(ctx.Request().Context(), prop.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating unit")
	}
	return ctx.JSON(http.StatusCreated, u)
}

func (api *propertyApi) queryUnits(ctx echo.Context) error {
	filter := new(property.UnitFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	scope, err := api.access.propertyScope(ctx)
	if err != nil {
		return err
	}
	filter.PropertyIDs = narrowScope(scope, filter.PropertyIDs)
	return api.renderUnits(ctx, filter)
}

func (api *propertyApi) queryPropertyUnits(ctx echo.Context) error {
	prop := ctx.Get("object").(property.Property)
	filter := new(property.UnitFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.PropertyIDs = []string{prop.ID}
	return api.renderUnits(ctx, filter)
}

func (api *propertyApi) renderUnits(ctx echo.Context, filter *property.UnitFilter) error {
	units, err := api.svc.QueryUnits(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(units))
}

func (api *propertyApi) retrieveUnit(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *propertyApi) updateUnit(ctx echo.Context) error {
	u := ctx.Get("object").(property.Unit)

	var data property.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	u, err := api.svc.UpdateUnit(ctx.Request().Context(), u, data)
	if err != nil {
		return errors.Wrap(err, "updating unit")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *propertyApi) destroyUnit(ctx echo.Context) error {
	u := ctx.Get("object").(property.Unit)
	if err := api.svc.DeleteUnit(ctx.Request().Context(), u.ID); err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *propertyApi) publishListing(ctx echo.Context) error {
	u := ctx.Get("object").(property.Unit)

	var data property.PublishListing
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishListing")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	u, err := api.svc.PublishListing(ctx.Request().Context(), u.ID, data)
	if err != nil {
		return errors.Wrap(err, "publishing listing")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *propertyApi) unpublishListing(ctx echo.Context) error {
	u := ctx.Get("object").(property.Unit)
	u, err := api.svc.UnpublishListing(ctx.Request().Context(), u.ID)
	if err != nil {
		return errors.Wrap(err, "unpublishing listing")
	}
	return ctx.JSON(http.StatusOK, u)
}

func (api *propertyApi) unitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		u, err := api.svc.GetUnit(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding unit by ID")
		}
		if err := api.access.checkProperty(ctx, u.PropertyID); err != nil {
			return err
		}
		ctx.Set("object", u)
		return next(ctx)
	}
}
