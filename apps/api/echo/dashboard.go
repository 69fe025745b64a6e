package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/dashboard"
)

type dashboardApi struct {
	svc    dashboard.Service
	access *accessControl
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc dashboard.Service) {
	api := dashboardApi{svc: svc, access: access}
	g.GET("/dashboard", api.retrieve, jwt)
}

// retrieve renders the dashboard of the context user's portal: manager, owner, then tenant.
func (api *dashboardApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data interface{}
	switch {
	case claims.IsManager:
		data, err = api.svc.Manager(ctx.Request().Context())
	case claims.IsOwner && claims.OwnerID != "":
		data, err = api.svc.Owner(ctx.Request().Context(), claims.OwnerID)
	case claims.IsTenant && claims.TenantID != "":
		data, err = api.svc.Tenant(ctx.Request().Context(), claims.TenantID, claims.Subject)
	default:
		return errHttpNotFound
	}
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, data)
}
