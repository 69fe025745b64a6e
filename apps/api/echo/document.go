package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/document"
)

type documentApi struct {
	svc      document.Service
	access   *accessControl
	validate *validator.Validate
}

func registerDocumentAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc document.Service, validate *validator.Validate) {
	api := documentApi{svc: svc, access: access, validate: validate}

	dg := g.Group("/documents", jwt)
	dg.GET("", api.query)
	dg.POST("", api.create, managerMiddleware())

	og := dg.Group("/:id", api.objectMiddleware)
	og.GET("", api.retrieve)
	og.PUT("", api.update, managerMiddleware())
	og.DELETE("", api.destroy, managerMiddleware())
}

func (api *documentApi) create(ctx echo.Context) error {
	var data document.NewDocument
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	doc, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

// query lists documents. Tenants only see the documents shared with them.
func (api *documentApi) query(ctx echo.Context) error {
	filter := new(document.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
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
			return ctx.JSON(http.StatusOK, []document.Document{})
		}
		shared := true
		filter.TenantID = claims.TenantID
		filter.Shared = &shared
	}

	docs, err := api.svc.Query(ctx.Request().Context(), filter, bindOrderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(docs))
}

func (api *documentApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *documentApi) update(ctx echo.Context) error {
	doc := ctx.Get("object").(document.Document)

	var data document.NewDocument
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDocument")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	doc, err := api.svc.Update(ctx.Request().Context(), doc, data)
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	doc := ctx.Get("object").(document.Document)
	if err := api.svc.Delete(ctx.Request().Context(), doc.ID); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *documentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		doc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding document by ID")
		}

		switch {
		case claims.IsManager:
		case claims.IsOwner:
			if claims.OwnerID == "" || doc.OwnerID != claims.OwnerID {
				if err := api.access.checkProperty(ctx, doc.PropertyID); err != nil {
					return err
				}
			}
		case claims.TenantID == "" || doc.TenantID != claims.TenantID || !doc.SharedWithTenant:
			return errHttpNotFound
		}
		ctx.Set("object", doc)
		return next(ctx)
	}
}
