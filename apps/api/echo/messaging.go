package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core/messaging"
)

type messagingApi struct {
	svc      messaging.Service
	access   *accessControl
	validate *validator.Validate
}

func registerMessagingAPI(g *echo.Group, jwt echo.MiddlewareFunc, access *accessControl, svc messaging.Service, validate *validator.Validate) {
	api := messagingApi{svc: svc, access: access, validate: validate}

	cg := g.Group("/conversations", jwt)
	cg.GET("", api.query)
	cg.POST("", api.start)
	cg.GET("/:id/messages", api.messages)
	cg.POST("/:id/messages", api.send)
	cg.POST("/:id/read", api.markRead)
}

type MarkReadResponse struct {
	Read int `json:"read"`
}

func (api *messagingApi) query(ctx echo.Context) error {
	filter := new(messaging.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	usr, err := api.access.currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	threads, err := api.svc.ListForUser(ctx.Request().Context(), usr.ID, filter)
	if err != nil {
		return errors.Wrap(err, "listing conversations")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(threads))
}

func (api *messagingApi) start(ctx echo.Context) error {
	var data messaging.NewConversation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConversation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := api.access.currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	thread, err := api.svc.Start(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "starting conversation")
	}
	return ctx.JSON(http.StatusCreated, thread)
}

func (api *messagingApi) messages(ctx echo.Context) error {
	usr, err := api.access.currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, err := api.svc.Messages(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing messages")
	}
	return ctx.JSON(http.StatusOK, listOrEmpty(msgs))
}

func (api *messagingApi) send(ctx echo.Context) error {
	var data messaging.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := api.access.currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.Send(ctx.Request().Context(), ctx.Param("id"), usr, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messagingApi) markRead(ctx echo.Context) error {
	usr, err := api.access.currentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "marking conversation read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Read: n})
}
