package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/user"
)

type notificationApi struct {
	svc      *notification.Service
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *notification.Service,
	usrSvc user.ServiceInterface,
	cmpSvc *campus.Service,
	validate *validator.Validate,
) {
	api := notificationApi{svc: svc, usrSvc: usrSvc, validate: validate}

	ng := g.Group("/notifications", jwt, campusMiddleware(cmpSvc, campus.FeatureNotifications))
	ng.POST("", api.create, staffMiddleware())
	ng.GET("", api.list)
	ng.POST("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *notificationApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notif, err := api.svc.Create(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}
	return ctx.JSON(http.StatusCreated, notif)
}

func (api *notificationApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.ListForUser(ctx.Request().Context(), requestCampusID(ctx, claims), usr)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notif, err := api.svc.MarkRead(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id")); err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
