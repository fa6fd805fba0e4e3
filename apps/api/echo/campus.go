package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/campus"
)

type campusApi struct {
	svc      *campus.Service
	validate *validator.Validate
}

// registerCampusAPI exposes the caller's own campus; cross-tenant campus
// management lives under the super admin API.
func registerCampusAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *campus.Service, validate *validator.Validate) {
	api := campusApi{svc: svc, validate: validate}

	cg := g.Group("/campus", jwt)
	cg.GET("", api.retrieve)
	cg.PUT("", api.update, adminMiddleware())
}

func (api *campusApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cmp, err := api.svc.GetByID(ctx.Request().Context(), requestCampusID(ctx, claims))
	if err != nil {
		if errors.Cause(err) == campus.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding campus")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *campusApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data campus.UpdateCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampus")
	}
	// subscription status and feature flags are super admin territory
	if !claims.IsSuper {
		data.Status = ""
		data.Features = nil
	}

	rctx := ctx.Request().Context()
	id := requestCampusID(ctx, claims)

	orig, err := api.svc.GetByID(rctx, id)
	if err != nil {
		if errors.Cause(err) == campus.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding campus")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	cmp, err := api.svc.Update(rctx, id, data)
	if err != nil {
		return errors.Wrap(err, "updating campus")
	}
	return ctx.JSON(http.StatusOK, cmp)
}
