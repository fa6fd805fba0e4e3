package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/campus"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if (claims.IsAdmin || claims.IsSuper) && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware admits teachers, admins and super admins.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher || claims.IsAdmin || claims.IsSuper {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func superMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuper {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// campusMiddleware rejects requests from suspended campuses; when feature is
// set, it must also be enabled on the campus. Super admins bypass both checks.
func campusMiddleware(svc *campus.Service, feature string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuper {
				return next(ctx)
			}

			cmp, err := svc.GetByID(ctx.Request().Context(), claims.CampusID)
			if err != nil {
				if errors.Cause(err) == campus.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "finding campus")
			}
			if !cmp.IsActive() {
				return errCampusSuspended
			}
			if feature != "" && !cmp.FeatureEnabled(feature) {
				return echo.NewHTTPError(http.StatusForbidden, feature+" is disabled for this campus")
			}
			return next(ctx)
		}
	}
}
