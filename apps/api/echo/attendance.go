package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", jwt)
	ag.POST("/sessions", api.openSession, staffMiddleware())
	ag.GET("/sessions", api.querySessions)
	ag.GET("/sessions/:id", api.retrieveSession)
	ag.POST("/sessions/:id/marks", api.mark, staffMiddleware())
	ag.POST("/sessions/:id/bulk-marks", api.bulkMark, staffMiddleware())
	ag.POST("/sessions/:id/close", api.closeSession, staffMiddleware())
	ag.GET("/records", api.queryRecords)
	ag.GET("/export", api.exportRegister, staffMiddleware())
}

func attendanceErr(err error, op string) error {
	switch errors.Cause(err) {
	case attendance.ErrSessionNotFound:
		return errHttpNotFound
	case attendance.ErrSessionClosed, attendance.ErrSessionOpen:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, op)
}

func (api *attendanceApi) openSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.OpenSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenSessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.OpenSession(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, data)
	if err != nil {
		return attendanceErr(err, "opening session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Session{})
	}
	filter.CampusID = requestCampusID(ctx, claims)

	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) retrieveSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.GetSession(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return attendanceErr(err, "finding session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Mark(
		ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, ctx.Param("id"), data); err != nil {
		return attendanceErr(err, "marking attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) bulkMark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.BulkMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.BulkMark(
		ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, ctx.Param("id"), data); err != nil {
		return attendanceErr(err, "bulk marking attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) closeSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.CloseSession(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return attendanceErr(err, "closing session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attendanceApi) queryRecords(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	filter.CampusID = requestCampusID(ctx, claims)
	// students only see their own records
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	recs, err := api.svc.QueryRecords(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) exportRegister(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.CampusID = requestCampusID(ctx, claims)

	buf, err := api.svc.ExportRegister(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "exporting register")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="register.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
