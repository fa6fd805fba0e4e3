package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/meeting"
)

type meetingApi struct {
	svc      *meeting.Service
	validate *validator.Validate
}

func registerMeetingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *meeting.Service, cmpSvc *campus.Service, validate *validator.Validate) {
	api := meetingApi{svc: svc, validate: validate}

	mg := g.Group("/meetings", jwt, campusMiddleware(cmpSvc, campus.FeatureMeetings))
	mg.POST("", api.create, staffMiddleware())
	mg.GET("", api.query)

	dg := mg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware())
	dg.DELETE("", api.destroy, staffMiddleware())
	dg.POST("/cancel", api.cancel, staffMiddleware())
}

func meetingErr(err error, op string) error {
	switch errors.Cause(err) {
	case meeting.ErrNotFound:
		return errHttpNotFound
	case meeting.ErrCancelled:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, op)
}

func (api *meetingApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data meeting.NewMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mtg, err := api.svc.Create(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, data)
	if err != nil {
		return meetingErr(err, "creating meeting")
	}
	return ctx.JSON(http.StatusCreated, mtg)
}

func (api *meetingApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(meeting.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []meeting.Meeting{})
	}
	filter.CampusID = requestCampusID(ctx, claims)
	// students only see meetings they are invited to
	if claims.IsStudent {
		filter.AttendeeID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	meetings, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	if meetings == nil {
		meetings = []meeting.Meeting{}
	}
	return ctx.JSON(http.StatusOK, meetings)
}

func (api *meetingApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	mtg, err := api.svc.GetByID(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return meetingErr(err, "finding meeting")
	}
	return ctx.JSON(http.StatusOK, mtg)
}

func (api *meetingApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data meeting.UpdateMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mtg, err := api.svc.Update(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), data)
	if err != nil {
		return meetingErr(err, "updating meeting")
	}
	return ctx.JSON(http.StatusOK, mtg)
}

func (api *meetingApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	mtg, err := api.svc.Cancel(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return meetingErr(err, "cancelling meeting")
	}
	return ctx.JSON(http.StatusOK, mtg)
}

func (api *meetingApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id")); err != nil {
		return meetingErr(err, "deleting meeting")
	}
	return ctx.NoContent(http.StatusNoContent)
}
