package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
)

type classApi struct {
	svc      *class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *class.Service, validate *validator.Validate) {
	api := classApi{svc: svc, validate: validate}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/archive", api.archive, staffMiddleware())
	dg.POST("/students", api.enroll, staffMiddleware())
	dg.DELETE("/students/:studentID", api.unenroll, staffMiddleware())

	// assignments
	dg.POST("/assignments", api.createAssignment, staffMiddleware())
	dg.GET("/assignments", api.queryAssignments)
	dg.PUT("/assignments/:assignmentID", api.updateAssignment, staffMiddleware())
	dg.DELETE("/assignments/:assignmentID", api.destroyAssignment, staffMiddleware())
}

// classErr maps domain errors to HTTP errors.
func classErr(err error, op string) error {
	switch errors.Cause(err) {
	case class.ErrNotFound, class.ErrAssignmentNotFound:
		return errHttpNotFound
	case class.ErrClassArchived:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, op)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), requestCampusID(ctx, claims), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(class.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []class.Class{})
	}
	filter.Clean()
	filter.CampusID = requestCampusID(ctx, claims)
	// students only see classes they are enrolled in
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cls, err := api.svc.GetByID(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return classErr(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}

	rctx := ctx.Request().Context()
	campusID := requestCampusID(ctx, claims)

	orig, err := api.svc.GetByID(rctx, campusID, ctx.Param("id"))
	if err != nil {
		return classErr(err, "finding class")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Update(rctx, campusID, orig.ID, data)
	if err != nil {
		return classErr(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id")); err != nil {
		return classErr(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) archive(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cls, err := api.svc.Archive(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return classErr(err, "archiving class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cls, err := api.svc.Enroll(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), data.StudentID)
	if err != nil {
		return classErr(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) unenroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cls, err := api.svc.Unenroll(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), ctx.Param("studentID"))
	if err != nil {
		return classErr(err, "unenrolling student")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) createAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data class.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), data)
	if err != nil {
		return classErr(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *classApi) queryAssignments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	asgs, err := api.svc.QueryAssignments(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return classErr(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []class.Assignment{}
	}
	// students only see published assignments
	if claims.IsStudent {
		published := make([]class.Assignment, 0, len(asgs))
		for _, asg := range asgs {
			if asg.IsPublished {
				published = append(published, asg)
			}
		}
		asgs = published
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *classApi) updateAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data class.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.UpdateAssignment(
		ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), ctx.Param("assignmentID"), data)
	if err != nil {
		return classErr(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *classApi) destroyAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeleteAssignment(
		ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), ctx.Param("assignmentID")); err != nil {
		return classErr(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required,objectid"`
}
