package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/quiz"
)

type quizApi struct {
	svc      *quiz.Service
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service, cmpSvc *campus.Service, validate *validator.Validate) {
	api := quizApi{svc: svc, validate: validate}

	qg := g.Group("/quizzes", jwt, campusMiddleware(cmpSvc, campus.FeatureQuizzes))
	qg.POST("", api.create, staffMiddleware())
	qg.GET("", api.query)

	dg := qg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware())
	dg.DELETE("", api.destroy, staffMiddleware())
	dg.POST("/start", api.start, staffMiddleware())
	dg.POST("/join", api.join)
	dg.POST("/submit", api.submit)
	dg.GET("/results", api.results, staffMiddleware())
}

func quizErr(err error, op string) error {
	switch errors.Cause(err) {
	case quiz.ErrNotFound, quiz.ErrSubmissionNotFound:
		return errHttpNotFound
	case quiz.ErrAlreadySubmitted:
		return echo.NewHTTPError(http.StatusConflict, quiz.ErrAlreadySubmitted.Error())
	case quiz.ErrNotPublished, quiz.ErrNoLiveSession, quiz.ErrSessionRunning,
		quiz.ErrDeadlinePassed:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, op)
}

func (api *quizApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), requestCampusID(ctx, claims), data)
	if err != nil {
		return quizErr(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, qz)
}

func (api *quizApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []quiz.Quiz{})
	}
	filter.Clean()
	filter.CampusID = requestCampusID(ctx, claims)
	// students only see published quizzes
	if claims.IsStudent {
		published := true
		filter.Published = &published
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	quizzes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	// hide answer keys from students
	if claims.IsStudent {
		for i := range quizzes {
			stripAnswers(&quizzes[i])
		}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	qz, err := api.svc.GetByID(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return quizErr(err, "finding quiz")
	}
	if claims.IsStudent {
		if !qz.IsPublished {
			return errHttpNotFound
		}
		stripAnswers(&qz)
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	qz, err := api.svc.Update(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"), data)
	if err != nil {
		return quizErr(err, "updating quiz")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id")); err != nil {
		return quizErr(err, "deleting quiz")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *quizApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.StartSession(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, ctx.Param("id"))
	if err != nil {
		return quizErr(err, "starting quiz session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *quizApi) join(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.Join(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, ctx.Param("id"))
	if err != nil {
		return quizErr(err, "joining quiz session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *quizApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), requestCampusID(ctx, claims), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return quizErr(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *quizApi) results(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	subs, err := api.svc.Results(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return quizErr(err, "fetching quiz results")
	}
	if subs == nil {
		subs = []quiz.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// stripAnswers blanks the answer key before a quiz is sent to a student.
func stripAnswers(qz *quiz.Quiz) {
	for i := range qz.Questions {
		qz.Questions[i].CorrectIndex = -1
	}
}
