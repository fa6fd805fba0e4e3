package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
)

// superApi is the cross-tenant platform console: campus lifecycle, feature
// flags, settlement runs and the payment audit trail.
type superApi struct {
	deps *Deps
}

func registerSuperAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := superApi{deps: deps}

	sg := g.Group("/admin", jwt, superMiddleware())

	cg := sg.Group("/campuses")
	cg.POST("", api.createCampus)
	cg.GET("", api.queryCampuses)
	cg.GET("/slug/:slug", api.retrieveCampusBySlug)
	cg.GET("/:id", api.retrieveCampus)
	cg.PUT("/:id", api.updateCampus)
	cg.DELETE("/:id", api.deactivateCampus)
	cg.POST("/:id/restore", api.restoreCampus)
	cg.PUT("/:id/status", api.setCampusStatus)
	cg.PUT("/:id/features/:feature", api.setCampusFeature)

	sg.POST("/settlements", api.runSettlement)
	sg.GET("/audit-events", api.queryAuditEvents)
	sg.GET("/stats", api.stats)
	sg.POST("/backup-runs", api.recordBackupRun)
	sg.GET("/backup-status", api.backupStatus)
}

func campusErr(err error, op string) error {
	if errors.Cause(err) == campus.ErrNotFound {
		return errHttpNotFound
	}
	return errors.Wrap(err, op)
}

func (api *superApi) createCampus(ctx echo.Context) error {
	var data campus.NewCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampus")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	cmp, err := api.deps.CampusSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campus")
	}
	return ctx.JSON(http.StatusCreated, cmp)
}

func (api *superApi) queryCampuses(ctx echo.Context) error {
	filter := new(campus.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []campus.Campus{})
	}
	filter.Clean()

	ordering := new(Ordering)
	ordering.Bind(ctx)

	campuses, err := api.deps.CampusSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	if campuses == nil {
		campuses = []campus.Campus{}
	}
	return ctx.JSON(http.StatusOK, campuses)
}

func (api *superApi) retrieveCampus(ctx echo.Context) error {
	cmp, err := api.deps.CampusSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return campusErr(err, "finding campus")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) retrieveCampusBySlug(ctx echo.Context) error {
	cmp, err := api.deps.CampusSvc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return campusErr(err, "finding campus by slug")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) updateCampus(ctx echo.Context) error {
	var data campus.UpdateCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCampus")
	}

	rctx := ctx.Request().Context()

	orig, err := api.deps.CampusSvc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return campusErr(err, "finding campus")
	}
	if err := data.Validate(orig, api.deps.Validate); err != nil {
		return err
	}

	cmp, err := api.deps.CampusSvc.Update(rctx, orig.ID, data)
	if err != nil {
		return campusErr(err, "updating campus")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) deactivateCampus(ctx echo.Context) error {
	if err := api.deps.CampusSvc.Deactivate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return campusErr(err, "deactivating campus")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *superApi) restoreCampus(ctx echo.Context) error {
	cmp, err := api.deps.CampusSvc.Restore(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return campusErr(err, "restoring campus")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) setCampusStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	cmp, err := api.deps.CampusSvc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return campusErr(err, "setting campus status")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) setCampusFeature(ctx echo.Context) error {
	var data FeatureRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeatureRequest")
	}

	cmp, err := api.deps.CampusSvc.SetFeature(ctx.Request().Context(), ctx.Param("id"), ctx.Param("feature"), data.Enabled)
	if err != nil {
		return campusErr(err, "setting campus feature")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *superApi) runSettlement(ctx echo.Context) error {
	settled, err := api.deps.PaymentSvc.Settle(ctx.Request().Context(), ctx.QueryParam("campus_id"))
	if err != nil {
		return errors.Wrap(err, "running settlement")
	}
	return ctx.JSON(http.StatusOK, SettlementResponse{Settled: settled})
}

func (api *superApi) queryAuditEvents(ctx echo.Context) error {
	filter := new(payment.AuditQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.AuditEvent{})
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.deps.Monitor.QueryAuditEvents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying audit events")
	}
	if events == nil {
		events = []payment.AuditEvent{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *superApi) stats(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	campuses, err := api.deps.CampusSvc.Query(rctx, &campus.QueryFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	users, err := api.deps.UserSvc.Query(rctx, &user.QueryFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	payments, err := api.deps.PaymentSvc.Query(rctx, &payment.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}

	return ctx.JSON(http.StatusOK, PlatformStats{
		Campuses: len(campuses),
		Users:    len(users),
		Payments: len(payments),
	})
}

// recordBackupRun lets the external backup job report its outcome; runs land
// in the audit trail so the status report and event queries share one store.
func (api *superApi) recordBackupRun(ctx echo.Context) error {
	var data BackupRunRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BackupRunRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	severity := payment.SeverityInfo
	if data.Status == "failed" {
		severity = payment.SeverityCritical
	}
	api.deps.Monitor.Record(ctx.Request().Context(), payment.AuditEvent{
		Kind:     payment.AuditBackupRun,
		Severity: severity,
		Actor:    claims.Subject,
		Metadata: map[string]string{"status": data.Status, "detail": data.Detail},
	})
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "backup run recorded"})
}

func (api *superApi) backupStatus(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	runs, err := api.deps.Monitor.QueryAuditEvents(rctx, &payment.AuditQueryFilter{Kind: payment.AuditBackupRun}, nil)
	if err != nil {
		return errors.Wrap(err, "querying backup runs")
	}

	resp := BackupStatusResponse{Status: "never run"}
	for _, run := range runs {
		if run.CreatedAt.After(resp.LastRun) {
			resp.LastRun = run.CreatedAt
			resp.Status = run.Metadata["status"]
		}
	}

	campuses, err := api.deps.CampusSvc.Query(rctx, &campus.QueryFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	users, err := api.deps.UserSvc.Query(rctx, &user.QueryFilter{}, nil)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	payments, err := api.deps.PaymentSvc.Query(rctx, &payment.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	resp.Collections = map[string]int{
		"campuses": len(campuses),
		"users":    len(users),
		"payments": len(payments),
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	StatusRequest struct {
		Status string `json:"status" validate:"required,oneof=trial active suspended"`
	}

	FeatureRequest struct {
		Enabled bool `json:"enabled"`
	}

	SettlementResponse struct {
		Settled int `json:"settled"`
	}

	BackupRunRequest struct {
		Status string `json:"status" validate:"required,oneof=ok failed"`
		Detail string `json:"detail"`
	}

	BackupStatusResponse struct {
		LastRun     time.Time      `json:"last_run"`
		Status      string         `json:"status"`
		Collections map[string]int `json:"collections"`
	}

	PlatformStats struct {
		Campuses int `json:"campuses"`
		Users    int `json:"users"`
		Payments int `json:"payments"`
	}
)
