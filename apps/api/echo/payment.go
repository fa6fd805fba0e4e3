package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/payment"
)

type paymentApi struct {
	svc      *payment.SettlementService
	monitor  *payment.SecurityMonitor
	validate *validator.Validate
}

func registerPaymentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *payment.SettlementService,
	monitor *payment.SecurityMonitor,
	validate *validator.Validate,
) {
	api := paymentApi{svc: svc, monitor: monitor, validate: validate}

	pg := g.Group("/payments", paymentMonitorMiddleware(monitor))

	// gateways POST here; authenticated by signature, not JWT
	pg.POST("/webhooks/:gateway", api.webhook)

	ag := pg.Group("", jwt)
	ag.POST("/orders", api.createOrder)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
}

func (api *paymentApi) createOrder(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data payment.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	// students can only pay for themselves
	if claims.IsStudent {
		data.StudentID = claims.Subject
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.CreateOrder(ctx.Request().Context(), requestCampusID(ctx, claims), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	filter.CampusID = requestCampusID(ctx, claims)
	// students only see their own payments
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pmt, err := api.svc.GetByID(ctx.Request().Context(), requestCampusID(ctx, claims), ctx.Param("id"))
	if err != nil {
		return err
	}
	if claims.IsStudent && pmt.StudentID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, pmt)
}

// paymentMonitorMiddleware guards the payment routes: flagged IPs are turned
// away before any handler runs, and failed requests land in the audit trail
// with their latency.
func paymentMonitorMiddleware(monitor *payment.SecurityMonitor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rctx := ctx.Request().Context()
			ip := ctx.RealIP()

			blocked, err := monitor.SourceBlocked(rctx, ip)
			if err != nil {
				return errors.Wrap(err, "checking source block")
			}
			if blocked {
				return payment.NewCodedError(payment.CodeSourceBlocked, nil)
			}

			start := time.Now()
			err = next(ctx)
			if coded, ok := payment.AsCodedError(err); ok && coded.Code != payment.CodeDuplicateEvent {
				monitor.Record(rctx, payment.AuditEvent{
					Kind:     payment.AuditAPIFailure,
					Severity: coded.Severity,
					IP:       ip,
					Metadata: map[string]string{
						"code":    coded.Code,
						"path":    ctx.Request().URL.Path,
						"latency": time.Since(start).String(),
					},
				})
			}
			return err
		}
	}
}

func (api *paymentApi) webhook(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	ip := ctx.RealIP()

	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook payload")
	}
	headers := webhookHeaders(ctx.Request().Header)

	if err := api.svc.HandleWebhook(rctx, ctx.Param("gateway"), ip, payload, headers); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "ok"})
}

// webhookHeaders extracts the signature material each gateway transmits.
// PayU carries its hash inside the form payload, so both fields stay empty.
func webhookHeaders(h http.Header) payment.WebhookHeaders {
	headers := payment.WebhookHeaders{
		Signature: h.Get("X-Razorpay-Signature"),
		Timestamp: h.Get("x-webhook-timestamp"),
	}
	if headers.Signature == "" {
		headers.Signature = h.Get("x-webhook-signature") // cashfree
	}
	return headers
}
