package payment

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
)

type (
	AuditRepository interface {
		CreateAuditEvent(ctx context.Context, ev AuditEvent) (AuditEvent, error)
		QueryAuditEvents(ctx context.Context, filter *AuditQueryFilter, ordering []core.DBOrdering) ([]AuditEvent, error)
	}

	// FailureCounter tracks webhook signature failures per source IP inside a
	// sliding window; backed by redis.
	FailureCounter interface {
		// RecordFailure increments the IP's failure count and returns the new count.
		RecordFailure(ctx context.Context, ip string, window time.Duration) (int, error)
		Flag(ctx context.Context, ip string, duration time.Duration) error
		Flagged(ctx context.Context, ip string) (bool, error)
	}

	// SecurityMonitor records audit events for the payment pipeline and blocks
	// sources that keep failing signature verification.
	SecurityMonitor struct {
		audit    AuditRepository
		failures FailureCounter
		cmpRepo  campus.Repository
		logger   core.Logger
		mailSvc  core.EmailService
	}
)

func NewSecurityMonitor(
	audit AuditRepository,
	failures FailureCounter,
	cmpRepo campus.Repository,
	logger core.Logger,
	mailSvc core.EmailService,
) *SecurityMonitor {
	return &SecurityMonitor{
		audit:    audit,
		failures: failures,
		cmpRepo:  cmpRepo,
		logger:   logger,
		mailSvc:  mailSvc,
	}
}

// Record stores the audit event; critical events are additionally reported
// to the error logger and emailed to the campus contact.
func (mon *SecurityMonitor) Record(ctx context.Context, ev AuditEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.Severity == "" {
		ev.Severity = SeverityInfo
	}
	ev.CreatedAt = time.Now().UTC()

	if _, err := mon.audit.CreateAuditEvent(ctx, ev); err != nil {
		mon.logger.Error("storing audit event", errors.Wrap(err, "storing audit event"))
	}

	if ev.Severity == SeverityCritical {
		mon.escalate(ctx, ev)
	}
}

func (mon *SecurityMonitor) escalate(ctx context.Context, ev AuditEvent) {
	mon.logger.Error("critical payment event: "+ev.Kind, map[string]interface{}{
		"event_id":   ev.EventID,
		"kind":       ev.Kind,
		"campus_id":  ev.CampusID,
		"payment_id": ev.PaymentID,
		"gateway":    ev.Gateway,
		"ip":         ev.IP,
	})

	if ev.CampusID == "" {
		return
	}
	cmp, err := mon.cmpRepo.GetCampus(ctx, campus.GetFilter{ID: ev.CampusID})
	if err != nil || cmp.ContactEmail == "" {
		return
	}
	mon.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cmp.Name, Address: cmp.ContactEmail}},
		Subject:      "Payment Security Alert",
		TemplateName: "payment-alert",
		TemplateData: ev,
	})
}

// SignatureFailure records a failed webhook signature check and flags the
// source IP once it exceeds the configured limit. Returns whether the IP is
// now blocked.
func (mon *SecurityMonitor) SignatureFailure(ctx context.Context, ip, gateway string) (bool, error) {
	conf := core.Conf.Payment
	count, err := mon.failures.RecordFailure(ctx, ip, conf.SignatureFailureWindow)
	if err != nil {
		return false, errors.Wrap(err, "recording signature failure")
	}

	mon.Record(ctx, AuditEvent{
		Kind:     AuditSignatureFailure,
		Severity: SeverityWarning,
		Gateway:  gateway,
		IP:       ip,
	})

	if count < conf.SignatureFailureLimit {
		return false, nil
	}
	if err = mon.failures.Flag(ctx, ip, conf.SignatureFailureWindow); err != nil {
		return false, errors.Wrap(err, "flagging IP")
	}
	mon.Record(ctx, AuditEvent{
		Kind:     AuditIPBlocked,
		Severity: SeverityCritical,
		Gateway:  gateway,
		IP:       ip,
	})
	return true, nil
}

// SourceBlocked reports whether webhooks from the IP are currently blocked.
func (mon *SecurityMonitor) SourceBlocked(ctx context.Context, ip string) (bool, error) {
	return mon.failures.Flagged(ctx, ip)
}

// QueryAuditEvents exposes the audit trail to super admins.
func (mon *SecurityMonitor) QueryAuditEvents(ctx context.Context, filter *AuditQueryFilter, ordering []core.DBOrdering) ([]AuditEvent, error) {
	return mon.audit.QueryAuditEvents(ctx, filter, ordering)
}
