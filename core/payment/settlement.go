package payment

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/user"
)

const gatewayRetryAttempts = 3

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		GetPayment(ctx context.Context, campusID, id string) (Payment, error)
		// GetPaymentByOrderID looks a payment up by gateway order ID across campuses.
		GetPaymentByOrderID(ctx context.Context, gateway, orderID string) (Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		UpdatePayment(ctx context.Context, pmt Payment) error
	}

	// DedupStore remembers processed webhook event IDs for idempotency;
	// backed by redis SETNX.
	DedupStore interface {
		// MarkProcessed returns false when the event was already marked.
		MarkProcessed(ctx context.Context, gateway, eventID string, ttl time.Duration) (bool, error)
	}

	// SettlementService owns the payment lifecycle: order creation on the
	// gateway, webhook settlement and the periodic settlement run.
	SettlementService struct {
		repo      Repository
		cmpRepo   campus.Repository
		usrRepo   user.Repository
		providers map[string]Provider
		dedup     DedupStore
		monitor   *SecurityMonitor
		mailSvc   core.EmailService
	}
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrFeatureDisabled = errors.New("payments disabled")
)

const dedupTTL = 72 * time.Hour

func NewSettlementService(
	repo Repository,
	cmpRepo campus.Repository,
	usrRepo user.Repository,
	providers []Provider,
	dedup DedupStore,
	monitor *SecurityMonitor,
	mailSvc core.EmailService,
) *SettlementService {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &SettlementService{
		repo:      repo,
		cmpRepo:   cmpRepo,
		usrRepo:   usrRepo,
		providers: byName,
		dedup:     dedup,
		monitor:   monitor,
		mailSvc:   mailSvc,
	}
}

func (svc *SettlementService) provider(gateway string) (Provider, error) {
	p, ok := svc.providers[gateway]
	if !ok {
		return nil, NewCodedError(CodeUnknownGateway, errors.Errorf("gateway %q not configured", gateway))
	}
	return p, nil
}

// CreateOrder creates an order on the gateway and persists the pending
// payment. The gateway call is retried on transient failures.
func (svc *SettlementService) CreateOrder(ctx context.Context, campusID string, no NewOrder) (Payment, error) {
	cmp, err := svc.cmpRepo.GetCampus(ctx, campus.GetFilter{ID: campusID})
	if err != nil {
		return Payment{}, errors.Wrap(err, "getting campus")
	}
	if !cmp.FeatureEnabled(campus.FeaturePayments) {
		return Payment{}, NewCodedError(CodeFeatureDisabled, ErrFeatureDisabled)
	}

	prov, err := svc.provider(no.Gateway)
	if err != nil {
		return Payment{}, err
	}

	receipt := uuid.New().String()
	var order GatewayOrder
	err = retry.Do(
		func() error {
			var err error
			order, err = prov.CreateOrder(ctx, no.Amount, no.Currency, receipt)
			return err
		},
		retry.Attempts(gatewayRetryAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Payment{}, NewCodedError(CodeGatewayFailure, errors.Wrap(err, "creating gateway order"))
	}

	now := time.Now().UTC()
	pmt := Payment{
		CampusID:       campusID,
		StudentID:      no.StudentID,
		Amount:         no.Amount,
		Currency:       no.Currency,
		Purpose:        no.Purpose,
		Gateway:        no.Gateway,
		GatewayOrderID: order.OrderID,
		Status:         StatusCreated,
		Receipt:        receipt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	pmt, err = svc.repo.CreatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}

	svc.monitor.Record(ctx, AuditEvent{
		Kind:      AuditOrderCreated,
		Severity:  SeverityInfo,
		CampusID:  campusID,
		PaymentID: pmt.ID,
		Gateway:   no.Gateway,
		Metadata:  map[string]string{"order_id": order.OrderID, "amount": strconv.FormatInt(no.Amount, 10)},
	})
	return pmt, nil
}

// HandleWebhook verifies, deduplicates and applies a gateway webhook.
// Replays are acknowledged without effect.
func (svc *SettlementService) HandleWebhook(ctx context.Context, gateway, sourceIP string, payload []byte, headers WebhookHeaders) error {
	prov, err := svc.provider(gateway)
	if err != nil {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:     AuditWebhookRejected,
			Severity: SeverityWarning,
			Gateway:  gateway,
			IP:       sourceIP,
			Metadata: map[string]string{"reason": CodeUnknownGateway},
		})
		return err
	}

	if err = prov.VerifyWebhook(payload, headers); err != nil {
		if _, ferr := svc.monitor.SignatureFailure(ctx, sourceIP, gateway); ferr != nil {
			return errors.Wrap(ferr, "recording signature failure")
		}
		return NewCodedError(CodeBadSignature, err)
	}

	ev, err := prov.ParseWebhook(payload)
	if err != nil {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:     AuditWebhookRejected,
			Severity: SeverityWarning,
			Gateway:  gateway,
			IP:       sourceIP,
			Metadata: map[string]string{"reason": CodeValidation},
		})
		return NewCodedError(CodeValidation, err)
	}

	fresh, err := svc.dedup.MarkProcessed(ctx, gateway, ev.EventID, dedupTTL)
	if err != nil {
		return errors.Wrap(err, "deduplicating event")
	}
	if !fresh {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:     AuditWebhookReplay,
			Severity: SeverityInfo,
			Gateway:  gateway,
			IP:       sourceIP,
			Metadata: map[string]string{"event_id": ev.EventID},
		})
		return NewCodedError(CodeDuplicateEvent, nil)
	}

	return svc.applyEvent(ctx, gateway, sourceIP, ev)
}

func (svc *SettlementService) applyEvent(ctx context.Context, gateway, sourceIP string, ev WebhookEvent) error {
	pmt, err := svc.repo.GetPaymentByOrderID(ctx, gateway, ev.OrderID)
	if err != nil {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:     AuditWebhookRejected,
			Severity: SeverityWarning,
			Gateway:  gateway,
			IP:       sourceIP,
			Metadata: map[string]string{"reason": CodePaymentNotFound, "order_id": ev.OrderID},
		})
		return NewCodedError(CodePaymentNotFound, err)
	}

	if ev.Amount != 0 && ev.Amount != pmt.Amount {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:      AuditWebhookRejected,
			Severity:  SeverityCritical,
			CampusID:  pmt.CampusID,
			PaymentID: pmt.ID,
			Gateway:   gateway,
			IP:        sourceIP,
			Metadata: map[string]string{
				"reason":   CodeAmountMismatch,
				"expected": strconv.FormatInt(pmt.Amount, 10),
				"got":      strconv.FormatInt(ev.Amount, 10),
			},
		})
		return NewCodedError(CodeAmountMismatch, nil)
	}

	target, ok := eventStatus[ev.Kind]
	if !ok {
		return NewCodedError(CodeValidation, errors.Errorf("unknown event kind %q", ev.Kind))
	}
	if target == pmt.Status {
		// gateway re-sent an event under a new event ID; acknowledge it
		svc.monitor.Record(ctx, AuditEvent{
			Kind:      AuditWebhookReplay,
			Severity:  SeverityInfo,
			CampusID:  pmt.CampusID,
			PaymentID: pmt.ID,
			Gateway:   gateway,
			IP:        sourceIP,
			Metadata:  map[string]string{"event_id": ev.EventID},
		})
		return nil
	}
	if !TransitionAllowed(pmt.Status, target) {
		svc.monitor.Record(ctx, AuditEvent{
			Kind:      AuditWebhookRejected,
			Severity:  SeverityCritical,
			CampusID:  pmt.CampusID,
			PaymentID: pmt.ID,
			Gateway:   gateway,
			IP:        sourceIP,
			Metadata:  map[string]string{"reason": CodeIllegalUpdate, "from": pmt.Status, "to": target},
		})
		return NewCodedError(CodeIllegalUpdate, errors.Errorf("%s -> %s", pmt.Status, target))
	}

	pmt.Status = target
	pmt.GatewayPaymentID = ev.PaymentID
	pmt.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdatePayment(ctx, pmt); err != nil {
		return errors.Wrap(err, "updating payment")
	}

	svc.monitor.Record(ctx, AuditEvent{
		Kind:      AuditWebhookAccepted,
		Severity:  SeverityInfo,
		CampusID:  pmt.CampusID,
		PaymentID: pmt.ID,
		Gateway:   gateway,
		IP:        sourceIP,
		Metadata:  map[string]string{"event_id": ev.EventID, "status": target},
	})

	if target == StatusCaptured {
		svc.sendReceipt(ctx, pmt)
	}
	return nil
}

func (svc *SettlementService) sendReceipt(ctx context.Context, pmt Payment) {
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: pmt.StudentID})
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Payment Receipt",
		TemplateName: "payment-receipt",
		TemplateData: pmt,
	})
}

// Query returns a campus's payments.
func (svc *SettlementService) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

// GetByID returns a campus's payment by ID.
func (svc *SettlementService) GetByID(ctx context.Context, campusID, id string) (Payment, error) {
	pmt, err := svc.repo.GetPayment(ctx, campusID, id)
	if err != nil {
		return Payment{}, ErrNotFound
	}
	return pmt, nil
}

// Settle marks the campus's captured payments as settled and records the run.
// Returns the number of payments settled.
func (svc *SettlementService) Settle(ctx context.Context, campusID string) (int, error) {
	pmts, err := svc.repo.QueryPayments(ctx, &QueryFilter{CampusID: campusID, Status: StatusCaptured}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying captured payments")
	}

	now := time.Now().UTC()
	batchSize := core.Conf.Payment.SettlementBatchSize
	if batchSize > 0 && len(pmts) > batchSize {
		pmts = pmts[:batchSize]
	}

	var settled int
	for _, pmt := range pmts {
		pmt.Status = StatusSettled
		pmt.SettledAt = now
		pmt.UpdatedAt = now
		if err = svc.repo.UpdatePayment(ctx, pmt); err != nil {
			return settled, errors.Wrapf(err, "settling payment %s", pmt.ID)
		}
		settled++
	}

	svc.monitor.Record(ctx, AuditEvent{
		Kind:     AuditSettlementRun,
		Severity: SeverityInfo,
		CampusID: campusID,
		Metadata: map[string]string{"settled": strconv.Itoa(settled)},
	})
	return settled, nil
}
