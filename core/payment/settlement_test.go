package payment_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type fakeProvider struct {
	name      string
	order     payment.GatewayOrder
	createErr error
	verifyErr error
	event     payment.WebhookEvent
	parseErr  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (payment.GatewayOrder, error) {
	if p.createErr != nil {
		return payment.GatewayOrder{}, p.createErr
	}
	p.order.Amount = amount
	p.order.Currency = currency
	return p.order, nil
}

func (p *fakeProvider) VerifyWebhook(payload []byte, headers payment.WebhookHeaders) error {
	return p.verifyErr
}

func (p *fakeProvider) ParseWebhook(payload []byte) (payment.WebhookEvent, error) {
	if p.parseErr != nil {
		return payment.WebhookEvent{}, p.parseErr
	}
	return p.event, nil
}

type mailRecorder struct {
	mutex sync.Mutex
	sent  []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type pipeline struct {
	svc      *payment.SettlementService
	monitor  *payment.SecurityMonitor
	provider *fakeProvider
	repo     payment.Repository
	audit    payment.AuditRepository
	cmpRepo  campus.Repository
	mailer   *mailRecorder
	campusID string
	student  user.User
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	core.NewTestConfig()
	ctx := context.Background()

	db := inmemdb.Open()

	cmpRepo := inmemdb.NewCampusRepository(db)
	cmp, err := cmpRepo.CreateCampus(ctx, campus.Campus{
		Name:         "Hilltop Academy",
		Slug:         "hilltop",
		ContactEmail: "admin@hilltop.test",
		Status:       campus.StatusActive,
		Features:     map[string]bool{campus.FeaturePayments: true},
	})
	require.NoError(t, err)

	usrRepo := inmemdb.NewUserRepository(db)
	student, err := usrRepo.CreateUser(ctx, user.User{
		CampusID: cmp.ID,
		Name:     "Jina Moja",
		Username: "jina",
		Email:    "jina@hilltop.test",
		Roles:    []string{user.RoleStudent},
	})
	require.NoError(t, err)

	repo := inmemdb.NewPaymentRepository(db)
	audit := inmemdb.NewAuditRepository(db)
	mailer := &mailRecorder{}
	provider := &fakeProvider{
		name:  payment.GatewayRazorpay,
		order: payment.GatewayOrder{OrderID: "order_test1"},
	}
	monitor := payment.NewSecurityMonitor(audit, inmemdb.NewFailureCounter(), cmpRepo, nopLogger{}, mailer)
	svc := payment.NewSettlementService(
		repo, cmpRepo, usrRepo, []payment.Provider{provider}, inmemdb.NewDedupStore(), monitor, mailer,
	)
	return &pipeline{
		svc:      svc,
		monitor:  monitor,
		provider: provider,
		repo:     repo,
		audit:    audit,
		cmpRepo:  cmpRepo,
		mailer:   mailer,
		campusID: cmp.ID,
		student:  student,
	}
}

func (p *pipeline) createOrder(t *testing.T) payment.Payment {
	t.Helper()
	pmt, err := p.svc.CreateOrder(context.Background(), p.campusID, payment.NewOrder{
		StudentID: p.student.ID,
		Amount:    150000,
		Currency:  "INR",
		Purpose:   "Term 2 fees",
		Gateway:   payment.GatewayRazorpay,
	})
	require.NoError(t, err)
	return pmt
}

func (p *pipeline) auditKinds(t *testing.T) []string {
	t.Helper()
	evs, err := p.audit.QueryAuditEvents(context.Background(), nil, nil)
	require.NoError(t, err)
	kinds := make([]string, 0, len(evs))
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{payment.StatusCreated, payment.StatusAuthorized, true},
		{payment.StatusCreated, payment.StatusCaptured, true},
		{payment.StatusCreated, payment.StatusFailed, true},
		{payment.StatusCreated, payment.StatusSettled, false},
		{payment.StatusAuthorized, payment.StatusCaptured, true},
		{payment.StatusAuthorized, payment.StatusRefunded, false},
		{payment.StatusCaptured, payment.StatusSettled, true},
		{payment.StatusCaptured, payment.StatusRefunded, true},
		{payment.StatusCaptured, payment.StatusAuthorized, false},
		{payment.StatusSettled, payment.StatusRefunded, true},
		{payment.StatusSettled, payment.StatusCaptured, false},
		{payment.StatusFailed, payment.StatusCaptured, false},
		{payment.StatusRefunded, payment.StatusCaptured, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, payment.TransitionAllowed(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCodedErrors(t *testing.T) {
	cause := errors.New("boom")
	err := payment.NewCodedError(payment.CodeBadSignature, cause)
	assert.Equal(t, payment.CodeBadSignature, err.Code)
	assert.Equal(t, 401, err.Status)
	assert.Equal(t, payment.SeverityCritical, err.Severity)
	assert.Equal(t, cause, errors.Unwrap(err))

	coded, ok := payment.AsCodedError(errors.Wrap(err, "handling webhook"))
	require.True(t, ok)
	assert.Equal(t, payment.CodeBadSignature, coded.Code)

	unknown := payment.NewCodedError("NOPE_001", nil)
	assert.Equal(t, payment.CodeInternal, unknown.Code)
}

func TestCreateOrder(t *testing.T) {
	t.Run("persists pending payment", func(t *testing.T) {
		p := newPipeline(t)
		pmt := p.createOrder(t)

		assert.NotEmpty(t, pmt.ID)
		assert.Equal(t, payment.StatusCreated, pmt.Status)
		assert.Equal(t, "order_test1", pmt.GatewayOrderID)
		assert.NotEmpty(t, pmt.Receipt)
		assert.Contains(t, p.auditKinds(t), payment.AuditOrderCreated)
	})

	t.Run("payments feature disabled", func(t *testing.T) {
		p := newPipeline(t)
		cmp, err := p.cmpRepo.GetCampus(context.Background(), campus.GetFilter{ID: p.campusID})
		require.NoError(t, err)
		cmp.Features[campus.FeaturePayments] = false
		_, err = p.cmpRepo.UpdateCampus(context.Background(), cmp)
		require.NoError(t, err)

		_, err = p.svc.CreateOrder(context.Background(), p.campusID, payment.NewOrder{
			StudentID: p.student.ID,
			Amount:    100,
			Currency:  "INR",
			Purpose:   "fees",
			Gateway:   payment.GatewayRazorpay,
		})
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeFeatureDisabled, coded.Code)
	})

	t.Run("gateway down", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.createErr = errors.New("connection refused")

		_, err := p.svc.CreateOrder(context.Background(), p.campusID, payment.NewOrder{
			StudentID: p.student.ID,
			Amount:    100,
			Currency:  "INR",
			Purpose:   "fees",
			Gateway:   payment.GatewayRazorpay,
		})
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeGatewayFailure, coded.Code)
	})

	t.Run("unknown gateway", func(t *testing.T) {
		p := newPipeline(t)
		_, err := p.svc.CreateOrder(context.Background(), p.campusID, payment.NewOrder{
			StudentID: p.student.ID,
			Amount:    100,
			Currency:  "INR",
			Purpose:   "fees",
			Gateway:   "stripe",
		})
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeUnknownGateway, coded.Code)
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()
	headers := payment.WebhookHeaders{Signature: "sig"}

	t.Run("capture settles and emails receipt", func(t *testing.T) {
		p := newPipeline(t)
		pmt := p.createOrder(t)
		p.provider.event = payment.WebhookEvent{
			EventID:   "evt_1",
			Kind:      payment.EventCaptured,
			OrderID:   pmt.GatewayOrderID,
			PaymentID: "pay_1",
			Amount:    pmt.Amount,
		}

		require.NoError(t, p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers))

		got, err := p.svc.GetByID(ctx, p.campusID, pmt.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCaptured, got.Status)
		assert.Equal(t, "pay_1", got.GatewayPaymentID)
		assert.Contains(t, p.auditKinds(t), payment.AuditWebhookAccepted)

		require.Len(t, p.mailer.sent, 1)
		assert.Equal(t, "payment-receipt", p.mailer.sent[0].TemplateName)
	})

	t.Run("replayed event is a no-op", func(t *testing.T) {
		p := newPipeline(t)
		pmt := p.createOrder(t)
		p.provider.event = payment.WebhookEvent{
			EventID: "evt_dup",
			Kind:    payment.EventCaptured,
			OrderID: pmt.GatewayOrderID,
			Amount:  pmt.Amount,
		}

		require.NoError(t, p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers))
		err := p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers)

		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeDuplicateEvent, coded.Code)
		assert.Contains(t, p.auditKinds(t), payment.AuditWebhookReplay)

		got, err := p.svc.GetByID(ctx, p.campusID, pmt.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCaptured, got.Status)
		assert.Len(t, p.mailer.sent, 1)
	})

	t.Run("bad signature", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.verifyErr = errors.New("signature mismatch")

		err := p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.2", []byte(`{}`), headers)
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeBadSignature, coded.Code)
		assert.Contains(t, p.auditKinds(t), payment.AuditSignatureFailure)
	})

	t.Run("repeated signature failures block the source", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.verifyErr = errors.New("signature mismatch")

		for i := 0; i < core.Conf.Payment.SignatureFailureLimit; i++ {
			_ = p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.3", []byte(`{}`), headers)
		}

		blocked, err := p.monitor.SourceBlocked(ctx, "10.0.0.3")
		require.NoError(t, err)
		assert.True(t, blocked)
		assert.Contains(t, p.auditKinds(t), payment.AuditIPBlocked)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		p := newPipeline(t)
		pmt := p.createOrder(t)
		p.provider.event = payment.WebhookEvent{
			EventID: "evt_bad_amount",
			Kind:    payment.EventCaptured,
			OrderID: pmt.GatewayOrderID,
			Amount:  pmt.Amount + 1,
		}

		err := p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers)
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeAmountMismatch, coded.Code)

		got, err := p.svc.GetByID(ctx, p.campusID, pmt.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCreated, got.Status)
	})

	t.Run("illegal transition", func(t *testing.T) {
		p := newPipeline(t)
		pmt := p.createOrder(t)
		p.provider.event = payment.WebhookEvent{
			EventID: "evt_refund",
			Kind:    payment.EventRefunded,
			OrderID: pmt.GatewayOrderID,
			Amount:  pmt.Amount,
		}

		err := p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers)
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodeIllegalUpdate, coded.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		p := newPipeline(t)
		p.provider.event = payment.WebhookEvent{
			EventID: "evt_orphan",
			Kind:    payment.EventCaptured,
			OrderID: "order_unknown",
			Amount:  100,
		}

		err := p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), headers)
		coded, ok := payment.AsCodedError(err)
		require.True(t, ok)
		assert.Equal(t, payment.CodePaymentNotFound, coded.Code)
	})
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	pmt := p.createOrder(t)
	p.provider.event = payment.WebhookEvent{
		EventID: "evt_settle",
		Kind:    payment.EventCaptured,
		OrderID: pmt.GatewayOrderID,
		Amount:  pmt.Amount,
	}
	require.NoError(t, p.svc.HandleWebhook(ctx, payment.GatewayRazorpay, "10.0.0.1", []byte(`{}`), payment.WebhookHeaders{Signature: "sig"}))

	n, err := p.svc.Settle(ctx, p.campusID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := p.svc.GetByID(ctx, p.campusID, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSettled, got.Status)
	assert.False(t, got.SettledAt.IsZero())
	assert.Contains(t, p.auditKinds(t), payment.AuditSettlementRun)

	// second run has nothing to settle
	n, err = p.svc.Settle(ctx, p.campusID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
