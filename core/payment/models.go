package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Gateways
const (
	GatewayRazorpay = "razorpay"
	GatewayPayU     = "payu"
	GatewayCashfree = "cashfree"
)

var Gateways = []string{GatewayRazorpay, GatewayPayU, GatewayCashfree}

// Payment statuses
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusSettled    = "settled"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// legalTransitions is the only path a payment status may take; settled is
// terminal except for refunds.
var legalTransitions = map[string][]string{
	StatusCreated:    {StatusAuthorized, StatusCaptured, StatusFailed},
	StatusAuthorized: {StatusCaptured, StatusFailed},
	StatusCaptured:   {StatusSettled, StatusRefunded},
	StatusSettled:    {StatusRefunded},
	StatusFailed:     {},
	StatusRefunded:   {},
}

func TransitionAllowed(from, to string) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID        string `json:"id"`
	CampusID  string `json:"campus_id"`
	StudentID string `json:"student_id"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	Purpose   string `json:"purpose"`
	Gateway   string `json:"gateway"`

	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`

	Status    string    `json:"status"`
	Receipt   string    `json:"receipt"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	SettledAt time.Time `json:"settled_at,omitempty"`
}

// GatewayOrder is the order as created on the payment gateway.
type GatewayOrder struct {
	OrderID  string
	Amount   int64
	Currency string
}

// Webhook event kinds normalized across gateways.
const (
	EventAuthorized = "payment.authorized"
	EventCaptured   = "payment.captured"
	EventFailed     = "payment.failed"
	EventRefunded   = "payment.refunded"
)

// eventStatus maps a normalized webhook event kind to the target payment status.
var eventStatus = map[string]string{
	EventAuthorized: StatusAuthorized,
	EventCaptured:   StatusCaptured,
	EventFailed:     StatusFailed,
	EventRefunded:   StatusRefunded,
}

// WebhookHeaders carries the signature material transmitted alongside a
// webhook payload; which fields are set depends on the gateway.
type WebhookHeaders struct {
	Signature string
	Timestamp string
}

// WebhookEvent is a gateway webhook normalized to the fields the platform
// stores.
type WebhookEvent struct {
	EventID   string
	Kind      string
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
}

// Provider is a payment gateway the platform can create orders on and
// receive webhooks from.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error)
	// VerifyWebhook checks the payload against the gateway's signature scheme.
	VerifyWebhook(payload []byte, headers WebhookHeaders) error
	ParseWebhook(payload []byte) (WebhookEvent, error)
}

// Audit event kinds
const (
	AuditOrderCreated     = "order_created"
	AuditWebhookAccepted  = "webhook_accepted"
	AuditWebhookReplay    = "webhook_replay"
	AuditWebhookRejected  = "webhook_rejected"
	AuditSignatureFailure = "signature_failure"
	AuditIPBlocked        = "ip_blocked"
	AuditSettlementRun    = "settlement_run"
	AuditAPIFailure       = "api_failure"
	AuditBackupRun        = "backup_run"
)

// Severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type AuditEvent struct {
	ID        string            `json:"id"`
	EventID   string            `json:"event_id"`
	Kind      string            `json:"kind"`
	Severity  string            `json:"severity"`
	CampusID  string            `json:"campus_id,omitempty"`
	PaymentID string            `json:"payment_id,omitempty"`
	Gateway   string            `json:"gateway,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"` // UTC
}

// NewOrder contains information needed to create a new payment order.
type NewOrder struct {
	StudentID string `json:"student_id" validate:"required,objectid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3"`
	Purpose   string `json:"purpose" validate:"required"`
	Gateway   string `json:"gateway" validate:"required,oneof=razorpay payu cashfree"`
}

func (no *NewOrder) Validate(validate *validator.Validate) error {
	no.Currency = strings.ToUpper(core.CleanString(no.Currency))
	no.Purpose = core.CleanString(no.Purpose)
	return validate.Struct(no)
}

type QueryFilter struct {
	CampusID  string    `query:"-"`
	StudentID string    `query:"student_id"`
	Gateway   string    `query:"gateway"`
	Status    string    `query:"status"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

type AuditQueryFilter struct {
	CampusID string    `query:"campus_id"`
	Kind     string    `query:"kind"`
	Severity string    `query:"severity"`
	IP       string    `query:"ip"`
	From     time.Time `query:"from"`
	To       time.Time `query:"to"`
}
