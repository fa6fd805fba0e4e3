package paymentsvc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

const (
	cashfreeHost       = "https://api.cashfree.com"
	cashfreeAPIVersion = "2023-08-01"
)

type cashfreeProvider struct {
	appID         string
	secret        string
	webhookSecret string
	client        *http.Client
	host          string
}

var _ payment.Provider = (*cashfreeProvider)(nil)

func NewCashfreeProvider() payment.Provider {
	creds := core.Conf.Payment.Cashfree
	return &cashfreeProvider{
		appID:         creds.Key,
		secret:        creds.Secret,
		webhookSecret: creds.WebhookSecret,
		client:        &http.Client{Timeout: gatewayTimeout},
		host:          cashfreeHost,
	}
}

func (p *cashfreeProvider) Name() string { return payment.GatewayCashfree }

func (p *cashfreeProvider) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (payment.GatewayOrder, error) {
	// cashfree expects the amount in major units
	body, err := json.Marshal(map[string]interface{}{
		"order_id":       receipt,
		"order_amount":   float64(amount) / 100,
		"order_currency": currency,
	})
	if err != nil {
		return payment.GatewayOrder{}, errors.Wrap(err, "marshalling order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/pg/orders", bytes.NewReader(body))
	if err != nil {
		return payment.GatewayOrder{}, errors.Wrap(err, "building order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("x-client-id", p.appID)
	req.Header.Set("x-client-secret", p.secret)

	res, err := p.client.Do(req)
	if err != nil {
		return payment.GatewayOrder{}, errors.Wrap(err, "calling cashfree")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return payment.GatewayOrder{}, errors.Errorf("cashfree order failed: status %d", res.StatusCode)
	}

	var out struct {
		OrderID       string  `json:"order_id"`
		OrderAmount   float64 `json:"order_amount"`
		OrderCurrency string  `json:"order_currency"`
	}
	if err = json.NewDecoder(res.Body).Decode(&out); err != nil {
		return payment.GatewayOrder{}, errors.Wrap(err, "decoding order response")
	}
	return payment.GatewayOrder{
		OrderID:  out.OrderID,
		Amount:   minorUnits(out.OrderAmount),
		Currency: out.OrderCurrency,
	}, nil
}

// VerifyWebhook checks the x-webhook-signature header: base64 HMAC-SHA256 of
// the x-webhook-timestamp concatenated with the raw payload.
func (p *cashfreeProvider) VerifyWebhook(payload []byte, headers payment.WebhookHeaders) error {
	if headers.Signature == "" || headers.Timestamp == "" {
		return errors.New("missing signature material")
	}
	if !timestampFresh(headers.Timestamp, time.Now()) {
		return errors.New("stale webhook timestamp")
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(headers.Timestamp))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(headers.Signature)) {
		return errors.New("signature mismatch")
	}
	return nil
}

func (p *cashfreeProvider) ParseWebhook(payload []byte) (payment.WebhookEvent, error) {
	var in struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
			Payment struct {
				CfPaymentID     json.Number `json:"cf_payment_id"`
				PaymentAmount   float64     `json:"payment_amount"`
				PaymentCurrency string      `json:"payment_currency"`
			} `json:"payment"`
		} `json:"data"`
		EventTime string `json:"event_time"`
	}
	if err := json.Unmarshal(payload, &in); err != nil {
		return payment.WebhookEvent{}, errors.Wrap(err, "decoding webhook")
	}

	kind, ok := cashfreeEvents[in.Type]
	if !ok {
		return payment.WebhookEvent{}, errors.Errorf("unsupported event %q", in.Type)
	}
	if in.Data.Order.OrderID == "" {
		return payment.WebhookEvent{}, errors.New("webhook missing order_id")
	}
	paymentID := in.Data.Payment.CfPaymentID.String()
	return payment.WebhookEvent{
		EventID:   paymentID + ":" + in.Type,
		Kind:      kind,
		OrderID:   in.Data.Order.OrderID,
		PaymentID: paymentID,
		Amount:    minorUnits(in.Data.Payment.PaymentAmount),
		Currency:  in.Data.Payment.PaymentCurrency,
	}, nil
}

var cashfreeEvents = map[string]string{
	"PAYMENT_SUCCESS_WEBHOOK":      payment.EventCaptured,
	"PAYMENT_FAILED_WEBHOOK":       payment.EventFailed,
	"PAYMENT_USER_DROPPED_WEBHOOK": payment.EventFailed,
	"REFUND_STATUS_WEBHOOK":        payment.EventRefunded,
}

// timestamp freshness window for cashfree webhooks
const cashfreeMaxSkew = 5 * time.Minute

// timestampFresh reports whether a webhook timestamp (unix millis) is within
// the accepted clock skew.
func timestampFresh(ts string, now time.Time) bool {
	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	evTime := time.UnixMilli(millis)
	diff := now.Sub(evTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= cashfreeMaxSkew
}
