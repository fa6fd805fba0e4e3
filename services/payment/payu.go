package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

type payuProvider struct {
	key  string
	salt string
}

var _ payment.Provider = (*payuProvider)(nil)

func NewPayUProvider() payment.Provider {
	creds := core.Conf.Payment.PayU
	return &payuProvider{key: creds.Key, salt: creds.Secret}
}

func (p *payuProvider) Name() string { return payment.GatewayPayU }

// CreateOrder assigns the transaction ID locally; payu orders materialize on
// its side only when the payer is redirected to the checkout page.
func (p *payuProvider) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (payment.GatewayOrder, error) {
	return payment.GatewayOrder{OrderID: receipt, Amount: amount, Currency: currency}, nil
}

// VerifyWebhook checks payu's reverse hash: SHA-512 over the pipe-joined
// response fields, salt first.
func (p *payuProvider) VerifyWebhook(payload []byte, headers payment.WebhookHeaders) error {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return errors.Wrap(err, "parsing webhook form")
	}
	got := form.Get("hash")
	if got == "" {
		return errors.New("missing hash")
	}

	fields := []string{
		p.salt,
		form.Get("status"),
		"", "", "", "", "", // unused additional charges slots
		form.Get("udf5"),
		form.Get("udf4"),
		form.Get("udf3"),
		form.Get("udf2"),
		form.Get("udf1"),
		form.Get("email"),
		form.Get("firstname"),
		form.Get("productinfo"),
		form.Get("amount"),
		form.Get("txnid"),
		p.key,
	}
	sum := sha512.Sum512([]byte(strings.Join(fields, "|")))
	expected := hex.EncodeToString(sum[:])
	if !hmac.Equal([]byte(expected), []byte(got)) {
		return errors.New("hash mismatch")
	}
	return nil
}

func (p *payuProvider) ParseWebhook(payload []byte) (payment.WebhookEvent, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return payment.WebhookEvent{}, errors.Wrap(err, "parsing webhook form")
	}

	status := form.Get("status")
	kind, ok := payuStatuses[status]
	if !ok {
		return payment.WebhookEvent{}, errors.Errorf("unsupported status %q", status)
	}
	txnid := form.Get("txnid")
	if txnid == "" {
		return payment.WebhookEvent{}, errors.New("webhook missing txnid")
	}

	var amount int64
	if raw := form.Get("amount"); raw != "" {
		major, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return payment.WebhookEvent{}, errors.Wrap(err, "parsing amount")
		}
		amount = minorUnits(major)
	}
	mihpayid := form.Get("mihpayid")
	return payment.WebhookEvent{
		EventID:   mihpayid + ":" + status,
		Kind:      kind,
		OrderID:   txnid,
		PaymentID: mihpayid,
		Amount:    amount,
		Currency:  "INR",
	}, nil
}

var payuStatuses = map[string]string{
	"success": payment.EventCaptured,
	"failure": payment.EventFailed,
	"refund":  payment.EventRefunded,
}
