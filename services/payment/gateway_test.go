package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
)

func TestMinorUnits(t *testing.T) {
	// amounts whose float64 form sits just below the true value must not
	// truncate a paisa away
	tests := []struct {
		major float64
		want  int64
	}{
		{1500.00, 150000},
		{129.70, 12970},
		{4.10, 410},
		{0.01, 1},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, minorUnits(tt.major), "major=%v", tt.major)
	}
}

func TestRazorpayVerifyWebhook(t *testing.T) {
	core.NewTestConfig()
	prov := NewRazorpayProvider().(*razorpayProvider)

	payload := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte(core.Conf.Payment.Razorpay.WebhookSecret))
	mac.Write(payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.NoError(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{Signature: sig}))
	assert.Error(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{Signature: "bad"}))
	assert.Error(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{}))
	assert.Error(t, prov.VerifyWebhook([]byte(`{"event":"tampered"}`), payment.WebhookHeaders{Signature: sig}))
}

func TestRazorpayParseWebhook(t *testing.T) {
	core.NewTestConfig()
	prov := NewRazorpayProvider()

	payload := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_abc", "order_id": "order_abc", "amount": 150000, "currency": "INR"
		}}}
	}`)
	ev, err := prov.ParseWebhook(payload)
	require.NoError(t, err)
	assert.Equal(t, payment.EventCaptured, ev.Kind)
	assert.Equal(t, "order_abc", ev.OrderID)
	assert.Equal(t, "pay_abc", ev.PaymentID)
	assert.Equal(t, int64(150000), ev.Amount)
	assert.NotEmpty(t, ev.EventID)

	_, err = prov.ParseWebhook([]byte(`{"event":"subscription.charged"}`))
	assert.Error(t, err)
}

func TestRazorpayCreateOrder(t *testing.T) {
	core.NewTestConfig()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, core.Conf.Payment.Razorpay.Key, user)
		assert.Equal(t, core.Conf.Payment.Razorpay.Secret, pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_new","amount":5000,"currency":"INR"}`))
	}))
	defer srv.Close()

	prov := NewRazorpayProvider().(*razorpayProvider)
	prov.host = srv.URL

	order, err := prov.CreateOrder(context.Background(), 5000, "INR", "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, "order_new", order.OrderID)
	assert.Equal(t, int64(5000), order.Amount)
}

func TestPayUVerifyWebhook(t *testing.T) {
	core.NewTestConfig()
	prov := NewPayUProvider().(*payuProvider)

	form := url.Values{}
	form.Set("txnid", "rcpt-9")
	form.Set("amount", "1500.00")
	form.Set("productinfo", "Term fees")
	form.Set("firstname", "Jina")
	form.Set("email", "jina@test.test")
	form.Set("status", "success")
	form.Set("mihpayid", "40399")

	fields := []string{
		prov.salt, "success", "", "", "", "", "", "", "", "", "", "",
		"jina@test.test", "Jina", "Term fees", "1500.00", "rcpt-9", prov.key,
	}
	sum := sha512.Sum512([]byte(strings.Join(fields, "|")))
	form.Set("hash", hex.EncodeToString(sum[:]))

	payload := []byte(form.Encode())
	assert.NoError(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{}))

	form.Set("amount", "9999.00")
	assert.Error(t, prov.VerifyWebhook([]byte(form.Encode()), payment.WebhookHeaders{}))

	ev, err := prov.ParseWebhook(payload)
	require.NoError(t, err)
	assert.Equal(t, payment.EventCaptured, ev.Kind)
	assert.Equal(t, "rcpt-9", ev.OrderID)
	assert.Equal(t, int64(150000), ev.Amount)

	form.Set("amount", "129.70")
	ev, err = prov.ParseWebhook([]byte(form.Encode()))
	require.NoError(t, err)
	assert.Equal(t, int64(12970), ev.Amount)
}

func TestCashfreeVerifyWebhook(t *testing.T) {
	core.NewTestConfig()
	prov := NewCashfreeProvider().(*cashfreeProvider)

	payload := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(core.Conf.Payment.Cashfree.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write(payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.NoError(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{Signature: sig, Timestamp: ts}))
	assert.Error(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{Signature: "bad", Timestamp: ts}))

	stale := strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10)
	assert.Error(t, prov.VerifyWebhook(payload, payment.WebhookHeaders{Signature: sig, Timestamp: stale}))
}

func TestCashfreeParseWebhook(t *testing.T) {
	core.NewTestConfig()
	prov := NewCashfreeProvider()

	payload := []byte(`{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": {
			"order": {"order_id": "rcpt-5"},
			"payment": {"cf_payment_id": 12376412, "payment_amount": 1500, "payment_currency": "INR"}
		}
	}`)
	ev, err := prov.ParseWebhook(payload)
	require.NoError(t, err)
	assert.Equal(t, payment.EventCaptured, ev.Kind)
	assert.Equal(t, "rcpt-5", ev.OrderID)
	assert.Equal(t, "12376412", ev.PaymentID)
	assert.Equal(t, int64(150000), ev.Amount)
}
