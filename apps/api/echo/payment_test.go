package echoapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
)

func allFeatures() map[string]bool {
	return map[string]bool{
		campus.FeatureQuizzes:       true,
		campus.FeatureMeetings:      true,
		campus.FeaturePayments:      true,
		campus.FeatureNotifications: true,
	}
}

func signRazorpay(body []byte) string {
	mac := hmac.New(sha256.New, []byte(core.Conf.Payment.Razorpay.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func razorpayCapturedEvent(orderID string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_FkTd4u7hH","order_id":%q,"amount":%d,"currency":"INR"}}}}`,
		orderID, amount))
}

func Test_paymentApi(t *testing.T) {
	ctx := context.Background()
	cmp := createTestCampus(t, "Riverside College", "riverside", allFeatures())
	student := createTestUser(t, cmp.ID, "Pay Student", "paystudent", "pay@riverside.cd", "pay#Secret1", []string{user.RoleStudent})
	other := createTestUser(t, cmp.ID, "Other Student", "otherstudent", "other@riverside.cd", "oth#Secret1", []string{user.RoleStudent})
	super := createTestUser(t, "", "Root Super", "rootsuper", "root@darasa.cd", "root#Secret1", []string{user.RoleSuperOwner})

	studentToken := getToken(t, student)
	otherToken := getToken(t, other)
	superToken := getToken(t, super)

	t.Run("create order", func(t *testing.T) {
		body := marshallObj(t, payment.NewOrder{
			StudentID: other.ID, // ignored, students pay for themselves
			Amount:    150_000,
			Currency:  "INR",
			Purpose:   "term 2 tuition",
			Gateway:   payment.GatewayPayU,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/orders", studentToken, body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp payment.Payment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, student.ID, resp.StudentID)
		assert.Equal(t, cmp.ID, resp.CampusID)
		assert.Equal(t, payment.StatusCreated, resp.Status)
		assert.NotEmpty(t, resp.GatewayOrderID)
		assert.NotEmpty(t, resp.Receipt)
	})

	t.Run("create order on disabled campus", func(t *testing.T) {
		gated := createTestCampus(t, "Gated School", "gated-school", nil) // payments off by default
		gstudent := createTestUser(t, gated.ID, "Ged Student", "gedstudent", "ged@gated.cd", "ged#Secret1", []string{user.RoleStudent})

		body := marshallObj(t, payment.NewOrder{
			Amount:   50_000,
			Currency: "INR",
			Purpose:  "exam fee",
			Gateway:  payment.GatewayPayU,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/orders", getToken(t, gstudent), body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		var coded payment.CodedError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coded))
		assert.Equal(t, payment.CodeFeatureDisabled, coded.Code)
	})

	// seed a razorpay order for the webhook tests; razorpay order creation
	// itself talks to the gateway so we persist the payment directly.
	now := time.Now().UTC()
	rzpOrder, err := pmtRepo.CreatePayment(ctx, payment.Payment{
		CampusID:       cmp.ID,
		StudentID:      student.ID,
		Amount:         200_000,
		Currency:       "INR",
		Purpose:        "hostel fee",
		Gateway:        payment.GatewayRazorpay,
		GatewayOrderID: "order_Nv9ZxTest01",
		Receipt:        "rcpt_webhook_test",
		Status:         payment.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	t.Run("webhook captures payment", func(t *testing.T) {
		body := razorpayCapturedEvent(rzpOrder.GatewayOrderID, rzpOrder.Amount)
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhooks/razorpay", body)
		req.Header.Set("X-Real-IP", "203.0.113.10")
		req.Header.Set("X-Razorpay-Signature", signRazorpay(body))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		pmt, err := pmtRepo.GetPayment(ctx, cmp.ID, rzpOrder.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCaptured, pmt.Status)
		assert.Equal(t, "pay_FkTd4u7hH", pmt.GatewayPaymentID)
	})

	t.Run("webhook replay is acknowledged", func(t *testing.T) {
		body := razorpayCapturedEvent(rzpOrder.GatewayOrderID, rzpOrder.Amount)
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhooks/razorpay", body)
		req.Header.Set("X-Real-IP", "203.0.113.10")
		req.Header.Set("X-Razorpay-Signature", signRazorpay(body))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var coded payment.CodedError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coded))
		assert.Equal(t, payment.CodeDuplicateEvent, coded.Code)
	})

	t.Run("webhook bad signature", func(t *testing.T) {
		body := razorpayCapturedEvent(rzpOrder.GatewayOrderID, rzpOrder.Amount)
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhooks/razorpay", body)
		req.Header.Set("X-Real-IP", "203.0.113.66")
		req.Header.Set("X-Razorpay-Signature", "deadbeef")
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var coded payment.CodedError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coded))
		assert.Equal(t, payment.CodeBadSignature, coded.Code)
	})

	t.Run("webhook source blocked after repeated failures", func(t *testing.T) {
		body := razorpayCapturedEvent(rzpOrder.GatewayOrderID, rzpOrder.Amount)
		for i := 0; i < core.Conf.Payment.SignatureFailureLimit; i++ {
			req, rec := newRequest(http.MethodPost, "/v1/payments/webhooks/razorpay", body)
			req.Header.Set("X-Real-IP", "198.51.100.7")
			req.Header.Set("X-Razorpay-Signature", "bogus")
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}

		// the source is now blocked, even with a valid signature
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhooks/razorpay", body)
		req.Header.Set("X-Real-IP", "198.51.100.7")
		req.Header.Set("X-Razorpay-Signature", signRazorpay(body))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		var coded payment.CodedError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coded))
		assert.Equal(t, payment.CodeSourceBlocked, coded.Code)
	})

	t.Run("students only see their own payments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments", otherToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []payment.Payment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp)

		req, rec = newAuthRequest(http.MethodGet, "/v1/payments", studentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		resp = nil
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp)
		for _, pmt := range resp {
			assert.Equal(t, student.ID, pmt.StudentID)
		}
	})

	t.Run("student cannot fetch another's payment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments/"+rzpOrder.ID, otherToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("super settles captured payments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/settlements?campus_id="+cmp.ID, superToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SettlementResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Settled)

		pmt, err := pmtRepo.GetPayment(ctx, cmp.ID, rzpOrder.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSettled, pmt.Status)
		assert.False(t, pmt.SettledAt.IsZero())
	})

	t.Run("settlements require super", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/settlements", studentToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("super queries audit trail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/audit-events", superToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []payment.AuditEvent
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp)

		kinds := make(map[string]bool, len(resp))
		for _, ev := range resp {
			kinds[ev.Kind] = true
		}
		assert.True(t, kinds[payment.AuditSignatureFailure])
		assert.True(t, kinds[payment.AuditIPBlocked])
	})
}
