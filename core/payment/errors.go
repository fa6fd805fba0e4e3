package payment

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error codes surfaced by the payment pipeline. Public messages are safe to
// return to callers; the underlying cause is only logged.
const (
	CodeAuthMissing      = "AUTH_001"
	CodeAuthForbidden    = "AUTH_002"
	CodeValidation       = "VAL_001"
	CodeBadSignature     = "SIG_001"
	CodeDuplicateEvent   = "IDEMP_001"
	CodeUnknownGateway   = "GW_001"
	CodeGatewayFailure   = "GW_002"
	CodePaymentNotFound  = "PAY_001"
	CodeIllegalUpdate    = "PAY_002"
	CodeAmountMismatch   = "PAY_003"
	CodeFeatureDisabled  = "FEAT_001"
	CodeSourceBlocked    = "SEC_001"
	CodeInternal         = "SYS_001"
)

type CodedError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"-"`
	Severity string `json:"-"`
	Err      error  `json:"-"`
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.Err }

// codeTable classifies every payment error code: public message, HTTP status
// and monitoring severity.
var codeTable = map[string]CodedError{
	CodeAuthMissing:     {Code: CodeAuthMissing, Message: "authentication required", Status: http.StatusUnauthorized, Severity: SeverityWarning},
	CodeAuthForbidden:   {Code: CodeAuthForbidden, Message: "permission denied", Status: http.StatusForbidden, Severity: SeverityWarning},
	CodeValidation:      {Code: CodeValidation, Message: "invalid request", Status: http.StatusBadRequest, Severity: SeverityInfo},
	CodeBadSignature:    {Code: CodeBadSignature, Message: "webhook signature verification failed", Status: http.StatusUnauthorized, Severity: SeverityCritical},
	CodeDuplicateEvent:  {Code: CodeDuplicateEvent, Message: "event already processed", Status: http.StatusOK, Severity: SeverityInfo},
	CodeUnknownGateway:  {Code: CodeUnknownGateway, Message: "unknown payment gateway", Status: http.StatusBadRequest, Severity: SeverityWarning},
	CodeGatewayFailure:  {Code: CodeGatewayFailure, Message: "payment gateway unavailable", Status: http.StatusBadGateway, Severity: SeverityCritical},
	CodePaymentNotFound: {Code: CodePaymentNotFound, Message: "payment not found", Status: http.StatusNotFound, Severity: SeverityWarning},
	CodeIllegalUpdate:   {Code: CodeIllegalUpdate, Message: "illegal payment status transition", Status: http.StatusConflict, Severity: SeverityCritical},
	CodeAmountMismatch:  {Code: CodeAmountMismatch, Message: "webhook amount does not match order", Status: http.StatusConflict, Severity: SeverityCritical},
	CodeFeatureDisabled: {Code: CodeFeatureDisabled, Message: "payments are disabled for this campus", Status: http.StatusForbidden, Severity: SeverityInfo},
	CodeSourceBlocked:   {Code: CodeSourceBlocked, Message: "source temporarily blocked", Status: http.StatusTooManyRequests, Severity: SeverityCritical},
	CodeInternal:        {Code: CodeInternal, Message: "internal error", Status: http.StatusInternalServerError, Severity: SeverityCritical},
}

// NewCodedError returns the classified error for code, wrapping cause.
// Unknown codes classify as internal errors.
func NewCodedError(code string, cause error) *CodedError {
	entry, ok := codeTable[code]
	if !ok {
		entry = codeTable[CodeInternal]
	}
	entry.Err = cause
	return &entry
}

// AsCodedError extracts a *CodedError from err's chain, if any.
func AsCodedError(err error) (*CodedError, bool) {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}
