package paymentsvc

import (
	"math"
	"time"

	"github.com/trezcool/darasa/core/payment"
)

const gatewayTimeout = 10 * time.Second

// minorUnits converts a major-unit amount (e.g. rupees) to minor units
// (paise). Rounded, not truncated: floats like 129.70 sit just below the
// true value and would otherwise come out one paisa short.
func minorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// Providers returns all configured gateway providers.
func Providers() []payment.Provider {
	return []payment.Provider{
		NewRazorpayProvider(),
		NewPayUProvider(),
		NewCashfreeProvider(),
	}
}
