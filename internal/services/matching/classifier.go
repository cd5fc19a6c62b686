package matching

import (
	"github.com/shopspring/decimal"

	"transaction-reconciliation-backend/internal/models"
)

// partialMatchThreshold is the relative variance, in percent, under which a
// differing amount still counts as a partial match.
var (
	partialMatchThreshold = decimal.NewFromInt(2)
	hundred               = decimal.NewFromInt(100)
)

// Classify decides status and signed variance (uploaded minus system) for an
// uploaded amount against an optional matched system record. Pure function:
// same inputs, same answer, no side effects.
func Classify(uploaded decimal.Decimal, rec *models.SystemRecord) (string, decimal.Decimal) {
	if rec == nil {
		return models.ResultStatusUnmatched, decimal.Zero
	}

	sysAmt := decimal.NewFromFloat(rec.Amount)
	if uploaded.Equal(sysAmt) {
		return models.ResultStatusMatched, decimal.Zero
	}

	variance := uploaded.Sub(sysAmt)
	if sysAmt.IsZero() {
		// No meaningful percentage against a zero ledger amount.
		return models.ResultStatusUnmatched, variance
	}

	pct := variance.Abs().Div(sysAmt.Abs()).Mul(hundred)
	if pct.LessThanOrEqual(partialMatchThreshold) {
		return models.ResultStatusPartialMatch, variance
	}
	return models.ResultStatusUnmatched, variance
}
