package payments

import (
	"context"
	"fmt"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
)

// fallbackAcceptanceFraction is the "≥ 50% of expected amount" acceptance
// bar for the simplified aggregate-delta check (spec.md §4.9 step 2).
const fallbackAcceptanceFraction = 0.5

// highSeverityFallbackKinds are the kinds eligible for the fallback path;
// everything else is left to the normal retry/give-up flow (spec.md §4.9).
var highSeverityFallbackKinds = map[ErrorKind]bool{
	KindTransactionFailed:      true,
	KindMissingBalanceMetadata: true,
}

// ManualReviewRecord is the structured record emitted when the fallback
// path cannot reach a decision (spec.md §4.9 step 3).
type ManualReviewRecord struct {
	Reference string
	Signature string
	Reason    string
}

// Fallback implements the Fallback Path (spec.md §4.9): for high-severity
// native-path validation failures, it retries at the stricter finalized
// commitment and, failing that, applies a simplified aggregate-positive-
// delta heuristic before giving up and flagging for manual review.
//
// Fallback never runs automatically; an operator must opt in by
// constructing a Fallback and wiring it into the Monitor (spec.md §9 Open
// Question: "fallback auto-confirm is advisory, never silent" — the safer
// default is for callers to not wire this component at all).
type Fallback struct {
	ledger LedgerClient
}

// NewFallback constructs a Fallback over ledger.
func NewFallback(ledger LedgerClient) *Fallback {
	return &Fallback{ledger: ledger}
}

// Eligible reports whether cause is a high-severity kind eligible for the
// fallback path.
func Eligible(cause error) bool {
	ce, ok := AsClassifiedError(cause)
	return ok && highSeverityFallbackKinds[ce.Kind]
}

// Attempt runs the fallback decision for p's signature. It returns
// (result, nil, nil) on acceptance, (nil, review, nil) when manual review
// is required, or (nil, nil, err) on an unexpected failure re-fetching the
// transaction.
func (f *Fallback) Attempt(ctx context.Context, p *Payment, signature string) (*ValidationResult, *ManualReviewRecord, error) {
	logger := logging.Module(ctx, "fallback")

	tx, err := f.ledger.GetTransaction(ctx, signature, CommitmentFinalized, 0)
	if err != nil {
		return nil, nil, err
	}
	if tx == nil {
		return nil, &ManualReviewRecord{
			Reference: p.Reference,
			Signature: signature,
			Reason:    "transaction not found even at finalized commitment",
		}, nil
	}
	if tx.Err != nil {
		return nil, &ManualReviewRecord{
			Reference: p.Reference,
			Signature: signature,
			Reason:    fmt.Sprintf("transaction still failed at finalized commitment: %v", tx.Err),
		}, nil
	}

	expected := expectedBaseUnits(p.Amount)
	var totalPositiveDelta int64
	for i := range tx.PreBalances {
		if i >= len(tx.PostBalances) {
			break
		}
		delta := int64(tx.PostBalances[i]) - int64(tx.PreBalances[i])
		if delta > 0 {
			totalPositiveDelta += delta
		}
	}

	threshold := int64(float64(expected) * fallbackAcceptanceFraction)
	if totalPositiveDelta >= threshold {
		logger.Warn().
			Str("reference", p.Reference).
			Int64("total_positive_delta", totalPositiveDelta).
			Int64("threshold", threshold).
			Msg("fallback accepted payment via simplified aggregate-delta check")
		method, _ := referencePresence(tx.Message, p.Reference)
		return &ValidationResult{Method: method, Delta: totalPositiveDelta}, nil, nil
	}

	return nil, &ManualReviewRecord{
		Reference: p.Reference,
		Signature: signature,
		Reason:    fmt.Sprintf("aggregate positive delta %d below 50%% of expected %d", totalPositiveDelta, expected),
	}, nil
}
