package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// memoProgramID is the well-known memo program account, used for the
// memo-based reference fallback (spec.md §4.3 step 4, §4.5).
const memoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// minToleranceBaseUnits is the floor of the native-path amount tolerance
// band (spec.md §4.3 step 5).
const minToleranceBaseUnits = 1000

// ValidationResult describes how a native-coin transfer was accepted.
type ValidationResult struct {
	Method    ValidationMethod
	Tolerance uint64
	Delta     int64
	// Overpaid is set when the delta exceeded expected+tolerance; the
	// excess is recorded, never rejected (spec.md §9 Open Question b).
	Overpaid        bool
	OverpaidAmount  int64
}

// NativeValidator implements the native-coin path of the Transfer Validator
// (spec.md §4.3): balance-delta analysis with a tolerance band.
type NativeValidator struct {
	ledger LedgerClient
}

// NewNativeValidator constructs a NativeValidator over ledger.
func NewNativeValidator(ledger LedgerClient) *NativeValidator {
	return &NativeValidator{ledger: ledger}
}

// Validate fetches the transaction at signature and decides whether it
// transferred at least p.Amount (within tolerance) of native coin to
// p.Recipient, with p.Reference addressable on it.
func (v *NativeValidator) Validate(ctx context.Context, p *Payment, signature string) (*ValidationResult, error) {
	tx, err := v.ledger.GetTransaction(ctx, signature, CommitmentConfirmed, 0)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, Classify(KindTransactionNotFound, "", fmt.Errorf("transaction %s not found", signature), p)
	}
	if tx.Err != nil {
		return nil, Classify(KindTransactionFailed, "", fmt.Errorf("on-chain execution error: %w", tx.Err), p)
	}

	method, ok := referencePresence(tx.Message, p.Reference)
	if !ok {
		return nil, Classify(KindReferenceNotFound, "", fmt.Errorf("reference %s not present on transaction %s", p.Reference, signature), p)
	}

	recipientIdx := indexOfAccountKey(tx.Message.AccountKeys, p.Recipient)
	if recipientIdx < 0 {
		return nil, Classify(KindRecipientNotFound, "", fmt.Errorf("recipient %s not among account keys", p.Recipient), p)
	}
	if recipientIdx >= len(tx.PreBalances) || recipientIdx >= len(tx.PostBalances) {
		return nil, Classify(KindMissingBalanceMetadata, "", fmt.Errorf("balance arrays shorter than recipient index %d", recipientIdx), p)
	}

	expected := expectedBaseUnits(p.Amount)
	delta := int64(tx.PostBalances[recipientIdx]) - int64(tx.PreBalances[recipientIdx])
	tolerance := toleranceFor(expected)

	if delta < int64(expected)-int64(tolerance) {
		return nil, Classify(KindAmountTooLow, "", fmt.Errorf("delta %d below expected %d (tolerance %d)", delta, expected, tolerance), p)
	}

	result := &ValidationResult{Method: method, Tolerance: tolerance, Delta: delta}
	if delta > int64(expected)+int64(tolerance) {
		result.Overpaid = true
		result.OverpaidAmount = delta - int64(expected)
	}
	return result, nil
}

// expectedBaseUnits converts a display-unit amount to native base units
// ("lamports"): amount * 10^9.
func expectedBaseUnits(amount decimal.Decimal) uint64 {
	return amount.Mul(decimal.NewFromInt(NativeLamportsPerUnit)).BigInt().Uint64()
}

// toleranceFor computes max(1000, 0.5% of expected), per spec.md §4.3 step 5.
func toleranceFor(expected uint64) uint64 {
	pct := decimal.NewFromInt(int64(expected)).Mul(decimal.NewFromFloat(0.005))
	t := pct.BigInt().Uint64()
	if t < minToleranceBaseUnits {
		return minToleranceBaseUnits
	}
	return t
}

// referencePresence implements spec.md §4.3 step 4: the reference is
// present either as an account key directly, or inside a memo instruction's
// UTF-8 data.
func referencePresence(msg TransactionMessage, reference string) (ValidationMethod, bool) {
	if indexOfAccountKey(msg.AccountKeys, reference) >= 0 {
		return MethodAccountBased, true
	}
	if memoContainsReference(msg, reference) {
		return MethodMemoBased, true
	}
	return "", false
}

func indexOfAccountKey(keys []AccountKey, target string) int {
	for i, k := range keys {
		if k == target {
			return i
		}
	}
	return -1
}

func memoContainsReference(msg TransactionMessage, reference string) bool {
	memoIdx := indexOfAccountKey(msg.AccountKeys, memoProgramID)
	if memoIdx < 0 {
		return false
	}
	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex != memoIdx {
			continue
		}
		if stringContainsBytes(ix.Data, reference) {
			return true
		}
	}
	return false
}

func stringContainsBytes(data []byte, needle string) bool {
	if needle == "" || len(data) < len(needle) {
		return false
	}
	hay := string(data)
	for i := 0; i+len(needle) <= len(hay); i++ {
		if hay[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
