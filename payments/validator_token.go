package payments

import "context"

// TokenValidator implements the token path of the Transfer Validator
// (spec.md §4.4): it delegates entirely to the ledger client's canonical
// validate_transfer, since a standard checked-token-transfer has no
// tolerance band to apply at this layer.
type TokenValidator struct {
	ledger LedgerClient
}

// NewTokenValidator constructs a TokenValidator over ledger.
func NewTokenValidator(ledger LedgerClient) *TokenValidator {
	return &TokenValidator{ledger: ledger}
}

// Validate delegates to LedgerClient.ValidateTransfer with the payment's
// expected (recipient, amount, token_mint, reference) tuple.
func (v *TokenValidator) Validate(ctx context.Context, p *Payment, signature string) error {
	return v.ledger.ValidateTransfer(ctx, signature, TransferExpectation{
		Recipient: p.Recipient,
		Amount:    AmountBaseUnits(expectedTokenBaseUnits(p)),
		TokenMint: p.TokenMint,
		Reference: p.Reference,
	}, CommitmentConfirmed)
}

// expectedTokenBaseUnits converts p's display-unit amount to base units
// using the mint's declared decimals.
func expectedTokenBaseUnits(p *Payment) uint64 {
	return p.Amount.Shift(int32(p.TokenDecimals)).BigInt().Uint64()
}
