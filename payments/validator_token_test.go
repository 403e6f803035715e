package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cosmasken/paymebro-backend-sub000/payments/faketest"
)

// S5 token happy path: the validator delegates to the ledger's canonical
// validate_transfer with the correctly scaled base-unit amount.
func TestTokenValidator_S5_HappyPath(t *testing.T) {
	ledger := faketest.NewLedger()
	ledger.ValidateTransferErr["sig1"] = nil

	v := NewTokenValidator(ledger)
	p := &Payment{
		Reference:     "K",
		Recipient:     "R",
		Kind:          KindToken,
		TokenMint:     "MintABC",
		TokenDecimals: 6,
		Amount:        decimal.NewFromFloat(2.5),
	}

	err := v.Validate(context.Background(), p, "sig1")
	require.NoError(t, err)
	require.Equal(t, 1, ledger.CallCount("ValidateTransfer:sig1"))
}

func TestTokenValidator_DelegatesClassifiedFailure(t *testing.T) {
	ledger := faketest.NewLedger()
	p := &Payment{
		Reference: "K", Recipient: "R", Kind: KindToken,
		TokenMint: "MintABC", TokenDecimals: 6, Amount: decimal.NewFromFloat(2.5),
	}
	ledger.ValidateTransferErr["sig1"] = Classify(KindAmountTooLow, "", errors.New("short"), p)

	v := NewTokenValidator(ledger)
	err := v.Validate(context.Background(), p, "sig1")
	ce, ok := AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, KindAmountTooLow, ce.Kind)
}

func TestExpectedTokenBaseUnits_ScalesByDecimals(t *testing.T) {
	p := &Payment{Amount: decimal.NewFromFloat(2.5), TokenDecimals: 6}
	require.Equal(t, uint64(2_500_000), expectedTokenBaseUnits(p))

	p9 := &Payment{Amount: decimal.NewFromFloat(1.0), TokenDecimals: 9}
	require.Equal(t, uint64(1_000_000_000), expectedTokenBaseUnits(p9))
}
