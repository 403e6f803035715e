package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cosmasken/paymebro-backend-sub000/payments/faketest"
)

func TestFallback_Eligible(t *testing.T) {
	p := &Payment{Reference: "K"}
	require.True(t, Eligible(Classify(KindTransactionFailed, "", errors.New("x"), p)))
	require.True(t, Eligible(Classify(KindMissingBalanceMetadata, "", errors.New("x"), p)))
	require.False(t, Eligible(Classify(KindAmountTooLow, "", errors.New("x"), p)))
	require.False(t, Eligible(errors.New("unclassified")))
}

func TestFallback_AcceptsAboveHalfThreshold(t *testing.T) {
	ledger := faketest.NewLedger()
	ledger.Transactions["sig1"] = nativeTxFixture(
		[]string{"R", "S", "K"},
		[]uint64{0, 2_000_000_000, 0},
		[]uint64{600_000_000, 1_400_000_000, 0}, // total positive delta = 600_000_000, expected = 1_000_000_000
	)
	f := NewFallback(ledger)
	p := &Payment{Reference: "K", Recipient: "R", Amount: decimal.NewFromFloat(1.0), Kind: KindNative}

	result, review, err := f.Attempt(context.Background(), p, "sig1")
	require.NoError(t, err)
	require.Nil(t, review)
	require.NotNil(t, result)
	require.Equal(t, int64(600_000_000), result.Delta)
}

func TestFallback_ManualReviewBelowThreshold(t *testing.T) {
	ledger := faketest.NewLedger()
	ledger.Transactions["sig1"] = nativeTxFixture(
		[]string{"R", "S", "K"},
		[]uint64{0, 2_000_000_000, 0},
		[]uint64{400_000_000, 1_600_000_000, 0}, // total positive delta = 400_000_000, < 50% of 1e9
	)
	f := NewFallback(ledger)
	p := &Payment{Reference: "K", Recipient: "R", Amount: decimal.NewFromFloat(1.0), Kind: KindNative}

	result, review, err := f.Attempt(context.Background(), p, "sig1")
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, review)
	require.Equal(t, "K", review.Reference)
}

func TestFallback_ManualReviewWhenStillFailedAtFinalized(t *testing.T) {
	ledger := faketest.NewLedger()
	tx := nativeTxFixture([]string{"R", "S", "K"}, []uint64{0, 0, 0}, []uint64{0, 0, 0})
	tx.Err = errors.New("still failing")
	ledger.Transactions["sig1"] = tx

	f := NewFallback(ledger)
	p := &Payment{Reference: "K", Recipient: "R", Amount: decimal.NewFromFloat(1.0), Kind: KindNative}

	result, review, err := f.Attempt(context.Background(), p, "sig1")
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, review)
}

func TestFallback_ManualReviewWhenTransactionNotFound(t *testing.T) {
	ledger := faketest.NewLedger()
	f := NewFallback(ledger)
	p := &Payment{Reference: "K", Recipient: "R", Amount: decimal.NewFromFloat(1.0), Kind: KindNative}

	result, review, err := f.Attempt(context.Background(), p, "missing-sig")
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, review)
}
