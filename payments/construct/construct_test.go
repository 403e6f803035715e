package construct

import (
	"context"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/require"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

func derivedATA(owner, mint string) (string, uint8, error) {
	ata, bump, err := common.FindAssociatedTokenAddress(common.PublicKeyFromString(owner), common.PublicKeyFromString(mint))
	return ata.ToBase58(), bump, err
}

const (
	testPayer     = "11111111111111111111111111111111111111111"
	testRecipient = "11111111111111111111111111111111111111112"
	testReference = "11111111111111111111111111111111111111113"
	testMint      = "11111111111111111111111111111111111111114"
)

// fakeChecker is a hand-written fake (not a mocking framework), matching
// the teacher's own test style of small purpose-built fakes.
type fakeChecker struct {
	balances map[string]uint64
	accounts map[string]string // pubkey -> owner program; absent means does not exist
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		balances: make(map[string]uint64),
		accounts: make(map[string]string),
	}
}

func (f *fakeChecker) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	return f.balances[pubkey], nil
}

func (f *fakeChecker) AccountInfo(_ context.Context, pubkey string) (bool, string, error) {
	owner, ok := f.accounts[pubkey]
	return ok, owner, nil
}

func TestBuildTransfer_Native(t *testing.T) {
	checker := newFakeChecker()
	checker.balances[testPayer] = 10_000_000_000

	result, err := BuildTransfer(context.Background(), checker, TransferRequest{
		Payer:           testPayer,
		Recipient:       testRecipient,
		Reference:       testReference,
		AmountBaseUnits: 1_000_000_000,
		Kind:            payments.KindNative,
		RecentBlockhash: "11111111111111111111111111111111111111111",
	})
	require.NoError(t, err)
	require.Len(t, result.Instructions, 1)
	lastIx := result.Instructions[0]
	require.Equal(t, testReference, lastIx.Accounts[len(lastIx.Accounts)-1].PubKey.ToBase58())
	require.False(t, lastIx.Accounts[len(lastIx.Accounts)-1].IsSigner)
	require.False(t, lastIx.Accounts[len(lastIx.Accounts)-1].IsWritable)
}

func TestBuildTransfer_Native_InsufficientBalance(t *testing.T) {
	checker := newFakeChecker()
	checker.balances[testPayer] = 1

	_, err := BuildTransfer(context.Background(), checker, TransferRequest{
		Payer:           testPayer,
		Recipient:       testRecipient,
		Reference:       testReference,
		AmountBaseUnits: 1_000_000_000,
		Kind:            payments.KindNative,
		RecentBlockhash: "11111111111111111111111111111111111111111",
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBuildTransfer_Token_CreatesATAWhenMissing(t *testing.T) {
	checker := newFakeChecker()
	checker.accounts[testMint] = tokenProgramID
	checker.accounts[testRecipient] = "11111111111111111111111111111111111111111"

	payerATA, _, err := derivedATA(testPayer, testMint)
	require.NoError(t, err)
	checker.accounts[payerATA] = tokenProgramID

	result, err := BuildTransfer(context.Background(), checker, TransferRequest{
		Payer:           testPayer,
		Recipient:       testRecipient,
		Reference:       testReference,
		AmountBaseUnits: 500,
		Kind:            payments.KindToken,
		TokenMint:       testMint,
		TokenDecimals:   6,
		RecentBlockhash: "11111111111111111111111111111111111111111",
	})
	require.NoError(t, err)
	require.Len(t, result.Instructions, 2, "expected an ATA-create instruction plus the transfer")
}

func TestBuildTransfer_Token_MintNotInitialized(t *testing.T) {
	checker := newFakeChecker() // testMint deliberately absent

	_, err := BuildTransfer(context.Background(), checker, TransferRequest{
		Payer:           testPayer,
		Recipient:       testRecipient,
		Reference:       testReference,
		AmountBaseUnits: 500,
		Kind:            payments.KindToken,
		TokenMint:       testMint,
		TokenDecimals:   6,
		RecentBlockhash: "11111111111111111111111111111111111111111",
	})
	require.ErrorIs(t, err, ErrTokenMintNotInitialized)
}
