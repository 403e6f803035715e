package solanaledger

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/require"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

const (
	testOwner     = "11111111111111111111111111111111111111111"
	testRecipient = "11111111111111111111111111111111111111112"
	testMint      = "11111111111111111111111111111111111111114"
)

func derivedRecipientATA(t *testing.T) string {
	t.Helper()
	ata, _, err := common.FindAssociatedTokenAddress(
		common.PublicKeyFromString(testRecipient),
		common.PublicKeyFromString(testMint),
	)
	require.NoError(t, err)
	return ata.ToBase58()
}

func transferCheckedData(amount uint64) []byte {
	buf := make([]byte, 10)
	buf[0] = splInstructionTransferChecked
	binary.LittleEndian.PutUint64(buf[1:9], amount)
	buf[9] = 6 // decimals, irrelevant to decoding
	return buf
}

func transferUncheckedData(amount uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = splInstructionTransfer
	binary.LittleEndian.PutUint64(buf[1:9], amount)
	return buf
}

// tokenTxFixture builds a transaction whose TransferChecked instruction
// moves amount units of mint into the recipient's associated token account
// (destAccount), matching how construct.tokenInstructions actually lays out
// accounts: [source, mint, destination, owner, ...].
func tokenTxFixture(reference, mint, destAccount string, amount uint64) *payments.Transaction {
	return &payments.Transaction{
		Signature: "sig1",
		Message: payments.TransactionMessage{
			Version: "legacy",
			AccountKeys: []payments.AccountKey{
				"source-ata", mint, destAccount, testOwner, tokenProgramID, reference,
			},
			Instructions: []payments.CompiledInstruction{
				{
					ProgramIDIndex: 4, // tokenProgramID
					Accounts:       []int{0, 1, 2, 3},
					Data:           transferCheckedData(amount),
				},
			},
		},
	}
}

func TestValidateTokenTransfer_Success(t *testing.T) {
	ata := derivedRecipientATA(t)
	tx := tokenTxFixture("ref123", testMint, ata, 5_000_000)
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	require.NoError(t, err)
}

func TestValidateTokenTransfer_AmountTooLow(t *testing.T) {
	ata := derivedRecipientATA(t)
	tx := tokenTxFixture("ref123", testMint, ata, 1)
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindAmountTooLow, ce.Kind)
}

func TestValidateTokenTransfer_ReferenceMissing(t *testing.T) {
	ata := derivedRecipientATA(t)
	tx := tokenTxFixture("ref123", testMint, ata, 5_000_000)
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "some-other-ref",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindReferenceNotFound, ce.Kind)
}

// TestValidateTokenTransfer_RecipientNotFound covers a transaction whose
// destination account is the recipient's raw wallet address rather than
// its associated token account: FindAssociatedTokenAddress derives a
// different address, so the destination in the fixture is never matched.
func TestValidateTokenTransfer_RecipientNotFound(t *testing.T) {
	tx := tokenTxFixture("ref123", testMint, testRecipient, 5_000_000)
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindRecipientNotFound, ce.Kind)
}

// TestValidateTokenTransfer_MintMismatch covers a TransferChecked
// instruction that correctly targets the recipient's associated token
// account but for a different mint than expected: the payment must not
// confirm just because the destination index matched.
func TestValidateTokenTransfer_MintMismatch(t *testing.T) {
	ata := derivedRecipientATA(t)
	const wrongMint = "11111111111111111111111111111111111111115"
	tx := tokenTxFixture("ref123", wrongMint, ata, 5_000_000)
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindSolValidationFailed, ce.Kind)
}

// TestValidateTokenTransfer_RejectsUncheckedTransfer covers the unchecked
// SPL Transfer opcode, which carries no mint account and so can never
// satisfy expect.TokenMint; it must be ignored entirely rather than
// treated as an unverified pass.
func TestValidateTokenTransfer_RejectsUncheckedTransfer(t *testing.T) {
	ata := derivedRecipientATA(t)
	tx := &payments.Transaction{
		Signature: "sig1",
		Message: payments.TransactionMessage{
			Version: "legacy",
			AccountKeys: []payments.AccountKey{
				"source-ata", ata, testOwner, tokenProgramID, "ref123",
			},
			Instructions: []payments.CompiledInstruction{
				{
					ProgramIDIndex: 3, // tokenProgramID
					Accounts:       []int{0, 1, 2},
					Data:           transferUncheckedData(5_000_000),
				},
			},
		},
	}
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindSolValidationFailed, ce.Kind)
}

func TestValidateTokenTransfer_TransactionFailed(t *testing.T) {
	ata := derivedRecipientATA(t)
	tx := tokenTxFixture("ref123", testMint, ata, 5_000_000)
	tx.Err = errors.New("custom program error: 0x1")
	err := validateTokenTransfer(tx, payments.TransferExpectation{
		Recipient: testRecipient,
		Amount:    5_000_000,
		TokenMint: testMint,
		Reference: "ref123",
	})
	ce, ok := payments.AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, payments.KindTransactionFailed, ce.Kind)
}

func TestContainsMemoReference(t *testing.T) {
	msg := payments.TransactionMessage{
		AccountKeys: []payments.AccountKey{"acct1", memoProgramID},
		Instructions: []payments.CompiledInstruction{
			{ProgramIDIndex: 1, Data: []byte("order:ref123")},
		},
	}
	require.True(t, containsMemoReference(msg, "ref123"))
	require.False(t, containsMemoReference(msg, "nope"))
}
