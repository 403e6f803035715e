package solanaledger

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// tokenProgramID is the canonical SPL token program (spec.md §6).
const tokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

const (
	// splInstructionTransfer is the unchecked SPL Transfer opcode. Its
	// account layout ([source, destination, owner, ...signers]) carries no
	// mint, so it can never be matched against expect.TokenMint and is
	// never accepted by validateTokenTransfer.
	splInstructionTransfer        byte = 3
	splInstructionTransferChecked byte = 12
)

// validateTokenTransfer implements the token-path delegate validation
// spec.md §4.4 asks LedgerClient.ValidateTransfer to perform: the
// transaction must have executed without error, must carry expect.Reference
// somewhere in its account keys or a memo instruction, and must contain a
// TransferChecked instruction moving at least expect.Amount base units of
// expect.TokenMint into expect.Recipient's associated token account for
// that mint — the actual on-chain destination of a token transfer, not the
// recipient's wallet address itself (construct.BuildTransfer builds against
// that same derived address).
//
// Unlike the native path, the token path has no tolerance band: token
// amounts are exact by construction of the transfer instruction itself.
func validateTokenTransfer(tx *payments.Transaction, expect payments.TransferExpectation) error {
	if tx.Err != nil {
		return payments.Classify(payments.KindTransactionFailed, "", fmt.Errorf("transaction executed with error: %w", tx.Err), nil)
	}

	if !referencePresent(tx.Message, expect.Reference) {
		return payments.Classify(payments.KindReferenceNotFound, "", fmt.Errorf("reference %s not present in transaction", expect.Reference), nil)
	}

	recipientATA, _, err := common.FindAssociatedTokenAddress(
		common.PublicKeyFromString(expect.Recipient),
		common.PublicKeyFromString(expect.TokenMint),
	)
	if err != nil {
		return payments.Classify(payments.KindInvalidAccountKeys, "", fmt.Errorf("deriving recipient associated token account: %w", err), nil)
	}

	recipientATAIdx := indexOfKey(tx.Message.AccountKeys, recipientATA.ToBase58())
	if recipientATAIdx < 0 {
		return payments.Classify(payments.KindRecipientNotFound, "", fmt.Errorf("recipient associated token account %s not among account keys", recipientATA.ToBase58()), nil)
	}

	tokenProgIdx := indexOfKey(tx.Message.AccountKeys, tokenProgramID)
	if tokenProgIdx < 0 {
		return payments.Classify(payments.KindSolValidationFailed, "", fmt.Errorf("no SPL token program invocation found"), nil)
	}

	var bestAmount uint64
	found := false
	for _, ix := range tx.Message.Instructions {
		if ix.ProgramIDIndex != tokenProgIdx {
			continue
		}
		amount, destIdx, mintIdx, ok := decodeTransferChecked(ix)
		if !ok {
			continue
		}
		if destIdx >= len(ix.Accounts) || mintIdx >= len(ix.Accounts) {
			continue
		}
		destAccount := ix.Accounts[destIdx]
		if destAccount != recipientATAIdx {
			continue
		}
		mintAccount := ix.Accounts[mintIdx]
		if mintAccount < 0 || mintAccount >= len(tx.Message.AccountKeys) || tx.Message.AccountKeys[mintAccount] != expect.TokenMint {
			continue
		}
		found = true
		if amount > bestAmount {
			bestAmount = amount
		}
	}

	if !found {
		return payments.Classify(payments.KindSolValidationFailed, "", fmt.Errorf("no transfer-checked instruction for mint %s targets recipient's associated token account", expect.TokenMint), nil)
	}
	if bestAmount < uint64(expect.Amount) {
		return payments.Classify(payments.KindAmountTooLow, "", fmt.Errorf("transferred %d base units, expected %d", bestAmount, uint64(expect.Amount)), nil)
	}
	return nil
}

// decodeTransferChecked decodes a TransferChecked instruction's amount and
// the indices (within ix.Accounts) of its destination and mint accounts.
// TransferChecked accounts are [source, mint, destination, owner, ...signers].
// The unchecked Transfer opcode (splInstructionTransfer) is deliberately not
// decoded here: it has no mint account to verify expect.TokenMint against.
func decodeTransferChecked(ix payments.CompiledInstruction) (amount uint64, destAccountIdx, mintAccountIdx int, ok bool) {
	if len(ix.Data) < 10 || ix.Data[0] != splInstructionTransferChecked {
		return 0, 0, 0, false
	}
	return binary.LittleEndian.Uint64(ix.Data[1:9]), 2, 1, true
}

func indexOfKey(keys []payments.AccountKey, target string) int {
	for i, k := range keys {
		if k == target {
			return i
		}
	}
	return -1
}

// referencePresent checks spec.md §4.3/§4.4's two ways a reference can be
// embedded: as a (typically read-only, non-signing) account key directly in
// the transaction, or inside a memo-program instruction's UTF-8 data
// (spec.md §4.5, the fallback path).
func referencePresent(msg payments.TransactionMessage, reference string) bool {
	if indexOfKey(msg.AccountKeys, reference) >= 0 {
		return true
	}
	return containsMemoReference(msg, reference)
}
