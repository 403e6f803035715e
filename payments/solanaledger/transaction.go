package solanaledger

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/mr-tron/base58"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// memoProgramID is the well-known memo program (spec.md §6).
const memoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// fromRawTransaction normalizes a raw RPC transaction result into the
// core's ledger-agnostic payments.Transaction, resolving versioned address
// lookup table entries so that callers never need to know whether the
// original message was legacy or versioned (spec.md §9 "Versioned vs.
// legacy transactions").
//
// This is the single function where Solana's wire format is allowed to
// bleed into the core.
func fromRawTransaction(signature string, raw *rpc.GetTransactionResult) (*payments.Transaction, error) {
	if raw.Meta == nil {
		return nil, payments.Classify(payments.KindMissingBalanceMetadata, "", fmt.Errorf("transaction %s has no meta", signature), nil)
	}

	accountKeys, err := ResolveAccountKeys(raw)
	if err != nil {
		return nil, err
	}

	instructions := make([]payments.CompiledInstruction, 0, len(raw.Transaction.Message.Instructions))
	for _, ix := range raw.Transaction.Message.Instructions {
		data, decodeErr := base58.Decode(ix.Data)
		if decodeErr != nil {
			// Some instruction payloads are base64, not base58, depending on
			// RPC encoding; fall back rather than fail the whole extraction.
			if b64, b64Err := base64.StdEncoding.DecodeString(ix.Data); b64Err == nil {
				data = b64
			}
		}
		instructions = append(instructions, payments.CompiledInstruction{
			ProgramIDIndex: ix.ProgramIDIndex,
			Accounts:       ix.Accounts,
			Data:           data,
		})
	}

	var txErr error
	if raw.Meta.Err != nil {
		txErr = fmt.Errorf("on-chain execution error: %v", raw.Meta.Err)
	}

	return &payments.Transaction{
		Signature: signature,
		Message: payments.TransactionMessage{
			Version:      versionString(raw.Transaction.Message.Version),
			AccountKeys:  accountKeys,
			Instructions: instructions,
		},
		Err:          txErr,
		PreBalances:  raw.Meta.PreBalances,
		PostBalances: raw.Meta.PostBalances,
		Fee:          raw.Meta.Fee,
	}, nil
}

// ResolveAccountKeys extracts the full account-key list for raw, whether
// its message is legacy or versioned. For a legacy message the account-keys
// list is read directly; for a versioned message, the directly-listed keys
// are concatenated with the loaded-address-lookup-table entries the RPC
// node already resolved server-side (writable entries first, then
// read-only, matching the order Solana validators append them when
// building the execution account list).
//
// Returns payments.KindAccountKeysError if neither list can be produced.
func ResolveAccountKeys(raw *rpc.GetTransactionResult) ([]string, error) {
	if raw.Transaction.Message.AccountKeys == nil {
		return nil, payments.Classify(payments.KindAccountKeysError, "", fmt.Errorf("message has no account keys"), nil)
	}

	keys := make([]string, len(raw.Transaction.Message.AccountKeys))
	copy(keys, raw.Transaction.Message.AccountKeys)

	if raw.Meta != nil && raw.Meta.LoadedAddresses != nil {
		keys = append(keys, raw.Meta.LoadedAddresses.Writable...)
		keys = append(keys, raw.Meta.LoadedAddresses.Readonly...)
	}

	if len(keys) == 0 {
		return nil, payments.Classify(payments.KindInvalidAccountKeys, "", fmt.Errorf("resolved account-key list is empty"), nil)
	}
	return keys, nil
}

func versionString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "legacy"
	case string:
		return t
	case float64:
		return strconv.Itoa(int(t))
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// containsMemoReference reports whether any instruction in msg targets the
// memo program with UTF-8-decoded data containing reference's canonical
// textual form (spec.md §4.3 step 4, memo-based path).
func containsMemoReference(msg payments.TransactionMessage, reference string) bool {
	memoIdx := -1
	for i, key := range msg.AccountKeys {
		if key == memoProgramID {
			memoIdx = i
			break
		}
	}
	if memoIdx < 0 {
		return false
	}
	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex != memoIdx {
			continue
		}
		if containsSubstringBytes(ix.Data, reference) {
			return true
		}
	}
	return false
}

func containsSubstringBytes(data []byte, needle string) bool {
	return len(needle) > 0 && len(data) >= len(needle) && indexOf(string(data), needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
