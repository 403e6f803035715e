// Package solanaledger implements payments.LedgerClient against a Solana
// RPC endpoint using github.com/blocto/solana-go-sdk — the same SDK the
// teacher's own Solana payout state machine
// (services/payments/statemachine_solana.go) depends on.
package solanaledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	solanaclient "github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// rpcTimeout bounds every RPC call the client makes (spec.md §5 "Timeouts").
const rpcTimeout = 30 * time.Second

// Client wraps a Solana RPC connection and implements payments.LedgerClient.
// It is constructed lazily and is safe for concurrent use across monitor
// tasks (spec.md §5 "Shared resources").
type Client struct {
	rpc *solanaclient.Client
}

// New constructs a Client against the given RPC endpoint.
func New(endpoint string) *Client {
	return &Client{rpc: solanaclient.NewClient(endpoint)}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, rpcTimeout)
}

// classifyTransportErr turns a raw network/RPC error into a
// *payments.ClassifiedError, implementing the mapping spec.md §7 requires
// at the ledger boundary.
func classifyTransportErr(err error, p *payments.Payment) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return payments.Classify(payments.KindNetworkTimeout, "", err, p)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return payments.Classify(payments.KindNetworkTimeout, "", err, p)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return payments.Classify(payments.KindRPCConnectionFailed, "", err, p)
	}
	// Fall back to a generic, conservatively-retryable RPC error.
	return payments.Classify(payments.KindRPCError, string(payments.RPCSubCodeInternal), err, p)
}

// FindByReference implements payments.LedgerClient.
//
// It asks the RPC for any signature that touched reference as an account
// key. A response indicating the account has no transaction history is
// mapped to Found=false, never an error (spec.md §4.2).
func (c *Client) FindByReference(ctx context.Context, reference payments.AccountKey, commitment payments.Commitment) (payments.FindByReferenceResult, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	sigs, err := c.rpc.RpcClient.GetSignaturesForAddressWithConfig(ctx, reference, rpc.GetSignaturesForAddressConfig{
		Limit:      1,
		Commitment: toRPCCommitment(commitment),
	})
	if err != nil {
		return payments.FindByReferenceResult{}, classifyTransportErr(err, nil)
	}
	if sigs.Error != nil {
		return payments.FindByReferenceResult{}, payments.Classify(payments.KindRPCError, string(payments.RPCSubCodeInternal), fmt.Errorf("%v", sigs.Error), nil)
	}
	if len(sigs.Result) == 0 {
		return payments.FindByReferenceResult{Found: false}, nil
	}
	return payments.FindByReferenceResult{Found: true, Signature: sigs.Result[0].Signature}, nil
}

// GetTransaction implements payments.LedgerClient. It fetches the raw
// transaction and normalizes legacy/versioned account keys into a single
// flat list via ResolveAccountKeys, the one function where the ledger's
// binary format is allowed to bleed into the core (spec.md §9).
func (c *Client) GetTransaction(ctx context.Context, signature string, commitment payments.Commitment, maxSupportedVersion int) (*payments.Transaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	maxVer := uint8(maxSupportedVersion)
	raw, err := c.rpc.RpcClient.GetTransactionWithConfig(ctx, signature, rpc.GetTransactionConfig{
		Encoding:                       rpc.TransactionEncodingJsonParsed,
		Commitment:                     toRPCCommitment(commitment),
		MaxSupportedTransactionVersion: &maxVer,
	})
	if err != nil {
		return nil, classifyTransportErr(err, nil)
	}
	if raw.Error != nil {
		return nil, payments.Classify(payments.KindRPCError, string(payments.RPCSubCodeInternal), fmt.Errorf("%v", raw.Error), nil)
	}
	if raw.Result == nil {
		return nil, nil
	}

	return fromRawTransaction(signature, raw.Result)
}

// ValidateTransfer implements payments.LedgerClient's token-path delegation
// (spec.md §4.4): it fetches the transaction and verifies a standard
// checked-token-transfer moved the expected amount from some source account
// to the recipient's associated token account for the given mint, with the
// reference key present.
func (c *Client) ValidateTransfer(ctx context.Context, signature string, expect payments.TransferExpectation, commitment payments.Commitment) error {
	tx, err := c.GetTransaction(ctx, signature, commitment, 0)
	if err != nil {
		return err
	}
	if tx == nil {
		return payments.Classify(payments.KindTransactionNotFound, "", errors.New("transaction not found"), nil)
	}
	return validateTokenTransfer(tx, expect)
}

// GetBalance implements payments.LedgerClient.
func (c *Client) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	bal, err := c.rpc.GetBalance(ctx, pubkey)
	if err != nil {
		return 0, classifyTransportErr(err, nil)
	}
	return bal, nil
}

// GetLatestBlockhash implements payments.LedgerClient.
func (c *Client) GetLatestBlockhash(ctx context.Context) (payments.BlockhashInfo, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := c.rpc.GetLatestBlockhashAndContext(ctx)
	if err != nil {
		return payments.BlockhashInfo{}, classifyTransportErr(err, nil)
	}
	return payments.BlockhashInfo{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

// AccountInfo reports whether the account at pubkey exists and, if it does,
// which program owns it. A non-existent account is reported as exists=false
// with no error, mirroring the teacher's hasAssociatedTokenAccount check in
// services/payments/statemachine_solana.go.
func (c *Client) AccountInfo(ctx context.Context, pubkey string) (exists bool, owner string, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	info, getErr := c.rpc.GetAccountInfo(ctx, pubkey)
	if getErr != nil {
		// The SDK surfaces "account not found" as an error rather than a
		// zero-value result; treat that case as exists=false, not a fault.
		if isAccountNotFound(getErr) {
			return false, "", nil
		}
		return false, "", classifyTransportErr(getErr, nil)
	}
	return true, info.Owner.ToBase58(), nil
}

func isAccountNotFound(err error) bool {
	return err != nil && (errorsContains(err.Error(), "not found") || errorsContains(err.Error(), "could not find account"))
}

func errorsContains(haystack, needle string) bool {
	return len(needle) > 0 && indexOf(haystack, needle) >= 0
}

func toRPCCommitment(c payments.Commitment) rpc.Commitment {
	if c == payments.CommitmentFinalized {
		return rpc.CommitmentFinalized
	}
	return rpc.CommitmentConfirmed
}

// FeePayerFromBase58 parses key as a base58-encoded public key, such as a
// fee payer's address. It does not handle private keys or signing, and its
// error result is always nil.
func FeePayerFromBase58(key string) (common.PublicKey, error) {
	acc, err := solanaAccountFromBase58(key)
	if err != nil {
		return common.PublicKey{}, err
	}
	return acc, nil
}

func solanaAccountFromBase58(key string) (common.PublicKey, error) {
	pk := common.PublicKeyFromString(key)
	return pk, nil
}
