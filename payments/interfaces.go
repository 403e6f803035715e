package payments

import (
	"context"
	"time"
)

// Commitment is the ledger-side confirmation level used when querying.
type Commitment string

const (
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// AccountKey is a 32-byte public-key-shaped account identifier, rendered in
// its base58 canonical textual form wherever it crosses a log line or memo.
type AccountKey = string

// BalanceDelta describes the pre/post lamport (or token base-unit) balance
// pair for one account key at one index in a transaction.
type BalanceDelta struct {
	Pre  uint64
	Post uint64
}

// TransactionMessage is the subset of an inbound transaction's message the
// core needs: the resolved account-key list (legacy keys directly, or
// versioned keys plus resolved address-lookup-table entries), and the raw
// instructions for memo-program scanning.
type TransactionMessage struct {
	// Version is "legacy" or a non-negative version number rendered as a string.
	Version      string
	AccountKeys  []AccountKey
	Instructions []CompiledInstruction
}

// CompiledInstruction mirrors the wire shape of message.instructions[i].
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte
}

// Transaction is the inbound transaction object schema of spec.md §6.
type Transaction struct {
	Signature    string
	Message      TransactionMessage
	Err          error // meta.err, nil if the transaction executed successfully
	PreBalances  []uint64
	PostBalances []uint64
	Fee          uint64
}

// FindByReferenceResult is returned by LedgerClient.FindByReference.
type FindByReferenceResult struct {
	Signature string
	Found     bool
}

// BlockhashInfo is returned by LedgerClient.GetLatestBlockhash.
type BlockhashInfo struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// TransferExpectation is the (recipient, amount, [token_mint]) tuple a
// token-path validation is checked against.
type TransferExpectation struct {
	Recipient string
	Amount    AmountBaseUnits
	TokenMint string // empty for native
	Reference string
}

// AmountBaseUnits is a base-unit amount held in a uint64, kept as a
// distinct type so native-lamports and token-base-units are never
// accidentally mixed with a display-unit decimal.Decimal.
type AmountBaseUnits uint64

// LedgerClient is the capability surface the core consumes from a specific
// ledger RPC implementation (spec.md §6). Implementations wrap a concrete
// RPC client; payments/solanaledger provides the Solana binding.
type LedgerClient interface {
	// FindByReference queries for any transaction that touches reference,
	// at the given commitment, returning Found=false (never an error) if
	// the ledger has simply never observed it.
	FindByReference(ctx context.Context, reference AccountKey, commitment Commitment) (FindByReferenceResult, error)
	// GetTransaction fetches a transaction by signature. Returns
	// (nil, nil) if the ledger has no record of it at this commitment.
	GetTransaction(ctx context.Context, signature string, commitment Commitment, maxSupportedVersion int) (*Transaction, error)
	// ValidateTransfer delegates the full token-path validation to the
	// ledger client's canonical implementation (spec.md §4.4).
	ValidateTransfer(ctx context.Context, signature string, expect TransferExpectation, commitment Commitment) error
	// GetBalance returns the base-unit balance of pubkey.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	// GetLatestBlockhash fetches a recent blockhash for transaction construction.
	GetLatestBlockhash(ctx context.Context) (BlockhashInfo, error)
}

// Repository is the payment persistence surface the core consumes
// (spec.md §6).
type Repository interface {
	// ListPending returns up to limit pending payments, oldest-created first.
	ListPending(ctx context.Context, limit int) ([]*Payment, error)
	// ConfirmIfPending performs the conditional write of spec.md §4.8 step
	// 1: flips reference from pending to confirmed with signature, iff it
	// is currently pending. Returns ErrNotPending if it was not (already
	// confirmed/failed/expired elsewhere).
	ConfirmIfPending(ctx context.Context, reference, signature string) (*Payment, error)
	// MarkFailed transitions reference to failed.
	MarkFailed(ctx context.Context, reference string) (*Payment, error)
	// Get fetches a single payment by reference, or (nil, nil) if absent.
	Get(ctx context.Context, reference string) (*Payment, error)
	// RecordOverpayment best-effort persists the excess delta observed
	// during native-path validation. Failure here must never fail the
	// confirmation (spec.md §9 Open Question b).
	RecordOverpayment(ctx context.Context, reference string, excessBaseUnits int64) error
	// InsertTransactionRecord appends to the transactions log (spec.md
	// §4.8 step 4). Duplicate insertion must be tolerated.
	InsertTransactionRecord(ctx context.Context, rec TransactionRecord) error
}

// TransactionRecord is one row of the transactions log (spec.md §4.8 step 4).
type TransactionRecord struct {
	Reference string
	Signature string
	Kind      Kind
	Amount    AmountBaseUnits
	Method    ValidationMethod
	CreatedAt time.Time
}

// ErrNotPending is returned by Repository.ConfirmIfPending when the target
// row was not in the pending state.
type ErrNotPendingT struct{}

func (ErrNotPendingT) Error() string { return "payment is not pending" }

// ErrNotPending is the sentinel value implementations should return.
var ErrNotPending = ErrNotPendingT{}

// WebhookNotifier emits the "payment.confirmed" webhook event (spec.md §6).
type WebhookNotifier interface {
	Emit(ctx context.Context, event string, payload WebhookPayload) error
}

// WebhookPayload is the body of the payment.confirmed webhook event.
type WebhookPayload struct {
	Reference string          `json:"reference"`
	Amount    string          `json:"amount"`
	Kind      Kind            `json:"instrument"`
	Signature string          `json:"signature"`
	Timestamp time.Time       `json:"timestamp"`
}

// LiveNotifier broadcasts payment-update events to subscribed UI sessions.
type LiveNotifier interface {
	Publish(ctx context.Context, room, event string, payload interface{}) error
}

// EmailNotifier enqueues a confirmation message for a customer (spec.md §6).
// Only the trigger contract is in scope; delivery mechanics are not.
type EmailNotifier interface {
	Enqueue(ctx context.Context, kind string, recipient string, payment *Payment) error
}

// Clock abstracts time.Now so tests can control it (spec.md §9 "singletons
// -> injected dependencies").
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts time.Sleep so backoff tests never actually block
// (spec.md §8 property 6).
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// SystemClock is the real-time Clock used in production.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// RealSleeper is the real-time Sleeper used in production.
type RealSleeper struct{}

// Sleep implements Sleeper, honoring context cancellation.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ValidationMethod records which code path validated a transfer.
type ValidationMethod string

const (
	MethodAccountBased ValidationMethod = "account-based"
	MethodMemoBased    ValidationMethod = "memo-based"
)
