// Package payments implements the Payment Monitor and Transaction
// Constructor: the subsystem that assembles on-chain Solana transfer
// instructions for merchant payment intents and then watches the ledger
// until each intent is confirmed, failed, or (via an external sweeper)
// expired.
package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes a native-coin payment from a fungible-token payment.
type Kind string

const (
	// KindNative is a payment denominated in the chain's native coin.
	KindNative Kind = "native"
	// KindToken is a payment denominated in a fungible token (SPL-style mint).
	KindToken Kind = "token"
)

// Status is the lifecycle state of a Payment.
type Status string

const (
	// StatusPending is the initial state of every payment.
	StatusPending Status = "pending"
	// StatusConfirmed means a matching, validated transfer was observed on-chain.
	StatusConfirmed Status = "confirmed"
	// StatusFailed means the payment was given up on; it will never be retried.
	StatusFailed Status = "failed"
	// StatusExpired is set only by an external sweeper, never by the Monitor.
	StatusExpired Status = "expired"
)

// IsTerminal reports whether s is one of the lifecycle's terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusExpired
}

// NativeLamportsPerUnit is the number of base units ("lamports") in one
// display unit of the native coin.
const NativeLamportsPerUnit = 1_000_000_000

// Payment is the intent being monitored: the durable row the Monitor drives
// through pending -> {confirmed|failed}.
//
// Invariants (spec.md §3):
//   - a payment in a terminal status is never re-confirmed;
//   - Kind == KindNative implies TokenMint == ""; Kind == KindToken implies TokenMint != "";
//   - Reference is globally unique and, once persisted, is never reused.
type Payment struct {
	Reference  string // base58-encoded 32-byte public-key-shaped identifier; the external lookup token
	MerchantID uuid.UUID
	Customer   *CustomerContact

	Kind          Kind
	TokenMint     string // required iff Kind == KindToken
	TokenDecimals uint8  // required iff Kind == KindToken; mint's declared decimals

	Amount    decimal.Decimal // arbitrary-precision display-unit amount
	Recipient string          // base58 on-chain address expected to receive funds

	Status    Status
	Signature string // set only once Status == StatusConfirmed; immutable thereafter

	// OverpaidBaseUnits records the excess delta (native path only) when a
	// confirmed transfer exceeded expected+tolerance. Nil unless an
	// overpayment was observed. (spec.md §9 Open Question b.)
	OverpaidBaseUnits *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerContact is the minimal identity the Confirmer needs to trigger an
// email notification; everything else about a customer lives outside the
// core.
type CustomerContact struct {
	Email string
}

// Validate checks the Kind/TokenMint invariant from spec.md §3.
func (p *Payment) Validate() error {
	switch p.Kind {
	case KindNative:
		if p.TokenMint != "" {
			return ErrInvalidPayment("native payment must not carry a token_mint")
		}
	case KindToken:
		if p.TokenMint == "" {
			return ErrInvalidPayment("token payment requires a token_mint")
		}
	default:
		return ErrInvalidPayment("unknown payment kind: " + string(p.Kind))
	}
	return nil
}

// ErrInvalidPayment is a plain-string sentinel error for Payment.Validate.
type ErrInvalidPayment string

func (e ErrInvalidPayment) Error() string { return string(e) }
