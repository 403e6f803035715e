// Package faketest provides hand-written fakes for payments.LedgerClient
// and payments.Repository, in the teacher's own style of small
// purpose-built test doubles rather than a generated-mock framework.
package faketest

import (
	"context"
	"sync"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// Ledger is an in-memory payments.LedgerClient fake. Transactions,
// ValidateTransferErr and Balances are lookup tables keyed by the parameter
// the corresponding method is called with; FindByReferenceFunc and Blockhash
// supply the other results. Tests populate them directly before exercising
// the code under test.
type Ledger struct {
	mu sync.Mutex

	FindByReferenceFunc func(ctx context.Context, reference payments.AccountKey, commitment payments.Commitment) (payments.FindByReferenceResult, error)
	Transactions        map[string]*payments.Transaction
	ValidateTransferErr map[string]error // keyed by signature
	Balances            map[string]uint64
	Blockhash           payments.BlockhashInfo

	// Calls records every (method, arg) pair invoked, for assertions about
	// call counts/ordering without a mocking framework.
	Calls []string
}

// NewLedger constructs an empty Ledger fake.
func NewLedger() *Ledger {
	return &Ledger{
		Transactions:        make(map[string]*payments.Transaction),
		ValidateTransferErr: make(map[string]error),
		Balances:            make(map[string]uint64),
	}
}

func (l *Ledger) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, call)
}

// FindByReference implements payments.LedgerClient.
func (l *Ledger) FindByReference(ctx context.Context, reference payments.AccountKey, commitment payments.Commitment) (payments.FindByReferenceResult, error) {
	l.record("FindByReference:" + reference)
	if l.FindByReferenceFunc != nil {
		return l.FindByReferenceFunc(ctx, reference, commitment)
	}
	return payments.FindByReferenceResult{Found: false}, nil
}

// GetTransaction implements payments.LedgerClient.
func (l *Ledger) GetTransaction(ctx context.Context, signature string, commitment payments.Commitment, maxSupportedVersion int) (*payments.Transaction, error) {
	l.record("GetTransaction:" + signature)
	tx, ok := l.Transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// ValidateTransfer implements payments.LedgerClient.
func (l *Ledger) ValidateTransfer(ctx context.Context, signature string, expect payments.TransferExpectation, commitment payments.Commitment) error {
	l.record("ValidateTransfer:" + signature)
	return l.ValidateTransferErr[signature]
}

// GetBalance implements payments.LedgerClient.
func (l *Ledger) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	l.record("GetBalance:" + pubkey)
	return l.Balances[pubkey], nil
}

// GetLatestBlockhash implements payments.LedgerClient.
func (l *Ledger) GetLatestBlockhash(ctx context.Context) (payments.BlockhashInfo, error) {
	l.record("GetLatestBlockhash")
	return l.Blockhash, nil
}

// CallCount returns how many recorded calls equal the given "Method:arg"
// or "Method" string exactly.
func (l *Ledger) CallCount(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.Calls {
		if c == prefix {
			n++
		}
	}
	return n
}
