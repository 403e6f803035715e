package payments

import (
	"context"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
)

// Locator implements the Reference Locator (spec.md §4.2): given a pending
// payment, it asks the ledger whether anything has ever touched the
// payment's reference key and, if so, returns that signature.
type Locator struct {
	ledger LedgerClient
}

// NewLocator constructs a Locator over ledger.
func NewLocator(ledger LedgerClient) *Locator {
	return &Locator{ledger: ledger}
}

// Locate returns the signature of a transaction touching p.Reference, or
// ErrNotYetPresent if the ledger has simply never observed it — a debug-
// logged signal, not an error, since it is the expected steady state for
// most payments on most monitor cycles.
func (l *Locator) Locate(ctx context.Context, p *Payment) (string, error) {
	res, err := l.ledger.FindByReference(ctx, p.Reference, CommitmentConfirmed)
	if err != nil {
		return "", err
	}
	if !res.Found {
		logging.Module(ctx, "locator").Debug().
			Str("reference", p.Reference).
			Msg("reference not yet present on ledger")
		return "", ErrNotYetPresent
	}
	return res.Signature, nil
}
