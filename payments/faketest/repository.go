package faketest

import (
	"context"
	"sync"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// Repository is an in-memory payments.Repository fake backed by a mutex-
// guarded map, exercising the exact-once ConfirmIfPending semantics the
// real Postgres implementation provides via a conditional UPDATE.
type Repository struct {
	mu sync.Mutex

	byReference map[string]*payments.Payment
	Records     []payments.TransactionRecord

	// FailConfirm, when non-nil, is returned verbatim by ConfirmIfPending
	// instead of performing the state transition, for testing database-
	// failure classification.
	FailConfirm error
}

// NewRepository seeds a Repository from the given payments, keyed by
// reference.
func NewRepository(seed ...*payments.Payment) *Repository {
	r := &Repository{byReference: make(map[string]*payments.Payment)}
	for _, p := range seed {
		r.byReference[p.Reference] = p
	}
	return r
}

// ListPending implements payments.Repository.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payments.Payment
	for _, p := range r.byReference {
		if p.Status == payments.StatusPending {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ConfirmIfPending implements payments.Repository's idempotent confirm.
func (r *Repository) ConfirmIfPending(ctx context.Context, reference, signature string) (*payments.Payment, error) {
	if r.FailConfirm != nil {
		return nil, r.FailConfirm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byReference[reference]
	if !ok || p.Status != payments.StatusPending {
		return nil, payments.ErrNotPending
	}
	p.Status = payments.StatusConfirmed
	p.Signature = signature
	return p, nil
}

// MarkFailed implements payments.Repository.
func (r *Repository) MarkFailed(ctx context.Context, reference string) (*payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byReference[reference]
	if !ok || p.Status != payments.StatusPending {
		return nil, payments.ErrNotPending
	}
	p.Status = payments.StatusFailed
	return p, nil
}

// Get implements payments.Repository.
func (r *Repository) Get(ctx context.Context, reference string) (*payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byReference[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// RecordOverpayment implements payments.Repository.
func (r *Repository) RecordOverpayment(ctx context.Context, reference string, excessBaseUnits int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byReference[reference]; ok {
		v := excessBaseUnits
		p.OverpaidBaseUnits = &v
	}
	return nil
}

// InsertTransactionRecord implements payments.Repository.
func (r *Repository) InsertTransactionRecord(ctx context.Context, rec payments.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, rec)
	return nil
}
