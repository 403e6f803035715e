// Package pgrepo implements payments.Repository against Postgres, using
// sqlx + lib/pq the way the teacher's libs/datastore.Postgres wraps a
// connection and its services/skus/storage/repository packages structure
// queries.
package pgrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// Repository implements payments.Repository against a *sqlx.DB.
type Repository struct {
	db *sqlx.DB
}

// New constructs a Repository over an already-connected db.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// paymentRow mirrors the payments table's columns for sqlx struct scanning.
type paymentRow struct {
	Reference         string          `db:"reference"`
	MerchantID        uuid.UUID       `db:"merchant_id"`
	CustomerEmail     sql.NullString  `db:"customer_email"`
	Kind              string          `db:"kind"`
	TokenMint         sql.NullString  `db:"token_mint"`
	TokenDecimals     sql.NullInt32   `db:"token_decimals"`
	Amount            decimal.Decimal `db:"amount"`
	Recipient         string          `db:"recipient"`
	Status            string          `db:"status"`
	Signature         sql.NullString  `db:"signature"`
	OverpaidBaseUnits sql.NullInt64   `db:"overpaid_base_units"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r paymentRow) toPayment() *payments.Payment {
	p := &payments.Payment{
		Reference:     r.Reference,
		MerchantID:    r.MerchantID,
		Kind:          payments.Kind(r.Kind),
		TokenMint:     r.TokenMint.String,
		TokenDecimals: uint8(r.TokenDecimals.Int32),
		Amount:        r.Amount,
		Recipient:     r.Recipient,
		Status:        payments.Status(r.Status),
		Signature:     r.Signature.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.CustomerEmail.Valid {
		p.Customer = &payments.CustomerContact{Email: r.CustomerEmail.String}
	}
	if r.OverpaidBaseUnits.Valid {
		v := r.OverpaidBaseUnits.Int64
		p.OverpaidBaseUnits = &v
	}
	return p
}

// ListPending implements payments.Repository.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*payments.Payment, error) {
	const q = `
	SELECT reference, merchant_id, customer_email, kind, token_mint, token_decimals,
	       amount, recipient, status, signature, overpaid_base_units, created_at, updated_at
	FROM payments
	WHERE status = 'pending'
	ORDER BY created_at ASC
	LIMIT $1`

	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("pgrepo: list pending: %w", err)
	}

	out := make([]*payments.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toPayment())
	}
	return out, nil
}

// ConfirmIfPending implements payments.Repository's idempotent confirm,
// spec.md §4.8 step 1: the write is keyed on reference AND current status,
// so concurrent or repeated calls flip exactly once.
func (r *Repository) ConfirmIfPending(ctx context.Context, reference, signature string) (*payments.Payment, error) {
	const q = `
	UPDATE payments
	SET status = 'confirmed', signature = $2, updated_at = now()
	WHERE reference = $1 AND status = 'pending'
	RETURNING reference, merchant_id, customer_email, kind, token_mint, token_decimals,
	          amount, recipient, status, signature, overpaid_base_units, created_at, updated_at`

	var row paymentRow
	err := sqlx.GetContext(ctx, r.db, &row, q, reference, signature)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payments.ErrNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("pgrepo: confirm if pending: %w", err)
	}
	return row.toPayment(), nil
}

// MarkFailed implements payments.Repository.
func (r *Repository) MarkFailed(ctx context.Context, reference string) (*payments.Payment, error) {
	const q = `
	UPDATE payments
	SET status = 'failed', updated_at = now()
	WHERE reference = $1 AND status = 'pending'
	RETURNING reference, merchant_id, customer_email, kind, token_mint, token_decimals,
	          amount, recipient, status, signature, overpaid_base_units, created_at, updated_at`

	var row paymentRow
	err := sqlx.GetContext(ctx, r.db, &row, q, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payments.ErrNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("pgrepo: mark failed: %w", err)
	}
	return row.toPayment(), nil
}

// Get implements payments.Repository.
func (r *Repository) Get(ctx context.Context, reference string) (*payments.Payment, error) {
	const q = `
	SELECT reference, merchant_id, customer_email, kind, token_mint, token_decimals,
	       amount, recipient, status, signature, overpaid_base_units, created_at, updated_at
	FROM payments WHERE reference = $1`

	var row paymentRow
	err := sqlx.GetContext(ctx, r.db, &row, q, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgrepo: get: %w", err)
	}
	return row.toPayment(), nil
}

// RecordOverpayment implements payments.Repository. Best-effort: its
// failure must never fail a confirmation (spec.md §9 Open Question b), so
// callers log-and-continue on error rather than propagating it further.
func (r *Repository) RecordOverpayment(ctx context.Context, reference string, excessBaseUnits int64) error {
	const q = `UPDATE payments SET overpaid_base_units = $2, updated_at = now() WHERE reference = $1`
	if _, err := r.db.ExecContext(ctx, q, reference, excessBaseUnits); err != nil {
		return fmt.Errorf("pgrepo: record overpayment: %w", err)
	}
	return nil
}

// InsertTransactionRecord implements payments.Repository. Duplicate
// insertion is tolerated via ON CONFLICT DO NOTHING, matching spec.md §4.8
// step 4's "unique constraint recommended but not required" guidance.
func (r *Repository) InsertTransactionRecord(ctx context.Context, rec payments.TransactionRecord) error {
	const q = `
	INSERT INTO payment_transactions (reference, signature, kind, amount_base_units, method, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (reference, signature) DO NOTHING`

	_, err := r.db.ExecContext(ctx, q,
		rec.Reference, rec.Signature, string(rec.Kind), int64(rec.Amount), string(rec.Method), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgrepo: insert transaction record: %w", err)
	}
	return nil
}
