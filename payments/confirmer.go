package payments

import (
	"context"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
)

// WebhookEventConfirmed is the event name the Confirmer emits on a
// successful status flip (spec.md §4.8 step 2).
const WebhookEventConfirmed = "payment.confirmed"

// Confirmer implements the Confirmer & Notifier Fanout (spec.md §4.8): it
// performs the idempotent status transition and then fans out to every
// downstream notification collaborator, never rolling back the transition
// on a fan-out failure.
type Confirmer struct {
	repo     Repository
	webhook  WebhookNotifier
	live     LiveNotifier
	email    EmailNotifier
	clock    Clock
}

// NewConfirmer constructs a Confirmer. webhook, live, and email may be nil;
// a nil collaborator is treated as "not configured" and its step is skipped
// rather than attempted (only the webhook step logs the skip, at debug level).
func NewConfirmer(repo Repository, webhook WebhookNotifier, live LiveNotifier, email EmailNotifier, clock Clock) *Confirmer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Confirmer{repo: repo, webhook: webhook, live: live, email: email, clock: clock}
}

// Confirm drives p through the five-step fan-out of spec.md §4.8. It
// returns nil even if steps 2-5 fail; only a step-1 error (that isn't
// "already confirmed elsewhere") is returned.
func (c *Confirmer) Confirm(ctx context.Context, p *Payment, signature string, v *ValidationResult) error {
	logger := logging.Module(ctx, "confirmer")

	confirmed, err := c.repo.ConfirmIfPending(ctx, p.Reference, signature)
	if err != nil {
		if err == ErrNotPending {
			logger.Info().Str("reference", p.Reference).Msg("payment already confirmed elsewhere; skipping fan-out")
			return nil
		}
		return Classify(KindDatabaseError, "", err, p)
	}
	logger.Info().Str("reference", p.Reference).Str("signature", signature).Msg("payment confirmed")

	if v != nil && v.Overpaid {
		if err := c.repo.RecordOverpayment(ctx, p.Reference, v.OverpaidAmount); err != nil {
			logger.Warn().Err(err).Str("reference", p.Reference).Msg("failed to record overpayment")
		}
	}

	if c.webhook != nil {
		payload := WebhookPayload{
			Reference: confirmed.Reference,
			Amount:    confirmed.Amount.String(),
			Kind:      confirmed.Kind,
			Signature: signature,
			Timestamp: c.clock.Now(),
		}
		if err := c.webhook.Emit(ctx, WebhookEventConfirmed, payload); err != nil {
			logger.Warn().Err(err).Str("reference", p.Reference).Msg("webhook emit failed")
		}
	} else {
		logger.Debug().Str("reference", p.Reference).Msg("no webhook notifier configured")
	}

	if c.live != nil {
		if err := c.live.Publish(ctx, p.Reference, "payment-update", map[string]string{
			"reference": p.Reference,
			"status":    string(StatusConfirmed),
			"signature": signature,
		}); err != nil {
			logger.Warn().Err(err).Str("reference", p.Reference).Msg("live notify failed")
		}
	}

	method := MethodAccountBased
	if v != nil {
		method = v.Method
	}
	var amountBaseUnits uint64
	if p.Kind == KindNative {
		amountBaseUnits = expectedBaseUnits(p.Amount)
	} else {
		amountBaseUnits = expectedTokenBaseUnits(p)
	}
	rec := TransactionRecord{
		Reference: p.Reference,
		Signature: signature,
		Kind:      p.Kind,
		Amount:    AmountBaseUnits(amountBaseUnits),
		Method:    method,
		CreatedAt: c.clock.Now(),
	}
	if err := c.repo.InsertTransactionRecord(ctx, rec); err != nil {
		logger.Warn().Err(err).Str("reference", p.Reference).Msg("transaction record insert failed")
	}

	if c.email != nil && confirmed.Customer != nil && confirmed.Customer.Email != "" {
		if err := c.email.Enqueue(ctx, "payment_confirmed", confirmed.Customer.Email, confirmed); err != nil {
			logger.Warn().Err(err).Str("reference", p.Reference).Msg("email enqueue failed")
		}
	}

	return nil
}

// MarkFailed implements the give-up path: the Classifier has exhausted
// retries or classified the error as non-retryable, so the payment moves
// to the terminal failed state.
func (c *Confirmer) MarkFailed(ctx context.Context, p *Payment) error {
	logger := logging.Module(ctx, "confirmer")
	if _, err := c.repo.MarkFailed(ctx, p.Reference); err != nil {
		logger.Warn().Err(err).Str("reference", p.Reference).Msg("failed to mark payment failed")
		return Classify(KindDatabaseError, "", err, p)
	}
	logger.Info().Str("reference", p.Reference).Msg("payment marked failed")
	return nil
}
