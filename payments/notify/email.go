package notify

import (
	"context"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// LoggingEmailNotifier implements payments.EmailNotifier with a structured
// log line instead of actual delivery: only the trigger contract (spec.md
// §1's "email delivery mechanics... out of scope") is in scope here. A
// production deployment swaps this for a real mailer satisfying the same
// interface.
type LoggingEmailNotifier struct{}

// NewLoggingEmailNotifier constructs the no-op/logging EmailNotifier.
func NewLoggingEmailNotifier() *LoggingEmailNotifier { return &LoggingEmailNotifier{} }

// Enqueue implements payments.EmailNotifier.
func (LoggingEmailNotifier) Enqueue(ctx context.Context, kind string, recipient string, payment *payments.Payment) error {
	logging.Module(ctx, "notify").Info().
		Str("kind", kind).
		Str("recipient", recipient).
		Str("reference", payment.Reference).
		Msg("email notification triggered")
	return nil
}
