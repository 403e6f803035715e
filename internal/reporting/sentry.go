// Package reporting wires github.com/getsentry/sentry-go the way the
// teacher's services/payments/cmd does: initialized once at startup,
// flushed on shutdown, and fed exceptions at the points an operator needs
// paged rather than just logged.
package reporting

import (
	"time"

	sentry "github.com/getsentry/sentry-go"
)

// Init configures the global sentry client. dsn == "" disables reporting
// (sentry-go no-ops when unconfigured) so this is always safe to call.
func Init(dsn, environment string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
}

// Flush blocks up to 2s draining any buffered events, mirroring the
// teacher's deferred sentry.Flush at process shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// CaptureException reports err if it is non-nil.
func CaptureException(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
