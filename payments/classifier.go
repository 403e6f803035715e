package payments

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
	"github.com/cosmasken/paymebro-backend-sub000/internal/reporting"
)

// RetryConfig tunes the Retry & Error Classifier (spec.md §4.6). The zero
// value is invalid; use DefaultRetryConfig.
type RetryConfig struct {
	Base       time.Duration
	Multiplier float64
	Cap        time.Duration
	MaxRetries int

	// TallyCapacity bounds the retry-tally map (spec.md §3 "Retry Tally").
	TallyCapacity int
	// TallyHorizon purges tally entries older than this on a sweep.
	TallyHorizon time.Duration
}

// DefaultRetryConfig matches the defaults named in spec.md §4.6.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Base:          time.Second,
		Multiplier:    2,
		Cap:           10 * time.Second,
		MaxRetries:    3,
		TallyCapacity: 10_000,
		TallyHorizon:  30 * time.Minute,
	}
}

// tallyKey identifies one (payment reference, operation) pair.
type tallyKey struct {
	reference string
	operation string
}

type tallyEntry struct {
	attempts   int
	lastTouch  time.Time
}

// Classifier implements the Retry & Error Classifier: it categorizes every
// error raised by a ledger/database call into {kind, severity, retryable}
// and drives bounded exponential backoff per (payment, operation).
//
// The tally map is the classifier's only mutable state and is guarded by a
// mutex with short critical sections, per spec.md §9's mutex discipline.
type Classifier struct {
	cfg     RetryConfig
	clock   Clock
	sleeper Sleeper

	mu    sync.Mutex
	tally map[tallyKey]*tallyEntry
}

// NewClassifier constructs a Classifier with the given config and injected
// Clock/Sleeper (spec.md §9 "singletons -> injected dependencies").
func NewClassifier(cfg RetryConfig, clock Clock, sleeper Sleeper) *Classifier {
	if clock == nil {
		clock = SystemClock{}
	}
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Classifier{
		cfg:     cfg,
		clock:   clock,
		sleeper: sleeper,
		tally:   make(map[tallyKey]*tallyEntry),
	}
}

// ClassifyCause turns a raw cause into an ErrorKind. Callers that already know
// the kind (e.g. the Validator, which returns typed sentinel errors) should
// classify directly; this helper exists for the generic ledger/database
// call sites in ExecuteWithRetry's callers.
func ClassifyCause(cause error) (ErrorKind, string) {
	if ce, ok := AsClassifiedError(cause); ok {
		return ce.Kind, ce.SubCode
	}
	return KindValidationException, ""
}

func (c *Classifier) nextDelay(attempts int) time.Duration {
	d := float64(c.cfg.Base) * math.Pow(c.cfg.Multiplier, float64(attempts))
	if d > float64(c.cfg.Cap) {
		d = float64(c.cfg.Cap)
	}
	return time.Duration(d)
}

// ExecuteWithRetry runs op, classifying any failure and retrying according
// to RetryConfig when the classified error is retryable and the per-
// (payment, operation) tally has not been exhausted (spec.md §4.6).
//
// op must return a *ClassifiedError (or wrap one) on failure; any other
// error is treated as KindValidationException (unexpected, non-retryable).
func (c *Classifier) ExecuteWithRetry(
	ctx context.Context,
	p *Payment,
	opName string,
	op func(ctx context.Context) error,
) error {
	logger := logging.Module(ctx, "classifier")
	key := tallyKey{reference: p.Reference, operation: opName}

	for {
		err := op(ctx)
		if err == nil {
			c.clear(key, logger)
			return nil
		}

		ce, ok := AsClassifiedError(err)
		if !ok {
			ce = Classify(KindValidationException, "", err, p)
		}

		attempts := c.peek(key)
		logger.Warn().
			Str("reference", p.Reference).
			Str("operation", opName).
			Str("error_kind", string(ce.Kind)).
			Str("severity", string(ce.Severity())).
			Bool("is_retryable", ce.Retryable()).
			Int("retry_attempt", attempts).
			Err(ce).
			Msg("operation failed")

		if ce.Severity() == SeverityCritical {
			reporting.CaptureException(ce)
		}

		if !ce.Retryable() || attempts >= c.cfg.MaxRetries {
			return ce
		}

		attempts = c.increment(key)
		delay := c.nextDelay(attempts - 1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleeper.Sleep(ctx, delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Classifier) peek(key tallyKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.tally[key]; ok {
		return e.attempts
	}
	return 0
}

func (c *Classifier) increment(key tallyKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tally[key]
	if !ok {
		if len(c.tally) >= c.cfg.TallyCapacity {
			c.purgeLocked()
		}
		e = &tallyEntry{}
		c.tally[key] = e
	}
	e.attempts++
	e.lastTouch = c.clock.Now()
	return e.attempts
}

func (c *Classifier) clear(key tallyKey, logger *zerolog.Logger) {
	c.mu.Lock()
	e, existed := c.tally[key]
	if existed {
		delete(c.tally, key)
	}
	c.mu.Unlock()

	if existed && e.attempts > 0 {
		logger.Info().
			Str("reference", key.reference).
			Str("operation", key.operation).
			Int("retry_attempt", e.attempts).
			Msg("operation recovered after retry")
	}
}

// purgeLocked drops the entire tally cache. Callers must hold c.mu.
// Acceptable per spec.md §4.6: subsequent monitor ticks re-establish state.
func (c *Classifier) purgeLocked() {
	c.tally = make(map[tallyKey]*tallyEntry)
}

// SweepTallyCache purges tally entries older than cfg.TallyHorizon. Invoked
// periodically by the Monitor Loop's tally-sweep ticker (spec.md §4.7).
func (c *Classifier) SweepTallyCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.clock.Now().Add(-c.cfg.TallyHorizon)
	for k, e := range c.tally {
		if e.lastTouch.Before(cutoff) {
			delete(c.tally, k)
		}
	}
}

// Purge drops the entire tally cache unconditionally (used on Monitor Stop).
func (c *Classifier) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
}
