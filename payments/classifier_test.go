package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cosmasken/paymebro-backend-sub000/payments/faketest"
)

// Property 6: a retryable error three times then success drives exactly four
// invocations and sleeps approximately 1s, 2s, 4s between attempts.
func TestClassifier_RetryThenSucceed(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)

	p := &Payment{Reference: "K"}
	attempts := 0
	err := c.ExecuteWithRetry(context.Background(), p, "get_transaction", func(ctx context.Context) error {
		attempts++
		if attempts <= 3 {
			return Classify(KindNetworkTimeout, "", errors.New("timeout"), p)
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}, sleeper.Durations())
}

// A non-retryable classified error returns immediately without sleeping.
func TestClassifier_NonRetryableStopsImmediately(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)

	p := &Payment{Reference: "K"}
	attempts := 0
	err := c.ExecuteWithRetry(context.Background(), p, "validate", func(ctx context.Context) error {
		attempts++
		return Classify(KindAmountTooLow, "", errors.New("too low"), p)
	})

	require.Error(t, err)
	require.Equal(t, 1, attempts)
	require.Empty(t, sleeper.Durations())
}

// Exhausting MaxRetries on a retryable kind still returns the classified
// error rather than retrying forever.
func TestClassifier_ExhaustsMaxRetries(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)

	p := &Payment{Reference: "K"}
	attempts := 0
	err := c.ExecuteWithRetry(context.Background(), p, "get_transaction", func(ctx context.Context) error {
		attempts++
		return Classify(KindRPCConnectionFailed, "", errors.New("down"), p)
	})

	ce, ok := AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, KindRPCConnectionFailed, ce.Kind)
	require.Equal(t, 4, attempts) // initial attempt + 3 retries
	require.Len(t, sleeper.Durations(), 3)
}

// An unwrapped, non-ClassifiedError failure is treated as a non-retryable
// ValidationException.
func TestClassifier_UnknownErrorIsValidationException(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)

	p := &Payment{Reference: "K"}
	err := c.ExecuteWithRetry(context.Background(), p, "weird", func(ctx context.Context) error {
		return errors.New("boom")
	})

	ce, ok := AsClassifiedError(err)
	require.True(t, ok)
	require.Equal(t, KindValidationException, ce.Kind)
}

// Different operation names on the same reference keep independent tallies.
func TestClassifier_TallyKeyedByOperation(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)
	p := &Payment{Reference: "K"}

	_ = c.ExecuteWithRetry(context.Background(), p, "op_a", func(ctx context.Context) error {
		return Classify(KindRPCConnectionFailed, "", errors.New("down"), p)
	})
	require.Equal(t, 3, len(sleeper.Durations()))

	// op_b on the same classifier and the same reference starts with its
	// own fresh tally, unaffected by op_a's exhausted one.
	attempts := 0
	err := c.ExecuteWithRetry(context.Background(), p, "op_b", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return Classify(KindNetworkTimeout, "", errors.New("timeout"), p)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestClassifier_PurgeClearsTally(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	c := NewClassifier(DefaultRetryConfig(), clock, sleeper)
	p := &Payment{Reference: "K"}

	key := tallyKey{reference: "K", operation: "op"}
	c.increment(key)
	require.Equal(t, 1, c.peek(key))

	c.Purge()
	require.Equal(t, 0, c.peek(key))
}

func TestClassifier_SweepTallyCacheRemovesStaleEntries(t *testing.T) {
	sleeper := faketest.NewSleeper()
	clock := faketest.NewClock(time.Unix(0, 0))
	cfg := DefaultRetryConfig()
	cfg.TallyHorizon = time.Minute
	c := NewClassifier(cfg, clock, sleeper)

	key := tallyKey{reference: "K", operation: "op"}
	c.increment(key)
	require.Equal(t, 1, c.peek(key))

	clock.Advance(2 * time.Minute)
	c.SweepTallyCache()
	require.Equal(t, 0, c.peek(key))
}
