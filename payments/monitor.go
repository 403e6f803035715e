package payments

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
)

// MonitorState is the Monitor Loop's own lifecycle (spec.md §4.7).
type MonitorState string

const (
	MonitorStopped MonitorState = "stopped"
	MonitorRunning MonitorState = "running"
)

// MonitorConfig tunes the Monitor Loop's cadence and batch size, all
// defaulted to the values spec.md §4.7 names.
type MonitorConfig struct {
	BatchSize       int
	CycleInterval   time.Duration
	TallySweep      time.Duration
	MaxConcurrency  int
	FallbackEnabled bool
}

// DefaultMonitorConfig matches spec.md §4.7's stated defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		BatchSize:      50,
		CycleInterval:  15 * time.Second,
		TallySweep:     5 * time.Minute,
		MaxConcurrency: 8,
	}
}

// Monitor is the Monitor Loop (spec.md §4.7): a periodic scheduler that
// selects a bounded batch of pending payments and drives each through
// Locator -> Validator -> Confirmer, deduplicating concurrent cycles on the
// same payment via the repository's conditional confirm.
type Monitor struct {
	cfg        MonitorConfig
	repo       Repository
	locator    *Locator
	nativeVal  *NativeValidator
	tokenVal   *TokenValidator
	confirmer  *Confirmer
	classifier *Classifier
	fallback   *Fallback

	mu      sync.Mutex
	state   MonitorState
	cancel  context.CancelFunc
	done    chan struct{}
	inFlight map[string]struct{}
	inFlightMu sync.Mutex
}

// NewMonitor wires the Monitor Loop's collaborators. fallback may be nil,
// in which case native-path fallback is never attempted and high-severity
// failures go straight to MarkFailed once retries are exhausted.
func NewMonitor(
	cfg MonitorConfig,
	repo Repository,
	ledger LedgerClient,
	confirmer *Confirmer,
	classifier *Classifier,
	fallback *Fallback,
) *Monitor {
	if cfg.BatchSize <= 0 {
		cfg = DefaultMonitorConfig()
	}
	return &Monitor{
		cfg:        cfg,
		repo:       repo,
		locator:    NewLocator(ledger),
		nativeVal:  NewNativeValidator(ledger),
		tokenVal:   NewTokenValidator(ledger),
		confirmer:  confirmer,
		classifier: classifier,
		fallback:   fallback,
		state:      MonitorStopped,
		inFlight:   make(map[string]struct{}),
	}
}

// Start transitions Stopped -> Running and begins the two tickers: the main
// cycle and the tally-cache sweep (spec.md §4.7).
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.state == MonitorRunning {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state = MonitorRunning
	m.done = make(chan struct{})
	m.mu.Unlock()

	logger := logging.Module(ctx, "monitor")
	logger.Info().Dur("cycle_interval", m.cfg.CycleInterval).Int("batch_size", m.cfg.BatchSize).Msg("monitor starting")

	go m.run(runCtx)
}

// Stop clears both tickers, purges the tally cache, and transitions back to
// Stopped. New ledger calls cease promptly; in-flight calls are allowed to
// finish or hit their own context deadline.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state != MonitorRunning {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.state = MonitorStopped
	m.mu.Unlock()

	cancel()
	<-done
	if m.classifier != nil {
		m.classifier.Purge()
	}
}

// State returns the Monitor's current lifecycle state.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	cycleTicker := time.NewTicker(m.cfg.CycleInterval)
	defer cycleTicker.Stop()
	sweepTicker := time.NewTicker(m.cfg.TallySweep)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cycleTicker.C:
			m.runCycle(ctx)
		case <-sweepTicker.C:
			if m.classifier != nil {
				m.classifier.SweepTallyCache()
			}
		}
	}
}

// runCycle implements one Monitor cycle, spec.md §4.7.
func (m *Monitor) runCycle(ctx context.Context) {
	logger := logging.Module(ctx, "monitor")

	pending, err := m.repo.ListPending(ctx, m.cfg.BatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list pending payments")
		return
	}
	if len(pending) == 0 {
		return
	}

	concurrency := m.cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	kindCounts := make(map[Kind]int)
	var countsMu sync.Mutex

	for _, p := range pending {
		p := p
		if !m.claim(p.Reference) {
			continue
		}
		group.Go(func() error {
			defer m.release(p.Reference)
			if groupCtx.Err() != nil {
				return nil
			}
			m.checkConfirmation(groupCtx, p)
			countsMu.Lock()
			kindCounts[p.Kind]++
			countsMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	logger.Info().
		Int("native", kindCounts[KindNative]).
		Int("token", kindCounts[KindToken]).
		Int("batch_size", len(pending)).
		Msg("monitor cycle completed")
}

// claim and release implement the in-process half of cross-cycle
// deduplication: a payment already being checked by an overlapping cycle is
// skipped, not queued twice. The durable, authoritative dedup is still the
// conditional status-flip in Repository.ConfirmIfPending (spec.md §4.8).
func (m *Monitor) claim(reference string) bool {
	m.inFlightMu.Lock()
	defer m.inFlightMu.Unlock()
	if _, ok := m.inFlight[reference]; ok {
		return false
	}
	m.inFlight[reference] = struct{}{}
	return true
}

func (m *Monitor) release(reference string) {
	m.inFlightMu.Lock()
	defer m.inFlightMu.Unlock()
	delete(m.inFlight, reference)
}

// checkConfirmation is idempotent and safe to invoke concurrently: it never
// writes unless the prior read shows the payment still pending (spec.md
// §4.7). It is the per-payment Locator -> Validator -> Confirmer sequence.
func (m *Monitor) checkConfirmation(ctx context.Context, p *Payment) {
	logger := logging.Module(ctx, "monitor")

	current, err := m.repo.Get(ctx, p.Reference)
	if err != nil {
		logger.Warn().Err(err).Str("reference", p.Reference).Msg("failed to re-fetch payment before check")
		return
	}
	if current == nil || current.Status.IsTerminal() {
		return
	}

	var signature string
	opName := "locate"
	err = m.classifier.ExecuteWithRetry(ctx, current, opName, func(opCtx context.Context) error {
		sig, locErr := m.locator.Locate(opCtx, current)
		if locErr == ErrNotYetPresent {
			return nil
		}
		if locErr != nil {
			return locErr
		}
		signature = sig
		return nil
	})
	if err != nil {
		m.handleClassifiedFailure(ctx, current, err, "")
		return
	}
	if signature == "" {
		return // not yet present; try again next cycle
	}

	var result *ValidationResult
	opName = "validate"
	err = m.classifier.ExecuteWithRetry(ctx, current, opName, func(opCtx context.Context) error {
		if current.Kind == KindNative {
			res, valErr := m.nativeVal.Validate(opCtx, current, signature)
			if valErr != nil {
				return valErr
			}
			result = res
			return nil
		}
		return m.tokenVal.Validate(opCtx, current, signature)
	})
	if err != nil {
		m.handleClassifiedFailure(ctx, current, err, signature)
		return
	}

	if confirmErr := m.confirmer.Confirm(ctx, current, signature, result); confirmErr != nil {
		logger.Error().Err(confirmErr).Str("reference", current.Reference).Msg("confirmation fan-out failed")
	}
}

// handleClassifiedFailure implements the give-up/fallback split: a high-
// severity, fallback-eligible native-path failure gets one fallback
// attempt (if wired); everything else goes to MarkFailed.
func (m *Monitor) handleClassifiedFailure(ctx context.Context, p *Payment, cause error, signature string) {
	logger := logging.Module(ctx, "monitor")

	if signature != "" && p.Kind == KindNative && m.fallback != nil && m.cfg.FallbackEnabled && Eligible(cause) {
		result, review, fbErr := m.fallback.Attempt(ctx, p, signature)
		if fbErr == nil && result != nil {
			if confirmErr := m.confirmer.Confirm(ctx, p, signature, result); confirmErr != nil {
				logger.Error().Err(confirmErr).Str("reference", p.Reference).Msg("fallback confirmation fan-out failed")
			}
			return
		}
		if review != nil {
			logger.Warn().
				Str("reference", review.Reference).
				Str("signature", review.Signature).
				Str("reason", review.Reason).
				Msg("manual review required")
			return
		}
	}

	if err := m.confirmer.MarkFailed(ctx, p); err != nil {
		logger.Error().Err(err).Str("reference", p.Reference).Msg("failed to mark payment failed after exhausting retries")
	}
}
