package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for breaker state tracking.
var (
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chembl_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
	})

	breakerOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chembl_breaker_opened_total",
		Help: "Total number of transitions into the open state",
	})

	breakerDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chembl_breaker_denied_total",
		Help: "Total number of requests denied while the breaker was open",
	})
)

// ErrOpen is the sentinel matched by errors.Is for breaker-open denials.
var ErrOpen = errors.New("circuit breaker open")

// OpenError is returned by Allow while the breaker is open. It carries the
// remaining cooldown so callers can surface a retry-after hint.
type OpenError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open (retry after %s)", e.RetryAfter)
}

// Is reports ErrOpen equivalence for errors.Is.
func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Config holds breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker open.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before allowing a
	// half-open probe.
	Cooldown time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker gates upstream requests based on recent failure history.
type Breaker struct {
	config Config
	store  StateStore
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a breaker with the given state store. A nil store defaults to
// an in-memory store.
func New(cfg Config, store StateStore) (*Breaker, error) {
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("breaker: failure threshold must be > 0 (got %d)", cfg.FailureThreshold)
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("breaker: cooldown must be > 0 (got %s)", cfg.Cooldown)
	}
	if store == nil {
		store = NewMemoryStore()
	}

	return &Breaker{
		config: cfg,
		store:  store,
		logger: log.With().Str("component", "breaker").Logger(),
		now:    time.Now,
	}, nil
}

// Allow reports whether a request may proceed. It returns nil when allowed,
// an *OpenError while the breaker is open, or a wrapped store error.
func (b *Breaker) Allow(ctx context.Context) error {
	snap, err := b.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("breaker state load: %w", err)
	}

	switch snap.State {
	case StateOpen:
		remaining := snap.RemainingCooldown(b.config.Cooldown, b.now())
		if remaining > 0 {
			breakerDeniedTotal.Inc()
			b.logger.Warn().
				Dur("retry_after", remaining).
				Msg("Request denied - circuit breaker open")
			return &OpenError{RetryAfter: remaining}
		}

		// Cooldown elapsed: allow one probe in half-open state.
		snap.State = StateHalfOpen
		if err := b.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("breaker state save: %w", err)
		}
		breakerState.Set(stateGaugeValue(StateHalfOpen))
		b.logger.Info().Msg("Circuit breaker half-open - allowing probe request")
		return nil

	default:
		return nil
	}
}

// RecordSuccess resets failure history and closes the breaker.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	snap, err := b.store.Load(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state load failed on success")
		return
	}

	if snap.State == StateClosed && snap.Failures == 0 {
		return
	}

	prev := snap.State
	snap = Snapshot{State: StateClosed}
	if err := b.store.Save(ctx, snap); err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state save failed on success")
		return
	}

	breakerState.Set(stateGaugeValue(StateClosed))
	if prev != StateClosed {
		b.logger.Info().
			Str("previous_state", string(prev)).
			Msg("Circuit breaker closed after successful request")
	}
}

// RecordFailure counts a failure and trips the breaker open when the
// threshold is reached. A failed half-open probe reopens immediately.
func (b *Breaker) RecordFailure(ctx context.Context) {
	snap, err := b.store.Load(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state load failed on failure")
		return
	}

	snap.Failures++
	if snap.State == StateHalfOpen || snap.Failures >= b.config.FailureThreshold {
		snap.State = StateOpen
		snap.OpenedAt = b.now()
		breakerOpenedTotal.Inc()
		b.logger.Error().
			Int("failures", snap.Failures).
			Dur("cooldown", b.config.Cooldown).
			Msg("Circuit breaker opened")
	}

	if err := b.store.Save(ctx, snap); err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state save failed on failure")
		return
	}
	breakerState.Set(stateGaugeValue(snap.State))
}

// SetClock overrides the time source (for testing).
func (b *Breaker) SetClock(now func() time.Time) {
	b.now = now
}
