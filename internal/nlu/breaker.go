package nlu

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBackendUnavailable is returned while the breaker is open.
var ErrBackendUnavailable = errors.New("nlu backend unavailable")

// Breaker short-circuits a classifier after consecutive failures, so a dead
// backend costs one fast error per message instead of a full timeout.
type Breaker struct {
	next Classifier
	cb   *gobreaker.CircuitBreaker
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before a trial call.
	OpenTimeout time.Duration
}

// NewBreaker wraps next. ErrNoPrediction and cancellation do not count as failures.
func NewBreaker(next Classifier, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	log := logger.With("component", "nlu_breaker")
	maxFailures := uint32(cfg.MaxFailures)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNoPrediction) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("NLU circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Parse(ctx context.Context, text string) (Prediction, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Parse(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Prediction{}, errors.Join(ErrBackendUnavailable, err)
	}
	if err != nil {
		return Prediction{}, err
	}
	return res.(Prediction), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
