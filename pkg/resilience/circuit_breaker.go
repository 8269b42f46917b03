package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Circuit breaker defaults, applied by NewCircuitBreaker to zero-valued
// config fields.
const (
	DefaultMaxRequests           uint32 = 3
	DefaultInterval                     = 60 * time.Second
	DefaultTimeout                      = 30 * time.Second
	DefaultFailureThreshold      uint32 = 5
	DefaultFailureRatioThreshold        = 0.5
	DefaultMinRequestsToTrip     uint32 = 10
)

// ErrCircuitOpen wraps rejections so callers can match one sentinel no
// matter which breaker refused the call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures one named breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is how many probe requests a half-open breaker admits.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold trips the breaker after this many consecutive
	// failures.
	FailureThreshold uint32

	// FailureRatioThreshold trips the breaker once the failure ratio
	// reaches this value and MinRequestsToTrip requests have been seen.
	FailureRatioThreshold float64
	MinRequestsToTrip     uint32

	// OnStateChange, if set, runs after the state-change log line.
	OnStateChange func(name string, from, to gobreaker.State)
}

// CircuitBreaker wraps gobreaker with state-change logging.
type CircuitBreaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// NewCircuitBreaker builds a breaker, filling zero-valued config fields
// with the package defaults.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = DefaultMaxRequests
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}
	if config.FailureRatioThreshold == 0 {
		config.FailureRatioThreshold = DefaultFailureRatioThreshold
	}
	if config.MinRequestsToTrip == 0 {
		config.MinRequestsToTrip = DefaultMinRequestsToTrip
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= config.FailureThreshold {
				return true
			}
			if counts.Requests >= config.MinRequestsToTrip {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= config.FailureRatioThreshold
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
	}

	return &CircuitBreaker{
		cb:   gobreaker.NewCircuitBreaker(settings),
		name: config.Name,
	}
}

// Execute runs fn through the breaker. Rejections surface as ErrCircuitOpen.
func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
		}
		return err
	}
	return nil
}
