package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerBackend wraps a SearchBackend with circuit breaker protection.
// While the circuit is open, searches fail fast without reaching the provider.
// It never retries: each call makes at most one provider attempt.
type CircuitBreakerBackend struct {
	inner   SearchBackend
	breaker *gobreaker.CircuitBreaker[domain.SearchResponse]
}

// NewCircuitBreakerBackend wraps inner with a circuit breaker.
// Zero-valued settings fall back to defaults.
func NewCircuitBreakerBackend(inner SearchBackend, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerBackend {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[domain.SearchResponse](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: countsAsHealthy,
	})

	return &CircuitBreakerBackend{inner: inner, breaker: cb}
}

// countsAsHealthy decides whether an outcome says anything about provider
// health. Rejected credentials and bad requests are the caller's problem and
// caller cancellation is nobody's, so none of them trip the breaker.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var pse *ProviderStatusError
	if errors.As(err, &pse) {
		return pse.StatusCode < http.StatusInternalServerError && pse.StatusCode != http.StatusTooManyRequests
	}
	return false
}

func (b *CircuitBreakerBackend) Name() string { return b.inner.Name() }

// Search implements SearchBackend. Calls are routed through the circuit breaker.
func (b *CircuitBreakerBackend) Search(ctx context.Context, apiKey, query string, opts domain.SearchOptions) (domain.SearchResponse, error) {
	resp, err := b.breaker.Execute(func() (domain.SearchResponse, error) {
		return b.inner.Search(ctx, apiKey, query, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.SearchResponse{}, fmt.Errorf("%s provider unavailable: %w (%v)", b.inner.Name(), domain.ErrCircuitOpen, err)
	}
	return resp, err
}

// State returns the current circuit breaker state for monitoring.
func (b *CircuitBreakerBackend) State() gobreaker.State {
	return b.breaker.State()
}

var _ SearchBackend = (*CircuitBreakerBackend)(nil)
