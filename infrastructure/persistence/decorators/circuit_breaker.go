package decorators

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/ports"
	"github.com/Widerk/shapesbonding/domain/core/entities"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// CircuitBreakerConfig holds configuration for the collection breaker
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig trips after 80% of at least five calls fail
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreakerCollection fails fast while the underlying store keeps
// failing. It never retries.
type CircuitBreakerCollection struct {
	inner   ports.RemoteCollection
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCircuitBreakerCollection wraps inner with a breaker
func NewCircuitBreakerCollection(inner ports.RemoteCollection, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerCollection {
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// caller mistakes say nothing about store health
			return err == nil || pkgerrors.IsValidation(err) || errors.Is(err, context.Canceled)
		},
	}
	return &CircuitBreakerCollection{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// State exposes the breaker state for readiness checks
func (c *CircuitBreakerCollection) State() gobreaker.State {
	return c.breaker.State()
}

func (c *CircuitBreakerCollection) Subscribe(ctx context.Context, onSnapshot func([]ports.Document), onError func(error)) (ports.Unsubscribe, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Subscribe(ctx, onSnapshot, onError)
	})
	if err != nil {
		return nil, c.translate(err)
	}
	unsubscribe, _ := res.(ports.Unsubscribe)
	return unsubscribe, nil
}

func (c *CircuitBreakerCollection) Upsert(ctx context.Context, id string, record entities.ProfileRecord) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.Upsert(ctx, id, record)
	})
	return c.translate(err)
}

func (c *CircuitBreakerCollection) Delete(ctx context.Context, id string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.inner.Delete(ctx, id)
	})
	return c.translate(err)
}

func (c *CircuitBreakerCollection) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.NewUnavailableError("profile-store").WithCause(err)
	}
	return err
}
