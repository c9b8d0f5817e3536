package gateway

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"arbfind/internal/ports"
)

// sourcePipeline bundles one upstream source's resilience primitives: a
// retry policy composed with a circuit breaker into one execution pipeline
// (the pkg/http/client.go composition, generalized from *http.Response to
// any so every gateway operation can share one breaker per source), plus a
// rate limiter applied ahead of it.
type sourcePipeline struct {
	limiter  *rate.Limiter
	breaker  circuitbreaker.CircuitBreaker[any]
	pipeline failsafe.Executor[any]
}

func newSourcePipeline(cfg ports.GatewayConfig, sourceName string, health *healthTracker) *sourcePipeline {
	breaker := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(uint(maxInt(cfg.BreakerFailThreshold, 1))).
		WithDelay(cfg.BreakerOpenDuration).
		OnOpen(func(e circuitbreaker.StateChangedEvent) { health.onOpen(sourceName) }).
		OnHalfOpen(func(e circuitbreaker.StateChangedEvent) { health.onHalfOpen(sourceName) }).
		OnClose(func(e circuitbreaker.StateChangedEvent) { health.onClose(sourceName) }).
		Build()

	retryPolicy := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return err != nil }).
		WithBackoff(50*time.Millisecond, 1*time.Second).
		WithMaxRetries(2).
		Build()

	limit := rate.Limit(cfg.RequestsPerSecond)
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := maxInt(int(cfg.RequestsPerSecond), 1)

	return &sourcePipeline{
		limiter:  rate.NewLimiter(limit, burst),
		breaker:  breaker,
		pipeline: failsafe.With[any](retryPolicy, breaker),
	}
}

// execute paces the call behind the rate limiter, then runs fn through the
// retry+breaker pipeline, recording health on success/failure.
func (sp *sourcePipeline) execute(ctx context.Context, sourceName string, health *healthTracker, fn func(context.Context) (any, error)) (any, error) {
	if err := sp.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := sp.pipeline.GetWithExecution(func(exec failsafe.Execution[any]) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		health.recordFailure(sourceName)
		return nil, err
	}
	health.recordSuccess(sourceName)
	return v, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
