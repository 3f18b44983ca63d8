package llm

import (
	"context"
	"errors"
	"time"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/resilience"

	"go.uber.org/zap"
)

// Provider is a named completion backend.
type Provider interface {
	ports.CompletionGateway
	Name() string
}

// ResilientGateway retries transient provider failures with backoff inside a
// circuit breaker, and reports every call to metrics. Failures surface as
// upstream errors.
type ResilientGateway struct {
	provider Provider
	breaker  *resilience.Breaker
	policy   resilience.RetryPolicy
	metrics  ports.Metrics
	logger   *zap.Logger
}

func NewResilientGateway(provider Provider, maxAttempts int, metrics ports.Metrics, logger *zap.Logger) *ResilientGateway {
	policy := resilience.DefaultRetryPolicy()
	if maxAttempts > 0 {
		policy.MaxAttempts = maxAttempts
	}
	policy.Retryable = func(err error) bool {
		return !IsPermanent(err) &&
			!errors.Is(err, resilience.ErrCircuitOpen) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}

	return &ResilientGateway{
		provider: provider,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerConfig("completion-"+provider.Name()), logger),
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
	}
}

func (g *ResilientGateway) Complete(ctx context.Context, model string, messages []ports.CompletionMessage) (valueobjects.ReplyContent, error) {
	start := time.Now()
	var reply valueobjects.ReplyContent

	err := resilience.Retry(ctx, g.policy, func(ctx context.Context) error {
		result, err := g.breaker.Execute(func() (interface{}, error) {
			return g.provider.Complete(ctx, model, messages)
		})
		if err != nil {
			g.logger.Debug("Completion attempt failed",
				zap.String("provider", g.provider.Name()),
				zap.String("breaker", g.breaker.State()),
				zap.Error(err),
			)
			return err
		}
		reply = result.(valueobjects.ReplyContent)
		return nil
	})

	g.metrics.Completion(g.provider.Name(), time.Since(start), err)
	if err != nil {
		g.logger.Warn("Completion failed",
			zap.String("provider", g.provider.Name()),
			zap.String("model", model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return valueobjects.ReplyContent{}, pkgerrors.NewUpstreamError("completion", err)
	}
	return reply, nil
}
