package dns

import (
	"context"
	"time"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/retry"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
)

// ErrInvalidResponse marks provider answers missing required fields.
var ErrInvalidResponse = domain.ErrDNSError

type Provider = contract.DNSProvider

func recordTTL(ttl int) int {
	if ttl <= 0 {
		return constants.DefaultRecordTTL
	}
	return ttl
}

// call runs one SDK request after checking ctx, timing it under
// "<provider>.<op>".
func call[T any](ctx context.Context, provider, op string, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return logger.TimedResult(ctx, provider+"."+op, fn)
}

// query is call for idempotent lookups. With retries > 0, attempts rejected
// by the provider's rate limit are retried with backoff; other errors are
// returned at once. Writes go through call only.
func query[T any](ctx context.Context, provider, op string, retries int, throttled func(error) bool, fn func() (T, error), opts ...retry.Option) (T, error) {
	if retries <= 0 {
		return call(ctx, provider, op, fn)
	}
	opts = append([]retry.Option{
		retry.WithMaxAttempts(retries + 1),
		retry.WithInitialDelay(constants.ReadRetryInitialDelay),
		retry.WithMaxDelay(constants.ReadRetryMaxDelay),
		retry.WithMultiplier(constants.ReadRetryMultiplier),
		retry.WithIsRetryable(throttled),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			logger.FromContext(ctx).Warn("provider throttled, retrying",
				"call", provider+"."+op, "attempt", attempt, "delay", delay, "error", err)
		}),
	}, opts...)
	return retry.DoWithResult(ctx, func() (T, error) {
		return call(ctx, provider, op, fn)
	}, opts...)
}
