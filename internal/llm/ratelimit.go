package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
)

// NewRequestLimiter paces requests to requestsPerMinute with a burst of one.
// A non-positive value returns nil, which disables pacing.
func NewRequestLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
}

// RateLimitedCall waits for limiter approval and then makes exactly one call.
// Failed calls are never retried; a rate limit response from the provider is reported as is.
func RateLimitedCall[T any](ctx context.Context, limiter *rate.Limiter, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	result, err := fn(ctx)
	if err != nil && isRateLimitError(err) {
		log.Warn("Transcription service rejected the request with a rate limit error: %v", err)
	}
	return result, err
}

// isRateLimitError checks if an error looks like a 429 from the provider
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "too many requests", "resource_exhausted"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

type rateLimitedTranscriber struct {
	next    Transcriber
	limiter *rate.Limiter
	log     logger.Logger
}

// WithRateLimit wraps t so every request waits on limiter first. A nil limiter returns t unchanged.
func WithRateLimit(t Transcriber, limiter *rate.Limiter, log logger.Logger) Transcriber {
	if limiter == nil {
		return t
	}
	return &rateLimitedTranscriber{next: t, limiter: limiter, log: log}
}

func (r *rateLimitedTranscriber) Transcribe(ctx context.Context, image Image) (string, error) {
	return RateLimitedCall(ctx, r.limiter, r.log, func(ctx context.Context) (string, error) {
		return r.next.Transcribe(ctx, image)
	})
}
