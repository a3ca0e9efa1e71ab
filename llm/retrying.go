package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/retry"
)

// RetryingProvider wraps a Provider with bounded retries and a per-attempt timeout.
type RetryingProvider struct {
	next   Provider
	cfg    retry.Config
	logger *zap.Logger
}

// WithRetry wraps p. A nil logger disables attempt logging.
func WithRetry(p Provider, cfg retry.Config, logger *zap.Logger) *RetryingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{next: p, cfg: cfg, logger: logger}
}

func (r *RetryingProvider) Name() string { return r.next.Name() }

func (r *RetryingProvider) Complete(ctx context.Context, req Request) (string, error) {
	attempt := 0
	return retry.Do(ctx, r.cfg, func(ctx context.Context) (string, error) {
		attempt++
		text, err := r.next.Complete(ctx, req)
		if err != nil {
			r.logger.Warn("completion attempt failed",
				zap.String("provider", r.next.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return text, err
	})
}
