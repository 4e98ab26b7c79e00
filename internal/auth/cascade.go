package auth

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/clock"
)

// Cascade resolves auth headers by consulting the cache and then trying
// each strategy in priority order. Headers never fails: the terminal
// static fallback guarantees a result.
type Cascade struct {
	cache     *FileCache
	providers []TokenProvider
	fallback  *StaticProvider
	ttl       time.Duration
	clock     clock.Clock
	logger    *zap.Logger
}

// NewCascade assembles the acquisition chain. providers are the dynamic
// strategies in priority order; fallback closes the chain.
func NewCascade(
	cache *FileCache,
	providers []TokenProvider,
	fallback *StaticProvider,
	ttl time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *Cascade {
	return &Cascade{
		cache:     cache,
		providers: providers,
		fallback:  fallback,
		ttl:       ttl,
		clock:     clk,
		logger:    logger,
	}
}

// Headers returns a ready-to-use header set for the upstream API. A fresh
// cached credential short-circuits every strategy; otherwise the first
// successful strategy wins and is persisted before use.
func (c *Cascade) Headers(ctx context.Context) http.Header {
	if cred, ok := c.cache.Load(); ok {
		age := c.clock.Now().Sub(cred.AcquiredAt)
		if Fresh(cred, c.ttl, c.clock.Now()) {
			c.logger.Debug("using cached credential",
				zap.Duration("age", age),
				zap.Duration("ttl", c.ttl))
			return Headers(cred)
		}
		c.logger.Info("cached credential is stale, re-acquiring",
			zap.Duration("age", age))
	}

	for _, provider := range c.providers {
		cred, err := c.acquire(ctx, provider)
		if err != nil {
			c.logger.Warn("token strategy failed",
				zap.String("strategy", provider.Name()),
				zap.Error(err))
			strategyFailures.WithLabelValues(provider.Name()).Inc()
			continue
		}
		cred.EnrichOwnerID()
		if err := c.cache.Save(cred); err != nil {
			c.logger.Warn("persist credential failed",
				zap.String("strategy", provider.Name()),
				zap.Error(err))
		}
		c.logger.Info("credential acquired",
			zap.String("strategy", provider.Name()),
			zap.String("token_prefix", tokenPrefix(cred.Token)))
		strategySuccesses.WithLabelValues(provider.Name()).Inc()
		return Headers(cred)
	}

	c.logger.Warn("all token strategies failed, using static fallback credential")
	cred, _ := c.fallback.Acquire(ctx)
	strategySuccesses.WithLabelValues(c.fallback.Name()).Inc()
	return Headers(cred)
}

// acquire shields the cascade from a panicking strategy; a strategy crash
// is demoted to a normal failure.
func (c *Cascade) acquire(ctx context.Context, provider TokenProvider) (cred Credential, err error) {
	defer func() {
		if r := recover(); r != nil {
			cred = Credential{}
			err = &strategyPanicError{strategy: provider.Name(), value: r}
		}
	}()
	return provider.Acquire(ctx)
}

type strategyPanicError struct {
	strategy string
	value    any
}

func (e *strategyPanicError) Error() string {
	return "strategy " + e.strategy + " panicked"
}

func tokenPrefix(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
