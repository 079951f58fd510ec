package imagehandler

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/secrets"
)

// SecretCache holds the signing secret for the lifetime of the process.
// Concurrent first loads may each fetch the secret, but only the first
// value stored is ever observed. A failed load leaves the cache empty so
// the next invocation tries again.
type SecretCache struct {
	logger  *zap.SugaredLogger
	metrics *Metrics
	store   secrets.Store
	name    string
	enabled bool

	value atomic.Pointer[string]
}

// NewSecretCache returns a cache reading parameter name from store. When
// enabled is false the cache never loads anything.
func NewSecretCache(store secrets.Store, name string, enabled bool, logger *zap.SugaredLogger, metrics *Metrics) *SecretCache {
	return &SecretCache{
		logger:  logger,
		metrics: metrics,
		store:   store,
		name:    name,
		enabled: enabled,
	}
}

// EnsureLoaded fetches the secret unless it is already cached or signing is
// disabled.
func (c *SecretCache) EnsureLoaded(ctx context.Context) error {
	if !c.enabled || c.value.Load() != nil {
		return nil
	}

	secret, err := c.store.GetParameter(ctx, c.name, true)
	if err != nil {
		c.metrics.recordSecretLoad("error")
		c.logger.Warnw("Could not load signing secret",
			"parameter", c.name,
			"error", err.Error(),
		)
		return fmt.Errorf("loading signing secret %s: %w", c.name, err)
	}

	if c.value.CompareAndSwap(nil, &secret) {
		c.metrics.recordSecretLoad("stored")
		c.logger.Infow("Loaded signing secret",
			"parameter", c.name,
		)
	} else {
		c.metrics.recordSecretLoad("discarded")
	}
	return nil
}

// Value returns the cached secret, or "" when none is loaded.
func (c *SecretCache) Value() string {
	if v := c.value.Load(); v != nil {
		return *v
	}
	return ""
}
