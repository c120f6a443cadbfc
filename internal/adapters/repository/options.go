package repository

import (
	"time"

	"github.com/okian/leadscore/pkg/logger"
)

// Option applies a configuration option to the TemplateCache.
type Option func(*TemplateCache)

// WithCleanupInterval sets how often expired templates are purged.
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *TemplateCache) {
		if interval > 0 {
			c.cleanupInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *TemplateCache) {
		if l != nil {
			c.logger = l
		}
	}
}
