package repository

import (
	"bytes"
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// TemplateCache serves templates from memory for a fixed TTL and falls back
// to its source on a miss. Entries are keyed by URL, so pointing the service
// at a new template URL never returns the old blob. A TTL of zero or less
// disables caching and every call goes to the source.
//
// Concurrent misses for one URL share a single download. Callers get their
// own copy of the blob.
type TemplateCache struct {
	src             TemplateSource
	ttl             time.Duration
	cleanupInterval time.Duration
	cache           *gocache.Cache
	loading         singleflight.Group
	logger          logger.Logger
}

// NewTemplateCache wraps src with a TTL cache.
func NewTemplateCache(src TemplateSource, ttl time.Duration, opts ...Option) *TemplateCache {
	c := &TemplateCache{
		src:             src,
		ttl:             ttl,
		cleanupInterval: 10 * time.Minute,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Enabled() {
		c.cache = gocache.New(ttl, c.cleanupInterval)
	}
	return c
}

// Enabled reports whether templates are kept between calls.
func (c *TemplateCache) Enabled() bool {
	return c.ttl > 0
}

// DownloadTemplate returns the template at url.
func (c *TemplateCache) DownloadTemplate(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if c.src == nil {
		return nil, ErrNoSource
	}
	if !c.Enabled() {
		return c.src.DownloadTemplate(ctx, url)
	}

	if v, ok := c.cache.Get(url); ok {
		metrics.RecordTemplateCacheHit()
		return bytes.Clone(v.([]byte)), nil
	}
	metrics.RecordTemplateCacheMiss()

	v, err, shared := c.loading.Do(url, func() (any, error) {
		if v, ok := c.cache.Get(url); ok {
			return v, nil
		}
		blob, err := c.src.DownloadTemplate(ctx, url)
		if err != nil {
			return nil, err
		}
		c.cache.Set(url, blob, gocache.DefaultExpiration)
		c.logger.Debug(ctx, "template cached",
			logger.String("url", url),
			logger.Int("bytes", len(blob)),
			logger.Duration("ttl", c.ttl))
		return blob, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug(ctx, "template download shared", logger.String("url", url))
	}
	return bytes.Clone(v.([]byte)), nil
}
