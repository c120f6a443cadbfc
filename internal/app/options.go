package service

import (
	"time"

	"github.com/okian/leadscore/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used for the report date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRenderer replaces the chart renderer.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithFiller replaces the template filler.
func WithFiller(f Filler) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.filler = f
		}
	}
}
