package appcore

import (
	"github.com/joeycumines/logiface"
)

// appOptions holds configuration options for App construction.
type appOptions struct {
	logger        *logiface.Logger[logiface.Event]
	queueCapacity int
}

// Option configures an App instance.
type Option interface {
	applyApp(*appOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyAppFunc func(*appOptions) error
}

func (o *optionImpl) applyApp(opts *appOptions) error {
	return o.applyAppFunc(opts)
}

// WithLogger attaches a structured logger to the App. The runtime logs
// task panics, teardown failures and lifecycle transitions through it.
// When unset, logging is a no-op.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *appOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithQueueCapacity pre-sizes the task queue's backing buffers, avoiding
// growth allocations for bursts up to the given size. Zero or negative
// values leave the default (no pre-sizing).
func WithQueueCapacity(n int) Option {
	return &optionImpl{func(opts *appOptions) error {
		if n > 0 {
			opts.queueCapacity = n
		}
		return nil
	}}
}

// resolveOptions applies Option instances to appOptions.
func resolveOptions(opts []Option) (*appOptions, error) {
	cfg := &appOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyApp(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
