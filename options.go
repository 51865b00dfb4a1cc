package sxgeo

import "go.uber.org/zap"

type options struct {
	logger  *zap.Logger
	stripRU bool
}

// Option - configures a Client
type Option func(*options)

// WithLogger - logger for open/close events, zap.NewNop by default
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStripRussian - drop *_ru fields from lookup results
func WithStripRussian(strip bool) Option {
	return func(o *options) {
		o.stripRU = strip
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
