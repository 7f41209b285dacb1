package logger

import "go.uber.org/zap/zapcore"

// options holds optional construction parameters for a Logger.
type options struct {
	cores []zapcore.Core
}

// Option is a functional option for configuring Logger construction.
type Option func(*options)

// WithCores tees additional zapcore.Core sinks under the main core.
// Every log entry that passes a core's level check is delivered to it,
// which is how the mailalert batching handler attaches to the logger.
func WithCores(cores ...zapcore.Core) Option {
	return func(o *options) {
		o.cores = append(o.cores, cores...)
	}
}

func evalOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
