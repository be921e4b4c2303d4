package bootstrap

import (
	"github.com/buildtrack/patchhub/common/config"
	"github.com/buildtrack/patchhub/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB       bool
	skipQueue    bool
	customConfig *config.Config
	customLogger *logger.Logger
}

func defaultOptions() *options {
	return &options{}
}

// WithoutDB skips database initialization (tools, tests)
func WithoutDB() Option {
	return func(o *options) { o.skipDB = true }
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) { o.skipQueue = true }
}

// WithConfig supplies a pre-built configuration
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.customConfig = cfg }
}

// WithLogger supplies a pre-built logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.customLogger = log }
}
