package lang

import (
	"io"

	"github.com/ardnew/xdl/log"
)

// DefaultMaxDepth is the default maximum nesting of user routine calls.
const DefaultMaxDepth = 512

// config holds the settings shared by parsing and execution.
type config struct {
	logger   log.Logger
	registry Registry
	output   io.Writer
	maxDepth int
	path     []string
}

// Option configures parsing or execution behavior.
type Option func(*config)

// WithLogger sets the structured logger for trace-level debugging.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRegistry sets the table used to resolve builtin routines.
// A nil registry resolves nothing.
func WithRegistry(r Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithOutput sets the writer that PRINT and HELP write to.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithMaxDepth sets the maximum nesting of user routine calls.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// WithSearchPath sets the directories searched by @file includes.
func WithSearchPath(dirs ...string) Option {
	return func(c *config) {
		c.path = dirs
	}
}

// applyDefaults sets default option values.
func applyDefaults(c *config) {
	c.registry = Builtins()
	c.output = io.Discard
	c.maxDepth = DefaultMaxDepth
}

// applyOptions applies functional options to a config.
func applyOptions(c *config, opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func makeConfig(opts ...Option) config {
	var c config

	applyDefaults(&c)
	applyOptions(&c, opts...)

	if c.registry == nil {
		c.registry = NewTable()
	}

	if c.output == nil {
		c.output = io.Discard
	}

	return c
}
