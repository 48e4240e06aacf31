// Package cmd implements the xdl subcommands: run, fmt, init, and repl.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration script.
	ConfigIdentifier = "config"

	// MaxDepthIdentifier is the kong variable identifier containing the
	// default maximum routine call depth.
	MaxDepthIdentifier = "maxDepth"
)
