// Package cli contains the command line interface for xdl.
//
// # Usage
//
//	xdl [flags] [script ...]            run scripts (the default command)
//	xdl run [-D NAME=EXPR] [--dump json|yaml] [script ...]
//	xdl repl [--no-history] [script ...]
//	xdl fmt [--format native|json|yaml|ast|tokens] [source ...]
//	xdl init [--force]
//
// With no scripts, run reads standard input, or opens the REPL when standard
// input is a terminal.
//
// # Configuration
//
// Flag defaults are read from a configuration file, by default config in
// the user configuration directory (~/.config/xdl/config on Linux). The
// XDL_CONFIG environment variable or the --config flag selects another file.
//
// The file is an xdl script of assignments, run without builtins. Each
// variable sets the flag of the same name with hyphens written as
// underscores:
//
//	LOG_LEVEL = 'debug'
//	LOG_PRETTY = 0
//	MAX_DEPTH = 1024
//	INCLUDE = ['/opt/xdl/lib']
//
// xdl init writes the current flag values in this form. Command-line flags
// override the file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, none, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/xdl/pprof)
//
// # Examples
//
//	# Run two scripts in one session and dump the variables they leave
//	xdl run --dump yaml setup.pro analysis.pro
//
//	# Trace the interpreter while profiling CPU
//	xdl --log-level=trace --pprof-mode=cpu run model.pro
//
//	# Show the syntax tree of a script
//	xdl fmt --format ast model.pro
package cli
