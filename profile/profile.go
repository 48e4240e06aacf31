package profile

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/profile"
)

// Dir is the name of the directory, below the user cache directory, that
// receives profiles by default.
const Dir = "pprof"

//nolint:gochecknoglobals
var mode = map[string]func(*profile.Profile){
	"block":     profile.BlockProfile,
	"cpu":       profile.CPUProfile,
	"clock":     profile.ClockProfile,
	"goroutine": profile.GoroutineProfile,
	"mem":       profile.MemProfile,
	"allocs":    profile.MemProfileAllocs,
	"heap":      profile.MemProfileHeap,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// Modes returns the supported profiling modes in sorted order.
func Modes() []string { return slices.Sorted(maps.Keys(mode)) }

// Valid reports whether m names a profiling mode. The empty mode, which
// disables profiling, is valid.
func Valid(m string) bool {
	_, ok := mode[strings.ToLower(m)]

	return ok || m == ""
}

// Config functions return all supported profiling parameters.
type Config func() (mode, path string, quiet bool)

// Stopper ends a profile and flushes it to disk.
type Stopper interface{ Stop() }

// Make returns a Config with opts applied to an empty one.
func Make(opts ...func(Config) Config) Config {
	c := Config(func() (string, string, bool) { return "", "", false })
	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	m, path, quiet := c()

	return slog.GroupValue(
		slog.String("mode", m),
		slog.String("path", path),
		slog.Bool("quiet", quiet),
	)
}

// Start begins profiling and returns a Stopper that writes the profile
// named for the mode (cpu.pprof, mem.pprof, and so on) into the configured
// path. An empty or unknown mode starts nothing; Stop is always safe to
// call. Interrupt signals are left to the caller, which must call Stop.
func (c Config) Start() Stopper {
	m, path, quiet := c()

	fn, ok := mode[strings.ToLower(m)]
	if !ok {
		return ignore{}
	}

	opts := []func(*profile.Profile){fn, profile.NoShutdownHook}
	if path != "" {
		opts = append(opts, profile.ProfilePath(path))
	}

	if quiet {
		opts = append(opts, profile.Quiet)
	}

	return profile.Start(opts...)
}

// WithMode returns a functional option for setting a profiler's mode.
func WithMode(mode string) func(Config) Config {
	return func(c Config) Config {
		_, path, quiet := c()

		return func() (string, string, bool) { return mode, path, quiet }
	}
}

// WithPath returns a functional option for setting a profiler's output path.
func WithPath(path string) func(Config) Config {
	return func(c Config) Config {
		mode, _, quiet := c()

		return func() (string, string, bool) { return mode, path, quiet }
	}
}

// WithQuiet returns a functional option for setting a profiler's quiet flag.
func WithQuiet(quiet bool) func(Config) Config {
	return func(c Config) Config {
		mode, path, _ := c()

		return func() (string, string, bool) { return mode, path, quiet }
	}
}

type ignore struct{}

func (ignore) Stop() {}
