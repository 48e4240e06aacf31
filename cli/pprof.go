package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/xdl/log"
	"github.com/ardnew/xdl/pkg"
	"github.com/ardnew/xdl/profile"
)

// pprofConfig profiles a whole xdl invocation, from the first script parsed
// to the last statement run or the REPL exiting.
type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Profile the interpreter"  placeholder:"${enum}" short:"p"`
	Dir  string `default:"${pprofDir}"                          help:"Profile output directory"                                 type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(pkg.CacheDir(), profile.Dir),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling options"}
}

// start begins profiling when --pprof-mode is set and returns the function
// that writes the profile. A profile directory that cannot be created turns
// profiling off with a warning rather than failing the run.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Mode == "" {
		return func() {}
	}

	if err := os.MkdirAll(f.Dir, pkg.DirMode); err != nil {
		log.WarnContext(ctx, "profiling disabled",
			slog.String("dir", f.Dir),
			slog.Any("error", err),
		)

		return func() {}
	}

	cfg := profile.Make(
		profile.WithMode(f.Mode),
		profile.WithPath(f.Dir),
		profile.WithQuiet(true),
	)

	log.DebugContext(ctx, "profiling", slog.Any("profile", cfg))

	profiler := cfg.Start()

	return func() {
		profiler.Stop()

		log.InfoContext(ctx, "profile written",
			slog.String("mode", f.Mode),
			slog.String("dir", f.Dir),
		)
	}
}
