package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/xdl/cli/cmd"
	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/pkg"
)

// CLI is the top-level command-line interface for xdl.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Config  string           `default:"${config}" help:"Configuration file (env: ${configEnv})" type:"path"`
	Version kong.VersionFlag `help:"Print version and exit" short:"V"`

	Run  cmd.Run  `cmd:"" default:"withargs" help:"Run scripts (default command)"`
	Repl cmd.Repl `cmd:""                    help:"Start an interactive session"`
	Fmt  cmd.Fmt  `cmd:""                    help:"Format or dump scripts"`
	Init cmd.Init `cmd:""                    help:"Write the configuration file from current flags"`
}

// Run executes the xdl CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := pkg.MkdirAll(); err != nil {
		return err
	}

	configPath := scanConfig(args, pkg.ConfigFile())

	vars := kong.Vars{
		cmd.ConfigIdentifier:   configPath,
		cmd.CacheIdentifier:    pkg.CacheDir(),
		cmd.MaxDepthIdentifier: strconv.Itoa(lang.DefaultMaxDepth),
		"configEnv":            pkg.ConfigEnv,
		"version":              strings.TrimSpace(pkg.Version),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Configure the logger before kong runs the config resolver.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(resolve(ctx, configPath), configPath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}

// scanConfig returns the value of a --config flag in args, or def.
func scanConfig(args []string, def string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return def
		case arg == "--config" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}

	return def
}
