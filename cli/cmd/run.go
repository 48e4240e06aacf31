package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

// Run executes scripts in order in a single interpreter, so variables and
// routines defined by one script are visible to the next.
type Run struct {
	Interp `embed:""`

	Dump   string `default:""  enum:",json,yaml" help:"Print the global environment after the last script (json or yaml)" placeholder:"FORMAT"`
	Indent int    `default:"2"                   help:"Indent width for --dump output"`

	Scripts []string `arg:"" help:"Script files to run, or '-' for stdin. With none, stdin is read, or the REPL opens when stdin is a terminal." name:"script" optional:""`

	out io.Writer
}

func (r *Run) output() io.Writer {
	if r.out != nil {
		return r.out
	}

	return os.Stdout
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	scripts := r.Scripts
	if len(scripts) == 0 {
		if isTerminal(os.Stdin) {
			log.DebugContext(ctx, "no scripts on a terminal, starting repl")

			return (&Repl{Interp: r.Interp}).Run(ctx)
		}

		scripts = []string{stdinSource}
	}

	in, err := r.New(ctx, r.output())
	if err != nil {
		return err
	}

	if err := runScripts(ctx, in, scripts); err != nil {
		return err
	}

	return r.dump(ctx, in.Globals())
}

func (r *Run) dump(ctx context.Context, env *lang.Environment) error {
	var err error

	switch r.Dump {
	case "":
		return nil

	case "json":
		err = env.FormatJSON(ctx, r.output(), r.Indent)

	case "yaml":
		err = env.FormatYAML(ctx, r.output(), r.Indent)
	}

	if err != nil {
		return ErrDump.With(slog.String("format", r.Dump)).Wrap(err)
	}

	return nil
}

// runScripts parses and executes each named script against in. The first
// failure stops the sequence.
func runScripts(ctx context.Context, in *lang.Interpreter, names []string) error {
	srcs, err := openSources(names)
	if err != nil {
		return err
	}

	defer srcs.Close()

	for _, src := range srcs {
		log.DebugContext(ctx, "run script", slog.Any("script", src))

		prog, err := lang.ParseReader(ctx, src, lang.WithLogger(log.Default()))
		if err != nil {
			return ErrRunScript.With(slog.Any("script", src)).Wrap(err)
		}

		if err := in.Execute(ctx, prog); err != nil {
			return ErrRunScript.With(slog.Any("script", src)).Wrap(err)
		}
	}

	return nil
}
