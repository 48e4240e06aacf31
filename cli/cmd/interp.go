package cmd

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

// Interp holds the flags shared by every command that executes scripts.
type Interp struct {
	Define   []string `help:"Bind variable NAME to the value of expression EXPR before running" placeholder:"NAME=EXPR" short:"D"`
	Include  []string `help:"Search directory for @file includes, ahead of $XDL_PATH"          placeholder:"DIR"       short:"I" type:"path"`
	MaxDepth int      `default:"${maxDepth}" help:"Maximum nesting of routine calls"`
}

// New returns an interpreter configured by the flags, writing PRINT output
// to out, with every definition already bound in its global environment.
func (f *Interp) New(ctx context.Context, out io.Writer) (*lang.Interpreter, error) {
	depth := f.MaxDepth
	if depth <= 0 {
		depth = lang.DefaultMaxDepth
	}

	path := lang.SearchPath(f.Include...)

	log.DebugContext(ctx, "interpreter",
		slog.Int("max_depth", depth),
		slog.Any("path", path),
		slog.Int("defines", len(f.Define)),
	)

	in := lang.NewInterpreter(
		lang.WithLogger(log.Default()),
		lang.WithOutput(out),
		lang.WithMaxDepth(depth),
		lang.WithSearchPath(path...),
	)

	if err := define(ctx, in.Globals(), f.Define...); err != nil {
		return nil, err
	}

	return in, nil
}

// define evaluates each NAME=EXPR as an expr-lang expression and binds the
// result in env. Earlier definitions are visible to later expressions under
// both their given and canonical spelling. A bare NAME binds 1.
func define(ctx context.Context, env *lang.Environment, defs ...string) error {
	vars := make(map[string]any, 2*len(defs))

	for _, def := range defs {
		name, src, ok := strings.Cut(def, "=")
		name = strings.TrimSpace(name)

		if !ok {
			src = "1"
		}

		if !isIdentifier(name) {
			return ErrDefine.With(slog.String("define", def))
		}

		prog, err := expr.Compile(src, expr.Env(vars))
		if err != nil {
			return ErrDefine.With(slog.String("define", def)).Wrap(err)
		}

		out, err := expr.Run(prog, vars)
		if err != nil {
			return ErrDefine.With(slog.String("define", def)).Wrap(err)
		}

		v, err := lang.FromNative(out)
		if err != nil {
			return ErrDefine.With(slog.String("define", def)).Wrap(err)
		}

		env.Set(name, v)

		vars[name] = out
		vars[lang.Canonical(name)] = out

		log.DebugContext(ctx, "define",
			slog.String("name", lang.Canonical(name)),
			slog.String("type", v.Type().String()),
		)
	}

	return nil
}

// isIdentifier reports whether name lexes as exactly one identifier.
func isIdentifier(name string) bool {
	toks, err := lang.Tokenize(name)
	if err != nil || len(toks) != 2 {
		return false
	}

	return toks[0].Kind == lang.Identifier && toks[1].Kind == lang.EOF
}
