package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
	"github.com/ardnew/xdl/pkg"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init writes the configuration script from the current flag values. Each
// flag becomes an assignment to its upper-cased name with hyphens replaced
// by underscores, so --log-level becomes LOG_LEVEL.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		panic("internal error: kong context undefined")
	}

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	file, err := os.Create(confPath)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}
	defer file.Close()

	fmt.Fprintf(file, "; %s %s configuration\n", pkg.Name, strings.TrimSpace(pkg.Version))

	prog := buildProgram(ktx)

	err = prog.Format(ctx, file, defaultConfigIndent)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
		slog.Int("settings", len(prog.Stmts)),
	)

	return nil
}

// ignoreFlags are flags never written to the configuration script.
//
//nolint:gochecknoglobals
var ignoreFlags = []string{"help", "version", "config", "dump", "indent", "pprof"}

// ConfigName returns the variable name a configuration script uses for the
// flag named flag.
func ConfigName(flag string) string {
	return lang.Canonical(strings.ReplaceAll(flag, "-", "_"))
}

// buildProgram constructs the configuration script from the global flags and
// the flags of the run command.
func buildProgram(ktx *kong.Context) *lang.Program {
	flags := slices.Clone(ktx.Model.Flags)

	for _, child := range ktx.Model.Children {
		if child.Name == "run" {
			flags = append(flags, child.Flags...)
		}
	}

	prog := new(lang.Program)
	seen := map[string]bool{}

	for _, flag := range flags {
		if flag.Hidden || seen[flag.Name] ||
			slices.ContainsFunc(ignoreFlags, func(s string) bool {
				return strings.HasPrefix(flag.Name, s)
			}) {
			continue
		}

		seen[flag.Name] = true

		val := flagExpr(ktx.FlagValue(flag))
		if val == nil {
			continue
		}

		prog.Stmts = append(prog.Stmts, &lang.AssignStmt{
			Target: &lang.Ident{Name: ConfigName(flag.Name)},
			Op:     "=",
			Value:  val,
		})
	}

	return prog
}

// flagExpr returns the literal expression for a flag value, or nil if the
// value is unset or empty.
func flagExpr(val any) lang.Expr {
	switch v := val.(type) {
	case nil:
		return nil

	case bool:
		if v {
			return intLit(1)
		}

		return intLit(0)

	case string:
		if v == "" {
			return nil
		}

		return &lang.StringLit{Value: v}

	case int:
		return intLit(int64(v))

	case int64:
		return intLit(v)

	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}

		return &lang.NumberLit{Kind: lang.Float, Key: s}

	case []string:
		if len(v) == 0 {
			return nil
		}

		elems := make([]lang.Expr, len(v))
		for i, s := range v {
			elems[i] = &lang.StringLit{Value: s}
		}

		return &lang.ArrayLit{Elems: elems}

	default:
		return &lang.StringLit{Value: fmt.Sprint(v)}
	}
}

func intLit(n int64) lang.Expr {
	s := strconv.FormatInt(n, 10)

	return &lang.NumberLit{Kind: lang.Int, Key: s}
}
