package cli

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/ardnew/xdl/cli/cmd"
	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

// resolve returns a [kong.ConfigurationLoader] for configuration files
// written as xdl scripts.
//
// The script runs in a sandbox interpreter with no builtins, so it can only
// assign constants and compute with operators. Each global variable it
// leaves behind resolves the flag of the same name, with hyphens written as
// underscores:
//
//	; xdl configuration
//	LOG_LEVEL = 'debug'
//	LOG_PRETTY = 0
//	MAX_DEPTH = 2 * 256
//	INCLUDE = ['/opt/xdl/lib', '~/pro']
//
// Numbers are passed to kong as their decimal text. A boolean flag is true
// when its number is nonzero. Command-line flags override config file
// values. A script that fails to parse or run is ignored with a warning.
func resolve(ctx context.Context, path string) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		vars, err := evalConfig(ctx, r)
		if err != nil {
			log.WarnContext(ctx, "config ignored",
				slog.String("path", path),
				slog.Any("error", err),
			)

			return config{}, nil
		}

		log.TraceContext(ctx, "config loaded",
			slog.String("path", path),
			slog.Int("variable_count", len(vars)),
		)

		return vars, nil
	}
}

// evalConfig runs a configuration script and returns its globals in native
// form.
func evalConfig(ctx context.Context, r io.Reader) (config, error) {
	prog, err := lang.ParseReader(ctx, r, lang.WithLogger(log.Default()))
	if err != nil {
		return nil, err
	}

	in := lang.NewInterpreter(
		lang.WithRegistry(lang.NewTable()),
		lang.WithLogger(log.Default()),
	)

	if err := in.Execute(ctx, prog); err != nil {
		return nil, err
	}

	return config(in.Globals().ToMap()), nil
}

// config implements [kong.Resolver] over configuration variables keyed by
// canonical name.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	value, ok := r[cmd.ConfigName(flag.Name)]
	if !ok {
		// Not found - return nil to let kong use defaults
		return nil, nil
	}

	if flag.IsBool() {
		return truth(value), nil
	}

	return flagValue(value), nil
}

// flagValue converts a native script value to the form kong decodes: text
// for numbers, and lists of the same.
func flagValue(v any) any {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = flagValue(e)
		}

		return out
	}

	return v
}

func truth(v any) any {
	switch x := v.(type) {
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
	}

	return v
}
