package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

// Fmt parses scripts and writes them back in the chosen format.
type Fmt struct {
	Format string `default:"native" enum:"native,json,yaml,ast,tokens" help:"Output format: ${enum}" short:"F"`
	Indent int    `default:"2"                                          help:"Indent width for formatted output" short:"i"`

	Sources []string `arg:"" default:"-" help:"Source input files or '-' for stdin" name:"source" optional:""`

	out io.Writer
}

func (f *Fmt) output() io.Writer {
	if f.out != nil {
		return f.out
	}

	return os.Stdout
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	names := f.Sources
	if len(names) == 0 {
		names = []string{stdinSource}
	}

	srcs, err := openSources(names)
	if err != nil {
		return err
	}

	defer srcs.Close()

	for _, src := range srcs {
		if err := f.format(ctx, src); err != nil {
			return ErrFormat.With(
				slog.Any("source", src),
				slog.String("format", f.Format),
			).Wrap(err)
		}
	}

	return nil
}

func (f *Fmt) format(ctx context.Context, src Source) error {
	w := f.output()

	if f.Format == "tokens" {
		data, err := io.ReadAll(src)
		if err != nil {
			return lang.ErrReadInput.Wrap(err)
		}

		toks, err := lang.Tokenize(string(data))
		if err != nil {
			return err
		}

		return lang.FormatTokens(w, toks)
	}

	prog, err := lang.ParseReader(ctx, src, lang.WithLogger(log.Default()))
	if err != nil {
		return err
	}

	switch f.Format {
	case "json":
		return prog.FormatJSON(ctx, w, f.Indent)

	case "yaml":
		return prog.FormatYAML(ctx, w, f.Indent)

	case "ast":
		tp := treePrinter{w: w, unit: strings.Repeat(" ", max(f.Indent, 1))}
		tp.list(prog.ToMap()["program"], 0)

		return tp.err
	}

	return prog.Format(ctx, w, f.Indent)
}

// treePrinter writes the map form of a syntax tree as an indented outline,
// one node per line as "kind @line:col", with its scalar fields inline and
// its child nodes below.
type treePrinter struct {
	w    io.Writer
	unit string
	err  error
}

func (tp *treePrinter) line(depth int, format string, args ...any) {
	if tp.err != nil {
		return
	}

	_, tp.err = fmt.Fprintf(tp.w, strings.Repeat(tp.unit, depth)+format+"\n", args...)
}

func (tp *treePrinter) list(v any, depth int) {
	items, _ := v.([]any)
	for _, it := range items {
		tp.node(it, depth)
	}
}

func (tp *treePrinter) node(v any, depth int) {
	m, ok := v.(map[string]any)
	if !ok {
		tp.line(depth, "%v", v)

		return
	}

	var (
		head     strings.Builder
		children []string
	)

	if kind, ok := m["node"].(string); ok {
		head.WriteString(kind)
	}

	if pos, ok := m["pos"].(string); ok {
		head.WriteString(" @" + pos)
	}

	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch k {
		case "node", "pos":
			continue
		}

		switch x := m[k].(type) {
		case map[string]any, []any:
			children = append(children, k)
		default:
			fmt.Fprintf(&head, " %s=%v", k, x)
		}
	}

	tp.line(depth, "%s", strings.TrimSpace(head.String()))

	for _, k := range children {
		switch x := m[k].(type) {
		case map[string]any:
			tp.line(depth+1, "%s:", k)
			tp.node(x, depth+2)
		case []any:
			if len(x) == 0 {
				continue
			}

			tp.line(depth+1, "%s:", k)
			tp.list(x, depth+2)
		}
	}
}
