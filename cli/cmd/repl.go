package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ardnew/xdl/cli/cmd/repl"
	"github.com/ardnew/xdl/log"
)

// Repl starts an interactive session, optionally after running scripts whose
// variables and routines remain available at the prompt.
type Repl struct {
	Interp `embed:""`

	NoHistory bool     `help:"Do not read or write the history file"`
	Scripts   []string `arg:"" help:"Script files to run before the first prompt" name:"script" optional:""`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	// PRINT output is collected and written above the prompt.
	var out bytes.Buffer

	in, err := r.New(ctx, &out)
	if err != nil {
		return err
	}

	if len(r.Scripts) > 0 {
		err := runScripts(ctx, in, r.Scripts)

		_, _ = io.Copy(os.Stdout, &out)

		if err != nil {
			return err
		}
	}

	var history string
	if cache := kongVar(ctx, CacheIdentifier, ""); cache != "" && !r.NoHistory {
		history = filepath.Join(cache, repl.HistoryFile)
	}

	return repl.Run(ctx, in, &out,
		repl.WithHistory(history),
		repl.WithLogger(log.Default()),
	)
}
