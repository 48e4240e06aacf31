package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

const defaultEditor = "vi"

// editor returns the command line of the user's editor: $VISUAL, then
// $EDITOR, then vi.
func editor() []string {
	cmd := strings.Fields(env.Str("VISUAL", env.Str("EDITOR", defaultEditor)))
	if len(cmd) == 0 {
		return []string{defaultEditor}
	}

	return cmd
}

// editCommand implements [tea.ExecCommand] for the edit-parse-retry loop. It
// writes source to a temp file, opens the user's editor, and parses the
// result. On a parse error the user is asked whether to edit again;
// declining returns [ErrEditDeclined]. An emptied file cancels the edit.
type editCommand struct {
	source  string
	ctxFunc func() context.Context
	logger  log.Logger

	// Set when Run returns nil after a successful parse.
	edited string
	prog   *lang.Program

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-parse-retry loop.
func (c *editCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp(os.TempDir(), "xdl-repl-*"+lang.ScriptExt)
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Chmod(0o600); err != nil {
		f.Close()

		return err
	}

	f.Close()

	content := c.source

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		data, err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath)
		if err != nil {
			return err
		}

		if strings.TrimSpace(data) == "" {
			return nil
		}

		prog, parseErr := lang.ParseString(ctx, data, lang.WithLogger(c.logger))

		c.logger.TraceContext(ctx, "editor parse attempt",
			slog.Int("content_length", len(data)),
			slog.Bool("success", parseErr == nil),
		)

		if parseErr == nil {
			c.edited, c.prog = data, prog

			return nil
		}

		fmt.Fprintf(c.stderr, "\n%s\n", parseErr)

		if snippet := snippetOf(parseErr, data); snippet != "" {
			fmt.Fprintln(c.stderr, snippet)
		}

		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}

		content = data
	}
}

// runEditor launches the user's editor on path and returns the edited file
// content.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) (string, error) {
	argv := append(editor(), path)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
