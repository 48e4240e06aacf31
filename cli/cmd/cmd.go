package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// kongVar returns the kong variable name, or def when there is no kong
// context or the variable is unset.
func kongVar(ctx context.Context, name, def string) string {
	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return def
	}

	if v, ok := ktx.Model.Vars()[name]; ok {
		return v
	}

	return def
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// Source is one named script input.
type Source struct {
	Name string
	io.Reader
}

// LogValue implements slog.LogValuer.
func (s Source) LogValue() slog.Value { return slog.StringValue(s.Name) }

// Sources is an ordered list of opened script inputs.
type Sources []Source

// Close closes every source backed by a file other than stdin.
func (s Sources) Close() error {
	var first error

	for _, src := range s {
		if f, ok := src.Reader.(*os.File); ok && f != os.Stdin {
			if err := f.Close(); err != nil && first == nil {
				first = err
			}
		}
	}

	return first
}

// fileKey uniquely identifies a file by its device and inode numbers, or by
// its resolved path where the platform reports neither.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev  uint64
	ino  uint64
	path string
}

// openSources opens the named scripts in order. A file named more than once,
// through any path or symlink, is opened only at its first occurrence, and
// every "-" (or a path naming stdin itself) collapses into a single stdin
// source at the position of its first occurrence.
//
// An unreadable script fails the whole call.
func openSources(names []string) (Sources, error) {
	srcs := make(Sources, 0, len(names))
	seen := make(map[fileKey]struct{})

	stdinKey, hasStdinKey := fileKey{}, false
	if info, err := os.Stdin.Stat(); err == nil {
		stdinKey, hasStdinKey = makeFileKey(info)
	}

	stdinUsed := false

	for _, name := range names {
		if name == stdinSource {
			if !stdinUsed {
				stdinUsed = true

				srcs = append(srcs, Source{Name: "<stdin>", Reader: os.Stdin})
			}

			continue
		}

		file, key, err := openFile(name)
		if err != nil {
			_ = srcs.Close()

			return nil, ErrOpenScript.With(slog.String("script", name)).Wrap(err)
		}

		if hasStdinKey && key == stdinKey {
			file.Close()

			if !stdinUsed {
				stdinUsed = true

				srcs = append(srcs, Source{Name: "<stdin>", Reader: os.Stdin})
			}

			continue
		}

		if _, dup := seen[key]; dup {
			file.Close()

			continue
		}

		seen[key] = struct{}{}

		srcs = append(srcs, Source{Name: name, Reader: file})
	}

	return srcs, nil
}

// openFile resolves symlinks in path and opens the target.
func openFile(path string) (*os.File, fileKey, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fileKey{}, err
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fileKey{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fileKey{}, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()

		return nil, fileKey{}, err
	}

	key, ok := makeFileKey(info)
	if !ok {
		key = fileKey{path: resolved}
	}

	return file, key, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert // int32 on darwin
}

// isTerminal reports whether f is attached to an interactive terminal.
func isTerminal(f *os.File) bool {
	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
