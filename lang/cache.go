package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// programCache stores parsed programs keyed by the xxh3 hash of their
// source text.
//
//nolint:gochecknoglobals
var programCache sync.Map

// state tracks the single parse of one source text.
type state struct {
	once sync.Once
	prog *Program
	err  error
}

// ParseReader parses all input read from r. Programs are cached by the
// content of their source, so a script included or run repeatedly is parsed
// once. The returned Program must not be modified.
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Program, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true))

	return parseCached(ctx, string(data), cfg)
}

func parseCached(ctx context.Context, src string, cfg config) (*Program, error) {
	hash := xxh3.HashString(src)
	key := strconv.FormatUint(hash, 36)

	value, hit := programCache.LoadOrStore(key, new(state))

	st, ok := value.(*state)
	if !ok {
		return nil, ErrReadInput.With(slog.String("reason", "invalid cache entry"))
	}

	cfg.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", strconv.FormatUint(hash, 16)),
		slog.Bool("cache_hit", hit))

	st.once.Do(func() {
		toks, err := Tokenize(src)
		if err != nil {
			st.err = err

			return
		}

		prog, err := parse(ctx, toks, cfg.logger)
		if err != nil {
			st.err = WrapError(err).With(slog.Int("source_length", len(src)))

			return
		}

		prog.source = src
		st.prog = prog
	})

	if st.err != nil {
		// A cancelled parse must not poison the entry.
		if ctx.Err() != nil {
			programCache.Delete(key)
		}

		return nil, st.err
	}

	return st.prog, nil
}

// ClearCache removes all cached programs.
func ClearCache() {
	programCache.Range(func(k, _ any) bool {
		programCache.Delete(k)

		return true
	})
}
