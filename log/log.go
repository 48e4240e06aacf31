package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Logger is the structured logger shared by the interpreter and the CLI.
// Copies share one configuration guarded by a mutex, so a Logger may be
// passed by value into interpreters and REPL models.
//
// The zero Logger discards everything. Interpreters built without
// [github.com/ardnew/xdl/lang.WithLogger] hold one and log nothing.
type Logger struct {
	*slog.Logger
	config
}

// Make returns a Logger writing to w with [DefaultLevel] and
// [DefaultFormat] unless opts say otherwise.
func Make(w io.Writer, opts ...Option) Logger {
	return build(makeConfig(w, opts...))
}

func build(cfg config) Logger {
	return Logger{config: cfg, Logger: slog.New(cfg.handler())}
}

// Wrap returns a Logger configured like l with opts applied on top, such as
// raising the level for one script run. Attributes from [Logger.With] are
// dropped.
func (l Logger) Wrap(opts ...Option) Logger {
	unlock := l.rlock()
	defer unlock()

	return build(l.clone(opts...))
}

// With returns a Logger that adds attrs to every record, for example the
// name of the script being run.
func (l Logger) With(attrs ...slog.Attr) Logger {
	if l.Logger == nil {
		return l
	}

	unlock := l.rlock()
	cfg := l.clone()

	unlock()

	return Logger{config: cfg, Logger: slog.New(l.Handler().WithAttrs(attrs))}
}

func (l *Logger) rlock() (unlock func()) {
	if l.mutex == nil {
		l.mutex = &sync.RWMutex{}
	}

	l.mutex.RLock()

	return l.mutex.RUnlock
}

// Level reports the minimum level written.
func (l Logger) Level() Level {
	if l.Logger == nil {
		return DefaultLevel
	}

	defer l.rlock()()

	return l.level
}

// Format reports the output encoding.
func (l Logger) Format() Format {
	if l.Logger == nil {
		return DefaultFormat
	}

	defer l.rlock()()

	return l.format
}

// Enabled reports whether a record at level would be written. The
// evaluator checks it before building trace attributes for each builtin
// call.
func (l Logger) Enabled(ctx context.Context, level Level) bool {
	return l.Logger != nil && l.Logger.Enabled(ctx, slog.Level(level))
}

// TraceContext logs below debug: tokens, statements and builtin calls.
func (l Logger) TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelTrace, msg, attrs)
}

// DebugContext logs at [LevelDebug].
func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelDebug, msg, attrs)
}

// InfoContext logs at [LevelInfo].
func (l Logger) InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelInfo, msg, attrs)
}

// WarnContext logs at [LevelWarn], the default threshold.
func (l Logger) WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelWarn, msg, attrs)
}

// ErrorContext logs at [LevelError].
func (l Logger) ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelError, msg, attrs)
}

// Trace is TraceContext with [DefaultContextProvider].
func (l Logger) Trace(msg string, attrs ...slog.Attr) {
	l.emit(DefaultContextProvider(), LevelTrace, msg, attrs)
}

// Debug is DebugContext with [DefaultContextProvider].
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.emit(DefaultContextProvider(), LevelDebug, msg, attrs)
}

// Info is InfoContext with [DefaultContextProvider].
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.emit(DefaultContextProvider(), LevelInfo, msg, attrs)
}

// Warn is WarnContext with [DefaultContextProvider].
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.emit(DefaultContextProvider(), LevelWarn, msg, attrs)
}

// Error is ErrorContext with [DefaultContextProvider].
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.emit(DefaultContextProvider(), LevelError, msg, attrs)
}

// emitSkip counts runtime.Callers, emit, and the exported method, so the
// recorded source is the line that asked to log. Package-level functions
// call emit directly for the same depth.
const emitSkip = 3

func (l Logger) emit(ctx context.Context, level Level, msg string, attrs []slog.Attr) {
	if l.Logger == nil {
		return
	}

	defer l.rlock()()

	if !l.Logger.Enabled(ctx, slog.Level(level)) {
		return
	}

	var pc [1]uintptr

	runtime.Callers(emitSkip, pc[:])

	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pc[0])
	r.AddAttrs(attrs...)

	_ = l.Handler().Handle(ctx, r)
}
