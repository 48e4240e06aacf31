// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// A [Logger] is created with [Make] and configured with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("Kitchen"),
//		log.WithCaller(true))
//
//	logger.Info("script loaded", slog.String("file", "demo.pro"))
//
// Levels run from [LevelTrace], which the interpreter uses for per-phase
// detail, through [LevelDebug], [LevelInfo], and [LevelWarn] to
// [LevelError]. Messages below the configured level are discarded.
//
// Output is either [FormatText] or [FormatJSON]. With [WithPretty], text
// lines are styled with lipgloss when written to a terminal, and JSON
// records are indented.
//
// The package-level functions ([Info], [DebugContext], and so on) write
// through a default logger on standard error, reconfigured with [Config].
// Functions without a context argument use [DefaultContextProvider].
//
// The zero [Logger] discards everything.
package log
