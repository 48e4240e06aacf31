// Package profile wraps [github.com/pkg/profile] to profile script runs.
//
// A [Config] is built from functional options and started around the work
// to be measured:
//
//	stop := profile.Make(
//		profile.WithMode("cpu"),
//		profile.WithPath(dir),
//		profile.WithQuiet(true),
//	).Start()
//	defer stop.Stop()
//
// The xdl command exposes this through --pprof-mode and --pprof-dir; the
// default directory is the [Dir] subdirectory of the user cache directory.
// Profile files are named for the mode (cpu.pprof, mem.pprof, trace.out)
// and are read with go tool pprof:
//
//	go tool pprof -http=: ~/.cache/xdl/pprof/cpu.pprof
//
// [Modes] lists the accepted modes: allocs, block, clock, cpu, goroutine,
// heap, mem, mutex, thread, and trace. Only one profile may run at a time.
package profile
