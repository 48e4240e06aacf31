package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ardnew/xdl/lang"
)

type testCLI struct {
	LogLevel  string   `default:"warn"`
	LogPretty bool     `default:"true"  negatable:""`
	Ratio     float64  `default:"0.5"`
	Tags      []string `default:"a,b"`
	Empty     string

	Run  Run  `cmd:""`
	Init Init `cmd:""`
}

func parseTestCLI(t *testing.T, confPath string, args ...string) (context.Context, *testCLI) {
	t.Helper()

	var cli testCLI

	parser, err := kong.New(&cli, kong.Vars{
		ConfigIdentifier:   confPath,
		MaxDepthIdentifier: strconv.Itoa(lang.DefaultMaxDepth),
	})
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		t.Fatal(err)
	}

	return WithContext(t.Context(), ktx), &cli
}

func TestInit_Run(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		exists  bool
		wantErr error
	}{
		{"create", false, false, nil},
		{"overwrite with force", true, true, nil},
		{"refuse without force", false, true, ErrFileExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")

			if tt.exists {
				if err := os.WriteFile(path, []byte("old = 1\n"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			ctx, _ := parseTestCLI(t, path, "init")

			err := (&Init{Force: tt.force}).Run(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrWriteConfig) {
					t.Errorf("got %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			if strings.Contains(string(data), "old") {
				t.Error("existing file was not replaced")
			}
		})
	}
}

func TestInit_ScriptEvaluates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	ctx, _ := parseTestCLI(t, path, "--log-level=debug", "--no-log-pretty", "init")

	if err := (&Init{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	in := lang.NewInterpreter(lang.WithRegistry(lang.NewTable()))
	if _, err := in.RunString(t.Context(), string(data)); err != nil {
		t.Fatalf("configuration script does not run: %v\n%s", err, data)
	}

	want := map[string]string{
		"LOG_LEVEL":  "debug",
		"LOG_PRETTY": "0",
		"RATIO":      "0.5",
		"TAGS":       "[a, b]",
		"MAX_DEPTH":  strconv.Itoa(lang.DefaultMaxDepth),
	}

	for name, w := range want {
		v, ok := in.Globals().Get(name)
		if !ok {
			t.Errorf("%s missing from\n%s", name, data)

			continue
		}

		if got := v.String(); got != w {
			t.Errorf("%s: got %q, want %q", name, got, w)
		}
	}

	for _, name := range []string{"EMPTY", "HELP", "DUMP", "INDENT", "DEFINE"} {
		if _, ok := in.Globals().Get(name); ok {
			t.Errorf("%s should not be written", name)
		}
	}
}

func TestConfigName(t *testing.T) {
	tests := map[string]string{
		"log-level": "LOG_LEVEL",
		"max-depth": "MAX_DEPTH",
		"include":   "INCLUDE",
	}

	for flag, want := range tests {
		if got := ConfigName(flag); got != want {
			t.Errorf("ConfigName(%q) = %q, want %q", flag, got, want)
		}
	}
}
