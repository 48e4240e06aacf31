package pkg

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPrefixOf(t *testing.T) {
	tests := map[string]string{
		"/usr/local/bin/xdl":     "xdl",
		"/tmp/__debug_bin123456": Name,
		"/tmp/__debug_bin":       Name,
		"C:/tools/xdl.exe":       "xdl",
		"/home/me/.xdl":          "xdl",
		"/opt/idl":               "idl",
		"...":                    Name,
	}

	for path, want := range tests {
		if got := prefixOf(path); got != want {
			t.Errorf("prefixOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestConfigFile(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")

		got := ConfigFile()
		if filepath.Base(got) != ConfigBase || !strings.HasPrefix(got, ConfigDir()) {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("override", func(t *testing.T) {
		want := filepath.Join(t.TempDir(), "xdlrc")
		t.Setenv(ConfigEnv, want)

		if got := ConfigFile(); got != want {
			t.Errorf("ConfigFile() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile_Changes(t *testing.T) {
	for _, name := range []string{"first", "second", "third"} {
		want := filepath.Join(t.TempDir(), name)
		t.Setenv(ConfigEnv, want)

		if got := ConfigFile(); got != want {
			t.Errorf("ConfigFile() = %q, want %q", got, want)
		}
	}
}

func TestDirs(t *testing.T) {
	for name, dir := range map[string]string{
		"config": ConfigDir(),
		"cache":  CacheDir(),
	} {
		if filepath.Base(dir) != Prefix() && filepath.Base(dir) != "."+Prefix() {
			t.Errorf("%s dir %q does not end in %q", name, dir, Prefix())
		}
	}
}
