package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/xyproto/env/v2"
)

// ConfigEnv names the environment variable that overrides the configuration
// file path.
const ConfigEnv = "XDL_CONFIG"

// ConfigBase is the base name of the configuration file.
const ConfigBase = "config"

// DirMode is the permission mode of created directories.
const DirMode os.FileMode = 0o700

// Prefix returns the base prefix string used to construct the path to the
// configuration and cache directories.
//
// By default, Prefix is the base name of the executable file unless it matches
// one of the following substitution rules:
//   - "__debug_bin" (default output of the dlv debugger): replaced with [Name]
//   - "^\.+" (dot-prefixed names): remove the dot prefix
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		exe, err := os.Executable()
		if err == nil {
			id = exe
		}

		return prefixOf(id)
	},
)

func prefixOf(path string) string {
	id := filepath.Base(path)
	id = strings.TrimSuffix(id, filepath.Ext(id))

	for _, sub := range []struct {
		rex *regexp.Regexp
		rep string
	}{
		{regexp.MustCompile(`^__debug_bin\d*$`), Name}, // default output from dlv
		{regexp.MustCompile(`^\.+`), ""},               // remove leading dot(s)
	} {
		id = sub.rex.ReplaceAllString(id, sub.rep)
	}

	if id == "" {
		return Name
	}

	return id
}

// userDir returns the directory from base, falling back to fallback below
// the home directory, then to the working directory.
func userDir(base func() (string, error), fallback string) string {
	dir, err := base()
	if err == nil {
		return filepath.Join(dir, Prefix())
	}

	if dir, err = os.UserHomeDir(); err == nil {
		return filepath.Join(dir, fallback, Prefix())
	}

	if dir, err = os.Getwd(); err == nil {
		return filepath.Join(dir, "."+Prefix())
	}

	return "." + Prefix()
}

// ConfigDir returns the configuration directory path.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string { return userDir(os.UserConfigDir, ".config") },
)

// CacheDir returns the cache directory path used for transient files such as
// REPL history and profiles.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string { return userDir(os.UserCacheDir, ".cache") },
)

func init() {
	// XDL_CONFIG may change after the first lookup, as in tests.
	env.Unload()
}

// ConfigFile returns the configuration file path: $XDL_CONFIG when set,
// otherwise [ConfigBase] in [ConfigDir].
func ConfigFile() string {
	return env.Str(ConfigEnv, filepath.Join(ConfigDir(), ConfigBase))
}

// MkdirAll creates the configuration and cache directories.
func MkdirAll() error {
	for _, dir := range []string{ConfigDir(), CacheDir()} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return err
		}
	}

	return nil
}
