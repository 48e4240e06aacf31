package lang

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardnew/mung"
	"github.com/xyproto/env/v2"
)

// PathEnv is the environment variable holding the include search path.
const PathEnv = "XDL_PATH"

// ScriptExt is the extension tried when an include names a file without
// one.
const ScriptExt = ".pro"

func init() {
	// Read XDL_PATH live instead of from a snapshot taken on first use.
	env.Unload()
}

// SearchPath returns the directories searched for included scripts: dirs
// first, then those listed in XDL_PATH. Only existing directories are kept,
// each once.
func SearchPath(dirs ...string) []string {
	joined := mung.Make(
		mung.WithSubjectItems(env.Str(PathEnv)),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(dirs...),
		mung.WithFilter(isDir),
	).String()

	var out []string

	seen := map[string]bool{}

	for _, d := range filepath.SplitList(joined) {
		if d == "" || seen[d] || !isDir(d) {
			continue
		}

		seen[d] = true
		out = append(out, d)
	}

	return out
}

func isDir(path string) bool {
	fi, err := os.Stat(path)

	return err == nil && fi.IsDir()
}

// ResolveScript locates the file named by an include. Absolute names and
// names relative to the working directory are tried first, then each
// directory of path in order. A name without an extension also matches
// name.pro.
func ResolveScript(name string, path []string) (string, error) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, name+ScriptExt)
	}

	for _, c := range candidates {
		if isFile(c) {
			return c, nil
		}
	}

	if !filepath.IsAbs(name) {
		for _, dir := range path {
			for _, c := range candidates {
				if p := filepath.Join(dir, c); isFile(p) {
					return p, nil
				}
			}
		}
	}

	return "", ErrIncludeNotFound.With(
		slog.String("name", name),
		slog.String("path", strings.Join(path, string(os.PathListSeparator))),
	)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)

	return err == nil && fi.Mode().IsRegular()
}
