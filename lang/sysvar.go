package lang

import (
	"math"
	"os"
	"strings"

	"github.com/ardnew/xdl/pkg"
)

// systemVariables returns the read-only variables addressed as !NAME.
func systemVariables(path []string) map[string]Value {
	return map[string]Value{
		"!PI":      NewFloat(math.Pi),
		"!DPI":     NewDouble(math.Pi),
		"!DTOR":    NewFloat(math.Pi / 180),
		"!RADEG":   NewFloat(180 / math.Pi),
		"!NULL":    Undefined,
		"!PATH":    NewString(strings.Join(path, string(os.PathListSeparator))),
		"!VERSION": NewString(strings.TrimSpace(pkg.Version)),
	}
}
