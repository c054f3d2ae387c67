package transform

import (
	_ "embed"
	"strings"
)

//go:embed runtime.js
var runtimeSource string

// RegistryName is the identifier the runtime is bound to inside a bundle.
const RegistryName = "__pakto"

// Runtime returns the module registry source. It expects a variable named
// root holding the global object to be in scope.
func Runtime() string {
	return strings.TrimRight(runtimeSource, "\n")
}
