// Package nodeapi knows the Node.js built-in modules and finds the ones a file
// depends on.
package nodeapi

import "strings"

// builtinModules is Node's module.builtinModules without private and
// sub-path entries (Node.js v24).
var builtinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// subpaths are the documented sub-path modules.
var subpaths = map[string]bool{
	"assert/strict":      true,
	"dns/promises":       true,
	"fs/promises":        true,
	"inspector/promises": true,
	"path/posix":         true,
	"path/win32":         true,
	"readline/promises":  true,
	"stream/consumers":   true,
	"stream/promises":    true,
	"stream/web":         true,
	"timers/promises":    true,
	"util/types":         true,
}

// alwaysUnsupported have no browser equivalent at all.
var alwaysUnsupported = map[string]bool{
	"fs":            true,
	"child_process": true,
	"cluster":       true,
}

// Normalize maps a specifier to the built-in module it names. The match is
// exact and case-sensitive; a "node:" prefix is allowed and sub-paths map to
// their parent module ("path/posix" is "path").
func Normalize(specifier string) (string, bool) {
	name := strings.TrimPrefix(specifier, "node:")
	if builtinModules[name] {
		return name, true
	}
	if subpaths[name] {
		return name[:strings.IndexByte(name, '/')], true
	}
	return "", false
}

// IsBuiltin reports whether specifier names a Node built-in.
func IsBuiltin(specifier string) bool {
	_, ok := Normalize(specifier)
	return ok
}

// AlwaysUnsupported reports whether a built-in can never run in a browser.
func AlwaysUnsupported(name string) bool {
	return alwaysUnsupported[name]
}
