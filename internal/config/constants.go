// Package config carries process-wide toggles read from the environment and
// from test setup, the way github.com/funvibe/funxy/internal/config does.
package config

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTestMode indicates golden-value tests are running, which normalizes
// auto-generated type-variable names (t1, t2, ... -> t?) for deterministic
// comparisons. Set once by TestMain in packages that need it.
var IsTestMode = false

// CacheDebugEnvVar and DisableCacheEnvVar are the two environment switches
// specified in spec §6.2.
const (
	CacheDebugEnvVar   = "COREVM_CACHE_DEBUG"
	DisableCacheEnvVar = "COREVM_DISABLE_CACHE"
)

// CacheDebugEnabled reports whether cache-event tracing was requested.
func CacheDebugEnabled() bool {
	_, ok := os.LookupEnv(CacheDebugEnvVar)
	return ok
}

// CacheDisabled reports whether all caching should be bypassed (for testing).
func CacheDisabled() bool {
	_, ok := os.LookupEnv(DisableCacheEnvVar)
	return ok
}

// StderrIsTTY reports whether stderr is attached to a terminal, used to
// decide whether cache-debug trace lines get ANSI highlighting.
func StderrIsTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// LogCache writes a cache-event line to stderr when CACHE_DEBUG is set,
// highlighted if stderr is a terminal. Mirrors the Rust original's
// log_cache/should_log_cache pair in compile/cache.rs.
func LogCache(msg string) {
	if !CacheDebugEnabled() {
		return
	}
	if StderrIsTTY() {
		os.Stderr.WriteString("\x1b[2m[cache]\x1b[0m " + msg + "\n")
		return
	}
	os.Stderr.WriteString("[cache] " + msg + "\n")
}

// Built-in abstract type hierarchy names (spec §4.5 "Fallbacks" / §9 Open
// Questions: hard-coded today, a user-extensible graph is future work).
const (
	AnyTypeName            = "Any"
	NumberTypeName         = "Number"
	RealTypeName           = "Real"
	IntegerTypeName        = "Integer"
	SignedTypeName         = "Signed"
	UnsignedTypeName       = "Unsigned"
	AbstractFloatTypeName  = "AbstractFloat"
	AbstractStringTypeName = "AbstractString"
	ArrayTypeName          = "Array"
)
