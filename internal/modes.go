package internal

import (
	"strconv"
	"sync/atomic"
)

// Runtime output modes, seeded from linker flags and adjustable from the CLI.
var modes struct {
	quiet   atomic.Bool
	debug   atomic.Bool
	verbose atomic.Bool
}

// Parses the linker flag defaults into the runtime mode switches.
//
// The rawQuiet, rawDebug, and rawVerbose variables should be set via ldflags
// during the build process. If not set, they default to "false".
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		modes.quiet.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		modes.debug.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		modes.verbose.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	modes.quiet.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return modes.quiet.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	modes.debug.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return modes.debug.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	modes.verbose.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return modes.verbose.Load()
}
