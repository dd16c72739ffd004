// Parses flags and dispatches subcommands for the kilnd daemon and CLI.
//
// The binary serves both roles: 'kilnd start' runs the daemon, while the
// remaining subcommands act as clients that talk to a running daemon over
// its Unix socket (build, verify, status, stop) or read local state
// directly (history, version).
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//	-c, --config    Daemon configuration file.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity.
package cli
