package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "kilnd"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs, locks).
//
//	Linux:   $XDG_RUNTIME_DIR/kilnd or /run/user/<uid>/kilnd
//	macOS:   ~/Library/Caches/kilnd/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/kilnd/kilnd.sock
//	macOS:   ~/Library/Caches/kilnd/run/kilnd.sock
func Socket() string {
	return filepath.Join(Runtime(), "kilnd.sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/kilnd/kilnd.pid
//	macOS:   ~/Library/Caches/kilnd/run/kilnd.pid
func PIDFile() string {
	return filepath.Join(Runtime(), "kilnd.pid")
}

// Default path to the build lock file.
//
// Builds are serialized through this lock so two invocations never mutate
// stage containers with the same IDs concurrently.
//
//	Linux:   $XDG_RUNTIME_DIR/kilnd/build.lock
func BuildLock() string {
	return filepath.Join(Runtime(), "build.lock")
}

// Path to the directory for persistent daemon data.
//
//	Linux:   ~/.local/share/kilnd
//	macOS:   ~/Library/Application Support/kilnd
func Data() string {
	return filepath.Join(xdg.DataHome, daemonName)
}

// Default path to the build ledger database.
//
//	Linux:   ~/.local/share/kilnd/ledger.db
func Ledger() string {
	return filepath.Join(Data(), "ledger.db")
}

// Default path to the daemon configuration file.
//
//	Linux:   ~/.config/kilnd/config.yaml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, daemonName, "config.yaml")
}
