package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/emberhq/kilnd/internal/paths"
)

// Daemon configuration, loaded from an optional YAML file with environment
// overrides (KILND_ prefix, dots replaced by underscores).
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Containerd ContainerdConfig `mapstructure:"containerd"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig controls the daemon's control socket.
type ServerConfig struct {
	Socket string `mapstructure:"socket"` // Unix socket path.
	Group  string `mapstructure:"group"`  // Group granted socket access. Empty keeps the default.
}

// ContainerdConfig controls the container runtime connection.
type ContainerdConfig struct {
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

// LedgerConfig controls build history persistence.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, or error.
	Format string `mapstructure:"format"` // text or json.
}

// Loads configuration from the given file and the environment. A missing
// file is not an error; defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.socket", paths.Socket())
	v.SetDefault("server.group", "")
	v.SetDefault("containerd.address", "/run/containerd/containerd.sock")
	v.SetDefault("containerd.namespace", "kilnd")
	v.SetDefault("ledger.path", paths.Ledger())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a malformed one is fatal.
			var parseErr viper.ConfigParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: %w", ErrConfig, err)
			}
		}
	}

	v.SetEnvPrefix("KILND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return &cfg, nil
}
