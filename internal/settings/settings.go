// Package settings loads process-wide settings from the environment.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"bcdice-irc/internal/constants"
)

// Settings holds values read from BCDICE_IRC_* environment variables.
type Settings struct {
	PresetsPath    string        `envconfig:"PRESETS_PATH" default:""`
	CatalogPath    string        `envconfig:"CATALOG_PATH" default:""`
	LogDir         string        `envconfig:"LOG_DIR" default:""`
	RPCBind        string        `envconfig:"RPC_BIND" default:"localhost:50051"`
	SOCKS5Proxy    string        `envconfig:"SOCKS5_PROXY" default:""`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"3s"`
	MasterNick     string        `envconfig:"MASTER_NICK" default:""`
	STUNServer     string        `envconfig:"STUN_SERVER" default:"stun.l.google.com:19302"`
	Debug          string        `envconfig:"DEBUG" default:"verbose"`
}

// Load reads the environment and fills in path defaults under the user config directory.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process(constants.EnvPrefix, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if s.ConnectTimeout <= 0 {
		return Settings{}, fmt.Errorf("settings: CONNECT_TIMEOUT must be positive, got %s", s.ConnectTimeout)
	}

	if s.STUNServer == "" {
		s.STUNServer = constants.DefaultSTUNServer
	}

	if s.PresetsPath == "" || s.LogDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return Settings{}, err
		}
		if s.PresetsPath == "" {
			s.PresetsPath = filepath.Join(dir, constants.PresetsFileName)
		}
		if s.LogDir == "" {
			s.LogDir = filepath.Join(dir, constants.LogsDirName)
		}
	}
	return s, nil
}

// ConfigDir returns the per-user configuration directory of the application.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: cannot determine user config directory: %w", err)
	}
	return filepath.Join(base, constants.ConfigDirName), nil
}
