package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvPath names the config file when --config is not given.
const EnvPath = "MAXBOT_CONFIG"

// SystemPath is used when the process has no home directory, as under a service account.
const SystemPath = "/etc/maxbot/config.yaml"

// ResolvePath picks the config file: the --config value, then $MAXBOT_CONFIG,
// then $XDG_CONFIG_HOME/maxbot/config.yaml, then ~/.config/maxbot/config.yaml.
func ResolvePath(explicit string) string {
	for _, candidate := range []string{explicit, os.Getenv(EnvPath)} {
		if path := strings.TrimSpace(candidate); path != "" {
			return path
		}
	}

	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return SystemPath
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "maxbot", "config.yaml")
}
