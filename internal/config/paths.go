package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths contains standard filesystem paths for stackgen.
type Paths struct {
	// ConfigFile is the path to the config file (~/.stackgen/config.yaml).
	ConfigFile string

	// ModulesDir is the default on-disk module source (~/.stackgen/modules).
	ModulesDir string

	// HomeDir is the stackgen home directory (~/.stackgen).
	HomeDir string
}

// DefaultPaths returns the default paths for stackgen.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	home := filepath.Join(homeDir, ".stackgen")

	return &Paths{
		ConfigFile: filepath.Join(home, "config.yaml"),
		ModulesDir: filepath.Join(home, "modules"),
		HomeDir:    home,
	}, nil
}

// GetConfigFile returns the config file path.
// If STACKGEN_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv("STACKGEN_CONFIG"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/")), nil
}
