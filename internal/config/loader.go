package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"esiauth/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/esiauth"
	configFileName = "config.yaml"

	// configPathEnv overrides the config directory.
	configPathEnv = "ESIAUTH_CONFIG_PATH"
)

// GetDefaultConfigPathOrPanic returns the configuration directory, honoring
// the ESIAUTH_CONFIG_PATH override.
func GetDefaultConfigPathOrPanic() string {
	if path := os.Getenv(configPathEnv); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from the specified directory. A missing
// config.yaml yields the EVE SSO defaults; a malformed one is an error.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("Config", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}
