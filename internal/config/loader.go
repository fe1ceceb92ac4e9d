package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"canopy/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/canopy"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the default configuration directory.
// It panics if the home directory cannot be determined, which only happens
// in broken environments where nothing else would work either.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from the specified directory.
// The directory should contain config.yaml; missing files yield defaults.
// CANOPY_* environment variables override file values.
func LoadConfig(configPath string) (CanopyConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		return CanopyConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return CanopyConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)

	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides lets environment variables win over file configuration.
// Only non-secret connection settings are overridable; the session itself is
// handled separately (CANOPY_TOKEN short-circuits interactive login).
func applyEnvOverrides(config *CanopyConfig) {
	if v := os.Getenv("CANOPY_API_ENDPOINT"); v != "" {
		config.API.Endpoint = v
	}
	if v := os.Getenv("CANOPY_AUTHORIZE_URL"); v != "" {
		config.OAuth.AuthorizeURL = v
	}
	if v := os.Getenv("CANOPY_TOKEN_URL"); v != "" {
		config.OAuth.TokenURL = v
	}
	if v := os.Getenv("CANOPY_CLIENT_ID"); v != "" {
		config.OAuth.ClientID = v
	}
}
