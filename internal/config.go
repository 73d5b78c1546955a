package internal

import (
	"fmt"

	"github.com/hbomb79/Fetcha/internal/api"
	"github.com/hbomb79/Fetcha/internal/extractor"
	"github.com/ilyakaznacheev/cleanenv"
)

// FetchaConfig is the struct used to contain the
// various user config supplied by file, environment,
// or manually inside the code.
type FetchaConfig struct {
	Rest      api.RestConfig   `yaml:"api"`
	Extractor extractor.Config `yaml:"extractor"`
}

// LoadFromFile loads a configuration file formatted in YAML in to a
// FetchaConfig struct, applying environment variable overrides on top.
func (config *FetchaConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %v", configPath, err.Error())
	}

	return nil
}

// LoadFromEnv populates the config from environment variables and
// env-defaults only, for deployments which carry no config file.
func (config *FetchaConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %v", err.Error())
	}

	return nil
}
