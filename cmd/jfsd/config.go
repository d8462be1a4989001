package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const envVarPrefix = "JFS"

// Config holds the server settings. Values come from an optional YAML
// file, then JFS_* environment variables; command-line flags override
// both.
type Config struct {
	Disk   string `split_words:"true" yaml:"disk"`
	SizeMB uint64 `split_words:"true" yaml:"sizeMB"`
	Port   int    `split_words:"true" yaml:"port"`
	Pmap   bool   `split_words:"true" yaml:"pmap"`
	Commit string `split_words:"true" yaml:"commit"`
	Stats  bool   `split_words:"true" yaml:"stats"`
	Debug  uint64 `split_words:"true" yaml:"debug"`
}

func defaultConfig() Config {
	return Config{SizeMB: 64, Commit: "sync"}
}

// LoadConfig reads path (if non-empty) and then the environment.
func LoadConfig(path string) (*Config, error) {
	c := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.SizeMB == 0 {
		return fmt.Errorf("missing required configuration: sizeMB / %s_SIZE_MB", envVarPrefix)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}
