// Package config loads the probeguard configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Modes.
const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"
)

// Config is the configuration file format.
//
//	mode: lenient
//	cycle_policy: root
//	allowed_targets:
//	  - com/example/Helpers.format
//	targets_file: ./targets.yaml
//	messages: ./messages.yaml
//	log_level: debug
//	parallelism: 4
type Config struct {
	Mode           string   `yaml:"mode" validate:"oneof=strict lenient"`
	CyclePolicy    string   `yaml:"cycle_policy" validate:"oneof=reachable root"`
	AllowedTargets []string `yaml:"allowed_targets" validate:"dive,required"`
	TargetsFile    string   `yaml:"targets_file"`
	Messages       string   `yaml:"messages"`
	LogLevel       string   `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	Parallelism    int      `yaml:"parallelism" validate:"gte=0,lte=1024"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Mode:        ModeStrict,
		CyclePolicy: "reachable",
		LogLevel:    "info",
	}
}

// Strict reports whether the configured mode is strict.
func (c *Config) Strict() bool {
	return c.Mode != ModeLenient
}

// Validate checks c against its field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Load reads the file at path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
