// Package config supplies the shared execution context: the base working
// directory, the max-jobs hint, the global skip flag, the command-line
// parameter override pool, and the persistent per-workdir state file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Workdir is the base directory every schedule runs under.
	Workdir string `koanf:"workdir" validate:"required"`
	// MaxJobs is an opaque concurrency hint handed to work procedures;
	// the engine itself is strictly sequential.
	MaxJobs int       `koanf:"max_jobs" validate:"min=1"`
	Skip    bool      `koanf:"skip"`
	Log     LogConfig `koanf:"log"`

	// Overrides is the command-line parameter pool, keyed by task name
	// then parameter name, values still in textual form. It is routed and
	// coerced by the schedule.
	Overrides map[string]map[string]string `koanf:"-"`
	// OverrideTokens preserves the raw tokens in the order they were
	// given, for alias storage.
	OverrideTokens []string `koanf:"-"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Workdir: filepath.Join(home, "bricoler"),
		MaxJobs: runtime.NumCPU(),
		Log:     LogConfig{Level: "info"},
	}
}

// envMappings routes BRICOLER_* environment variables to config paths.
var envMappings = map[string]string{
	"WORKDIR":   "workdir",
	"MAX_JOBS":  "max_jobs",
	"SKIP":      "skip",
	"LOG_LEVEL": "log.level",
	"LOG_JSON":  "log.json",
}

// Load builds the configuration from defaults and BRICOLER_* environment
// variables, then validates it. Command-line flags are applied on top by
// the CLI.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "BRICOLER_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, "BRICOLER_")
			if path, ok := envMappings[key]; ok {
				return path, value
			}
			return strings.ToLower(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           cfg,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Overrides = make(map[string]map[string]string)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
