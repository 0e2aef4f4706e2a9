// Package config loads fluentgen configuration from defaults, an optional
// YAML file and FLUENTGEN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the configuration file looked up in the repository root.
	FileName = "fluentgen.yaml"

	// EnvPrefix prefixes environment overrides, e.g. FLUENTGEN_SCAN_WORKERS.
	EnvPrefix = "FLUENTGEN_"
)

// Config is the complete fluentgen configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Scan    ScanConfig    `koanf:"scan"`
	Model   ModelConfig   `koanf:"model"`
	Storage StorageConfig `koanf:"storage"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"`
}

type ScanConfig struct {
	// Include and Exclude are doublestar globs matched against paths
	// relative to the repository root.
	Include  []string      `koanf:"include" validate:"dive,required"`
	Exclude  []string      `koanf:"exclude" validate:"dive,required"`
	Workers  int           `koanf:"workers" validate:"min=1,max=256"`
	Debounce time.Duration `koanf:"debounce"`
}

type ModelConfig struct {
	JDKStubs  bool `koanf:"jdk_stubs"`
	CacheSize int  `koanf:"cache_size" validate:"min=1"`
}

type StorageConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Scan: ScanConfig{
			Include:  []string{"**/*.java"},
			Exclude:  []string{},
			Workers:  runtime.NumCPU(),
			Debounce: 500 * time.Millisecond,
		},
		Model: ModelConfig{
			JDKStubs:  true,
			CacheSize: 4096,
		},
		Storage: StorageConfig{
			Dir: ".fluentgen",
		},
	}
}

// Load builds the configuration. path names a YAML file; when required is
// false a missing file is ignored.
func Load(path string, required bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		values, err := readYAML(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && !required:
		case err != nil:
			return nil, err
		default:
			if err := k.Load(rawMap(values), nil); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Scan.Debounce < 0 {
		return fmt.Errorf("configuration validation failed: scan.debounce must not be negative")
	}
	if len(cfg.Scan.Include) == 0 {
		return fmt.Errorf("configuration validation failed: scan.include must not be empty")
	}
	return nil
}

// StoragePath resolves the storage directory against the repository root.
func (c *Config) StoragePath(root string) string {
	if filepath.IsAbs(c.Storage.Dir) {
		return c.Storage.Dir
	}
	return filepath.Join(root, c.Storage.Dir)
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return filterNilValues(values), nil
}

// filterNilValues drops null entries so they do not override defaults.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if filtered := filterNilValues(nested); len(filtered) > 0 {
				result[k] = filtered
			}
			continue
		}
		result[k] = v
	}
	return result
}

// transformEnvKey maps FLUENTGEN_SCAN_DEBOUNCE to scan.debounce: the first
// segment names the section, the rest is the field.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok || section == "" || field == "" {
		return "", nil
	}
	return section + "." + field, value
}

// rawMap is a koanf.Provider over already-decoded values.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
