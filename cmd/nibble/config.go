package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the nibble configuration file
// (~/.config/nibble/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Scheme string   `yaml:"scheme"`
	DType  string   `yaml:"dtype"`
	Prob   *float64 `yaml:"p"`
	Seed   *int64   `yaml:"seed"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string         `yaml:"server_address"`
	ReadTimeout   *time.Duration `yaml:"read_timeout"`
}

func configPath() string {
	if p := os.Getenv("NIBBLE_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nibble", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig() (Config, error) {
	return readConfig(configPath())
}

func readConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applySchemeConfig applies config file defaults to the scheme flags when
// they were not set on the command line.
func applySchemeConfig(c *cli.Command, cfg Config) {
	if cfg.Scheme != "" && !c.IsSet("scheme") {
		schemeName = cfg.Scheme
	}
	if cfg.DType != "" && !c.IsSet("dtype") {
		dtypeName = cfg.DType
	}
}

func applyDropoutConfig(c *cli.Command, cfg Config, prob *float64, seed *int64) {
	applySchemeConfig(c, cfg)
	if cfg.Prob != nil && !c.IsSet("p") {
		*prob = *cfg.Prob
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, readTimeout *time.Duration) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.ReadTimeout != nil && !c.IsSet("read-timeout") {
		*readTimeout = *cfg.ReadTimeout
	}
}
