// Package config loads cdpsession settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grantcarthew/cdpsession/internal/browser"
	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Config is the application configuration.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	TargetID       string        `yaml:"target_id"`
	StartNewTarget bool          `yaml:"start_new_target"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	Workers        int           `yaml:"workers"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	Debug          bool          `yaml:"debug"`
	Launch         LaunchConfig  `yaml:"launch"`
}

// LaunchConfig controls starting a local browser before connecting.
type LaunchConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Headless    bool     `yaml:"headless"`
	Binary      string   `yaml:"binary"`
	UserDataDir string   `yaml:"user_data_dir"`
	Args        []string `yaml:"args"`
	// AutoPort lets Chrome pick a free debugging port instead of Port.
	AutoPort bool `yaml:"auto_port"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Host:           browser.DefaultHost,
		Port:           browser.DefaultPort,
		ConnectTimeout: browser.DefaultRetryTimeout,
		CommandTimeout: cdp.DefaultTimeout,
		Workers:        cdp.DefaultWorkers,
		MaxMessageSize: cdp.DefaultMaxMessageSize,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cdpsession", "config.yaml")
}

// Load reads a YAML config file and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CDPSESSION_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CDPSESSION_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("CDPSESSION_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CDPSESSION_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("CDPSESSION_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CDPSESSION_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	return nil
}

// Validate rejects settings the session cannot run with.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", cfg.Port))
	}
	if cfg.ConnectTimeout < 0 {
		errs = append(errs, errors.New("connect_timeout must not be negative"))
	}
	if cfg.CommandTimeout < 0 {
		errs = append(errs, errors.New("command_timeout must not be negative"))
	}
	if cfg.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Session returns the engine configuration derived from cfg.
func (c *Config) Session() cdp.Config {
	return cdp.Config{
		Timeout:        c.CommandTimeout,
		Workers:        c.Workers,
		MaxMessageSize: c.MaxMessageSize,
	}
}

// Resolver returns a target resolver for the configured browser.
func (c *Config) Resolver() *browser.Resolver {
	r := browser.NewResolver(c.Host, c.Port)
	r.StartNewTarget = c.StartNewTarget
	r.TargetID = c.TargetID
	if c.ConnectTimeout > 0 {
		r.RetryTimeout = c.ConnectTimeout
	}
	return r
}

// LaunchOptions returns the options for starting a local browser.
func (c *Config) LaunchOptions() browser.LaunchOptions {
	opts := browser.LaunchOptions{
		Binary:      c.Launch.Binary,
		Headless:    c.Launch.Headless,
		Port:        c.Port,
		UserDataDir: c.Launch.UserDataDir,
		Args:        c.Launch.Args,
	}
	if c.Launch.AutoPort {
		opts.Port = 0
	}
	return opts
}
