// Package config loads spcrud settings from <config-dir>/config.yaml with
// SPCRUD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"spcrud-cli/internal/model"

	"github.com/spf13/viper"
)

const (
	EnvPrefix    = "SPCRUD"
	EnvConfigDir = "SPCRUD_CONFIG_DIR"
	FileName     = "config.yaml"
)

type Config struct {
	SiteURL     string        `mapstructure:"site_url"`
	List        string        `mapstructure:"list"`
	Token       string        `mapstructure:"token"`
	Target      string        `mapstructure:"target"`
	UpdateMatch string        `mapstructure:"update_match"`
	DeleteMatch string        `mapstructure:"delete_match"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Format      string        `mapstructure:"format"`
	Log         LogConfig     `mapstructure:"log"`
	Serve       ServeConfig   `mapstructure:"serve"`
	Web         WebConfig     `mapstructure:"web"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
	DB   string `mapstructure:"db"`
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

var defaults = map[string]any{
	"site_url":     "",
	"list":         "",
	"token":        "",
	"target":       string(model.TargetSelected),
	"update_match": string(model.MatchWildcard),
	"delete_match": string(model.MatchETag),
	"timeout":      "0s",
	"format":       "json",
	"log.level":    "warn",
	"serve.addr":   "127.0.0.1:8787",
	"serve.db":     "",
	"web.addr":     "127.0.0.1:8788",
}

// Keys lists every settable key in file form (dotted, snake_case).
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dir is the config directory: $SPCRUD_CONFIG_DIR or ~/.spcrud.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".spcrud"), nil
}

func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads dir/config.yaml (a missing file is fine) and overlays SPCRUD_*
// environment variables: SPCRUD_SITE_URL -> site_url, SPCRUD_LOG_LEVEL -> log.level.
func Load(dir string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := model.ParseTargetMode(c.Target); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	return nil
}

func (c *Config) TargetMode() model.TargetMode {
	m, err := model.ParseTargetMode(c.Target)
	if err != nil {
		return model.TargetSelected
	}
	return m
}

func (c *Config) Policy() (model.ConcurrencyPolicy, error) {
	up, err := model.ParseMatchPolicy(c.UpdateMatch)
	if err != nil {
		return model.ConcurrencyPolicy{}, fmt.Errorf("update_match: %w", err)
	}
	del, err := model.ParseMatchPolicy(c.DeleteMatch)
	if err != nil {
		return model.ConcurrencyPolicy{}, fmt.Errorf("delete_match: %w", err)
	}
	return model.ConcurrencyPolicy{Update: up, Delete: del}, nil
}

// NormalizeKey maps user spellings (site-url, SITE_URL, log-level) to file keys.
func NormalizeKey(key string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	if _, ok := defaults[k]; ok {
		return k, nil
	}
	// log_level -> log.level
	if i := strings.IndexByte(k, '_'); i > 0 {
		dotted := k[:i] + "." + k[i+1:]
		if _, ok := defaults[dotted]; ok {
			return dotted, nil
		}
	}
	return "", fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
}

func validateValue(key, value string) error {
	switch key {
	case "target":
		_, err := model.ParseTargetMode(value)
		return err
	case "update_match", "delete_match":
		_, err := model.ParseMatchPolicy(value)
		return err
	case "timeout":
		d, err := time.ParseDuration(value)
		if err == nil && d < 0 {
			err = errors.New("timeout must not be negative")
		}
		return err
	case "format":
		switch value {
		case "json", "edn", "text":
			return nil
		}
		return fmt.Errorf("invalid format %q (expected json|edn|text)", value)
	}
	return nil
}

// Set writes key=value into dir/config.yaml, keeping the other keys in the file.
// Environment overrides are never written back.
func Set(dir, key, value string) error {
	k, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if err := validateValue(k, value); err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	v.Set(k, value)
	return atomicWriteConfig(v, dir, path)
}

// atomicWriteConfig writes through a temp file in dir and renames it over path.
func atomicWriteConfig(v *viper.Viper, dir, path string) error {
	f, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if err := f.Close(); err != nil {
		return err
	}
	if err := v.WriteConfigAs(tmp); err != nil {
		return err
	}
	// The file may hold a bearer token.
	_ = os.Chmod(tmp, 0o600)
	return os.Rename(tmp, path)
}
