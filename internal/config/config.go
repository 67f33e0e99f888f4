package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Storage backend: file, sqlite, postgres or rest.
	StoreKind string `mapstructure:"store_kind" yaml:"store_kind"`
	StoreDSN  string `mapstructure:"store_dsn" yaml:"store_dsn"`
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`

	// Hosted REST backend
	RestURL    string `mapstructure:"rest_url" yaml:"rest_url"`
	RestAPIKey string `mapstructure:"rest_api_key" yaml:"rest_api_key"`

	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	ListenAddr     string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`

	// Import
	LoaderSampleSize int `mapstructure:"loader_sample_size" yaml:"loader_sample_size"`
	MaxRows          int `mapstructure:"max_rows" yaml:"max_rows"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"store_kind", "store_dsn", "data_dir", "rest_url", "rest_api_key",
	"http_timeout_sec", "listen_addr", "log_level", "loader_sample_size", "max_rows",
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.chartloom/config.yaml) > defaults.
// A .env file in the working directory is applied to the environment first.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHARTLOOM")
	v.AutomaticEnv()

	v.SetDefault("store_kind", "file")
	v.SetDefault("store_dsn", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("rest_url", "")
	v.SetDefault("rest_api_key", "")
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("loader_sample_size", 0)
	v.SetDefault("max_rows", 100000)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DataDir == "" {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		c.DataDir = filepath.Join(dir, "data")
	}
	c.DataDir = expandHome(c.DataDir)
	return &c, nil
}

func expandHome(dir string) string {
	if !strings.HasPrefix(dir, "~") {
		return filepath.Clean(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	rest := strings.TrimLeft(strings.TrimPrefix(dir, "~"), `/\`)
	return filepath.Join(home, rest)
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid non-negative int for %s: %q", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "store_kind":
		switch val = strings.ToLower(val); val {
		case "file", "sqlite", "postgres", "rest":
			c.StoreKind = val
		default:
			return fmt.Errorf("invalid store_kind: %s (use file, sqlite, postgres or rest)", val)
		}
	case "store_dsn":
		c.StoreDSN = val
	case "data_dir":
		c.DataDir = expandHome(val)
	case "rest_url":
		c.RestURL = val
	case "rest_api_key":
		c.RestAPIKey = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		c.LogLevel = val
	case "loader_sample_size":
		c.LoaderSampleSize, err = atoi()
	case "max_rows":
		c.MaxRows, err = atoi()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// StoreConfig maps the settings onto the selected backend.
func (c *Global) StoreConfig() store.Config {
	sc := store.Config{
		Kind:    c.StoreKind,
		DSN:     c.StoreDSN,
		Timeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
	}
	switch c.StoreKind {
	case "", "file":
		sc.Kind = "file"
		if sc.DSN == "" {
			sc.DSN = c.DataDir
		}
	case "sqlite":
		if sc.DSN == "" {
			sc.DSN = filepath.Join(c.DataDir, "chartloom.db")
		}
	case "rest":
		if c.RestURL != "" {
			sc.DSN = c.RestURL
		}
		sc.APIKey = c.RestAPIKey
	}
	return sc
}
