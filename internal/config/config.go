// Package config loads the application settings from an optional
// feedback.yaml file and FEEDBACK_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
)

const (
	EnvPrefix  = "FEEDBACK"
	ConfigName = "feedback"
)

// Config holds every application setting.
type Config struct {
	CacheDir      string `mapstructure:"cache_dir" yaml:"cache_dir"`
	CSVDir        string `mapstructure:"csv_dir" yaml:"csv_dir"`
	TasksDir      string `mapstructure:"tasks_dir" yaml:"tasks_dir" validate:"required"`
	ResultsDir    string `mapstructure:"results_dir" yaml:"results_dir"`
	PlotsDir      string `mapstructure:"plots_dir" yaml:"plots_dir"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir"`
	PolygonAPIKey string `mapstructure:"polygon_api_key" yaml:"polygon_api_key"`

	// File is the config file that was read, empty when only defaults and env were used.
	File string `mapstructure:"-" yaml:"-"`
}

var defaults = map[string]any{
	"cache_dir":       "data_cache",
	"csv_dir":         "data/csv",
	"tasks_dir":       "tasks",
	"results_dir":     "results",
	"plots_dir":       "plots",
	"log_level":       "info",
	"log_dir":         "logs",
	"polygon_api_key": "",
}

// Load reads the settings. path may name a config file explicitly; otherwise
// feedback.yaml is searched in the working directory and $HOME/.feedback.
// A missing file is fine, a malformed one is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The polygon client convention is an unprefixed variable.
	if err := v.BindEnv("polygon_api_key", EnvPrefix+"_POLYGON_API_KEY", "POLYGON_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind polygon key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "reading config file failed", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "parsing config failed", err)
	}

	cfg.File = v.ConfigFileUsed()
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return &cfg, nil
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		CacheDir:   defaults["cache_dir"].(string),
		CSVDir:     defaults["csv_dir"].(string),
		TasksDir:   defaults["tasks_dir"].(string),
		ResultsDir: defaults["results_dir"].(string),
		PlotsDir:   defaults["plots_dir"].(string),
		LogLevel:   defaults["log_level"].(string),
		LogDir:     defaults["log_dir"].(string),
	}
}

// FetcherConfig returns the data layer settings.
func (c *Config) FetcherConfig() marketdata.FetcherConfig {
	return marketdata.FetcherConfig{
		CacheDir:      c.CacheDir,
		CSVDir:        c.CSVDir,
		PolygonAPIKey: c.PolygonAPIKey,
	}
}

// Entries returns the effective settings as sorted key/value pairs with the
// API key masked.
func (c *Config) Entries() [][2]string {
	values := map[string]string{
		"cache_dir":       c.CacheDir,
		"csv_dir":         c.CSVDir,
		"tasks_dir":       c.TasksDir,
		"results_dir":     c.ResultsDir,
		"plots_dir":       c.PlotsDir,
		"log_level":       c.LogLevel,
		"log_dir":         c.LogDir,
		"polygon_api_key": mask(c.PolygonAPIKey),
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	entries := make([][2]string, len(keys))
	for i, k := range keys {
		entries[i] = [2]string{k, values[k]}
	}

	return entries
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 4:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
