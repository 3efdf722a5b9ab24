// Package config loads client settings from the environment and an optional
// YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint         = "https://gwlab.org.au/graphql"
	DefaultDownloadEndpoint = "https://gwlab.org.au/job/apiv1/file/?fileId="
	DefaultTimeout          = 60 * time.Second
	DefaultConcurrency      = 4
	DefaultLogFile          = "/tmp/gwlab-viterbi.log"
)

// Config holds all configuration values.
type Config struct {
	// API access
	Token            string
	Endpoint         string
	DownloadEndpoint string
	Timeout          time.Duration

	// Downloads
	Concurrency int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the YAML layout. Unset fields keep the environment value.
type fileConfig struct {
	Token            string `yaml:"token"`
	Endpoint         string `yaml:"endpoint"`
	DownloadEndpoint string `yaml:"download_endpoint"`
	Timeout          string `yaml:"timeout"`
	Concurrency      int    `yaml:"concurrency"`
	LogFile          string `yaml:"log_file"`
	LogLevel         string `yaml:"log_level"`
}

// Load reads configuration from environment variables. If GWLAB_CONFIG
// names a YAML file, its values override the environment.
func Load() (Config, error) {
	cfg := Config{
		Token:            getEnv("GWLAB_TOKEN", ""),
		Endpoint:         getEnv("GWLAB_VITERBI_ENDPOINT", DefaultEndpoint),
		DownloadEndpoint: getEnv("GWLAB_VITERBI_FILE_DOWNLOAD_ENDPOINT", DefaultDownloadEndpoint),
		Timeout:          parseDuration(getEnv("GWLAB_CLIENT_TIMEOUT", ""), DefaultTimeout),
		Concurrency:      parseInt(getEnv("GWLAB_DOWNLOAD_CONCURRENCY", ""), DefaultConcurrency),
		LogFile:          getEnv("GWLAB_LOG_FILE", DefaultLogFile),
		LogLevel:         parseLogLevel(getEnv("GWLAB_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("GWLAB_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Token != "" {
		c.Token = fc.Token
	}
	if fc.Endpoint != "" {
		c.Endpoint = fc.Endpoint
	}
	if fc.DownloadEndpoint != "" {
		c.DownloadEndpoint = fc.DownloadEndpoint
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse config %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	if fc.Concurrency > 0 {
		c.Concurrency = fc.Concurrency
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// parseDuration accepts Go durations ("30s") and plain seconds ("30").
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
