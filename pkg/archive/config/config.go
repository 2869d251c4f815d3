// Package config loads model archive client settings from a TOML file
// with environment overrides. Programs that already hold their settings
// can skip this package and pass archive.Option values directly.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/serveops/model-archive/pkg/archive"
)

// Environment variables overriding the file settings.
const (
	EnvModelStorePath = "MODEL_STORE_PATH"
	EnvCacheRootPath  = "MODEL_CACHE_ROOT"
)

// Config holds the client settings.
type Config struct {
	ModelStorePath         string
	CacheRootPath          string
	UserAgent              string
	DownloadTimeout        time.Duration
	MaxConcurrentDownloads int64
}

// config.toml key mapping.
type fileConfig struct {
	ModelStorePath         string `toml:"model_store_path"`
	CacheRootPath          string `toml:"cache_root_path"`
	UserAgent              string `toml:"user_agent"`
	DownloadTimeout        string `toml:"download_timeout"`
	MaxConcurrentDownloads int64  `toml:"max_concurrent_downloads"`
}

// Default returns the built-in settings: no model store, cache under the
// system temporary directory, no download timeout.
func Default() Config {
	return Config{}
}

// Load reads path and overlays its defined keys onto the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load model archive config")
	}
	if meta.IsDefined("model_store_path") {
		cfg.ModelStorePath = raw.ModelStorePath
	}
	if meta.IsDefined("cache_root_path") {
		cfg.CacheRootPath = raw.CacheRootPath
	}
	if meta.IsDefined("user_agent") {
		cfg.UserAgent = raw.UserAgent
	}
	if meta.IsDefined("download_timeout") {
		timeout, err := time.ParseDuration(raw.DownloadTimeout)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse download_timeout")
		}
		cfg.DownloadTimeout = timeout
	}
	if meta.IsDefined("max_concurrent_downloads") {
		if raw.MaxConcurrentDownloads < 1 {
			return Config{}, errors.Errorf("max_concurrent_downloads must be positive, got %d", raw.MaxConcurrentDownloads)
		}
		cfg.MaxConcurrentDownloads = raw.MaxConcurrentDownloads
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvModelStorePath); v != "" {
		c.ModelStorePath = v
	}
	if v := os.Getenv(EnvCacheRootPath); v != "" {
		c.CacheRootPath = v
	}
}

// ClientOptions translates the configuration into client options.
func (c Config) ClientOptions() []archive.Option {
	opts := []archive.Option{
		archive.WithModelStorePath(c.ModelStorePath),
	}
	if c.CacheRootPath != "" {
		opts = append(opts, archive.WithCacheRootPath(c.CacheRootPath))
	}
	if c.UserAgent != "" {
		opts = append(opts, archive.WithUserAgent(c.UserAgent))
	}
	if c.DownloadTimeout > 0 {
		opts = append(opts, archive.WithDownloadTimeout(c.DownloadTimeout))
	}
	if c.MaxConcurrentDownloads > 0 {
		opts = append(opts, archive.WithMaxConcurrentDownloads(c.MaxConcurrentDownloads))
	}
	return opts
}
