// Package config holds the installer settings: where releases live, where
// the binary is installed and how the HTTP client behaves. Values come from
// built-in defaults, an optional YAML file and command line flags, in that
// order of precedence (flags win).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maxbolgarin/gitb-install/internal/fetcher"
	"github.com/maxbolgarin/gitb-install/internal/utils"
)

type Config struct {
	Host             string            `yaml:"host"`
	Owner            string            `yaml:"owner"`
	Repo             string            `yaml:"repo"`
	Binary           string            `yaml:"binary"`
	InstallDir       string            `yaml:"install_dir"`
	MaxRedirects     int               `yaml:"max_redirects"`
	Timeout          time.Duration     `yaml:"timeout"`
	KeepAliveTimeout time.Duration     `yaml:"keep_alive_timeout"`
	UserAgent        string            `yaml:"user_agent"`
	Proxy            string            `yaml:"proxy"`
	Headers          map[string]string `yaml:"headers"`
}

func Default() Config {
	return Config{
		Host:             fetcher.DefaultRelease.Host,
		Owner:            fetcher.DefaultRelease.Owner,
		Repo:             fetcher.DefaultRelease.Repo,
		Binary:           fetcher.DefaultRelease.Binary,
		InstallDir:       "bin",
		MaxRedirects:     fetcher.DefaultMaxRedirects,
		Timeout:          utils.DefaultTimeout,
		KeepAliveTimeout: utils.DefaultKATimeout,
		UserAgent:        utils.ToolUserAgent,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Release().HostURL(); err != nil {
		return err
	}
	if c.Owner == "" || c.Repo == "" {
		return &fetcher.ConfigurationError{Field: "owner/repo", Reason: "must not be empty"}
	}
	if c.Binary == "" || c.Binary != filepath.Base(c.Binary) {
		return &fetcher.ConfigurationError{Field: "binary", Reason: fmt.Sprintf("%q must be a plain file name", c.Binary)}
	}
	if c.MaxRedirects < 1 {
		return &fetcher.ConfigurationError{Field: "max_redirects", Reason: "must be at least 1"}
	}
	if c.Timeout < 0 || c.KeepAliveTimeout < 0 {
		return &fetcher.ConfigurationError{Field: "timeout", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) Release() fetcher.Release {
	return fetcher.Release{Host: c.Host, Owner: c.Owner, Repo: c.Repo, Binary: c.Binary}
}

// TargetPath is where the binary ends up for a package rooted at root.
func (c Config) TargetPath(root string) string {
	return filepath.Join(root, c.InstallDir, c.Binary)
}

func (c Config) HTTPClientConfig() utils.HTTPClientConfig {
	return utils.SplitProxyAuth(utils.HTTPClientConfig{
		Timeout:   c.Timeout,
		KATimeout: c.KeepAliveTimeout,
		ProxyURL:  c.Proxy,
		UserAgent: c.UserAgent,
	})
}
