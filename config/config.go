// Package config handles configuration loading and saving.
package config

import (
	"strings"
	"time"

	"github.com/linanwx/echochat/client"
	"github.com/linanwx/echochat/logger"
	"github.com/linanwx/echochat/selection"
)

const (
	configFileName = "config.yaml"
	serverEnvVar   = "ECHOCHAT_SERVER"
)

var configDirOverride string

// SetConfigDir overrides the config directory for the current process.
// Empty value clears the override.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `json:"server" yaml:"server"`
	Stream   StreamConfig      `json:"stream" yaml:"stream"`
	Catalog  []CatalogEntry    `json:"catalog" yaml:"catalog"`
	Selected map[string]string `json:"selection" yaml:"selection"` // provider → model
	Logging  LoggingConfig     `json:"logging,omitempty" yaml:"logging,omitempty"`

	serverOverride string // from ECHOCHAT_SERVER, never saved
}

// ServerConfig describes the chat backend.
type ServerConfig struct {
	BaseURL        string `json:"baseURL" yaml:"baseURL"`
	RequestTimeout int    `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"` // seconds, defaults to 120
	Push           string `json:"push,omitempty" yaml:"push,omitempty"`                     // sse, websocket
}

// StreamConfig contains streaming defaults.
type StreamConfig struct {
	Enabled     *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`         // defaults to true
	IdleTimeout *int  `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty"` // seconds, 0 disables, defaults to 60
	Reasoning   bool  `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// CatalogEntry lists the models offered for one provider. Catalog order is
// the order providers are sent and displayed in.
type CatalogEntry struct {
	Provider string   `json:"provider" yaml:"provider"`
	Models   []string `json:"models" yaml:"models"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Stdout  bool   `json:"stdout,omitempty" yaml:"stdout,omitempty"` // log to stderr outside the TUI
	File    string `json:"file,omitempty" yaml:"file,omitempty"`     // log file path
}

// BaseURL returns the backend URL, honouring ECHOCHAT_SERVER.
func (c *Config) BaseURL() string {
	if c.serverOverride != "" {
		return c.serverOverride
	}
	return c.Server.BaseURL
}

// ClientConfig returns the transport settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:        c.BaseURL(),
		RequestTimeout: time.Duration(c.Server.RequestTimeout) * time.Second,
		Push:           client.PushMode(c.Server.Push),
	}
}

// StreamEnabled reports whether sends stream by default.
func (c *Config) StreamEnabled() bool {
	return c.Stream.Enabled == nil || *c.Stream.Enabled
}

// StreamIdleTimeout maps the configured seconds onto dispatch semantics:
// negative disables the timeout.
func (c *Config) StreamIdleTimeout() time.Duration {
	if c.Stream.IdleTimeout == nil {
		return defaultIdleTimeout * time.Second
	}
	if *c.Stream.IdleTimeout <= 0 {
		return -1
	}
	return time.Duration(*c.Stream.IdleTimeout) * time.Second
}

// Providers returns the catalog's provider ids in order.
func (c *Config) Providers() []string {
	out := make([]string, 0, len(c.Catalog))
	for _, e := range c.Catalog {
		out = append(out, e.Provider)
	}
	return out
}

// Models returns the catalog models for provider.
func (c *Config) Models(provider string) []string {
	for _, e := range c.Catalog {
		if e.Provider == provider {
			return e.Models
		}
	}
	return nil
}

// Selectors returns one selector per catalog provider, in catalog order.
// Providers without a chosen model get an empty selector.
func (c *Config) Selectors() []selection.Selector {
	out := make([]selection.Selector, 0, len(c.Catalog))
	for _, e := range c.Catalog {
		out = append(out, selection.Selector{Provider: e.Provider, Model: c.Selected[e.Provider]})
	}
	return out
}

// Selection resolves the configured selection in catalog order.
func (c *Config) Selection() selection.Selection {
	return selection.FromMap(c.Providers(), c.Selected)
}

// SetSelection replaces the saved selection.
func (c *Config) SetSelection(sel selection.Selection) {
	c.Selected = sel.Map()
}

// BuildLoggerConfig converts the logging section for logger.Init.
func (c *Config) BuildLoggerConfig() logger.Config {
	enabled := true
	if c.Logging.Enabled != nil {
		enabled = *c.Logging.Enabled
	}
	return logger.Config{
		Enabled: enabled,
		Level:   c.Logging.Level,
		Stdout:  c.Logging.Stdout,
		File:    c.Logging.File,
	}
}
