package config

const (
	defaultBaseURL        = "http://127.0.0.1:5152"
	defaultRequestTimeout = 120
	defaultPush           = "sse"
	defaultIdleTimeout    = 60
	defaultProvider       = "groq"
)

func defaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Provider: "groq", Models: []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile", "mixtral-8x7b-32768"}},
		{Provider: "gemini", Models: []string{"gemini-1.5-flash", "gemini-1.5-pro"}},
		{Provider: "anthropic", Models: []string{"claude-3-haiku-20240307", "claude-3-5-sonnet-20240620"}},
		{Provider: "openai", Models: []string{"gpt-4o-mini", "gpt-4o"}},
		{Provider: "cerebras", Models: []string{"llama3.1-8b", "llama3.1-70b"}},
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	catalog := defaultCatalog()
	enabled := true
	idle := defaultIdleTimeout
	return &Config{
		Server: ServerConfig{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
			Push:           defaultPush,
		},
		Stream: StreamConfig{
			Enabled:     &enabled,
			IdleTimeout: &idle,
		},
		Catalog:  catalog,
		Selected: map[string]string{defaultProvider: catalog[0].Models[0]},
		Logging:  defaultLoggingConfig(),
	}
}

func defaultLoggingConfig() LoggingConfig {
	enabled := true
	return LoggingConfig{
		Enabled: &enabled,
		Level:   "info",
		File:    "logs/echochat.log",
	}
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	if c.Server.Push == "" {
		c.Server.Push = defaultPush
	}

	if c.Stream.Enabled == nil {
		enabled := true
		c.Stream.Enabled = &enabled
	}
	if c.Stream.IdleTimeout == nil {
		idle := defaultIdleTimeout
		c.Stream.IdleTimeout = &idle
	}

	if len(c.Catalog) == 0 {
		c.Catalog = defaultCatalog()
	}
	if c.Selected == nil {
		c.Selected = map[string]string{}
		if models := c.Catalog[0].Models; len(models) > 0 {
			c.Selected[c.Catalog[0].Provider] = models[0]
		}
	}

	def := defaultLoggingConfig()
	if c.Logging == (LoggingConfig{}) {
		c.Logging = def
		return
	}

	hasAny := c.Logging.Level != "" || c.Logging.File != "" || c.Logging.Stdout
	if c.Logging.Enabled == nil && hasAny {
		enabled := true
		c.Logging.Enabled = &enabled
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Level
	}
	if c.Logging.File == "" && !c.Logging.Stdout {
		c.Logging.File = def.File
	}
	if c.Logging.Enabled == nil {
		c.Logging.Enabled = def.Enabled
	}
}
